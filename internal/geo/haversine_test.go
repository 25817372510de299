package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance_SamePointIsZero(t *testing.T) {
	for _, p := range []Point{{0, 0}, {51.5072, -0.1276}, {-33.8688, 151.2093}, {89.9, 179.9}} {
		assert.Equal(t, 0.0, Distance(p, p), "point %v", p)
	}
}

func TestDistance_Symmetric(t *testing.T) {
	pairs := [][2]Point{
		{{0, 0}, {0, 0.0001}},
		{{51.5072, -0.1276}, {48.8566, 2.3522}},
		{{1.3521, 103.8198}, {-33.8688, 151.2093}},
		{{-45, -170}, {45, 170}},
	}
	for _, p := range pairs {
		assert.InDelta(t, Distance(p[0], p[1]), Distance(p[1], p[0]), 1e-6)
	}
}

func TestDistance_KnownValues(t *testing.T) {
	// 0.0001 degrees of longitude at the equator
	assert.InDelta(t, 11.12, Distance(Point{0, 0}, Point{0, 0.0001}), 0.01)
	assert.InDelta(t, 3.34, Distance(Point{0, 0}, Point{0, 0.00003}), 0.01)

	// London to Paris is roughly 343.5km on a spherical Earth
	assert.InDelta(t, 343500, Distance(Point{51.5072, -0.1276}, Point{48.8566, 2.3522}), 1000)

	// quarter meridian
	assert.InDelta(t, EarthRadiusMeters*math.Pi/2, Distance(Point{0, 0}, Point{90, 0}), 1e-6)
}

func TestDistance_NaNPropagates(t *testing.T) {
	assert.True(t, math.IsNaN(Distance(Point{math.NaN(), 0}, Point{0, 0})))
}
