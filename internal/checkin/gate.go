package checkin

import (
	"context"
	"errors"
	"time"

	"communitycentre/internal/attendance"
	"communitycentre/internal/geo"
)

// DefaultLocateTimeout bounds the wait for a device position.
const DefaultLocateTimeout = 10 * time.Second

// Decision describes an admitted position.
type Decision struct {
	Position geo.Point                 `json:"position"`
	Center   attendance.CenterLocation `json:"center"`
	Distance float64                   `json:"distance"`
}

// Gate admits positions within the configured radius of the centre.
type Gate struct {
	centers CenterSource
	timeout time.Duration
}

// NewGate builds a gate reading the centre from centers.
func NewGate(centers CenterSource, timeout time.Duration) *Gate {
	if timeout <= 0 {
		timeout = DefaultLocateTimeout
	}
	return &Gate{centers: centers, timeout: timeout}
}

// Within returns the distance from the centre and whether it is inside the radius.
// The boundary is inclusive.
func Within(center attendance.CenterLocation, pos geo.Point) (float64, bool) {
	d := geo.Distance(pos, geo.Point{Lat: center.Lat, Lon: center.Lon})
	return d, d <= center.Radius
}

// Check loads the centre, samples one position from loc and decides. Any failure is
// returned as a *Failure. The locator is not consulted when no centre is configured.
func (g *Gate) Check(ctx context.Context, loc Locator) (Decision, error) {
	center, err := g.centers.GetCenterLocation(ctx)
	if err != nil {
		return Decision{}, storeFailed(err)
	}
	if !center.Configured() {
		return Decision{}, centerNotSet()
	}
	if loc == nil {
		return Decision{}, locationFailed(ErrGeoUnsupported)
	}

	lctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	pos, err := loc.Locate(lctx, LocateOptions{HighAccuracy: true, Timeout: g.timeout})
	if err != nil {
		if ctx.Err() != nil {
			return Decision{}, cancelled(ctx.Err())
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrGeoTimeout
		}
		return Decision{}, locationFailed(err)
	}

	d, ok := Within(*center, pos)
	if !ok {
		return Decision{}, tooFar(d, center.Radius)
	}
	return Decision{Position: pos, Center: *center, Distance: d}, nil
}
