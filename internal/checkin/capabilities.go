package checkin

import (
	"context"
	"errors"
	"sync"
	"time"

	"communitycentre/internal/attendance"
	"communitycentre/internal/geo"
)

// ScanOptions configures continuous frame decoding.
type ScanOptions struct {
	FPS        int
	BoxSize    int
	FacingMode string
}

// DefaultScanOptions samples the rear camera at 10fps within a 250px square.
var DefaultScanOptions = ScanOptions{FPS: 10, BoxSize: 250, FacingMode: "environment"}

// Camera grants exclusive access to a capture device.
type Camera interface {
	Open(ctx context.Context, opts ScanOptions) (Capture, error)
}

// Capture is an open camera session. Scan blocks until the first decode, the
// session is closed, or ctx ends. Close must be safe to call more than once.
type Capture interface {
	Scan(ctx context.Context) (string, error)
	Close() error
}

// LocateOptions mirrors a single-shot platform position request.
type LocateOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

// Locator samples the device position once.
type Locator interface {
	Locate(ctx context.Context, opts LocateOptions) (geo.Point, error)
}

// CenterSource provides the configured centre. A nil location means none is set.
type CenterSource interface {
	GetCenterLocation(ctx context.Context) (*attendance.CenterLocation, error)
}

var (
	ErrCaptureClosed = errors.New("capture closed")
	ErrCameraBusy    = errors.New("camera already in use")
)

// ReportedCamera replays a decode the client performed on its own device. OpenErr
// carries a camera failure the client reported instead.
type ReportedCamera struct {
	Decoded string
	OpenErr error

	mu      sync.Mutex
	opened  int
	closed  int
	current *reportedCapture
}

func (r *ReportedCamera) Open(ctx context.Context, opts ScanOptions) (Capture, error) {
	if r.OpenErr != nil {
		return nil, r.OpenErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		return nil, ErrCameraBusy
	}
	r.opened++
	r.current = &reportedCapture{cam: r, text: r.Decoded}
	return r.current, nil
}

// Released reports whether every opened capture has been closed.
func (r *ReportedCamera) Released() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current == nil && r.opened == r.closed
}

type reportedCapture struct {
	cam    *ReportedCamera
	text   string
	closed bool
}

func (rc *reportedCapture) Scan(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rc.cam.mu.Lock()
	closed := rc.closed
	rc.cam.mu.Unlock()
	if closed {
		return "", ErrCaptureClosed
	}
	return rc.text, nil
}

func (rc *reportedCapture) Close() error {
	rc.cam.mu.Lock()
	defer rc.cam.mu.Unlock()
	if rc.closed {
		return nil
	}
	rc.closed = true
	rc.cam.closed++
	if rc.cam.current == rc {
		rc.cam.current = nil
	}
	return nil
}

// ReportedLocator replays a position, or a position error, sampled by the client.
type ReportedLocator struct {
	Position *geo.Point
	Err      error

	mu    sync.Mutex
	calls int
}

func (r *ReportedLocator) Locate(ctx context.Context, opts LocateOptions) (geo.Point, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return geo.Point{}, err
	}
	if r.Err != nil {
		return geo.Point{}, r.Err
	}
	if r.Position == nil {
		return geo.Point{}, ErrGeoUnavailable
	}
	return *r.Position, nil
}

// Calls returns how many times a position was requested.
func (r *ReportedLocator) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
