package checkin

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Reason classifies why a check-in attempt ended in the error phase.
type Reason string

const (
	ReasonInvalidToken   Reason = "invalid_token"
	ReasonCenterNotSet   Reason = "center_not_set"
	ReasonGeoUnsupported Reason = "geo_unsupported"
	ReasonGeoDenied      Reason = "geo_denied"
	ReasonGeoUnavailable Reason = "geo_unavailable"
	ReasonGeoTimeout     Reason = "geo_timeout"
	ReasonTooFar         Reason = "too_far"
	ReasonCameraDenied   Reason = "camera_denied"
	ReasonCameraNotFound Reason = "camera_not_found"
	ReasonCameraFailed   Reason = "camera_failed"
	ReasonStoreFailed    Reason = "store_failed"
	ReasonCancelled      Reason = "cancelled"
)

// Capability failure kinds reported by Camera and Locator implementations.
var (
	ErrCameraDenied   = errors.New("camera permission denied")
	ErrCameraNotFound = errors.New("no camera device found")

	ErrGeoUnsupported = errors.New("geolocation is not supported")
	ErrGeoDenied      = errors.New("user denied geolocation")
	ErrGeoUnavailable = errors.New("position unavailable")
	ErrGeoTimeout     = errors.New("timeout expired")
)

// Failure is the user-facing outcome of a failed check-in.
type Failure struct {
	Reason   Reason
	Message  string
	Distance float64
	Radius   float64
	Err      error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

// AsFailure extracts a *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	ok := errors.As(err, &f)
	return f, ok
}

func invalidToken() *Failure {
	return &Failure{Reason: ReasonInvalidToken, Message: "Invalid QR Code. Please scan the official attendance code."}
}

func centerNotSet() *Failure {
	return &Failure{Reason: ReasonCenterNotSet, Message: "Center location not set. An admin must set it first."}
}

func tooFar(distance, radius float64) *Failure {
	return &Failure{
		Reason:   ReasonTooFar,
		Distance: distance,
		Radius:   radius,
		Message: fmt.Sprintf("You are too far from the centre (~%dm away, required within %sm).",
			int64(math.Round(distance)), strconv.FormatFloat(radius, 'f', -1, 64)),
	}
}

func storeFailed(err error) *Failure {
	return &Failure{Reason: ReasonStoreFailed, Message: fmt.Sprintf("Database error: %v", err), Err: err}
}

func locationFailed(err error) *Failure {
	reason := ReasonGeoUnavailable
	switch {
	case errors.Is(err, ErrGeoUnsupported):
		reason = ReasonGeoUnsupported
	case errors.Is(err, ErrGeoDenied):
		reason = ReasonGeoDenied
	case errors.Is(err, ErrGeoTimeout):
		reason = ReasonGeoTimeout
	}
	return &Failure{
		Reason:  reason,
		Message: fmt.Sprintf("Could not get location: %v. Please enable location services.", err),
		Err:     err,
	}
}

func cameraFailed(err error) *Failure {
	reason := ReasonCameraFailed
	switch {
	case errors.Is(err, ErrCameraDenied):
		reason = ReasonCameraDenied
	case errors.Is(err, ErrCameraNotFound):
		reason = ReasonCameraNotFound
	}
	return &Failure{Reason: reason, Message: fmt.Sprintf("Failed to start camera: %v", err), Err: err}
}

func cancelled(err error) *Failure {
	return &Failure{Reason: ReasonCancelled, Message: "Check-in cancelled.", Err: err}
}
