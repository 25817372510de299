package checkin

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Phase is the externally visible state of a check-in attempt.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseScanning  Phase = "scanning"
	PhaseVerifying Phase = "verifying"
	PhaseSuccess   Phase = "success"
	PhaseError     Phase = "error"
)

var transitions = map[Phase][]Phase{
	PhaseIdle:      {PhaseScanning},
	PhaseScanning:  {PhaseVerifying, PhaseError},
	PhaseVerifying: {PhaseSuccess, PhaseError},
	PhaseSuccess:   {PhaseIdle},
	PhaseError:     {PhaseIdle},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

var (
	ErrFlowBusy          = errors.New("check-in already in progress")
	ErrNotIdle           = errors.New("check-in must be reset before starting again")
	ErrInvalidTransition = errors.New("invalid check-in transition")
)

// Devices are the platform capabilities a flow drives.
type Devices struct {
	Camera  Camera
	Locator Locator
}

// Flow sequences camera scan, token verification and the location gate.
// A Flow runs one attempt at a time; Reset returns it to idle for a retry.
type Flow struct {
	verifier Verifier
	gate     *Gate
	devices  Devices
	scanOpts ScanOptions
	log      *zap.Logger

	mu           sync.Mutex
	phase        Phase
	failure      *Failure
	running      bool
	onTransition []func(from, to Phase)
}

// NewFlow returns an idle flow.
func NewFlow(verifier Verifier, gate *Gate, devices Devices, log *zap.Logger) *Flow {
	if log == nil {
		log = zap.NewNop()
	}
	return &Flow{
		verifier: verifier,
		gate:     gate,
		devices:  devices,
		scanOpts: DefaultScanOptions,
		log:      log,
		phase:    PhaseIdle,
	}
}

// OnTransition registers fn to be called after every phase change.
func (f *Flow) OnTransition(fn func(from, to Phase)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onTransition = append(f.onTransition, fn)
}

// Phase returns the current phase.
func (f *Flow) Phase() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

// Failure returns the reason for the error phase, or nil.
func (f *Flow) Failure() *Failure {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failure
}

// Run performs one check-in attempt from idle to success or error. Failures are
// returned as *Failure; the camera is released before Run leaves the scanning phase.
func (f *Flow) Run(ctx context.Context) (Decision, error) {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return Decision{}, ErrFlowBusy
	}
	if f.phase != PhaseIdle {
		f.mu.Unlock()
		return Decision{}, ErrNotIdle
	}
	f.running = true
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.running = false
		f.mu.Unlock()
	}()

	if err := f.enter(PhaseScanning, nil); err != nil {
		return Decision{}, err
	}
	text, fail := f.scan(ctx)
	if fail != nil {
		return Decision{}, f.fail(fail)
	}
	if !f.verifier.Verify(text) {
		return Decision{}, f.fail(invalidToken())
	}

	if err := f.enter(PhaseVerifying, nil); err != nil {
		return Decision{}, err
	}
	decision, err := f.gate.Check(ctx, f.devices.Locator)
	if err != nil {
		fail, ok := AsFailure(err)
		if !ok {
			fail = storeFailed(err)
		}
		return Decision{}, f.fail(fail)
	}
	if err := f.enter(PhaseSuccess, nil); err != nil {
		return Decision{}, err
	}
	f.log.Info("check-in admitted", zap.Float64("distance_m", decision.Distance), zap.Float64("radius_m", decision.Center.Radius))
	return decision, nil
}

// scan holds the camera only for the duration of the call.
func (f *Flow) scan(ctx context.Context) (string, *Failure) {
	if f.devices.Camera == nil {
		return "", cameraFailed(ErrCameraNotFound)
	}
	capture, err := f.devices.Camera.Open(ctx, f.scanOpts)
	if err != nil {
		return "", cameraFailed(err)
	}
	defer func() {
		if err := capture.Close(); err != nil {
			f.log.Warn("failed to release camera", zap.Error(err))
		}
	}()

	text, err := capture.Scan(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", cancelled(ctx.Err())
		}
		return "", cameraFailed(err)
	}
	return text, nil
}

// Reset discards the previous outcome and returns the flow to idle.
func (f *Flow) Reset() error {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return ErrFlowBusy
	}
	phase := f.phase
	f.mu.Unlock()
	if phase == PhaseIdle {
		return nil
	}
	return f.enter(PhaseIdle, nil)
}

func (f *Flow) fail(fail *Failure) error {
	if err := f.enter(PhaseError, fail); err != nil {
		return err
	}
	f.log.Info("check-in rejected", zap.String("reason", string(fail.Reason)), zap.String("message", fail.Message))
	return fail
}

func (f *Flow) enter(to Phase, fail *Failure) error {
	f.mu.Lock()
	from := f.phase
	if !CanTransition(from, to) {
		f.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	f.phase = to
	f.failure = fail
	hooks := append([]func(from, to Phase){}, f.onTransition...)
	f.mu.Unlock()

	f.log.Debug("check-in phase", zap.String("from", string(from)), zap.String("to", string(to)))
	for _, fn := range hooks {
		fn(from, to)
	}
	return nil
}
