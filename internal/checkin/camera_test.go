package checkin

import (
	"context"
	"sync"
)

// callbackCamera stands in for a scanner that reports decodes through callbacks. Decodes
// arriving while no capture is scanning, or after the first decode of a capture has
// been taken, are dropped.
type callbackCamera struct {
	mu       sync.Mutex
	active   *callbackCapture
	scanning bool
}

func newCallbackCamera() *callbackCamera {
	return &callbackCamera{}
}

// Open starts a capture. Only one capture may be open at a time.
func (c *callbackCamera) Open(ctx context.Context, opts ScanOptions) (Capture, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		return nil, ErrCameraBusy
	}
	cc := &callbackCapture{
		cam:     c,
		decodes: make(chan string, 1),
		done:    make(chan struct{}),
	}
	c.active = cc
	c.scanning = true
	return cc, nil
}

// Decoded is the scanner callback. It reports whether the decode was accepted.
func (c *callbackCamera) Decoded(text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil || !c.scanning {
		return false
	}
	c.scanning = false
	c.active.decodes <- text
	return true
}

// Active reports whether a capture currently holds the camera.
func (c *callbackCamera) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

type callbackCapture struct {
	cam       *callbackCamera
	decodes   chan string
	done      chan struct{}
	closeOnce sync.Once
}

func (cc *callbackCapture) Scan(ctx context.Context) (string, error) {
	select {
	case text := <-cc.decodes:
		return text, nil
	case <-cc.done:
		return "", ErrCaptureClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (cc *callbackCapture) Close() error {
	cc.closeOnce.Do(func() {
		cc.cam.mu.Lock()
		if cc.cam.active == cc {
			cc.cam.active = nil
			cc.cam.scanning = false
		}
		cc.cam.mu.Unlock()
		close(cc.done)
	})
	return nil
}
