// Package fade applies time-based volume ramps to an audio output handle.
// Ramps use a fixed step count so the envelope shape is independent of
// the configured duration.
package fade

import (
	"sync"
	"time"
)

// Steps is the fixed number of volume increments per ramp.
const Steps = 50

// VolumeHandle is the slice of the output handle a fade needs.
type VolumeHandle interface {
	SetVolume(v float64) error
	Volume() float64
}

// Controller runs at most one fade-in and one fade-out at a time.
// Starting a new fade of either kind cancels the in-flight fade of that
// same kind.
type Controller struct {
	mu  sync.Mutex
	in  *ramp
	out *ramp
}

type ramp struct {
	cancel chan struct{}
	done   chan struct{}
}

func New() *Controller {
	return &Controller{}
}

// FadeIn ramps the handle volume from 0 to target over duration. A zero
// duration sets the volume immediately.
func (c *Controller) FadeIn(h VolumeHandle, duration time.Duration, target float64) {
	c.mu.Lock()
	stopLocked(c.in)
	if duration <= 0 {
		c.in = nil
		c.mu.Unlock()
		_ = h.SetVolume(target)
		return
	}
	r := newRamp()
	c.in = r
	c.mu.Unlock()

	_ = h.SetVolume(0)
	go r.run(duration, func(step int) {
		_ = h.SetVolume(target * float64(step) / Steps)
	}, nil)
}

// FadeOut ramps the handle volume from its current value to 0 over
// duration, then invokes onComplete. A zero duration invokes onComplete
// immediately without touching the volume.
func (c *Controller) FadeOut(h VolumeHandle, duration time.Duration, onComplete func()) {
	c.mu.Lock()
	stopLocked(c.out)
	if duration <= 0 {
		c.out = nil
		c.mu.Unlock()
		if onComplete != nil {
			onComplete()
		}
		return
	}
	r := newRamp()
	c.out = r
	c.mu.Unlock()

	start := h.Volume()
	go r.run(duration, func(step int) {
		_ = h.SetVolume(start * float64(Steps-step) / Steps)
	}, onComplete)
}

// FadingIn reports whether a fade-in ramp is currently running.
func (c *Controller) FadingIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return running(c.in)
}

// FadingOut reports whether a fade-out ramp is currently running.
func (c *Controller) FadingOut() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return running(c.out)
}

// Cancel stops any in-flight ramps without completing them.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	stopLocked(c.in)
	stopLocked(c.out)
	c.in = nil
	c.out = nil
}

func newRamp() *ramp {
	return &ramp{
		cancel: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func stopLocked(r *ramp) {
	if r == nil {
		return
	}
	select {
	case <-r.cancel:
	default:
		close(r.cancel)
	}
}

func running(r *ramp) bool {
	if r == nil {
		return false
	}
	select {
	case <-r.done:
		return false
	case <-r.cancel:
		return false
	default:
		return true
	}
}

// run ticks through the fixed step count, invoking apply with the step
// number (1..Steps), then onComplete if the ramp was not cancelled.
func (r *ramp) run(duration time.Duration, apply func(step int), onComplete func()) {
	defer close(r.done)
	ticker := time.NewTicker(duration / Steps)
	defer ticker.Stop()
	for step := 1; step <= Steps; step++ {
		select {
		case <-r.cancel:
			return
		case <-ticker.C:
			apply(step)
		}
	}
	if onComplete != nil {
		onComplete()
	}
}
