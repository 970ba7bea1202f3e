// ABOUTME: Tap / double-tap / hold disambiguation from raw pointer events.
// ABOUTME: One Detector per interactive element; timers come from an injectable Scheduler.
package gesture

import (
	"sync"
	"time"
)

// Fixed thresholds. They are not configurable.
const (
	HoldDuration    = 500 * time.Millisecond
	DoubleTapWindow = 300 * time.Millisecond
	MoveThreshold   = 10.0
)

// Handlers are the gesture callbacks. A nil handler is treated as not registered,
// which changes behavior: without OnDoubleTap a tap fires immediately, and without
// OnHold no hold timer is armed.
type Handlers struct {
	OnTap       func()
	OnHold      func()
	OnDoubleTap func()
}

// Timer is a cancelable one-shot timer.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Option configures a Detector.
type Option func(*Detector)

// WithScheduler replaces the wall-clock scheduler, mainly for tests.
func WithScheduler(s Scheduler) Option {
	return func(d *Detector) {
		d.sched = s
	}
}

// Detector is the per-element gesture state machine.
type Detector struct {
	mu       sync.Mutex
	handlers Handlers
	sched    Scheduler

	// current press; only meaningful while pressed
	pressed   bool
	held      bool
	startTime time.Time
	startX    float64
	startY    float64
	holdTimer Timer
	gen       uint64

	// zero when there is no pending single tap
	lastTap time.Time
}

// New creates a Detector for one element.
func New(h Handlers, opts ...Option) *Detector {
	d := &Detector{
		handlers: h,
		sched:    realScheduler{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// PointerDown starts a press. A press already in progress is replaced.
func (d *Detector) PointerDown(x, y float64, t time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopHoldLocked()
	d.gen++
	d.pressed = true
	d.held = false
	d.startTime = t
	d.startX = x
	d.startY = y

	if d.handlers.OnHold != nil {
		gen := d.gen
		d.holdTimer = d.sched.AfterFunc(HoldDuration, func() { d.fireHold(gen) })
	}
}

// PointerUp ends a press and emits at most one tap or double tap.
func (d *Detector) PointerUp(x, y float64, t time.Time) {
	d.mu.Lock()
	if !d.pressed {
		d.mu.Unlock()
		return
	}
	d.stopHoldLocked()
	d.pressed = false

	moved := abs(x-d.startX) > MoveThreshold || abs(y-d.startY) > MoveThreshold
	if moved || d.held || t.Sub(d.startTime) >= HoldDuration {
		d.mu.Unlock()
		return
	}

	if d.handlers.OnDoubleTap != nil && !d.lastTap.IsZero() && t.Sub(d.lastTap) < DoubleTapWindow {
		d.lastTap = time.Time{}
		cb := d.handlers.OnDoubleTap
		d.mu.Unlock()
		cb()
		return
	}

	d.lastTap = t
	onTap := d.handlers.OnTap
	if onTap == nil {
		d.mu.Unlock()
		return
	}
	if d.handlers.OnDoubleTap == nil {
		d.mu.Unlock()
		onTap()
		return
	}

	// A later tap or double tap moves the marker, which suppresses this one.
	marker := t
	d.sched.AfterFunc(DoubleTapWindow, func() {
		d.mu.Lock()
		current := d.lastTap.Equal(marker)
		d.mu.Unlock()
		if current {
			onTap()
		}
	})
	d.mu.Unlock()
}

// PointerCancel abandons the current press without firing anything.
func (d *Detector) PointerCancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopHoldLocked()
	d.pressed = false
	d.held = false
}

// Pressed reports whether a press is in progress.
func (d *Detector) Pressed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pressed
}

func (d *Detector) fireHold(gen uint64) {
	d.mu.Lock()
	if !d.pressed || d.held || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.held = true
	d.holdTimer = nil
	cb := d.handlers.OnHold
	d.mu.Unlock()

	cb()
}

func (d *Detector) stopHoldLocked() {
	if d.holdTimer != nil {
		d.holdTimer.Stop()
		d.holdTimer = nil
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
