// ABOUTME: Reset flow state machine: pick an event day, resolve the new streak start, call the service.
// ABOUTME: Tracks the buttons/calendar view, guards against re-entrant calls, and keeps the last error.
package resetflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/2389-research/streakhub/internal/calendar"
	"github.com/2389-research/streakhub/internal/logger"
	"github.com/2389-research/streakhub/internal/streak"
)

var (
	// ErrBusy is returned when a reset is requested while one is in flight.
	ErrBusy = errors.New("a reset is already in progress")
	// ErrNoSelection is returned when confirming the calendar without a picked day.
	ErrNoSelection = errors.New("no date selected")
	// ErrNotInCalendar is returned for calendar operations outside the calendar view.
	ErrNotInCalendar = errors.New("calendar is not open")
)

// Resetter performs the external "set streak start" action.
type Resetter interface {
	SetStreakStart(ctx context.Context, entityID, isoDate string) error
}

// View is the visible part of the flow.
type View int

const (
	ViewButtons View = iota
	ViewCalendar
)

func (v View) String() string {
	switch v {
	case ViewCalendar:
		return "calendar"
	default:
		return "buttons"
	}
}

// Source names the entry path of an attempt.
type Source string

const (
	SourceQuickPick Source = "quick_pick"
	SourceCalendar  Source = "calendar"
	SourceDate      Source = "date"
)

// Attempt describes one call to the Resetter, successful or not.
type Attempt struct {
	Target      string
	Source      Source
	EventDate   calendar.Date
	StreakStart calendar.Date
	At          time.Time
	Duration    time.Duration
	Err         error
}

// Events are optional callbacks delivered synchronously after state has settled.
type Events struct {
	OnClose   func()
	OnError   func(msg string)
	OnAttempt func(Attempt)
}

// Options configures a Flow.
type Options struct {
	EntityID string
	// ServiceTarget overrides EntityID as the entity passed to the service.
	ServiceTarget string
	// StreakStart is the active streak's first day; nil leaves the window unbounded below.
	StreakStart *calendar.Date
	WeekStart   time.Weekday
	Now         func() time.Time
	Events      Events
}

// Flow is safe for concurrent use; at most one external call is outstanding.
type Flow struct {
	mu       sync.Mutex
	resetter Resetter
	opts     Options

	view    View
	loading bool
	err     error
	picker  *Picker
}

// New creates a Flow in the buttons view.
func New(r Resetter, opts Options) (*Flow, error) {
	if r == nil {
		return nil, errors.New("resetter is required")
	}
	if opts.EntityID == "" && opts.ServiceTarget == "" {
		return nil, errors.New("entity or service target is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.StreakStart != nil {
		start := *opts.StreakStart
		opts.StreakStart = &start
	}
	return &Flow{resetter: r, opts: opts}, nil
}

// Target is the entity the service is called with.
func (f *Flow) Target() string {
	if f.opts.ServiceTarget != "" {
		return f.opts.ServiceTarget
	}
	return f.opts.EntityID
}

// View returns the current view.
func (f *Flow) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

// Loading reports whether an external call is in flight.
func (f *Flow) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

// Err returns the last failure, until dismissed or replaced by a new attempt.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// ErrorMessage returns the user-facing text for Err, or "".
func (f *Flow) ErrorMessage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err == nil {
		return ""
	}
	return f.err.Error()
}

// DismissError leaves the error sub-state.
func (f *Flow) DismissError() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = nil
}

// UpdateStreakStart replaces the active streak start used for the calendar window.
func (f *Flow) UpdateStreakStart(start *calendar.Date) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if start == nil {
		f.opts.StreakStart = nil
		return
	}
	s := *start
	f.opts.StreakStart = &s
}

// Window returns the selectable event-day range as of now.
func (f *Flow) Window() calendar.Window {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.windowLocked()
}

func (f *Flow) windowLocked() calendar.Window {
	today := calendar.Today(f.opts.Now())
	return calendar.Window{Min: f.opts.StreakStart, Max: &today}
}

// ShowCalendar switches to the calendar view with a fresh picker.
func (f *Flow) ShowCalendar() *Picker {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loading {
		return f.picker
	}
	today := calendar.Today(f.opts.Now())
	f.picker = NewPicker(f.windowLocked(), f.opts.WeekStart, today)
	f.view = ViewCalendar
	return f.picker
}

// CancelCalendar returns to the buttons view.
func (f *Flow) CancelCalendar() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loading {
		return
	}
	f.view = ViewButtons
	f.picker = nil
}

// Picker returns the open picker, or nil outside the calendar view.
func (f *Flow) Picker() *Picker {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.picker
}

// The reset methods return the attempt they made, so callers report the same
// event day that was sent. The attempt is zero when nothing was sent.

// QuickReset resets relative to today: the event happened pick.DaysAgo() days ago.
func (f *Flow) QuickReset(ctx context.Context, pick streak.QuickPick) (Attempt, error) {
	if !pick.Valid() {
		return Attempt{}, fmt.Errorf("invalid quick pick %d", int(pick))
	}
	return f.run(ctx, SourceQuickPick, func(now time.Time) (calendar.Date, error) {
		return pick.EventDate(now), nil
	})
}

// ConfirmCalendar resets using the day picked in the calendar view.
func (f *Flow) ConfirmCalendar(ctx context.Context) (Attempt, error) {
	return f.run(ctx, SourceCalendar, func(time.Time) (calendar.Date, error) {
		if f.view != ViewCalendar || f.picker == nil {
			return calendar.Date{}, ErrNotInCalendar
		}
		d, ok := f.picker.Selected()
		if !ok {
			return calendar.Date{}, ErrNoSelection
		}
		return d, nil
	})
}

// ResetOn resets for an explicit event day, which must lie in the current window.
func (f *Flow) ResetOn(ctx context.Context, eventDate calendar.Date) (Attempt, error) {
	return f.run(ctx, SourceDate, func(time.Time) (calendar.Date, error) {
		if !f.windowLocked().Contains(eventDate) {
			return calendar.Date{}, ErrDateOutOfRange
		}
		return eventDate, nil
	})
}

// run claims the loading guard, resolves the event day under the lock, and
// performs the external call without it.
func (f *Flow) run(ctx context.Context, source Source, pick func(now time.Time) (calendar.Date, error)) (Attempt, error) {
	f.mu.Lock()
	if f.loading {
		f.mu.Unlock()
		logger.Debug("reset ignored while loading", "source", source)
		return Attempt{}, ErrBusy
	}
	now := f.opts.Now()
	eventDate, err := pick(now)
	if err != nil {
		f.mu.Unlock()
		return Attempt{}, err
	}
	f.loading = true
	f.err = nil
	f.mu.Unlock()

	attempt := Attempt{
		Target:      f.Target(),
		Source:      source,
		EventDate:   eventDate,
		StreakStart: streak.ResolveStreakStart(eventDate),
		At:          now,
	}
	callErr := f.call(ctx, &attempt)

	f.mu.Lock()
	f.view = ViewButtons
	f.picker = nil
	if callErr != nil {
		f.err = callErr
	}
	ev := f.opts.Events
	f.mu.Unlock()

	if ev.OnAttempt != nil {
		ev.OnAttempt(attempt)
	}
	if callErr != nil {
		logger.Warn("streak reset failed", "target", attempt.Target, "start", attempt.StreakStart, "err", callErr)
		if ev.OnError != nil {
			ev.OnError(callErr.Error())
		}
		return attempt, callErr
	}
	logger.Info("streak reset", "target", attempt.Target, "start", attempt.StreakStart, "source", source)
	if ev.OnClose != nil {
		ev.OnClose()
	}
	return attempt, nil
}

// call invokes the Resetter and always releases the loading guard, even on panic.
func (f *Flow) call(ctx context.Context, a *Attempt) (err error) {
	defer func() {
		f.mu.Lock()
		f.loading = false
		f.mu.Unlock()
	}()
	start := f.opts.Now()
	err = f.resetter.SetStreakStart(ctx, a.Target, a.StreakStart.String())
	a.Duration = f.opts.Now().Sub(start)
	if err != nil {
		err = fmt.Errorf("set streak start: %w", err)
		a.Err = err
	}
	return err
}
