// ABOUTME: Tests for the reset flow: resolution, loading guard, view transitions, and error handling.
// ABOUTME: Uses a recording resetter that can block to hold a call in flight.
package resetflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/2389-research/streakhub/internal/calendar"
	"github.com/2389-research/streakhub/internal/streak"
)

type call struct {
	entityID string
	date     string
}

type fakeResetter struct {
	mu      sync.Mutex
	calls   []call
	err     error
	started chan struct{}
	release chan struct{}
}

func (r *fakeResetter) SetStreakStart(ctx context.Context, entityID, isoDate string) error {
	r.mu.Lock()
	r.calls = append(r.calls, call{entityID, isoDate})
	started, release, err := r.started, r.release, r.err
	r.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	return err
}

func (r *fakeResetter) recorded() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

func fixedNow() time.Time {
	return time.Date(2026, time.January, 10, 15, 30, 0, 0, time.UTC)
}

func newFlow(t *testing.T, r Resetter, mutate func(*Options)) *Flow {
	t.Helper()
	start := calendar.MustParse("2025-12-20")
	opts := Options{
		EntityID:    "sensor.no_smoking_rank",
		StreakStart: &start,
		WeekStart:   time.Monday,
		Now:         fixedNow,
	}
	if mutate != nil {
		mutate(&opts)
	}
	f, err := New(r, opts)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return f
}

func TestNewValidates(t *testing.T) {
	if _, err := New(nil, Options{EntityID: "sensor.x"}); err == nil {
		t.Error("expected error for nil resetter")
	}
	if _, err := New(&fakeResetter{}, Options{}); err == nil {
		t.Error("expected error without entity")
	}
}

func TestQuickResetResolvesStreakStart(t *testing.T) {
	tests := []struct {
		pick streak.QuickPick
		want string
	}{
		{streak.Today, "2026-01-11"},
		{streak.Yesterday, "2026-01-10"},
		{streak.DayBeforeYesterday, "2026-01-09"},
	}

	for _, tt := range tests {
		t.Run(tt.pick.String(), func(t *testing.T) {
			r := &fakeResetter{}
			closed := 0
			f := newFlow(t, r, func(o *Options) { o.Events.OnClose = func() { closed++ } })

			a, err := f.QuickReset(context.Background(), tt.pick)
			if err != nil {
				t.Fatalf("QuickReset error: %v", err)
			}
			if a.StreakStart.String() != tt.want || a.Source != SourceQuickPick {
				t.Errorf("returned attempt %+v, want start %s", a, tt.want)
			}
			calls := r.recorded()
			if len(calls) != 1 || calls[0].date != tt.want {
				t.Fatalf("got calls %+v, want one call with %s", calls, tt.want)
			}
			if calls[0].entityID != "sensor.no_smoking_rank" {
				t.Errorf("unexpected entity %q", calls[0].entityID)
			}
			if closed != 1 {
				t.Errorf("expected close once, got %d", closed)
			}
			if f.Loading() {
				t.Error("loading should be cleared")
			}
		})
	}
}

func TestServiceTargetOverridesEntity(t *testing.T) {
	r := &fakeResetter{}
	f := newFlow(t, r, func(o *Options) { o.ServiceTarget = "sensor.no_smoking_streak" })

	if _, err := f.QuickReset(context.Background(), streak.Today); err != nil {
		t.Fatalf("QuickReset error: %v", err)
	}
	if got := r.recorded()[0].entityID; got != "sensor.no_smoking_streak" {
		t.Errorf("expected service target, got %q", got)
	}
}

func TestReentrantResetIsDropped(t *testing.T) {
	r := &fakeResetter{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	f := newFlow(t, r, nil)

	done := make(chan error, 1)
	go func() {
		_, err := f.QuickReset(context.Background(), streak.Today)
		done <- err
	}()
	<-r.started

	if !f.Loading() {
		t.Fatal("expected loading while the call is in flight")
	}
	if _, err := f.QuickReset(context.Background(), streak.Today); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
	if _, err := f.ResetOn(context.Background(), calendar.MustParse("2026-01-05")); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy for date reset, got %v", err)
	}

	close(r.release)
	if err := <-done; err != nil {
		t.Fatalf("first reset error: %v", err)
	}
	if n := len(r.recorded()); n != 1 {
		t.Errorf("expected exactly one external call, got %d", n)
	}
	if f.Loading() {
		t.Error("loading should be cleared after completion")
	}
}

func TestFailureKeepsErrorUntilDismissed(t *testing.T) {
	r := &fakeResetter{err: errors.New("service unavailable")}
	var msgs []string
	closed := 0
	f := newFlow(t, r, func(o *Options) {
		o.Events.OnError = func(msg string) { msgs = append(msgs, msg) }
		o.Events.OnClose = func() { closed++ }
	})

	f.ShowCalendar()
	if err := f.Picker().Select(calendar.MustParse("2026-01-08")); err != nil {
		t.Fatalf("Select error: %v", err)
	}
	_, err := f.ConfirmCalendar(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if f.Loading() {
		t.Error("loading must be cleared on failure")
	}
	if f.View() != ViewButtons {
		t.Errorf("expected buttons view after failure, got %v", f.View())
	}
	if closed != 0 {
		t.Error("close must not fire on failure")
	}
	if len(msgs) != 1 || f.ErrorMessage() != msgs[0] {
		t.Errorf("expected one error event matching ErrorMessage, got %v / %q", msgs, f.ErrorMessage())
	}
	if f.Err() == nil {
		t.Error("error should persist")
	}

	f.DismissError()
	if f.Err() != nil || f.ErrorMessage() != "" {
		t.Error("expected error cleared after dismiss")
	}
	if n := len(r.recorded()); n != 1 {
		t.Errorf("expected no automatic retry, got %d calls", n)
	}
}

func TestNewAttemptClearsPreviousError(t *testing.T) {
	r := &fakeResetter{err: errors.New("boom")}
	f := newFlow(t, r, nil)

	_, _ = f.QuickReset(context.Background(), streak.Today)
	if f.Err() == nil {
		t.Fatal("expected error")
	}

	r.mu.Lock()
	r.err = nil
	r.mu.Unlock()

	if _, err := f.QuickReset(context.Background(), streak.Today); err != nil {
		t.Fatalf("QuickReset error: %v", err)
	}
	if f.Err() != nil {
		t.Error("expected error cleared by successful attempt")
	}
}

func TestCalendarNavigation(t *testing.T) {
	r := &fakeResetter{}
	f := newFlow(t, r, nil)

	if f.View() != ViewButtons {
		t.Fatal("expected buttons view initially")
	}
	p := f.ShowCalendar()
	if f.View() != ViewCalendar {
		t.Fatal("expected calendar view")
	}
	if y, m := p.Month(); y != 2026 || m != time.January {
		t.Errorf("expected picker on January 2026, got %d-%02d", y, m)
	}

	f.CancelCalendar()
	if f.View() != ViewButtons || f.Picker() != nil {
		t.Error("expected cancel to return to buttons")
	}
	if len(r.recorded()) != 0 {
		t.Error("cancel must not call the service")
	}
}

func TestConfirmCalendarResolvesSelectedDay(t *testing.T) {
	r := &fakeResetter{}
	var attempts []Attempt
	f := newFlow(t, r, func(o *Options) { o.Events.OnAttempt = func(a Attempt) { attempts = append(attempts, a) } })

	p := f.ShowCalendar()
	if !p.PrevMonth() {
		t.Fatal("expected December to be reachable")
	}
	if err := p.Select(calendar.MustParse("2025-12-31")); err != nil {
		t.Fatalf("Select error: %v", err)
	}
	if _, err := f.ConfirmCalendar(context.Background()); err != nil {
		t.Fatalf("ConfirmCalendar error: %v", err)
	}

	if got := r.recorded()[0].date; got != "2026-01-01" {
		t.Errorf("expected year rollover to 2026-01-01, got %s", got)
	}
	if f.View() != ViewButtons {
		t.Error("expected buttons view after success")
	}
	if len(attempts) != 1 || attempts[0].Source != SourceCalendar || attempts[0].Err != nil {
		t.Errorf("unexpected attempts %+v", attempts)
	}
}

func TestConfirmCalendarPreconditions(t *testing.T) {
	r := &fakeResetter{}
	f := newFlow(t, r, nil)

	if _, err := f.ConfirmCalendar(context.Background()); !errors.Is(err, ErrNotInCalendar) {
		t.Errorf("expected ErrNotInCalendar, got %v", err)
	}
	f.ShowCalendar()
	if _, err := f.ConfirmCalendar(context.Background()); !errors.Is(err, ErrNoSelection) {
		t.Errorf("expected ErrNoSelection, got %v", err)
	}
	if len(r.recorded()) != 0 {
		t.Error("no call expected")
	}
	if f.Loading() {
		t.Error("precondition failures must not leave loading set")
	}
}

func TestResetOnChecksWindow(t *testing.T) {
	tests := []struct {
		name    string
		date    string
		wantErr error
	}{
		{"before streak start", "2025-12-19", ErrDateOutOfRange},
		{"streak start", "2025-12-20", nil},
		{"today", "2026-01-10", nil},
		{"future", "2026-01-11", ErrDateOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeResetter{}
			f := newFlow(t, r, nil)

			_, err := f.ResetOn(context.Background(), calendar.MustParse(tt.date))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
			wantCalls := 0
			if tt.wantErr == nil {
				wantCalls = 1
			}
			if n := len(r.recorded()); n != wantCalls {
				t.Errorf("got %d calls, want %d", n, wantCalls)
			}
		})
	}
}

func TestWindowUnboundedWithoutStreak(t *testing.T) {
	f := newFlow(t, &fakeResetter{}, func(o *Options) { o.StreakStart = nil })

	w := f.Window()
	if w.Min != nil {
		t.Errorf("expected no lower bound, got %v", w.Min)
	}
	if w.Max == nil || w.Max.String() != "2026-01-10" {
		t.Errorf("expected max today, got %v", w.Max)
	}

	f.UpdateStreakStart(&calendar.Date{Year: 2026, Month: time.January, Day: 2})
	if w := f.Window(); w.Min == nil || w.Min.String() != "2026-01-02" {
		t.Errorf("expected updated lower bound, got %v", w.Min)
	}
}

func TestInvalidQuickPick(t *testing.T) {
	r := &fakeResetter{}
	f := newFlow(t, r, nil)

	if _, err := f.QuickReset(context.Background(), streak.QuickPick(7)); err == nil {
		t.Error("expected error for invalid pick")
	}
	if len(r.recorded()) != 0 {
		t.Error("no call expected")
	}
}
