// ABOUTME: Month calendar picker bounded by a validity window.
// ABOUTME: Guards month navigation and rejects selection of days outside the window.
package resetflow

import (
	"errors"
	"time"

	"github.com/2389-research/streakhub/internal/calendar"
)

// ErrDateOutOfRange is returned when a day outside the validity window is picked.
var ErrDateOutOfRange = errors.New("date is outside the selectable range")

// Picker is the calendar view state. It is not safe for concurrent use.
type Picker struct {
	window    calendar.Window
	weekStart time.Weekday
	today     calendar.Date

	year     int
	month    time.Month
	selected *calendar.Date
}

// NewPicker opens on the month of the window's max date, or today's month without one.
func NewPicker(window calendar.Window, weekStart time.Weekday, today calendar.Date) *Picker {
	p := &Picker{
		window:    window,
		weekStart: weekStart,
		today:     today,
		year:      today.Year,
		month:     today.Month,
	}
	if window.Max != nil {
		p.year, p.month = window.Max.Year, window.Max.Month
	}
	return p
}

// Window returns the selectable range.
func (p *Picker) Window() calendar.Window { return p.window }

// WeekStart returns the first grid column.
func (p *Picker) WeekStart() time.Weekday { return p.weekStart }

// Month returns the month being shown.
func (p *Picker) Month() (int, time.Month) { return p.year, p.month }

// CanPrev reports whether the previous month has selectable days.
func (p *Picker) CanPrev() bool { return p.window.CanShowPrevMonth(p.year, p.month) }

// CanNext reports whether the next month has selectable days.
func (p *Picker) CanNext() bool { return p.window.CanShowNextMonth(p.year, p.month) }

// PrevMonth moves the view back one month if allowed.
func (p *Picker) PrevMonth() bool {
	if !p.CanPrev() {
		return false
	}
	first := calendar.NewDate(p.year, p.month-1, 1)
	p.year, p.month = first.Year, first.Month
	return true
}

// NextMonth moves the view forward one month if allowed.
func (p *Picker) NextMonth() bool {
	if !p.CanNext() {
		return false
	}
	first := calendar.NewDate(p.year, p.month+1, 1)
	p.year, p.month = first.Year, first.Month
	return true
}

// Select marks d as the chosen event day and shows its month.
func (p *Picker) Select(d calendar.Date) error {
	if !p.window.Contains(d) {
		return ErrDateOutOfRange
	}
	p.selected = &d
	p.year, p.month = d.Year, d.Month
	return nil
}

// MoveSelection shifts the selection by days, stopping at the window edges.
// Without a selection it starts from the window's max date (or today).
// It returns ErrDateOutOfRange when the window has no selectable day, which
// happens right after a "today" reset moves the streak start to tomorrow.
func (p *Picker) MoveSelection(days int) error {
	from := p.today
	if p.window.Max != nil {
		from = *p.window.Max
	}
	if p.selected != nil {
		from = *p.selected
	}
	to := from.AddDays(days)
	if p.window.Min != nil && to.Before(*p.window.Min) {
		to = *p.window.Min
	}
	if p.window.Max != nil && to.After(*p.window.Max) {
		to = *p.window.Max
	}
	return p.Select(to)
}

// Selected returns the chosen day, if any.
func (p *Picker) Selected() (calendar.Date, bool) {
	if p.selected == nil {
		return calendar.Date{}, false
	}
	return *p.selected, true
}

// Grid lays out the month being shown.
func (p *Picker) Grid() calendar.MonthGrid {
	return calendar.Grid(p.year, p.month, p.weekStart, p.window, p.today, p.selected)
}
