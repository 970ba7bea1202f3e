// ABOUTME: Month grid layout and validity windows for the date picker.
// ABOUTME: Computes days-in-month, weekday alignment, and which cells are selectable.
package calendar

import "time"

// DaysInMonth returns the number of days in month of year ("day 0 of next month").
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// FirstWeekdayOffset returns how many blank cells precede day 1 in a grid whose
// first column is weekStart. The result is in [0, 6].
func FirstWeekdayOffset(year int, month time.Month, weekStart time.Weekday) int {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Weekday()
	return (int(first) - int(weekStart) + 7) % 7
}

// Window is an inclusive date range. A nil bound is unbounded on that side.
type Window struct {
	Min *Date
	Max *Date
}

// NewWindow builds a window from optional bounds.
func NewWindow(min, max *Date) Window {
	return Window{Min: min, Max: max}
}

// Contains reports whether d lies within the window.
func (w Window) Contains(d Date) bool {
	return InRange(d, w.Min, w.Max)
}

// InRange reports whether min <= d <= max, skipping absent bounds.
func InRange(d Date, min, max *Date) bool {
	if min != nil && d.Before(*min) {
		return false
	}
	if max != nil && d.After(*max) {
		return false
	}
	return true
}

// CanShowPrevMonth reports whether the month before (year, month) still overlaps the window.
func (w Window) CanShowPrevMonth(year int, month time.Month) bool {
	if w.Min == nil {
		return true
	}
	return year > w.Min.Year || (year == w.Min.Year && month > w.Min.Month)
}

// CanShowNextMonth reports whether the month after (year, month) still overlaps the window.
func (w Window) CanShowNextMonth(year int, month time.Month) bool {
	if w.Max == nil {
		return true
	}
	return year < w.Max.Year || (year == w.Max.Year && month < w.Max.Month)
}

// Cell is one day of a month grid.
type Cell struct {
	Date     Date
	Disabled bool
	Today    bool
	Selected bool
}

// MonthGrid is the layout of one month starting on a given weekday.
type MonthGrid struct {
	Year      int
	Month     time.Month
	WeekStart time.Weekday
	Offset    int
	Cells     []Cell
}

// Grid lays out year/month for a calendar whose first column is weekStart.
// Cells outside window are disabled; today and selected are flagged when they fall in the month.
func Grid(year int, month time.Month, weekStart time.Weekday, window Window, today Date, selected *Date) MonthGrid {
	n := DaysInMonth(year, month)
	g := MonthGrid{
		Year:      year,
		Month:     month,
		WeekStart: weekStart,
		Offset:    FirstWeekdayOffset(year, month, weekStart),
		Cells:     make([]Cell, 0, n),
	}
	for day := 1; day <= n; day++ {
		d := Date{Year: year, Month: month, Day: day}
		g.Cells = append(g.Cells, Cell{
			Date:     d,
			Disabled: !window.Contains(d),
			Today:    d == today,
			Selected: selected != nil && d == *selected,
		})
	}
	return g
}

// Rows splits the grid into weeks of seven. Leading and trailing blanks are nil.
func (g MonthGrid) Rows() [][]*Cell {
	total := g.Offset + len(g.Cells)
	rows := make([][]*Cell, 0, (total+6)/7)
	for start := 0; start < total; start += 7 {
		row := make([]*Cell, 7)
		for col := 0; col < 7; col++ {
			idx := start + col - g.Offset
			if idx >= 0 && idx < len(g.Cells) {
				row[col] = &g.Cells[idx]
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// Cell returns the cell for day, or nil when day is not in the month.
func (g MonthGrid) Cell(day int) *Cell {
	if day < 1 || day > len(g.Cells) {
		return nil
	}
	return &g.Cells[day-1]
}
