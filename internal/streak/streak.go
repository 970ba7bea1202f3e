// ABOUTME: Streak entries and the streak-start resolution rule.
// ABOUTME: The new streak begins the day after the reported event; quick picks and calendar picks share this path.
package streak

import (
	"fmt"
	"time"

	"github.com/2389-research/streakhub/internal/calendar"
)

// Entry is one ranked streak as reported by the integration's top_3 attribute.
// A nil End marks the currently active streak.
type Entry struct {
	Rank  int            `json:"rank"`
	Start calendar.Date  `json:"start"`
	End   *calendar.Date `json:"end"`
	Days  int            `json:"days"`
}

// IsActive reports whether the streak is still running.
func (e Entry) IsActive() bool {
	return e.End == nil
}

// Active returns the first entry without an end date, or nil.
func Active(entries []Entry) *Entry {
	for i := range entries {
		if entries[i].IsActive() {
			return &entries[i]
		}
	}
	return nil
}

// ResolveStreakStart returns the first day of the new streak for an event on eventDate.
func ResolveStreakStart(eventDate calendar.Date) calendar.Date {
	return eventDate.AddDays(1)
}

// ValidityWindow returns the range of event dates a user may pick:
// from the active streak's start (unbounded without one) through today.
func ValidityWindow(entries []Entry, now time.Time) calendar.Window {
	today := calendar.Today(now)
	w := calendar.Window{Max: &today}
	if active := Active(entries); active != nil {
		start := active.Start
		w.Min = &start
	}
	return w
}

// QuickPick is a one-tap event day relative to today.
type QuickPick int

const (
	Today QuickPick = iota
	Yesterday
	DayBeforeYesterday
)

// QuickPicks lists the quick-pick buttons in display order.
var QuickPicks = []QuickPick{Today, Yesterday, DayBeforeYesterday}

// DaysAgo returns the offset from today.
func (q QuickPick) DaysAgo() int {
	return int(q)
}

// EventDate returns the event day the pick stands for.
func (q QuickPick) EventDate(now time.Time) calendar.Date {
	return calendar.DaysAgo(now, q.DaysAgo())
}

// Valid reports whether q is one of the defined picks.
func (q QuickPick) Valid() bool {
	return q >= Today && q <= DayBeforeYesterday
}

func (q QuickPick) String() string {
	switch q {
	case Today:
		return "today"
	case Yesterday:
		return "yesterday"
	case DayBeforeYesterday:
		return "day_before"
	}
	return fmt.Sprintf("QuickPick(%d)", int(q))
}

// ParseQuickPick maps "today", "yesterday", "day_before" or an offset 0-2 to a pick.
func ParseQuickPick(s string) (QuickPick, error) {
	switch s {
	case "today", "0":
		return Today, nil
	case "yesterday", "1":
		return Yesterday, nil
	case "day_before", "day-before", "2":
		return DayBeforeYesterday, nil
	}
	return 0, fmt.Errorf("unknown quick pick %q (want today, yesterday, or day_before)", s)
}
