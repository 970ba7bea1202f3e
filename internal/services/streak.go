// ABOUTME: Streak service shared by the HTTP API, MCP tools, and CLI commands.
// ABOUTME: Reads the rank sensor, resolves reset dates, runs resets through one flow, and lists history.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/2389-research/streakhub/internal/calendar"
	"github.com/2389-research/streakhub/internal/card"
	"github.com/2389-research/streakhub/internal/errs"
	"github.com/2389-research/streakhub/internal/homeassistant"
	"github.com/2389-research/streakhub/internal/i18n"
	"github.com/2389-research/streakhub/internal/logger"
	"github.com/2389-research/streakhub/internal/models"
	"github.com/2389-research/streakhub/internal/resetflow"
	"github.com/2389-research/streakhub/internal/storage"
	"github.com/2389-research/streakhub/internal/streak"
)

// HomeAssistantService names Home Assistant in ExternalServiceError.
const HomeAssistantService = "home_assistant"

// Backend is the Home Assistant surface the service reads and writes.
type Backend interface {
	resetflow.Resetter
	GetState(ctx context.Context, entityID string) (*homeassistant.State, error)
}

// Options configures a StreakService.
type Options struct {
	Card      card.Config
	Lang      i18n.Lang
	WeekStart time.Weekday
	Now       func() time.Time
}

// StreakService owns the single reset flow for one card, so concurrent callers
// share its in-flight guard.
type StreakService struct {
	backend Backend
	store   storage.ResetStore
	opts    Options
	tr      i18n.Translations
	flow    *resetflow.Flow
}

// NewStreakService wires the flow to backend and, when store is non-nil, records
// every attempt in it.
func NewStreakService(backend Backend, store storage.ResetStore, opts Options) (*StreakService, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	if opts.Card.Entity == "" {
		return nil, errors.New("card entity is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	var events resetflow.Events
	if store != nil {
		events.OnAttempt = storage.RecordAttempts(store)
	}
	flow, err := resetflow.New(backend, resetflow.Options{
		EntityID:      opts.Card.Entity,
		ServiceTarget: opts.Card.ServiceTarget,
		WeekStart:     opts.WeekStart,
		Now:           opts.Now,
		Events:        events,
	})
	if err != nil {
		return nil, err
	}

	return &StreakService{
		backend: backend,
		store:   store,
		opts:    opts,
		tr:      i18n.For(opts.Lang),
		flow:    flow,
	}, nil
}

// Target is the entity passed to set_streak_start.
func (s *StreakService) Target() string {
	return s.flow.Target()
}

// Status is the card's current content plus the reset window.
type Status struct {
	EntityID  string         `json:"entity_id"`
	Target    string         `json:"target"`
	Name      string         `json:"name"`
	Rank      int            `json:"rank"`
	RankLabel string         `json:"rank_label,omitempty"`
	Days      int            `json:"days"`
	DaysText  string         `json:"days_text"`
	Problem   string         `json:"problem,omitempty"`
	Active    *streak.Entry  `json:"active,omitempty"`
	Top3      []streak.Entry `json:"top_3,omitempty"`
	MinDate   *calendar.Date `json:"min_date,omitempty"`
	MaxDate   *calendar.Date `json:"max_date,omitempty"`
	LastError string         `json:"last_error,omitempty"`
}

// Status fetches the sensor and refreshes the reset window from its active streak.
// A missing entity is reported through Problem, not as an error.
func (s *StreakService) Status(ctx context.Context) (*Status, error) {
	st, err := s.backend.GetState(ctx, s.opts.Card.Entity)
	if err != nil {
		if !homeassistant.IsNotFound(err) {
			return nil, externalError(err)
		}
		st = nil
	}

	d := card.Present(s.opts.Card, st, "", s.tr)
	var start *calendar.Date
	if d.Active != nil {
		v := d.Active.Start
		start = &v
	}
	s.flow.UpdateStreakStart(start)
	w := s.flow.Window()

	out := &Status{
		EntityID:  s.opts.Card.Entity,
		Target:    s.flow.Target(),
		Name:      d.Name,
		Rank:      d.Rank,
		RankLabel: d.RankLabel(),
		Days:      d.Days,
		DaysText:  i18n.FormatDays(d.Days, s.tr),
		Problem:   d.Problem,
		Active:    d.Active,
		MinDate:   w.Min,
		MaxDate:   w.Max,
		LastError: s.flow.ErrorMessage(),
	}
	if st != nil {
		out.Top3 = st.Top3
	}
	return out, nil
}

// Resolution pairs an event day with the streak start it produces.
type Resolution struct {
	EventDate   calendar.Date `json:"event_date"`
	StreakStart calendar.Date `json:"streak_start"`
}

// Resolve returns the new streak start for an event on eventDate.
func Resolve(eventDate calendar.Date) Resolution {
	return Resolution{EventDate: eventDate, StreakStart: streak.ResolveStreakStart(eventDate)}
}

// ParseEventDate parses a YYYY-MM-DD event day as a ValidationError on failure.
func ParseEventDate(s string) (calendar.Date, error) {
	d, err := calendar.Parse(strings.TrimSpace(s))
	if err != nil {
		return calendar.Date{}, errs.NewValidationError("%v", err)
	}
	return d, nil
}

// ResetRequest names the event day either directly or relative to today.
type ResetRequest struct {
	Date    string `json:"date,omitempty"`
	DaysAgo *int   `json:"days_ago,omitempty"`
}

// ResetResult is a successful reset.
type ResetResult struct {
	Target      string           `json:"target"`
	Source      resetflow.Source `json:"source"`
	EventDate   calendar.Date    `json:"event_date"`
	StreakStart calendar.Date    `json:"streak_start"`
}

// Reset moves the streak start. days_ago 0..2 are the quick picks and skip the
// window check; other days must fall inside the current window.
func (s *StreakService) Reset(ctx context.Context, req ResetRequest) (*ResetResult, error) {
	if (req.Date == "") == (req.DaysAgo == nil) {
		return nil, errs.NewValidationError("exactly one of date or days_ago is required")
	}

	var event calendar.Date
	if req.DaysAgo != nil {
		n := *req.DaysAgo
		if n < 0 {
			return nil, errs.NewValidationError("days_ago must not be negative, got %d", n)
		}
		if pick := streak.QuickPick(n); pick.Valid() {
			a, err := s.flow.QuickReset(ctx, pick)
			if err != nil {
				return nil, s.resetError(err, a.EventDate)
			}
			return s.result(a), nil
		}
		event = calendar.DaysAgo(s.opts.Now(), n)
	} else {
		d, err := ParseEventDate(req.Date)
		if err != nil {
			return nil, err
		}
		event = d
	}

	if _, err := s.Status(ctx); err != nil {
		logger.Warn("could not refresh reset window", "entity", s.opts.Card.Entity, "err", err)
	}
	a, err := s.flow.ResetOn(ctx, event)
	if err != nil {
		return nil, s.resetError(err, event)
	}
	return s.result(a), nil
}

// DismissError clears the last failed reset.
func (s *StreakService) DismissError() {
	s.flow.DismissError()
}

func (s *StreakService) result(a resetflow.Attempt) *ResetResult {
	return &ResetResult{
		Target:      a.Target,
		Source:      a.Source,
		EventDate:   a.EventDate,
		StreakStart: a.StreakStart,
	}
}

func (s *StreakService) resetError(err error, event calendar.Date) error {
	switch {
	case errors.Is(err, resetflow.ErrBusy):
		return errs.NewConflictError("a reset is already in progress")
	case errors.Is(err, resetflow.ErrDateOutOfRange):
		return errs.NewValidationError("%s is outside the selectable range %s", event, windowText(s.flow.Window()))
	}
	return externalError(err)
}

// CalendarDay is one selectable or disabled day.
type CalendarDay struct {
	Date     calendar.Date `json:"date"`
	Day      int           `json:"day"`
	Disabled bool          `json:"disabled"`
	Today    bool          `json:"today"`
}

// CalendarMonth is a month laid out in weeks; blanks are null.
type CalendarMonth struct {
	Title    string           `json:"title"`
	Year     int              `json:"year"`
	Month    int              `json:"month"`
	Weekdays []string         `json:"weekdays"`
	Weeks    [][]*CalendarDay `json:"weeks"`
	CanPrev  bool             `json:"can_prev"`
	CanNext  bool             `json:"can_next"`
	MinDate  *calendar.Date   `json:"min_date,omitempty"`
	MaxDate  *calendar.Date   `json:"max_date,omitempty"`
}

// Calendar refreshes the window and lays out month ("YYYY-MM", or "" for the
// current month).
func (s *StreakService) Calendar(ctx context.Context, month string) (*CalendarMonth, error) {
	if _, err := s.Status(ctx); err != nil {
		return nil, err
	}
	year, m, err := ParseMonth(month, s.opts.Now())
	if err != nil {
		return nil, err
	}
	today := calendar.Today(s.opts.Now())
	return BuildMonth(year, m, s.opts.WeekStart, s.flow.Window(), today, s.tr.Lang), nil
}

// ParseMonth parses "YYYY-MM"; empty means now's month.
func ParseMonth(month string, now time.Time) (int, time.Month, error) {
	month = strings.TrimSpace(month)
	if month == "" {
		return now.Year(), now.Month(), nil
	}
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return 0, 0, errs.NewValidationError("invalid month %q: want YYYY-MM", month)
	}
	return t.Year(), t.Month(), nil
}

// BuildMonth lays out a month without touching Home Assistant.
func BuildMonth(year int, month time.Month, weekStart time.Weekday, window calendar.Window, today calendar.Date, lang i18n.Lang) *CalendarMonth {
	g := calendar.Grid(year, month, weekStart, window, today, nil)
	out := &CalendarMonth{
		Title:    i18n.MonthName(year, month, lang),
		Year:     year,
		Month:    int(month),
		Weekdays: i18n.WeekdayNames(weekStart, lang),
		CanPrev:  window.CanShowPrevMonth(year, month),
		CanNext:  window.CanShowNextMonth(year, month),
		MinDate:  window.Min,
		MaxDate:  window.Max,
	}
	for _, row := range g.Rows() {
		week := make([]*CalendarDay, len(row))
		for i, cell := range row {
			if cell == nil {
				continue
			}
			week[i] = &CalendarDay{
				Date:     cell.Date,
				Day:      cell.Date.Day,
				Disabled: cell.Disabled,
				Today:    cell.Today,
			}
		}
		out.Weeks = append(out.Weeks, week)
	}
	return out
}

// Text renders the month as a plain-text grid. Selectable days are numbered,
// disabled days are dots, and today carries a trailing "*".
func (c *CalendarMonth) Text() string {
	var b strings.Builder
	b.WriteString(c.Title)
	b.WriteString("\n")
	for _, name := range c.Weekdays {
		fmt.Fprintf(&b, "%4s", name)
	}
	b.WriteString("\n")
	for _, week := range c.Weeks {
		for _, day := range week {
			switch {
			case day == nil:
				b.WriteString("    ")
			case day.Disabled:
				b.WriteString("   ·")
			case day.Today:
				fmt.Fprintf(&b, " %2d*", day.Day)
			default:
				fmt.Fprintf(&b, " %3d", day.Day)
			}
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "selectable: %s\n", windowText(calendar.Window{Min: c.MinDate, Max: c.MaxDate}))
	return b.String()
}

// History lists recorded reset attempts, newest first.
func (s *StreakService) History(opts storage.ListOptions) ([]*models.ResetRecord, error) {
	if s.store == nil {
		return nil, errs.NewNotFoundError("reset history is not configured")
	}
	return s.store.List(opts)
}

func windowText(w calendar.Window) string {
	lo, hi := "…", "…"
	if w.Min != nil {
		lo = w.Min.String()
	}
	if w.Max != nil {
		hi = w.Max.String()
	}
	return lo + ".." + hi
}

func externalError(err error) error {
	var se *homeassistant.ServiceError
	transient := !errors.As(err, &se) || se.StatusCode >= 500
	return errs.NewExternalServiceError(HomeAssistantService, transient, err)
}
