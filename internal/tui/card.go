// ABOUTME: Interactive terminal StreakHub card: rank, name, and streak length for one sensor.
// ABOUTME: Mouse presses go through the gesture detector; the reset flow is driven by keys.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/streakhub/internal/calendar"
	"github.com/2389-research/streakhub/internal/card"
	"github.com/2389-research/streakhub/internal/gesture"
	"github.com/2389-research/streakhub/internal/homeassistant"
	"github.com/2389-research/streakhub/internal/i18n"
	"github.com/2389-research/streakhub/internal/logger"
	"github.com/2389-research/streakhub/internal/resetflow"
	"github.com/2389-research/streakhub/internal/streak"
)

const (
	refreshTimeout = 10 * time.Second
	callTimeout    = 30 * time.Second
)

// Backend is the Home Assistant surface the card needs.
type Backend interface {
	resetflow.Resetter
	GetState(ctx context.Context, entityID string) (*homeassistant.State, error)
	CallService(ctx context.Context, domain, service string, data map[string]any) error
}

// CardOptions configures a CardModel.
type CardOptions struct {
	Config    card.Config
	Lang      i18n.Lang
	WeekStart time.Weekday
	Backend   Backend
	// OnAttempt sees every reset attempt, e.g. to record history.
	OnAttempt func(resetflow.Attempt)
	Now       func() time.Time
	Gesture   []gesture.Option
}

type (
	stateMsg struct {
		st  *homeassistant.State
		err error
	}
	openResetMsg   struct{}
	moreInfoMsg    struct{ entityID string }
	navigateMsg    struct{ path string }
	serviceCallMsg struct {
		domain, service string
		data            map[string]any
	}
	serviceResultMsg struct {
		name string
		err  error
	}
	resetResultMsg struct{ err error }
)

// cardHost turns card actions into messages for the model. Gesture callbacks
// can arrive on timer goroutines, so nothing here touches model state.
type cardHost struct {
	events chan tea.Msg
}

func (h cardHost) post(msg tea.Msg) {
	select {
	case h.events <- msg:
	default:
		logger.Warn("card event dropped", "msg", fmt.Sprintf("%T", msg))
	}
}

func (h cardHost) MoreInfo(entityID string) { h.post(moreInfoMsg{entityID: entityID}) }
func (h cardHost) Navigate(path string)     { h.post(navigateMsg{path: path}) }
func (h cardHost) OpenResetFlow()           { h.post(openResetMsg{}) }

func (h cardHost) CallService(_ context.Context, domain, service string, data map[string]any) error {
	h.post(serviceCallMsg{domain: domain, service: service, data: data})
	return nil
}

func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

// CardModel is the bubbletea model for one card.
type CardModel struct {
	opts       CardOptions
	tr         i18n.Translations
	events     chan tea.Msg
	dispatcher *card.Dispatcher
	spinner    spinner.Model

	state   *homeassistant.State
	loadErr error
	loaded  bool
	details bool
	status  string

	flow    *resetflow.Flow
	pending bool
}

var (
	cardStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("99")).Padding(0, 2)
	plainStyle    = lipgloss.NewStyle().Padding(0, 2)
	rankStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	nameStyle     = lipgloss.NewStyle().Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	todayStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// NewCardModel validates the card config and wires the gesture dispatcher.
func NewCardModel(opts CardOptions) (CardModel, error) {
	if opts.Backend == nil {
		return CardModel{}, errors.New("backend is required")
	}
	if err := opts.Config.Validate(); err != nil {
		return CardModel{}, fmt.Errorf("invalid card config: %w", err)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	events := make(chan tea.Msg, 16)
	s := spinner.New()
	s.Spinner = spinner.Dot

	return CardModel{
		opts:       opts,
		tr:         i18n.For(opts.Lang),
		events:     events,
		dispatcher: card.NewDispatcher(opts.Config, cardHost{events: events}, opts.Gesture...),
		spinner:    s,
	}, nil
}

// Init implements tea.Model.
func (m CardModel) Init() tea.Cmd {
	return tea.Batch(m.refresh(), waitForEvent(m.events))
}

func (m CardModel) refresh() tea.Cmd {
	backend, entity := m.opts.Backend, m.opts.Config.Entity
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		st, err := backend.GetState(ctx, entity)
		return stateMsg{st: st, err: err}
	}
}

// Update implements tea.Model.
func (m CardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.flow != nil {
			return m.updateFlow(msg)
		}
		return m.updateCard(msg)

	case tea.MouseMsg:
		if m.flow != nil {
			m.dispatcher.PointerCancel()
			return m, nil
		}
		now := m.opts.Now()
		switch msg.Action {
		case tea.MouseActionPress:
			if msg.Button == tea.MouseButtonLeft {
				m.dispatcher.PointerDown(float64(msg.X), float64(msg.Y), now)
			}
		case tea.MouseActionRelease:
			m.dispatcher.PointerUp(float64(msg.X), float64(msg.Y), now)
		}
		return m, nil

	case stateMsg:
		m.loaded = true
		m.state, m.loadErr = msg.st, msg.err
		if msg.err != nil {
			logger.Warn("failed to load state", "entity", m.opts.Config.Entity, "err", msg.err)
		}
		if m.flow != nil {
			m.flow.UpdateStreakStart(m.streakStart())
		}
		return m, nil

	case openResetMsg:
		// The dialog takes the mouse, so the release of the hold never reaches the detector.
		m.dispatcher.PointerCancel()
		if m.flow == nil {
			flow, err := m.newFlow()
			if err != nil {
				m.status = err.Error()
			} else {
				m.flow = flow
			}
		}
		return m, waitForEvent(m.events)

	case moreInfoMsg:
		m.details = !m.details
		return m, waitForEvent(m.events)

	case navigateMsg:
		logger.Info("navigate requested", "path", msg.path)
		m.status = "navigate: " + msg.path
		return m, waitForEvent(m.events)

	case serviceCallMsg:
		return m, tea.Batch(m.callService(msg), waitForEvent(m.events))

	case serviceResultMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.name, msg.err)
			return m, nil
		}
		m.status = msg.name + " called"
		return m, m.refresh()

	case resetResultMsg:
		m.pending = false
		switch {
		case msg.err == nil:
			m.flow = nil
			m.status = "streak reset"
			return m, m.refresh()
		case errors.Is(msg.err, resetflow.ErrBusy):
			m.pending = m.flow != nil && m.flow.Loading()
		}
		return m, nil

	case spinner.TickMsg:
		if m.pending {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m CardModel) updateCard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var action *card.ActionConfig
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "enter", " ":
		action = &m.opts.Config.TapAction
	case "h":
		action = &m.opts.Config.HoldAction
	case "d":
		action = &m.opts.Config.DoubleTapAction
	case "r":
		return m, m.refresh()
	}
	if action != nil {
		if err := m.dispatcher.Execute(context.Background(), *action); err != nil {
			m.status = err.Error()
		}
	}
	return m, nil
}

var selectionMoves = map[string]int{
	"left": -1, "h": -1,
	"right": 1, "l": 1,
	"up": -7, "k": -7,
	"down": 7, "j": 7,
}

func (m CardModel) updateFlow(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.pending {
		return m, nil
	}
	flow := m.flow
	key := msg.String()

	if flow.View() == resetflow.ViewCalendar {
		p := flow.Picker()
		if days, ok := selectionMoves[key]; ok {
			m.status = ""
			if err := p.MoveSelection(days); err != nil {
				m.status = "no day can be selected yet"
			}
			return m, nil
		}
		switch key {
		case "pgup", "[":
			p.PrevMonth()
		case "pgdown", "]":
			p.NextMonth()
		case "enter":
			return m.startReset(func(ctx context.Context) error {
				_, err := flow.ConfirmCalendar(ctx)
				return err
			})
		case "esc":
			flow.CancelCalendar()
		}
		return m, nil
	}

	switch key {
	case "1", "2", "3":
		pick := streak.QuickPick(key[0] - '1')
		return m.startReset(func(ctx context.Context) error {
			_, err := flow.QuickReset(ctx, pick)
			return err
		})
	case "m":
		flow.ShowCalendar()
	case "x":
		flow.DismissError()
	case "esc", "q":
		m.flow = nil
	}
	return m, nil
}

func (m CardModel) startReset(fn func(ctx context.Context) error) (tea.Model, tea.Cmd) {
	m.pending = true
	run := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		return resetResultMsg{err: fn(ctx)}
	}
	return m, tea.Batch(run, m.spinner.Tick)
}

func (m CardModel) callService(msg serviceCallMsg) tea.Cmd {
	backend := m.opts.Backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		err := backend.CallService(ctx, msg.domain, msg.service, msg.data)
		return serviceResultMsg{name: msg.domain + "." + msg.service, err: err}
	}
}

func (m CardModel) streakStart() *calendar.Date {
	if m.state == nil {
		return nil
	}
	if a := m.state.Active(); a != nil {
		start := a.Start
		return &start
	}
	return nil
}

func (m CardModel) newFlow() (*resetflow.Flow, error) {
	return resetflow.New(m.opts.Backend, resetflow.Options{
		EntityID:      m.opts.Config.Entity,
		ServiceTarget: m.opts.Config.ServiceTarget,
		StreakStart:   m.streakStart(),
		WeekStart:     m.opts.WeekStart,
		Now:           m.opts.Now,
		Events:        resetflow.Events{OnAttempt: m.opts.OnAttempt},
	})
}

// View implements tea.Model.
func (m CardModel) View() string {
	var b strings.Builder
	b.WriteString("\n")

	box := cardStyle
	if m.opts.Config.Borderless {
		box = plainStyle
	}
	b.WriteString(box.Render(m.cardContent()))
	b.WriteString("\n")

	if m.details && m.state != nil {
		b.WriteString(m.detailsView())
	}
	if m.flow != nil {
		b.WriteString("\n")
		b.WriteString(m.flowView())
	}
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.flow == nil {
		b.WriteString(promptStyle.Render("[enter] tap  [h]old  [d]ouble tap  [r]efresh  [q]uit  (mouse works too)"))
		b.WriteString("\n")
	}
	return b.String()
}

func (m CardModel) cardContent() string {
	cfg := m.opts.Config
	if !m.loaded {
		return dimStyle.Render("…")
	}
	if m.loadErr != nil && !homeassistant.IsNotFound(m.loadErr) {
		return errorStyle.Render(m.loadErr.Error())
	}

	st := m.state
	if m.loadErr != nil {
		st = nil
	}
	d := card.Present(cfg, st, "", m.tr)
	if d.Problem != "" {
		return lipgloss.JoinVertical(lipgloss.Left, nameStyle.Render(d.Name), errorStyle.Render(d.Problem))
	}

	var parts []string
	var head []string
	if cfg.Show.Trophy {
		head = append(head, "🏆")
	}
	if cfg.Show.Rank && d.RankLabel() != "" {
		head = append(head, rankStyle.Render(d.RankLabel()))
	}
	if len(head) > 0 {
		parts = append(parts, strings.Join(head, " "))
	}
	if cfg.Show.Name {
		parts = append(parts, nameStyle.Render(d.Name))
	}
	if cfg.Show.Days {
		parts = append(parts, i18n.FormatDays(d.Days, m.tr))
	}

	if cfg.Variant == card.VariantCompact {
		return strings.Join(parts, "  ")
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m CardModel) detailsView() string {
	var b strings.Builder
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %s", m.state.EntityID)))
	b.WriteString("\n")
	for _, e := range m.state.Top3 {
		end := "…"
		if e.End != nil {
			end = e.End.String()
		}
		b.WriteString(fmt.Sprintf("  #%d  %s → %s  %s\n", e.Rank, e.Start, end, i18n.FormatDays(e.Days, m.tr)))
	}
	return b.String()
}

func (m CardModel) flowView() string {
	var b strings.Builder
	tr := m.tr
	flow := m.flow

	b.WriteString(titleStyle.Render(tr.WhenEvent))
	b.WriteString("\n")

	if flow.View() == resetflow.ViewCalendar {
		b.WriteString(m.calendarView(flow.Picker()))
		b.WriteString(promptStyle.Render(fmt.Sprintf("[arrows] move  [pgup/pgdn] month  [enter] %s  [esc] %s", tr.Confirm, tr.Cancel)))
		b.WriteString("\n")
	} else {
		b.WriteString(promptStyle.Render(fmt.Sprintf("[1] %s  [2] %s  [3] %s  [m] %s  [esc] %s",
			tr.Today, tr.Yesterday, tr.DayBefore, tr.More, tr.Close)))
		b.WriteString("\n")
	}

	if m.pending {
		b.WriteString(m.spinner.View())
		b.WriteString("\n")
	}
	if msg := flow.ErrorMessage(); msg != "" {
		b.WriteString(errorStyle.Render("✗ " + msg))
		b.WriteString("  ")
		b.WriteString(promptStyle.Render("[x] dismiss"))
		b.WriteString("\n")
	}
	return b.String()
}

func (m CardModel) calendarView(p *resetflow.Picker) string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	year, month := p.Month()

	prev, next := " ", " "
	if p.CanPrev() {
		prev = "‹"
	}
	if p.CanNext() {
		next = "›"
	}
	b.WriteString(fmt.Sprintf("%s %s %s\n", prev, i18n.MonthName(year, month, m.tr.Lang), next))

	for _, name := range i18n.WeekdayNames(p.WeekStart(), m.tr.Lang) {
		b.WriteString(fmt.Sprintf("%3s", name))
	}
	b.WriteString("\n")

	for _, row := range p.Grid().Rows() {
		for _, cell := range row {
			if cell == nil {
				b.WriteString("   ")
				continue
			}
			text := fmt.Sprintf("%2d", cell.Date.Day)
			switch {
			case cell.Selected:
				text = selectedStyle.Render(text)
			case cell.Disabled:
				text = dimStyle.Render(text)
			case cell.Today:
				text = todayStyle.Render(text)
			}
			b.WriteString(" ")
			b.WriteString(text)
		}
		b.WriteString("\n")
	}
	return b.String()
}
