// ABOUTME: Interactive setup that connects streakhub to a Home Assistant rank sensor.
// ABOUTME: Each step is checked live: the token against /api/, the entity by reading its state.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/streakhub/internal/homeassistant"
)

// DefaultURL is the usual address of a local Home Assistant instance.
const DefaultURL = "http://homeassistant.local:8123"

// Step is the field the setup is currently collecting.
type Step int

const (
	StepURL Step = iota
	StepToken
	StepEntity
	StepConfirm
	StepDone
)

type tokenCheckedMsg struct {
	err error
}

type entityLookedUpMsg struct {
	state *homeassistant.State
	err   error
}

// cancelHolder shares a cancel function across bubbletea model copies.
type cancelHolder struct {
	cancel context.CancelFunc
}

func (h *cancelHolder) stop() {
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetupModel is the bubbletea model for `streakhub setup`.
type SetupModel struct {
	step     Step
	inputs   [3]textinput.Model
	spinner  spinner.Model
	checks   Checks
	inflight *cancelHolder

	checking bool
	checkErr error
	sensor   *homeassistant.State
	offline  bool
	quitting bool
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	labelStyle  = lipgloss.NewStyle().Width(14)
	doneMark    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	activeMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Render("›")
	pendingMark = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("·")
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	sensorStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// NewSetupModel starts at the URL step with any existing values filled in.
func NewSetupModel(haURL, token, entityID string) SetupModel {
	urlInput := textinput.New()
	urlInput.Placeholder = DefaultURL
	urlInput.SetValue(haURL)
	urlInput.Focus()

	tokenInput := textinput.New()
	tokenInput.Placeholder = "long-lived access token"
	tokenInput.EchoMode = textinput.EchoPassword
	tokenInput.SetValue(token)

	entityInput := textinput.New()
	entityInput.Placeholder = "sensor.no_smoking_rank"
	entityInput.SetValue(entityID)

	s := spinner.New()
	s.Spinner = spinner.Dot

	return SetupModel{
		step:     StepURL,
		inputs:   [3]textinput.Model{urlInput, tokenInput, entityInput},
		spinner:  s,
		checks:   LiveChecks(),
		inflight: &cancelHolder{},
	}
}

// WithChecks replaces the live Home Assistant calls.
func (m SetupModel) WithChecks(c Checks) SetupModel {
	m.checks = c
	return m
}

// Init implements tea.Model.
func (m SetupModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEscape:
			m.quitting = true
			m.inflight.stop()
			return m, tea.Quit
		}
		if m.checking {
			return m, nil
		}
		if msg.Type == tea.KeyCtrlS && m.checkErr != nil {
			m.offline = true
			m.step = StepDone
			return m, tea.Quit
		}
		switch m.step {
		case StepConfirm:
			return m.updateConfirm(msg)
		case StepDone:
			return m, nil
		}
		return m.updateInput(msg)

	case tokenCheckedMsg:
		m.checking = false
		m.inflight.cancel = nil
		if msg.err != nil {
			m.checkErr = msg.err
			return m, nil
		}
		return m.focus(StepEntity)

	case entityLookedUpMsg:
		m.checking = false
		m.inflight.cancel = nil
		if msg.err != nil {
			m.checkErr = msg.err
			return m, nil
		}
		m.sensor = msg.state
		m.inputs[StepEntity].Blur()
		m.step = StepConfirm
		return m, nil

	case spinner.TickMsg:
		if m.checking {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// NormalizeURL strips trailing slashes and an /api suffix.
func NormalizeURL(u string) string {
	u = strings.TrimSpace(u)
	u = strings.TrimRight(u, "/")
	u = strings.TrimSuffix(u, "/api")
	return u
}

// validEntityID wants the domain.object_id shape with both halves present.
func validEntityID(id string) bool {
	domain, object, ok := strings.Cut(strings.TrimSpace(id), ".")
	return ok && domain != "" && object != ""
}

func (m SetupModel) focus(step Step) (SetupModel, tea.Cmd) {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	m.step = step
	m.checkErr = nil
	m.inputs[step].Focus()
	return m, textinput.Blink
}

func (m SetupModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyShiftTab:
		if m.step > StepURL {
			return m.focus(m.step - 1)
		}
		return m, nil
	case tea.KeyEnter:
	default:
		var cmd tea.Cmd
		m.inputs[m.step], cmd = m.inputs[m.step].Update(msg)
		return m, cmd
	}

	haURL, token, entityID := m.Result()
	switch m.step {
	case StepURL:
		if haURL == "" {
			haURL = DefaultURL
		}
		m.inputs[StepURL].SetValue(NormalizeURL(haURL))
		return m.focus(StepToken)

	case StepToken:
		if token == "" {
			return m, nil
		}
		check := m.checks.Token
		return m.run(func(ctx context.Context) tea.Msg {
			return tokenCheckedMsg{err: check(ctx, haURL, token)}
		})

	case StepEntity:
		if !validEntityID(entityID) {
			return m, nil
		}
		lookup := m.checks.Entity
		return m.run(func(ctx context.Context) tea.Msg {
			st, err := lookup(ctx, haURL, token, entityID)
			return entityLookedUpMsg{state: st, err: err}
		})
	}
	return m, nil
}

func (m SetupModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		m.step = StepDone
		return m, tea.Quit
	}
	if msg.Type == tea.KeyRunes && string(msg.Runes) == "e" {
		m.sensor = nil
		return m.focus(StepEntity)
	}
	return m, nil
}

// run starts a cancellable check; Esc during the call cancels it.
func (m SetupModel) run(call func(ctx context.Context) tea.Msg) (tea.Model, tea.Cmd) {
	ctx, cancel := context.WithCancel(context.Background())
	m.inflight.cancel = cancel
	m.checking = true
	m.checkErr = nil
	return m, tea.Batch(func() tea.Msg { return call(ctx) }, m.spinner.Tick)
}

var stepLabels = [3]string{"Home Assistant", "Access token", "Rank sensor"}

// View implements tea.Model.
func (m SetupModel) View() string {
	var b strings.Builder
	b.WriteString("\n" + headerStyle.Render("streakhub setup") + "\n\n")

	if m.step == StepDone {
		if m.offline {
			b.WriteString("Saving without a working connection.\n")
		} else {
			b.WriteString(doneMark + " Connected to " + m.sensorName() + "\n")
		}
		return b.String()
	}

	for i, label := range stepLabels {
		step := Step(i)
		mark, value := pendingMark, m.inputs[i].Value()
		if step == StepToken {
			value = strings.Repeat("•", len(value))
		}
		switch {
		case step < m.step:
			mark = doneMark
		case step == m.step:
			mark = activeMark
			if !m.checking {
				value = m.inputs[i].View()
			}
		}
		b.WriteString(fmt.Sprintf("%s %s %s\n", mark, labelStyle.Render(label), value))
	}
	b.WriteString("\n")

	switch {
	case m.checking:
		b.WriteString(m.spinner.View() + " " + m.checkingText() + "\n")
	case m.checkErr != nil:
		b.WriteString(errorStyle.Render(m.checkErr.Error()) + "\n")
		b.WriteString(hintStyle.Render("enter retry · shift+tab back · ctrl+s save without checking · esc quit") + "\n")
	case m.step == StepConfirm:
		b.WriteString(sensorStyle.Render(m.sensorSummary()) + "\n")
		b.WriteString(hintStyle.Render("enter save · e pick another sensor · esc quit") + "\n")
	default:
		b.WriteString(hintStyle.Render(m.stepHint()) + "\n")
	}
	return b.String()
}

func (m SetupModel) checkingText() string {
	if m.step == StepToken {
		return "Checking the token with Home Assistant..."
	}
	return "Looking up " + strings.TrimSpace(m.inputs[StepEntity].Value()) + "..."
}

func (m SetupModel) stepHint() string {
	switch m.step {
	case StepURL:
		return "enter to use " + DefaultURL + " when empty"
	case StepToken:
		return "Profile > Security > Long-lived access tokens"
	}
	return "the StreakHub rank sensor, e.g. sensor.no_smoking_rank"
}

func (m SetupModel) sensorName() string {
	if m.sensor != nil && m.sensor.FriendlyName != "" {
		return m.sensor.FriendlyName
	}
	return strings.TrimSpace(m.inputs[StepEntity].Value())
}

func (m SetupModel) sensorSummary() string {
	if m.sensor == nil {
		return m.sensorName()
	}
	lines := []string{
		fmt.Sprintf("%s (%s)", m.sensorName(), m.sensor.EntityID),
		fmt.Sprintf("rank %d, %d streaks on record", m.sensor.Rank(), len(m.sensor.Top3)),
	}
	if a := m.sensor.Active(); a != nil {
		lines = append(lines, fmt.Sprintf("current streak since %s (%d days)", a.Start, a.Days))
	} else {
		lines = append(lines, "no streak running")
	}
	return strings.Join(lines, "\n")
}

// Result returns the entered values.
func (m SetupModel) Result() (haURL, token, entityID string) {
	return strings.TrimSpace(m.inputs[StepURL].Value()),
		strings.TrimSpace(m.inputs[StepToken].Value()),
		strings.TrimSpace(m.inputs[StepEntity].Value())
}

// Sensor is the state read during the entity lookup, nil when it was skipped.
func (m SetupModel) Sensor() *homeassistant.State {
	return m.sensor
}

// ShouldSave reports whether setup finished and was not cancelled.
func (m SetupModel) ShouldSave() bool {
	return m.step == StepDone && !m.quitting
}
