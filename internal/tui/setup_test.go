// ABOUTME: Unit tests for the setup bubbletea model.
// ABOUTME: Drives key and check-result messages through the model with fake Home Assistant checks.
package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/streakhub/internal/calendar"
	"github.com/2389-research/streakhub/internal/homeassistant"
	"github.com/2389-research/streakhub/internal/streak"
)

type fakeChecks struct {
	tokenErr  error
	entityErr error
	tokenArgs []string
	looked    []string
}

func (f *fakeChecks) checks() Checks {
	return Checks{
		Token: func(_ context.Context, haURL, token string) error {
			f.tokenArgs = []string{haURL, token}
			return f.tokenErr
		},
		Entity: func(_ context.Context, _, _, entityID string) (*homeassistant.State, error) {
			f.looked = append(f.looked, entityID)
			if f.entityErr != nil {
				return nil, f.entityErr
			}
			return &homeassistant.State{
				EntityID:     entityID,
				State:        "1",
				FriendlyName: "No Smoking",
				Top3:         []streak.Entry{{Rank: 1, Start: calendar.MustParse("2025-12-20"), Days: 22}},
			}, nil
		},
	}
}

func enter(t *testing.T, m SetupModel) (SetupModel, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return updated.(SetupModel), cmd
}

// finishCheck runs the check started by the last key and feeds its result back.
func finishCheck(t *testing.T, m SetupModel, cmd tea.Cmd) SetupModel {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a check to start")
	}
	batch, ok := cmd().(tea.BatchMsg)
	if !ok || len(batch) == 0 {
		t.Fatal("expected batched check and spinner commands")
	}
	updated, _ := m.Update(batch[0]())
	return updated.(SetupModel)
}

func filledSetup(f *fakeChecks) SetupModel {
	return NewSetupModel("http://ha.lan:8123", "tok", "sensor.no_smoking_rank").WithChecks(f.checks())
}

func TestNewSetupModel_ExistingConfig(t *testing.T) {
	m := NewSetupModel("http://ha.lan:8123", "secret-token", "sensor.no_smoking_rank")
	haURL, token, entity := m.Result()
	if haURL != "http://ha.lan:8123" || token != "secret-token" || entity != "sensor.no_smoking_rank" {
		t.Errorf("unexpected pre-filled values %q %q %q", haURL, token, entity)
	}
	if m.step != StepURL {
		t.Errorf("expected StepURL, got %d", m.step)
	}
}

func TestSetupModel_URLStep(t *testing.T) {
	tests := map[string]string{
		"":                        DefaultURL,
		"http://ha.lan:8123/api/": "http://ha.lan:8123",
	}
	for in, want := range tests {
		m := NewSetupModel(in, "", "")
		m, cmd := enter(t, m)
		if m.step != StepToken {
			t.Errorf("%q: expected StepToken, got %d", in, m.step)
		}
		if got, _, _ := m.Result(); got != want {
			t.Errorf("%q: expected url %q, got %q", in, want, got)
		}
		if cmd == nil {
			t.Errorf("%q: expected cursor blink cmd", in)
		}
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := map[string]string{
		"http://ha:8123":        "http://ha:8123",
		"http://ha:8123/":       "http://ha:8123",
		"http://ha:8123/api":    "http://ha:8123",
		"  http://ha:8123/api/": "http://ha:8123",
	}
	for in, want := range tests {
		if got := NormalizeURL(in); got != want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSetupModel_HappyPath(t *testing.T) {
	f := &fakeChecks{}
	m := filledSetup(f)

	m, _ = enter(t, m)
	m, cmd := enter(t, m)
	if !m.checking || !strings.Contains(m.View(), "Checking the token") {
		t.Fatalf("expected token check in progress:\n%s", m.View())
	}
	m = finishCheck(t, m, cmd)
	if m.step != StepEntity {
		t.Fatalf("expected StepEntity after token check, got %d", m.step)
	}
	if f.tokenArgs[0] != "http://ha.lan:8123" || f.tokenArgs[1] != "tok" {
		t.Errorf("unexpected token check args %v", f.tokenArgs)
	}

	m, cmd = enter(t, m)
	if !strings.Contains(m.View(), "Looking up sensor.no_smoking_rank") {
		t.Errorf("expected lookup text in view:\n%s", m.View())
	}
	m = finishCheck(t, m, cmd)
	if m.step != StepConfirm || m.Sensor() == nil {
		t.Fatalf("expected StepConfirm with sensor, got %d", m.step)
	}
	view := m.View()
	for _, want := range []string{"No Smoking", "rank 1", "since 2025-12-20 (22 days)"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected confirm view to contain %q:\n%s", want, view)
		}
	}

	m, cmd = enter(t, m)
	if !m.ShouldSave() || cmd == nil {
		t.Error("expected save and quit after confirming")
	}
}

func TestSetupModel_FailedChecksStayOnStep(t *testing.T) {
	tests := []struct {
		name   string
		checks *fakeChecks
		step   Step
		want   string
	}{
		{"token rejected", &fakeChecks{tokenErr: errors.New("token rejected by Home Assistant")}, StepToken, "token rejected"},
		{"entity missing", &fakeChecks{entityErr: errors.New("entity sensor.no_smoking_rank not found")}, StepEntity, "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := filledSetup(tt.checks)
			m.step = StepToken
			for m.step != tt.step || m.checkErr == nil {
				var cmd tea.Cmd
				m, cmd = enter(t, m)
				m = finishCheck(t, m, cmd)
				if m.step > tt.step {
					t.Fatalf("moved past step %d", tt.step)
				}
			}
			view := m.View()
			if !strings.Contains(view, tt.want) || !strings.Contains(view, "ctrl+s save without checking") {
				t.Errorf("expected error and hints in view:\n%s", view)
			}

			// Retry runs the check again.
			_, cmd := enter(t, m)
			if cmd == nil {
				t.Error("expected enter to retry the check")
			}
		})
	}
}

func TestSetupModel_SaveWithoutChecking(t *testing.T) {
	m := filledSetup(&fakeChecks{entityErr: errors.New("connection failed")})
	m.step = StepEntity
	m, cmd := enter(t, m)
	m = finishCheck(t, m, cmd)

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	m = updated.(SetupModel)
	if !m.ShouldSave() || cmd == nil {
		t.Fatal("expected ctrl+s to save after a failed check")
	}
	if m.Sensor() != nil {
		t.Error("expected no sensor when saved unchecked")
	}
	if !strings.Contains(m.View(), "without a working connection") {
		t.Errorf("unexpected done view:\n%s", m.View())
	}
}

func TestSetupModel_CtrlSIgnoredWithoutFailure(t *testing.T) {
	m := filledSetup(&fakeChecks{})
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if updated.(SetupModel).ShouldSave() {
		t.Error("expected ctrl+s to do nothing before a check fails")
	}
}

func TestSetupModel_ConfirmCanPickAnotherSensor(t *testing.T) {
	m := filledSetup(&fakeChecks{})
	m.step = StepEntity
	m, cmd := enter(t, m)
	m = finishCheck(t, m, cmd)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	m = updated.(SetupModel)
	if m.step != StepEntity || m.Sensor() != nil {
		t.Errorf("expected back on StepEntity without sensor, got %d", m.step)
	}
}

func TestSetupModel_ShiftTabGoesBack(t *testing.T) {
	m := filledSetup(&fakeChecks{})
	m.step = StepEntity
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if got := updated.(SetupModel).step; got != StepToken {
		t.Errorf("expected StepToken, got %d", got)
	}
}

func TestSetupModel_InvalidInputBlocked(t *testing.T) {
	tests := []struct {
		name  string
		step  Step
		value string
	}{
		{"empty token", StepToken, ""},
		{"blank token", StepToken, "   "},
		{"empty entity", StepEntity, ""},
		{"entity without domain", StepEntity, "no_smoking_rank"},
		{"entity dot only", StepEntity, "sensor."},
		{"entity leading dot", StepEntity, ".no_smoking_rank"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeChecks{}
			m := filledSetup(f)
			m.step = tt.step
			m.inputs[tt.step].SetValue(tt.value)
			m, cmd := enter(t, m)
			if m.step != tt.step || m.checking || cmd != nil {
				t.Errorf("expected to stay idle on step %d", tt.step)
			}
			if f.tokenArgs != nil || f.looked != nil {
				t.Error("expected no Home Assistant call")
			}
		})
	}
}

func TestSetupModel_QuitKeys(t *testing.T) {
	for _, key := range []tea.KeyType{tea.KeyCtrlC, tea.KeyEscape} {
		m := NewSetupModel("", "", "")
		updated, cmd := m.Update(tea.KeyMsg{Type: key})
		m = updated.(SetupModel)
		if cmd == nil {
			t.Errorf("expected quit cmd on %v", key)
		}
		if !m.quitting || m.ShouldSave() {
			t.Errorf("expected quitting without save on %v", key)
		}
	}
}

func TestSetupModel_EscCancelsLookup(t *testing.T) {
	cancelled := make(chan struct{})
	m := NewSetupModel("http://ha.lan:8123", "tok", "sensor.x_rank").WithChecks(Checks{
		Entity: func(ctx context.Context, _, _, _ string) (*homeassistant.State, error) {
			<-ctx.Done()
			close(cancelled)
			return nil, ctx.Err()
		},
	})
	m.step = StepEntity

	m, cmd := enter(t, m)
	batch := cmd().(tea.BatchMsg)
	done := make(chan tea.Msg)
	go func() { done <- batch[0]() }()

	// Keys other than quit are ignored while a check runs.
	if updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); !updated.(SetupModel).checking {
		t.Error("expected enter to be ignored during the lookup")
	}

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEscape})
	if !updated.(SetupModel).quitting {
		t.Error("expected quitting after esc")
	}
	<-done
	<-cancelled
}

func TestSetupModel_ViewMasksToken(t *testing.T) {
	m := NewSetupModel("http://ha.lan:8123", "secret", "")
	m.step = StepEntity
	view := m.View()
	if strings.Contains(view, "secret") {
		t.Error("expected token to be masked")
	}
	for _, want := range []string{"streakhub setup", "Home Assistant", "Access token", "Rank sensor", "••••••"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q:\n%s", want, view)
		}
	}
}
