// ABOUTME: Tests for streak MCP tool handlers.
// ABOUTME: Runs each tool against the real service with a fake Home Assistant and a temp history store.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/streakhub/internal/calendar"
	"github.com/2389-research/streakhub/internal/card"
	"github.com/2389-research/streakhub/internal/homeassistant"
	"github.com/2389-research/streakhub/internal/i18n"
	"github.com/2389-research/streakhub/internal/services"
	"github.com/2389-research/streakhub/internal/storage"
	"github.com/2389-research/streakhub/internal/streak"
)

var fixedNow = time.Date(2026, 1, 10, 15, 30, 0, 0, time.UTC)

type fakeBackend struct {
	mu       sync.Mutex
	state    *homeassistant.State
	stateErr error
	resetErr error
	calls    []string
}

func (f *fakeBackend) GetState(_ context.Context, _ string) (*homeassistant.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.stateErr
}

func (f *fakeBackend) SetStreakStart(_ context.Context, entityID, isoDate string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, entityID+"="+isoDate)
	return f.resetErr
}

func rankSensor() *homeassistant.State {
	end := calendar.MustParse("2025-11-30")
	return &homeassistant.State{
		EntityID:     "sensor.no_smoking_rank",
		State:        "1",
		FriendlyName: "No Smoking",
		Top3: []streak.Entry{
			{Rank: 1, Start: calendar.MustParse("2025-12-20"), Days: 22},
			{Rank: 2, Start: calendar.MustParse("2025-11-10"), End: &end, Days: 20},
		},
	}
}

func newStreakService(t *testing.T, backend *fakeBackend, store storage.ResetStore) *services.StreakService {
	t.Helper()
	cfg := card.DefaultConfig()
	cfg.Entity = "sensor.no_smoking_rank"
	cfg.ServiceTarget = "sensor.no_smoking"
	svc, err := services.NewStreakService(backend, store, services.Options{
		Card:      cfg,
		Lang:      i18n.English,
		WeekStart: time.Monday,
		Now:       func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("NewStreakService error: %v", err)
	}
	return svc
}

func makeStreakServer(t *testing.T, backend *fakeBackend) *Server {
	t.Helper()
	store, err := storage.NewResetMDStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewResetMDStore error: %v", err)
	}
	server, err := NewServer(newStreakService(t, backend, store))
	if err != nil {
		t.Fatalf("NewServer error: %v", err)
	}
	return server
}

func callTool(t *testing.T, s *Server, name string, args interface{}) *gomcp.CallToolResult {
	t.Helper()
	argsJSON, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("failed to marshal args: %v", err)
	}
	req := &gomcp.CallToolRequest{
		Params: &gomcp.CallToolParamsRaw{
			Name:      name,
			Arguments: argsJSON,
		},
	}

	handlers := map[string]func(context.Context, *gomcp.CallToolRequest) (*gomcp.CallToolResult, error){
		"get_streak":           s.handleGetStreak,
		"resolve_streak_start": s.handleResolveStreakStart,
		"calendar_month":       s.handleCalendarMonth,
		"reset_streak":         s.handleResetStreak,
		"dismiss_reset_error":  s.handleDismissResetError,
		"list_resets":          s.handleListResets,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return result
}

func getTextContent(result *gomcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	if tc, ok := result.Content[0].(*gomcp.TextContent); ok {
		return tc.Text
	}
	return ""
}

func TestGetStreak(t *testing.T) {
	s := makeStreakServer(t, &fakeBackend{state: rankSensor()})

	result := callTool(t, s, "get_streak", map[string]interface{}{})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", getTextContent(result))
	}
	text := getTextContent(result)
	for _, want := range []string{
		"No Smoking",
		"Rank: #1",
		"Streak: 22 days (since 2025-12-20)",
		"Reset target: sensor.no_smoking",
		"Selectable event days: 2025-12-20 to 2026-01-10",
		"#2  2025-11-10 to 2025-11-30  (20 days)",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output:\n%s", want, text)
		}
	}
}

func TestGetStreakMissingEntity(t *testing.T) {
	s := makeStreakServer(t, &fakeBackend{stateErr: &homeassistant.ServiceError{StatusCode: 404}})

	result := callTool(t, s, "get_streak", map[string]interface{}{})
	if result.IsError {
		t.Fatalf("missing entity should be reported, not fail: %s", getTextContent(result))
	}
	if text := getTextContent(result); !strings.Contains(text, "sensor.no_smoking_rank: Invalid entity type") {
		t.Errorf("unexpected output: %s", text)
	}
}

func TestGetStreakBackendDown(t *testing.T) {
	s := makeStreakServer(t, &fakeBackend{stateErr: errors.New("connection refused")})

	result := callTool(t, s, "get_streak", map[string]interface{}{})
	if !result.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(getTextContent(result), "connection refused") {
		t.Errorf("unexpected error: %s", getTextContent(result))
	}
}

func TestResolveStreakStart(t *testing.T) {
	s := makeStreakServer(t, &fakeBackend{})

	tests := []struct {
		date    string
		want    string
		wantErr bool
	}{
		{"2025-12-31", "starts the streak on 2026-01-01", false},
		{"2024-02-28", "starts the streak on 2024-02-29", false},
		{"", "date is required", true},
		{"12/31/2025", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			result := callTool(t, s, "resolve_streak_start", map[string]interface{}{"date": tt.date})
			if result.IsError != tt.wantErr {
				t.Fatalf("IsError = %v: %s", result.IsError, getTextContent(result))
			}
			if tt.want != "" && !strings.Contains(getTextContent(result), tt.want) {
				t.Errorf("expected %q, got %s", tt.want, getTextContent(result))
			}
		})
	}
}

func TestCalendarMonth(t *testing.T) {
	s := makeStreakServer(t, &fakeBackend{state: rankSensor()})

	result := callTool(t, s, "calendar_month", map[string]interface{}{"month": "2026-01"})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", getTextContent(result))
	}
	text := getTextContent(result)
	if !strings.Contains(text, "January 2026") {
		t.Errorf("missing title:\n%s", text)
	}
	if !strings.Contains(text, "10*") {
		t.Errorf("today not marked:\n%s", text)
	}
	if !strings.Contains(text, "selectable: 2025-12-20..2026-01-10") {
		t.Errorf("missing window footer:\n%s", text)
	}
}

func TestCalendarMonthInvalid(t *testing.T) {
	s := makeStreakServer(t, &fakeBackend{state: rankSensor()})

	result := callTool(t, s, "calendar_month", map[string]interface{}{"month": "January"})
	if !result.IsError {
		t.Error("expected error for malformed month")
	}
}

func TestResetStreakDaysAgo(t *testing.T) {
	backend := &fakeBackend{state: rankSensor()}
	s := makeStreakServer(t, backend)

	result := callTool(t, s, "reset_streak", map[string]interface{}{"days_ago": 1})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", getTextContent(result))
	}
	text := getTextContent(result)
	if !strings.Contains(text, "New streak start: 2026-01-10 (quick_pick)") {
		t.Errorf("unexpected output: %s", text)
	}
	if len(backend.calls) != 1 || backend.calls[0] != "sensor.no_smoking=2026-01-10" {
		t.Errorf("unexpected calls %v", backend.calls)
	}

	list := callTool(t, s, "list_resets", map[string]interface{}{})
	if list.IsError {
		t.Fatalf("list_resets error: %s", getTextContent(list))
	}
	if text := getTextContent(list); !strings.Contains(text, "Found 1 reset(s)") || !strings.Contains(text, "event 2026-01-09 -> start 2026-01-10") {
		t.Errorf("unexpected history: %s", text)
	}
}

func TestResetStreakDate(t *testing.T) {
	backend := &fakeBackend{state: rankSensor()}
	s := makeStreakServer(t, backend)

	result := callTool(t, s, "reset_streak", map[string]interface{}{"date": "2025-12-31"})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", getTextContent(result))
	}
	if !strings.Contains(getTextContent(result), "New streak start: 2026-01-01") {
		t.Errorf("unexpected output: %s", getTextContent(result))
	}
}

func TestResetStreakRejected(t *testing.T) {
	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"no arguments", map[string]interface{}{}},
		{"both arguments", map[string]interface{}{"date": "2026-01-09", "days_ago": 1}},
		{"before streak start", map[string]interface{}{"date": "2025-12-19"}},
		{"future", map[string]interface{}{"date": "2026-01-11"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{state: rankSensor()}
			s := makeStreakServer(t, backend)
			result := callTool(t, s, "reset_streak", tt.args)
			if !result.IsError {
				t.Errorf("expected error, got %s", getTextContent(result))
			}
			if len(backend.calls) != 0 {
				t.Errorf("service should not be called, got %v", backend.calls)
			}
		})
	}
}

func TestResetFailureAndDismiss(t *testing.T) {
	backend := &fakeBackend{state: rankSensor(), resetErr: errors.New("service unavailable")}
	s := makeStreakServer(t, backend)

	result := callTool(t, s, "reset_streak", map[string]interface{}{"days_ago": 0})
	if !result.IsError {
		t.Fatal("expected error result")
	}

	status := getTextContent(callTool(t, s, "get_streak", map[string]interface{}{}))
	if !strings.Contains(status, "Last reset failed: set streak start: service unavailable") {
		t.Errorf("expected last error in status:\n%s", status)
	}

	list := getTextContent(callTool(t, s, "list_resets", map[string]interface{}{"limit": 5}))
	if !strings.Contains(list, "failed") || !strings.Contains(list, "error: set streak start: service unavailable") {
		t.Errorf("failed attempt not recorded:\n%s", list)
	}

	dismiss := callTool(t, s, "dismiss_reset_error", map[string]interface{}{})
	if dismiss.IsError {
		t.Fatalf("dismiss error: %s", getTextContent(dismiss))
	}
	status = getTextContent(callTool(t, s, "get_streak", map[string]interface{}{}))
	if strings.Contains(status, "Last reset failed") {
		t.Errorf("error should be cleared:\n%s", status)
	}
}

func TestListResetsEmpty(t *testing.T) {
	s := makeStreakServer(t, &fakeBackend{})

	result := callTool(t, s, "list_resets", map[string]interface{}{"entity": "sensor.other"})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", getTextContent(result))
	}
	if getTextContent(result) != "No resets recorded." {
		t.Errorf("unexpected output: %s", getTextContent(result))
	}
}

func TestListResetsNegativeLimit(t *testing.T) {
	s := makeStreakServer(t, &fakeBackend{})
	if result := callTool(t, s, "list_resets", map[string]interface{}{"limit": -1}); !result.IsError {
		t.Error("expected error for negative limit")
	}
}

func TestListResetsWithoutStore(t *testing.T) {
	server, err := NewServer(newStreakService(t, &fakeBackend{}, nil))
	if err != nil {
		t.Fatalf("NewServer error: %v", err)
	}
	if result := callTool(t, server, "list_resets", map[string]interface{}{}); !result.IsError {
		t.Error("expected error without history store")
	}
}

func TestCountArgumentsAreIntegers(t *testing.T) {
	tests := []struct {
		name   string
		schema json.RawMessage
		field  string
	}{
		{"reset_streak", resetStreakSchema, "days_ago"},
		{"list_resets", listResetsSchema, "limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var schema struct {
				Properties map[string]struct {
					Type string `json:"type"`
				} `json:"properties"`
			}
			if err := json.Unmarshal(tt.schema, &schema); err != nil {
				t.Fatalf("schema is not valid JSON: %v", err)
			}
			if got := schema.Properties[tt.field].Type; got != "integer" {
				t.Errorf("%s.%s type = %q, want integer", tt.name, tt.field, got)
			}
		})
	}
}
