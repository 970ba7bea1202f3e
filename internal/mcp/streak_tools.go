// ABOUTME: MCP tool implementations for streak operations.
// ABOUTME: Registers get_streak, resolve_streak_start, calendar_month, reset_streak, dismiss_reset_error, list_resets.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/streakhub/internal/services"
	"github.com/2389-research/streakhub/internal/storage"
)

// Counts decode into int fields, so they are declared as integers.
var (
	resetStreakSchema = json.RawMessage(`{
		"type": "object",
		"properties": {
			"date": {"type": "string", "description": "Event day as YYYY-MM-DD"},
			"days_ago": {"type": "integer", "minimum": 0, "description": "Event day relative to today: 0 today, 1 yesterday, 2 the day before"}
		}
	}`)
	listResetsSchema = json.RawMessage(`{
		"type": "object",
		"properties": {
			"limit": {"type": "integer", "minimum": 1, "description": "Maximum number of attempts to return (default: 10)"},
			"entity": {"type": "string", "description": "Only attempts against this entity"}
		}
	}`)
)

func (s *Server) registerStreakTools() {
	s.mcp.AddTool(&gomcp.Tool{
		Name:        "get_streak",
		Description: "Read the configured StreakHub rank sensor: the active streak, its rank and length, and the dates a reset may use.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}, s.handleGetStreak)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "resolve_streak_start",
		Description: "Compute the streak start that an event on the given day produces. The streak restarts the day after the event. Does not change anything.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"date": {"type": "string", "description": "Event day as YYYY-MM-DD"}
			},
			"required": ["date"]
		}`),
	}, s.handleResolveStreakStart)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "calendar_month",
		Description: "Show a month as a calendar grid with the days a reset may pick. Days outside the streak window are marked unavailable.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"month": {"type": "string", "description": "Month as YYYY-MM (default: current month)"}
			}
		}`),
	}, s.handleCalendarMonth)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "reset_streak",
		Description: "Record that the event happened and restart the streak the following day. Give exactly one of date or days_ago.",
		InputSchema: resetStreakSchema,
	}, s.handleResetStreak)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "dismiss_reset_error",
		Description: "Clear the error left by the last failed reset.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}, s.handleDismissResetError)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "list_resets",
		Description: "List recorded reset attempts, newest first.",
		InputSchema: listResetsSchema,
	}, s.handleListResets)
}

func (s *Server) handleGetStreak(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	st, err := s.svc.Status(ctx)
	if err != nil {
		return toolError("failed to read streak: %v", err), nil
	}
	return textResult(formatStatus(st)), nil
}

func formatStatus(st *services.Status) string {
	var sb strings.Builder
	if st.Problem != "" {
		fmt.Fprintf(&sb, "%s: %s\n", st.EntityID, st.Problem)
		return sb.String()
	}

	fmt.Fprintf(&sb, "%s\n", st.Name)
	if st.RankLabel != "" {
		fmt.Fprintf(&sb, "Rank: %s\n", st.RankLabel)
	}
	fmt.Fprintf(&sb, "Streak: %s", st.DaysText)
	if st.Active != nil {
		fmt.Fprintf(&sb, " (since %s)", st.Active.Start)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Reset target: %s\n", st.Target)
	if st.MinDate != nil && st.MaxDate != nil {
		fmt.Fprintf(&sb, "Selectable event days: %s to %s\n", st.MinDate, st.MaxDate)
	}
	if len(st.Top3) > 0 {
		sb.WriteString("Top streaks:\n")
		for _, e := range st.Top3 {
			end := "ongoing"
			if e.End != nil {
				end = e.End.String()
			}
			fmt.Fprintf(&sb, "  #%d  %s to %s  (%d days)\n", e.Rank, e.Start, end, e.Days)
		}
	}
	if st.LastError != "" {
		fmt.Fprintf(&sb, "Last reset failed: %s\n", st.LastError)
	}
	return sb.String()
}

func (s *Server) handleResolveStreakStart(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Date string `json:"date"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if args.Date == "" {
		return toolError("date is required"), nil
	}

	d, err := services.ParseEventDate(args.Date)
	if err != nil {
		return toolError("%v", err), nil
	}
	r := services.Resolve(d)
	return textResult(fmt.Sprintf("An event on %s starts the streak on %s.", r.EventDate, r.StreakStart)), nil
}

func (s *Server) handleCalendarMonth(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Month string `json:"month"`
	}
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return toolError("invalid arguments: %v", err), nil
		}
	}

	m, err := s.svc.Calendar(ctx, args.Month)
	if err != nil {
		return toolError("%v", err), nil
	}
	return textResult(m.Text()), nil
}

func (s *Server) handleResetStreak(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args services.ResetRequest
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}

	res, err := s.svc.Reset(ctx, args)
	if err != nil {
		return toolError("reset failed: %v", err), nil
	}
	return textResult(fmt.Sprintf("Streak reset on %s.\nEvent day: %s\nNew streak start: %s (%s)",
		res.Target, res.EventDate, res.StreakStart, res.Source)), nil
}

func (s *Server) handleDismissResetError(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	s.svc.DismissError()
	return textResult("Reset error cleared."), nil
}

func (s *Server) handleListResets(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Limit  int    `json:"limit"`
		Entity string `json:"entity"`
	}
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return toolError("invalid arguments: %v", err), nil
		}
	}
	if args.Limit < 0 {
		return toolError("limit must not be negative"), nil
	}

	recs, err := s.svc.History(storage.ListOptions{Limit: args.Limit, EntityID: args.Entity})
	if err != nil {
		return toolError("failed to list resets: %v", err), nil
	}
	if len(recs) == 0 {
		return textResult("No resets recorded."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d reset(s):\n\n", len(recs))
	for _, r := range recs {
		fmt.Fprintf(&sb, "%s  %s  event %s -> start %s  [%s, %s]\n",
			r.CreatedAt.Format("2006-01-02 15:04"), r.EntityID, r.EventDate, r.StreakStart, r.Source, r.Outcome)
		if r.Error != "" {
			fmt.Fprintf(&sb, "    error: %s\n", r.Error)
		}
	}
	return textResult(sb.String()), nil
}

func textResult(text string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: text}},
	}
}

// toolError creates an error result for MCP tool responses.
func toolError(format string, args ...interface{}) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}
