// ABOUTME: MCP server initialization and configuration for streakhub.
// ABOUTME: Exposes the streak card's status, calendar, and reset operations as agent tools.
package mcp

import (
	"context"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/streakhub/internal/models"
	"github.com/2389-research/streakhub/internal/services"
	"github.com/2389-research/streakhub/internal/storage"
)

// StreakService is the subset of the service layer the tools call.
type StreakService interface {
	Status(ctx context.Context) (*services.Status, error)
	Calendar(ctx context.Context, month string) (*services.CalendarMonth, error)
	Reset(ctx context.Context, req services.ResetRequest) (*services.ResetResult, error)
	DismissError()
	History(opts storage.ListOptions) ([]*models.ResetRecord, error)
}

// Server wraps the MCP server around a streak service.
type Server struct {
	mcp     *gomcp.Server
	svc     StreakService
	version string
}

// ServerOption configures optional Server settings.
type ServerOption func(*Server)

// WithVersion sets the version reported to MCP clients.
func WithVersion(v string) ServerOption {
	return func(s *Server) {
		s.version = v
	}
}

// NewServer creates an MCP server with the streak tools registered.
func NewServer(svc StreakService, opts ...ServerOption) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("streak service is required")
	}

	s := &Server{svc: svc, version: "1.0.0"}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = gomcp.NewServer(
		&gomcp.Implementation{
			Name:    "streakhub",
			Version: s.version,
		},
		nil,
	)
	s.registerStreakTools()

	return s, nil
}

// Serve starts the MCP server in stdio mode.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcp.Run(ctx, &gomcp.StdioTransport{})
}
