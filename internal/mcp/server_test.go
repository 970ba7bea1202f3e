// ABOUTME: Tests for MCP server creation and validation.
// ABOUTME: Verifies the server requires a streak service and honors options.
package mcp

import "testing"

func TestNewServerRequiresService(t *testing.T) {
	_, err := NewServer(nil)
	if err == nil {
		t.Error("expected error when streak service is nil")
	}
}

func TestNewServerSuccess(t *testing.T) {
	server, err := NewServer(newStreakService(t, &fakeBackend{state: rankSensor()}, nil))
	if err != nil {
		t.Fatalf("NewServer error: %v", err)
	}
	if server == nil || server.mcp == nil {
		t.Fatal("expected initialized server")
	}
	if server.version != "1.0.0" {
		t.Errorf("default version = %q", server.version)
	}
}

func TestNewServerWithVersion(t *testing.T) {
	server, err := NewServer(newStreakService(t, &fakeBackend{}, nil), WithVersion("2.3.4"))
	if err != nil {
		t.Fatalf("NewServer error: %v", err)
	}
	if server.version != "2.3.4" {
		t.Errorf("version = %q, want 2.3.4", server.version)
	}
}
