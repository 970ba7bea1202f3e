// ABOUTME: MCP server command implementation for streakhub.
// ABOUTME: Starts the MCP server in stdio mode for AI agent integration.
package main

import (
	"github.com/spf13/cobra"

	mcppkg "github.com/2389-research/streakhub/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server (stdio mode)",
	Long: `Start the Model Context Protocol server for AI agent integration.

The MCP server communicates via stdio, allowing AI agents like Claude
to read and reset the streak through a standardized protocol.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	svc, err := newStreakService()
	if err != nil {
		return err
	}

	server, err := mcppkg.NewServer(svc, mcppkg.WithVersion(version))
	if err != nil {
		return err
	}

	return server.Serve(ctx)
}
