// ABOUTME: Cobra command starting the HTTP API for dashboards.
// ABOUTME: Serves the streak service over chi until interrupted.
package main

import (
	"github.com/spf13/cobra"

	"github.com/2389-research/streakhub/internal/card"
	"github.com/2389-research/streakhub/internal/logger"
	"github.com/2389-research/streakhub/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serve the streak card over HTTP for dashboards and automations.

Routes live under /api: streak, calendar, resolve, reset, resets, and cards.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	svc, err := newStreakService()
	if err != nil {
		return err
	}

	registry := card.NewRegistry()
	if err := registry.Register(card.StreakHubCard); err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = globalConfig.Server.Addr
	}

	ctx, cancel := signalContext()
	defer cancel()

	srv := server.New(svc, registry, logger.Logger)
	return srv.ListenAndServe(ctx, addr)
}
