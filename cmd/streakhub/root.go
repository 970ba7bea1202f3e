// ABOUTME: Root Cobra command and global flags for streakhub CLI.
// ABOUTME: Sets up lifecycle hooks for config loading, logging, and the reset history store.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/2389-research/streakhub/internal/config"
	"github.com/2389-research/streakhub/internal/homeassistant"
	"github.com/2389-research/streakhub/internal/logger"
	"github.com/2389-research/streakhub/internal/services"
	"github.com/2389-research/streakhub/internal/storage"
)

// version is set at build time via -ldflags.
var version = "dev"

var globalConfig *config.Config
var globalResetStore storage.ResetStore
var debugFlag bool

var rootCmd = &cobra.Command{
	Use:     "streakhub",
	Short:   "Streak trophies and resets for Home Assistant",
	Version: version,
	Long: `
███████╗████████╗██████╗ ███████╗ █████╗ ██╗  ██╗
██╔════╝╚══██╔══╝██╔══██╗██╔════╝██╔══██╗██║ ██╔╝
███████╗   ██║   ██████╔╝█████╗  ███████║█████╔╝
╚════██║   ██║   ██╔══██╗██╔══╝  ██╔══██║██╔═██╗
███████║   ██║   ██║  ██║███████╗██║  ██║██║  ██╗
╚══════╝   ╚═╝   ╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝╚═╝  ╚═╝

   TROPHY CASE

Track the StreakHub rank sensor from Home Assistant, browse the
streak calendar, and reset a streak when the event happens again.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "setup" || cmd.Name() == "resolve" {
			return nil
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		globalConfig = cfg

		logDir, err := cfg.GetLogDir()
		if err != nil {
			return fmt.Errorf("failed to resolve log dir: %w", err)
		}
		if err := logger.Init(logger.Config{Debug: cfg.Log.Debug || debugFlag, Dir: logDir}); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}

		dataDir, err := cfg.GetDataDir()
		if err != nil {
			return fmt.Errorf("failed to resolve data dir: %w", err)
		}
		store, err := storage.NewResetMDStore(dataDir)
		if err != nil {
			return fmt.Errorf("failed to open reset history: %w", err)
		}
		globalResetStore = store

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if globalResetStore != nil {
			_ = globalResetStore.Close()
			globalResetStore = nil
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Log debug output to stderr")
}

// newHomeAssistantClient builds a client from the loaded config and stored token.
func newHomeAssistantClient() (*homeassistant.Client, error) {
	if err := globalConfig.RequireHomeAssistant(); err != nil {
		return nil, err
	}
	token, err := globalConfig.ResolveToken()
	if err != nil {
		return nil, err
	}
	return homeassistant.NewClient(globalConfig.HomeAssistant.URL, token), nil
}

// newStreakService wires the configured card to Home Assistant and the history store.
func newStreakService() (*services.StreakService, error) {
	client, err := newHomeAssistantClient()
	if err != nil {
		return nil, err
	}
	if err := globalConfig.Card.Validate(); err != nil {
		return nil, fmt.Errorf("invalid card config: %w", err)
	}
	return services.NewStreakService(client, globalResetStore, services.Options{
		Card:      globalConfig.Card,
		Lang:      globalConfig.Language(),
		WeekStart: globalConfig.WeekStart(),
	})
}
