// ABOUTME: Cobra command for interactive Home Assistant setup.
// ABOUTME: Launches a bubbletea TUI wizard, then saves config and stores the token in the keyring.
package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/2389-research/streakhub/internal/config"
	"github.com/2389-research/streakhub/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Connect to Home Assistant",
	Long:  "Interactive setup that checks the access token and looks up the rank sensor before saving.",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	existingToken := cfg.HomeAssistant.Token
	if existingToken == "" {
		if t, err := config.GetToken(); err == nil {
			existingToken = t
		}
	}

	model := tui.NewSetupModel(cfg.HomeAssistant.URL, existingToken, cfg.Card.Entity)

	p := tea.NewProgram(model)
	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	final := result.(tui.SetupModel)
	if !final.ShouldSave() {
		fmt.Println("Setup cancelled.")
		return nil
	}

	haURL, token, entityID := final.Result()
	if final.Sensor() == nil {
		fmt.Printf("Could not confirm %s; saving it anyway.\n", entityID)
	}
	cfg.HomeAssistant.URL = tui.NormalizeURL(haURL)
	cfg.Card.Entity = entityID

	cfg.HomeAssistant.Token = ""
	if err := config.SetToken(token); err != nil {
		fmt.Printf("Could not use the OS keyring (%v), storing the token in the config file.\n", err)
		cfg.HomeAssistant.Token = token
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	configPath, err := config.GetConfigPath()
	if err != nil {
		fmt.Println("Config saved successfully.")
	} else {
		fmt.Printf("Config saved to %s\n", configPath)
	}
	return nil
}
