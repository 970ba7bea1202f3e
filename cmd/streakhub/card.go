// ABOUTME: Cobra command running the streak card as a full-screen terminal UI.
// ABOUTME: Wires the card model to Home Assistant and records reset attempts.
package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/2389-research/streakhub/internal/storage"
	"github.com/2389-research/streakhub/internal/tui"
)

var cardCmd = &cobra.Command{
	Use:   "card",
	Short: "Open the streak card",
	Long: `Show the streak card in the terminal.

Click or press enter for the tap action, hold the mouse button or press h
to open the reset dialog, and press q to quit.`,
	RunE: runCard,
}

func init() {
	rootCmd.AddCommand(cardCmd)
}

func runCard(cmd *cobra.Command, args []string) error {
	client, err := newHomeAssistantClient()
	if err != nil {
		return err
	}

	model, err := tui.NewCardModel(tui.CardOptions{
		Config:    globalConfig.Card,
		Lang:      globalConfig.Language(),
		WeekStart: globalConfig.WeekStart(),
		Backend:   client,
		OnAttempt: storage.RecordAttempts(globalResetStore),
	})
	if err != nil {
		return err
	}

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
