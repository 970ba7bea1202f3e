// ABOUTME: CLI commands for reading and resetting the streak.
// ABOUTME: Provides status, resolve, calendar, reset, and history subcommands.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/2389-research/streakhub/internal/errs"
	"github.com/2389-research/streakhub/internal/services"
	"github.com/2389-research/streakhub/internal/storage"
	"github.com/2389-research/streakhub/internal/streak"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current streak",
	Long:  "Read the rank sensor and show the active streak, its rank, and the dates a reset may use.",
	RunE:  runStatus,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <YYYY-MM-DD>",
	Short: "Show the streak start an event day produces",
	Long:  "Print the day after the event, which is where a reset would restart the streak. Does not contact Home Assistant.",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

var calendarCmd = &cobra.Command{
	Use:   "calendar [YYYY-MM]",
	Short: "Show a month of selectable event days",
	Long:  "Print a calendar grid. Days outside the active streak are shown as dots.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCalendar,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the streak",
	Long: `Record that the event happened and restart the streak the day after.

Give either --days-ago (0 today, 1 yesterday, 2 the day before, or further
back within the active streak) or --date.`,
	RunE: runReset,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded reset attempts",
	Long:  "List reset attempts from the local history, newest first.",
	RunE:  runHistory,
}

// Flags
var (
	resetDaysAgo  int
	resetDate     string
	resetYes      bool
	historyLimit  int
	historyEntity string
)

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(calendarCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(historyCmd)

	resetCmd.Flags().IntVar(&resetDaysAgo, "days-ago", 0, "Event day relative to today")
	resetCmd.Flags().StringVar(&resetDate, "date", "", "Event day as YYYY-MM-DD")
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Skip the confirmation prompt")
	resetCmd.MarkFlagsMutuallyExclusive("days-ago", "date")
	resetCmd.MarkFlagsOneRequired("days-ago", "date")

	historyCmd.Flags().IntVar(&historyLimit, "limit", storage.DefaultListLimit, "Maximum number of attempts to show")
	historyCmd.Flags().StringVar(&historyEntity, "entity", "", "Only attempts against this entity")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runStatus(cmd *cobra.Command, args []string) error {
	svc, err := newStreakService()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	st, err := svc.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", globalConfig.Card.Entity, err)
	}

	out := cmd.OutOrStdout()
	if st.Problem != "" {
		fmt.Fprintf(out, "%s: %s\n", st.EntityID, st.Problem)
		return nil
	}
	fmt.Fprintln(out, st.Name)
	if st.RankLabel != "" {
		fmt.Fprintf(out, "Rank:   %s\n", st.RankLabel)
	}
	fmt.Fprintf(out, "Streak: %s\n", st.DaysText)
	if st.MinDate != nil && st.MaxDate != nil {
		fmt.Fprintf(out, "Resets: %s to %s -> %s\n", st.MinDate, st.MaxDate, st.Target)
	}
	for _, e := range st.Top3 {
		fmt.Fprintf(out, "  %s\n", formatEntry(e))
	}
	if st.LastError != "" {
		fmt.Fprintf(out, "Last reset failed: %s\n", st.LastError)
	}
	return nil
}

func formatEntry(e streak.Entry) string {
	end := "now"
	if e.End != nil {
		end = e.End.String()
	}
	return fmt.Sprintf("#%d  %s .. %-10s  %d days", e.Rank, e.Start, end, e.Days)
}

func runResolve(cmd *cobra.Command, args []string) error {
	d, err := services.ParseEventDate(args[0])
	if err != nil {
		return err
	}
	r := services.Resolve(d)
	fmt.Fprintf(cmd.OutOrStdout(), "event %s -> streak start %s\n", r.EventDate, r.StreakStart)
	return nil
}

func runCalendar(cmd *cobra.Command, args []string) error {
	svc, err := newStreakService()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	month := ""
	if len(args) == 1 {
		month = args[0]
	}
	m, err := svc.Calendar(ctx, month)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), m.Text())
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	req := services.ResetRequest{Date: resetDate}
	if cmd.Flags().Changed("days-ago") {
		n := resetDaysAgo
		req.DaysAgo = &n
	}

	svc, err := newStreakService()
	if err != nil {
		return err
	}

	if !resetYes {
		ok, err := confirmReset(cmd.InOrStdin(), cmd.OutOrStdout(), svc.Target(), req)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Reset cancelled.")
			return nil
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	res, err := svc.Reset(ctx, req)
	if err != nil {
		var conflict *errs.ConflictError
		if errors.As(err, &conflict) {
			return fmt.Errorf("reset skipped: %w", err)
		}
		return fmt.Errorf("reset failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Streak on %s now starts %s (event %s).\n", res.Target, res.StreakStart, res.EventDate)
	return nil
}

// confirmReset asks before calling Home Assistant. Only "y" or "yes" confirms.
func confirmReset(in io.Reader, out io.Writer, target string, req services.ResetRequest) (bool, error) {
	when := req.Date
	if req.DaysAgo != nil {
		when = fmt.Sprintf("%d day(s) ago", *req.DaysAgo)
	}
	fmt.Fprintf(out, "Reset %s for an event %s? [y/N] ", target, when)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	recs, err := globalResetStore.List(storage.ListOptions{Limit: historyLimit, EntityID: historyEntity})
	if err != nil {
		return fmt.Errorf("failed to list resets: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(recs) == 0 {
		fmt.Fprintln(out, "No resets recorded.")
		return nil
	}
	for _, r := range recs {
		fmt.Fprintf(out, "%s  %-8s %-10s %s  event %s -> start %s  (%s)\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.Outcome,
			r.Source,
			r.EntityID,
			r.EventDate,
			r.StreakStart,
			r.Duration.Round(time.Millisecond),
		)
		if r.Error != "" {
			fmt.Fprintf(out, "    %s\n", r.Error)
		}
	}
	return nil
}
