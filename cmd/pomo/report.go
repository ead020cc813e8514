package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/pomo/internal/client"
	"github.com/verte-zerg/pomo/internal/stats"
)

const (
	requestTimeout = 10 * time.Second
	defaultDays    = 7
	maxDays        = 30
)

var headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF4D4F"))

func newSessionsCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := loadClientConfig(cmd); err != nil {
				return err
			}
			userID := clientUserID
			if all {
				userID = ""
			} else if err := requireUser(); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			sessions, err := client.New(clientServerURL, clientAPIKey).List(ctx, userID)
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}
			out := cmd.OutOrStdout()
			writeHeading(out, "Sessions")
			return stats.RenderSessions(out, sessions)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list sessions of every user")
	return cmd
}

func newStatsCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show session totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := loadClientConfig(cmd); err != nil {
				return err
			}
			if err := requireUser(); err != nil {
				return err
			}
			if !cmd.Flags().Changed("days") {
				days = sparkDays()
			}
			if days < 0 {
				return fmt.Errorf("--days must be >= 0")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			c := client.New(clientServerURL, clientAPIKey)
			st, err := c.Stats(ctx, clientUserID)
			if err != nil {
				return fmt.Errorf("failed to load stats: %w", err)
			}
			var daily []float64
			if days > 0 {
				sessions, err := c.List(ctx, clientUserID)
				if err != nil {
					return fmt.Errorf("failed to list sessions: %w", err)
				}
				daily = stats.DailyMinutes(sessions, days, time.Now())
			}
			out := cmd.OutOrStdout()
			writeHeading(out, "Pomodoro stats for "+clientUserID)
			return stats.RenderSummary(out, st, daily)
		},
	}
	cmd.Flags().IntVar(&days, "days", defaultDays, "days shown in the sparkline (0 hides it)")
	return cmd
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// sparkDays widens the sparkline on wide terminals.
func sparkDays() int {
	if !stdoutIsTerminal() {
		return defaultDays
	}
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < 60 {
		return defaultDays
	}
	return min(maxDays, (width-30)/2)
}

func writeHeading(w io.Writer, text string) {
	if w != io.Writer(os.Stdout) || !stdoutIsTerminal() {
		return
	}
	if _, err := fmt.Fprintln(w, headingStyle.Render(text)); err != nil {
		// Best-effort heading.
		_ = err
	}
}
