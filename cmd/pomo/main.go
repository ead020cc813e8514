// Package main provides the CLI entrypoint for pomo.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/pomo/internal/client"
	"github.com/verte-zerg/pomo/internal/config"
	"github.com/verte-zerg/pomo/internal/model"
	"github.com/verte-zerg/pomo/internal/timer"
	"github.com/verte-zerg/pomo/internal/tui"
)

const (
	defaultServerURL = "http://localhost:3000"
	defaultAddr      = ":3000"
	drainTimeout     = 5 * time.Second
)

var (
	clientServerURL string
	clientUserID    string
	clientAPIKey    string

	timerStudy   int
	timerShort   int
	timerLong    int
	timerPurpose string
	timerTag     string
)

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pomo",
		Short:         "Pomodoro timer with session logging",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTimerCmd,
	}

	rootCmd.PersistentFlags().StringVar(&clientServerURL, "server", defaultServerURL, "API base URL")
	rootCmd.PersistentFlags().StringVar(&clientUserID, "user", "", "user id sessions are recorded for")
	rootCmd.PersistentFlags().StringVar(&clientAPIKey, "api-key", "", "bearer key for the API")

	rootCmd.Flags().IntVar(&timerStudy, "study", model.DefaultStudyPeriod, "focus period in minutes")
	rootCmd.Flags().IntVar(&timerShort, "short", model.DefaultShortBreak, "short break in minutes")
	rootCmd.Flags().IntVar(&timerLong, "long", model.DefaultLongBreak, "long break in minutes")
	rootCmd.Flags().StringVar(&timerPurpose, "purpose", "", "what this session is for")
	rootCmd.Flags().StringVar(&timerTag, "tag", "", "label for grouping sessions")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSessionsCmd())
	rootCmd.AddCommand(newStatsCmd())

	return rootCmd
}

func runTimerCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadClientConfig(cmd)
	if err != nil {
		return err
	}
	applyIntConfig(cmd, "study", &timerStudy, fileCfg.Timer.StudyPeriod)
	applyIntConfig(cmd, "short", &timerShort, fileCfg.Timer.ShortBreak)
	applyIntConfig(cmd, "long", &timerLong, fileCfg.Timer.LongBreak)
	applyStringConfig(cmd, "purpose", &timerPurpose, fileCfg.Timer.Purpose)
	applyStringConfig(cmd, "tag", &timerTag, fileCfg.Timer.Tag)

	cfg := model.TimerConfig{
		StudyPeriod: timerStudy,
		ShortBreak:  timerShort,
		LongBreak:   timerLong,
		Purpose:     timerPurpose,
		Tag:         timerTag,
	}
	if err := validateTimerConfig(cfg); err != nil {
		return err
	}
	if err := requireUser(); err != nil {
		return err
	}

	logger, closeLog, err := openTimerLogger(config.DefaultLogPath())
	if err != nil {
		return err
	}
	defer closeLog()

	api := client.New(clientServerURL, clientAPIKey)
	reporter := client.NewReporter(api, clientUserID, logger)
	machine := timer.New(cfg, reporter)
	userID := clientUserID
	ui := tui.NewModel(machine, tui.Options{
		Stats: func(ctx context.Context) (model.Stats, error) {
			return api.Stats(ctx, userID)
		},
		Notifier: tui.Bell{W: os.Stderr},
		Failures: reporter,
		Logger:   logger,
	})

	program := tea.NewProgram(ui, tea.WithAltScreen())
	reporter.OnLogged = func(sess model.Session) {
		program.Send(tui.SessionLoggedMsg{Session: sess})
	}
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := reporter.Wait(ctx); err != nil {
		logErrf("some session records may not have been saved: %v\n", err)
	}
	if n := reporter.Failures(); n > 0 {
		logErrf("%d session event(s) could not be saved; see %s\n", n, config.DefaultLogPath())
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func loadClientConfig(cmd *cobra.Command) (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "server", &clientServerURL, fileCfg.Client.ServerURL)
	applyStringConfig(cmd, "user", &clientUserID, fileCfg.Client.UserID)
	applyStringConfig(cmd, "api-key", &clientAPIKey, fileCfg.Client.APIKey)
	return fileCfg, nil
}

func requireUser() error {
	if strings.TrimSpace(clientUserID) == "" {
		return fmt.Errorf("--user is required (or set POMO_USER_ID / [client] user-id)")
	}
	return nil
}

func openTimerLogger(path string) (*slog.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: parseLevel(os.Getenv("LOG_LEVEL"))}))
	return logger, func() {
		if cerr := f.Close(); cerr != nil {
			logErrf("failed to close log file: %v\n", cerr)
		}
	}, nil
}

func parseLevel(v string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# pomo configuration
# Uncomment a value to enable it. CLI flags override config values,
# environment variables (POMO_*) override the file.

[timer]
# study-period = %d        # Focus period in minutes
# short-break = %d          # Short break in minutes
# long-break = %d          # Long break in minutes, every %d rounds
# purpose = ""             # What sessions are for
# tag = ""                 # Label for grouping sessions

[client]
# server-url = %q
# user-id = ""
# api-key = ""

[server]
# addr = %q
# db-path = %q
# api-key = ""             # Empty disables bearer auth
# log-level = "info"
`,
		model.DefaultStudyPeriod,
		model.DefaultShortBreak,
		model.DefaultLongBreak,
		timer.RoundsPerLongBreak,
		defaultServerURL,
		defaultAddr,
		config.DefaultDBPath(),
	)
}

func validateTimerConfig(cfg model.TimerConfig) error {
	if cfg.StudyPeriod <= 0 {
		return fmt.Errorf("--study must be > 0")
	}
	if cfg.ShortBreak <= 0 {
		return fmt.Errorf("--short must be > 0")
	}
	if cfg.LongBreak <= 0 {
		return fmt.Errorf("--long must be > 0")
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
