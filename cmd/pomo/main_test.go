package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/pomo/internal/api"
	"github.com/verte-zerg/pomo/internal/config"
	"github.com/verte-zerg/pomo/internal/model"
	"github.com/verte-zerg/pomo/internal/pomodoro"
	"github.com/verte-zerg/pomo/internal/store"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	for _, key := range []string{"POMO_SERVER_URL", "POMO_USER_ID", "POMO_API_KEY", "POMO_ADDR", "POMO_DB_PATH", "LOG_LEVEL", "POMO_STUDY_PERIOD"} {
		t.Setenv(key, "")
	}
	return dir
}

func startAPI(t *testing.T, apiKey string) (string, *pomodoro.Service) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "pomo.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := pomodoro.NewService(st, logger)
	srv := httptest.NewServer(api.NewRouter(svc, st, apiKey, logger))
	t.Cleanup(srv.Close)
	return srv.URL, svc
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSessionsCommand(t *testing.T) {
	isolateEnv(t)
	url, svc := startAPI(t, "k")
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(25 * time.Minute)
	if _, err := svc.Log(context.Background(), "u1", model.LogRequest{StudyPeriod: 25, CompletedRounds: 1, StartTime: &start, EndTime: &end, Tag: "math"}); err != nil {
		t.Fatalf("log: %v", err)
	}

	out, err := runCmd(t, "sessions", "--server", url, "--user", "u1", "--api-key", "k")
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if !strings.Contains(out, "Rounds") || !strings.Contains(out, "math") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	out, err = runCmd(t, "sessions", "--server", url, "--user", "nobody", "--api-key", "k")
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if !strings.Contains(out, "No sessions found.") {
		t.Fatalf("expected empty message, got:\n%s", out)
	}
}

func TestStatsCommand(t *testing.T) {
	isolateEnv(t)
	url, svc := startAPI(t, "")
	for _, period := range []int{25, 30} {
		if _, err := svc.Start(context.Background(), "u1", model.StartRequest{StudyPeriod: period, CompletedRounds: 1}); err != nil {
			t.Fatalf("start: %v", err)
		}
	}

	out, err := runCmd(t, "stats", "--server", url, "--user", "u1", "--days", "3")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	for _, want := range []string{"Sessions: 2", "Study minutes: 55 (0h55m)", "Completed rounds: 2", "Last 3 days:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestStatsCommandRequiresUser(t *testing.T) {
	isolateEnv(t)
	_, err := runCmd(t, "stats", "--server", "http://127.0.0.1:0")
	if err == nil || !strings.Contains(err.Error(), "--user") {
		t.Fatalf("expected user error, got %v", err)
	}
}

func TestUserFromConfigFile(t *testing.T) {
	dir := isolateEnv(t)
	url, _ := startAPI(t, "")
	path := filepath.Join(dir, "config", "pomo", "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	body := "[client]\nserver-url = \"" + url + "\"\nuser-id = \"from-file\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := runCmd(t, "stats", "--days", "0")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, "Sessions: 0") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestServeOptionsResolve(t *testing.T) {
	isolateEnv(t)
	root := newRootCmd()
	serve, _, err := root.Find([]string{"serve"})
	if err != nil {
		t.Fatalf("find serve: %v", err)
	}
	if err := serve.ParseFlags([]string{"--addr", ":9999"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	addr, db, key, level := ":1", "/tmp/x.db", "server-key", "debug"
	opts := &serveOptions{addr: ":9999", dbPath: config.DefaultDBPath(), logLevel: "info"}
	opts.resolve(serve, config.ServerConfig{Addr: &addr, DBPath: &db, APIKey: &key, LogLevel: &level})

	if opts.addr != ":9999" {
		t.Fatalf("flag should win over config, got %q", opts.addr)
	}
	if opts.dbPath != db || opts.apiKey != key || opts.logLevel != level {
		t.Fatalf("config values not applied: %+v", opts)
	}
}

func TestValidateTimerConfig(t *testing.T) {
	ok := model.TimerConfig{StudyPeriod: 25, ShortBreak: 5, LongBreak: 15}
	if err := validateTimerConfig(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := []model.TimerConfig{
		{StudyPeriod: 0, ShortBreak: 5, LongBreak: 15},
		{StudyPeriod: 25, ShortBreak: -1, LongBreak: 15},
		{StudyPeriod: 25, ShortBreak: 5, LongBreak: 0},
	}
	for _, cfg := range bad {
		if err := validateTimerConfig(cfg); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	var cfg config.FileConfig
	if _, err := toml.Decode(defaultConfigTemplate(), &cfg); err != nil {
		t.Fatalf("template is not valid TOML: %v", err)
	}
	if cfg.Timer.StudyPeriod != nil || cfg.Client.UserID != nil {
		t.Fatalf("template should only contain commented values")
	}
}
