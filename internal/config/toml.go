// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Timer  TimerConfig  `toml:"timer"`
	Client ClientConfig `toml:"client"`
	Server ServerConfig `toml:"server"`
}

// TimerConfig maps timer-related settings.
type TimerConfig struct {
	StudyPeriod *int    `toml:"study-period"`
	ShortBreak  *int    `toml:"short-break"`
	LongBreak   *int    `toml:"long-break"`
	Purpose     *string `toml:"purpose"`
	Tag         *string `toml:"tag"`
}

// ClientConfig maps settings used to reach the API.
type ClientConfig struct {
	ServerURL *string `toml:"server-url"`
	UserID    *string `toml:"user-id"`
	APIKey    *string `toml:"api-key"`
}

// ServerConfig maps settings of `pomo serve`.
type ServerConfig struct {
	Addr     *string `toml:"addr"`
	DBPath   *string `toml:"db-path"`
	APIKey   *string `toml:"api-key"`
	LogLevel *string `toml:"log-level"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
// Environment variables are applied on top of the file.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	var cfg FileConfig
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
		}
	} else if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return FileConfig{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) error {
	envString("POMO_SERVER_URL", &cfg.Client.ServerURL)
	envString("POMO_USER_ID", &cfg.Client.UserID)
	if v := os.Getenv("POMO_API_KEY"); v != "" {
		cfg.Client.APIKey = &v
		cfg.Server.APIKey = &v
	}
	envString("POMO_ADDR", &cfg.Server.Addr)
	envString("POMO_DB_PATH", &cfg.Server.DBPath)
	envString("LOG_LEVEL", &cfg.Server.LogLevel)
	if v := os.Getenv("POMO_STUDY_PERIOD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid POMO_STUDY_PERIOD: %w", err)
		}
		cfg.Timer.StudyPeriod = &n
	}
	return nil
}

func envString(key string, target **string) {
	if v := os.Getenv(key); v != "" {
		*target = &v
	}
}
