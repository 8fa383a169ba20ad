// Package config resolves runtime configuration from an optional YAML file
// overlaid by ATTENDANCE_* environment variables. Environment always wins.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime configuration of the attendance service.
type Config struct {
	HTTPPort   int
	SQLiteDSN  string
	SessionTTL time.Duration

	// SweepEnabled schedules the morning forced-checkout sweep.
	SweepEnabled bool
	// SweepWritesEvent makes the sweep append synthetic checkout events
	// instead of resetting cached statuses only.
	SweepWritesEvent bool
}

type fileConfig struct {
	HTTPPort         *int    `yaml:"http_port"`
	SQLiteDSN        *string `yaml:"sqlite_dsn"`
	SessionTTL       *string `yaml:"session_ttl"`
	SweepEnabled     *bool   `yaml:"sweep_enabled"`
	SweepWritesEvent *bool   `yaml:"sweep_writes_event"`
}

// Load resolves the configuration: defaults, then the YAML file named by
// ATTENDANCE_CONFIG_FILE (if any), then environment variables.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:     8080,
		SQLiteDSN:    "file:attendance.db?_foreign_keys=on",
		SessionTTL:   24 * time.Hour,
		SweepEnabled: true,
	}

	if path := strings.TrimSpace(os.Getenv("ATTENDANCE_CONFIG_FILE")); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.HTTPPort != nil {
		if *fc.HTTPPort <= 0 {
			return fmt.Errorf("invalid http_port in %s: %d", path, *fc.HTTPPort)
		}
		cfg.HTTPPort = *fc.HTTPPort
	}
	if fc.SQLiteDSN != nil && strings.TrimSpace(*fc.SQLiteDSN) != "" {
		cfg.SQLiteDSN = strings.TrimSpace(*fc.SQLiteDSN)
	}
	if fc.SessionTTL != nil {
		ttl, err := time.ParseDuration(strings.TrimSpace(*fc.SessionTTL))
		if err != nil || ttl <= 0 {
			return fmt.Errorf("invalid session_ttl in %s: %q", path, *fc.SessionTTL)
		}
		cfg.SessionTTL = ttl
	}
	if fc.SweepEnabled != nil {
		cfg.SweepEnabled = *fc.SweepEnabled
	}
	if fc.SweepWritesEvent != nil {
		cfg.SweepWritesEvent = *fc.SweepWritesEvent
	}

	return nil
}

func applyEnv(cfg *Config) error {
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("ATTENDANCE_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "ATTENDANCE_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("ATTENDANCE_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if ttlValue := strings.TrimSpace(os.Getenv("ATTENDANCE_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "ATTENDANCE_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if value := strings.TrimSpace(os.Getenv("ATTENDANCE_SWEEP_ENABLED")); value != "" {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			invalid = append(invalid, "ATTENDANCE_SWEEP_ENABLED")
		} else {
			cfg.SweepEnabled = enabled
		}
	}

	if value := strings.TrimSpace(os.Getenv("ATTENDANCE_SWEEP_WRITES_EVENT")); value != "" {
		writes, err := strconv.ParseBool(value)
		if err != nil {
			invalid = append(invalid, "ATTENDANCE_SWEEP_WRITES_EVENT")
		} else {
			cfg.SweepWritesEvent = writes
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}
	return nil
}
