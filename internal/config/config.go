package config

import (
	"errors"
	"fmt"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// Duration is a time.Duration that unmarshals from a Go duration string
// (e.g. "500ms", "10s", "1m").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if v < 0 {
		return fmt.Errorf("duration %q must be >= 0", s)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Telegram    TelegramConfig    `yaml:"telegram"`
	Logging     LoggingConfig     `yaml:"logging"`
	Storage     StorageConfig     `yaml:"storage"`
	Broadcast   BroadcastConfig   `yaml:"broadcast"`
	Session     SessionConfig     `yaml:"session"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

type TelegramConfig struct {
	// Token may be left empty in the file and supplied via the BOT_TOKEN
	// environment variable instead.
	Token        string   `yaml:"token"`
	AdminUserIDs []int64  `yaml:"admin_user_ids"`
	PollTimeout  Duration `yaml:"poll_timeout"`
}

type LoggingConfig struct {
	Level   string      `yaml:"level"`
	Console bool        `yaml:"console"`
	File    LoggingFile `yaml:"file"`
}

type LoggingFile struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type StorageConfig struct {
	Path        string   `yaml:"path"`
	BusyTimeout Duration `yaml:"busy_timeout"`
}

// BroadcastConfig tunes the fan-out engine. These fields are hot-reloadable.
type BroadcastConfig struct {
	BatchSize     int      `yaml:"batch_size"`
	BatchDelay    Duration `yaml:"batch_delay"`
	ProgressEvery int      `yaml:"progress_every"`
	RatePerSec    int      `yaml:"rate_per_sec"`
	SendTimeout   Duration `yaml:"send_timeout"`
}

type SessionConfig struct {
	TTL Duration `yaml:"ttl"`
}

type MaintenanceConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Schedule  string   `yaml:"schedule"`  // cron spec
	Retention Duration `yaml:"retention"` // how long completed broadcast records are kept
}

// IsAdmin reports whether id is in the configured admin list.
func (c TelegramConfig) IsAdmin(id int64) bool {
	for _, a := range c.AdminUserIDs {
		if a == id {
			return true
		}
	}
	return false
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "./data/bot.db"
	}
	if c.Maintenance.Schedule == "" {
		c.Maintenance.Schedule = "0 4 * * *"
	}
	if c.Maintenance.Retention <= 0 {
		c.Maintenance.Retention = Duration(90 * 24 * time.Hour)
	}
}

// Validate checks the fields that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return errors.New("telegram.token is required (or set BOT_TOKEN)")
	}
	if len(c.Telegram.AdminUserIDs) == 0 {
		return errors.New("telegram.admin_user_ids must list at least one admin")
	}
	if c.Broadcast.BatchSize < 0 {
		return errors.New("broadcast.batch_size must be >= 0")
	}
	if c.Broadcast.ProgressEvery < 0 {
		return errors.New("broadcast.progress_every must be >= 0")
	}
	if c.Broadcast.RatePerSec < 0 {
		return errors.New("broadcast.rate_per_sec must be >= 0")
	}
	return nil
}
