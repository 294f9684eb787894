package config

import "time"

// RemindersConfig holds reminder service configuration
type RemindersConfig struct {
	Enabled      bool          `env:"REMINDERS_ENABLED" yaml:"enabled" default:"true"`
	PollInterval time.Duration `env:"REMINDERS_POLL_INTERVAL" yaml:"poll_interval" default:"30s"`
}
