package config

// HistoryConfig holds session history configuration
type HistoryConfig struct {
	// MaxMessages caps the number of turns kept per session
	MaxMessages int `env:"HISTORY_MAX_MESSAGES" yaml:"max_messages" default:"50"`
}
