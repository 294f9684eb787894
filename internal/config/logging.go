package config

// LoggingConfig controls log verbosity and output format.
type LoggingConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `env:"LOG_LEVEL" yaml:"level" default:"info"`
	// Format is "json" for machine-readable output or "text" for terminals.
	Format string `env:"LOG_FORMAT" yaml:"format" default:"json"`
}
