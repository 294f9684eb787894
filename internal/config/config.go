// Package config defines the application configuration and its validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/solinlabs/persona_bot_platform/pkg/logger"
)

// AppConfig holds all application configuration
type AppConfig struct {
	// Service configuration
	ServiceName string `env:"SERVICE_NAME" yaml:"service_name" default:"persona-bot-platform"`
	Version     string `env:"VERSION" yaml:"version" default:"dev"`
	Environment string `env:"ENVIRONMENT" yaml:"environment" default:"development"`

	// Server configuration
	Port           int           `env:"PORT" yaml:"port" default:"8080"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" yaml:"request_timeout" default:"60s"`
	IdleTimeout    time.Duration `env:"IDLE_TIMEOUT" yaml:"idle_timeout" default:"60s"`

	// Provider configuration
	LLM       LLMConfig       `yaml:"llm"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai"`

	// Pipeline configuration
	History   HistoryConfig   `yaml:"history"`
	Filter    FilterConfig    `yaml:"filter"`
	Memory    MemoryConfig    `yaml:"memory"`
	Reminders RemindersConfig `yaml:"reminders"`
	Personas  PersonasConfig  `yaml:"personas"`

	// Infrastructure configuration
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Security   SecurityConfig   `yaml:"security"`
	Telegram   TelegramConfig   `yaml:"telegram"`
}

// Validate validates the configuration and returns an error if invalid
func (c *AppConfig) Validate() error {
	var result error

	validLevels := []string{"debug", "info", "warn", "error"}
	level := strings.ToLower(c.Logging.Level)
	valid := false
	for _, validLevel := range validLevels {
		if level == validLevel {
			valid = true
			break
		}
	}
	if !valid {
		result = multierror.Append(result, fmt.Errorf("log_level must be one of [debug, info, warn, error], got %q", c.Logging.Level))
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		result = multierror.Append(result, fmt.Errorf("log_format must be either 'json' or 'text', got %q", c.Logging.Format))
	}

	if c.Port < 1 || c.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("port must be between 1 and 65535, got %d", c.Port))
	}

	if c.RequestTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("request_timeout must be greater than 0"))
	}

	if c.LLM.DefaultProvider != ProviderAnthropic && c.LLM.DefaultProvider != ProviderOpenAI {
		result = multierror.Append(result, fmt.Errorf("llm default_provider must be %q or %q, got %q",
			ProviderAnthropic, ProviderOpenAI, c.LLM.DefaultProvider))
	}

	if c.Anthropic.APIKey == "" && c.OpenAI.APIKey == "" {
		result = multierror.Append(result, fmt.Errorf("at least one provider API key must be configured"))
	}

	if c.History.MaxMessages <= 0 {
		result = multierror.Append(result, fmt.Errorf("history max_messages must be greater than 0"))
	}

	if c.Filter.URLRatioThreshold <= 0 || c.Filter.URLRatioThreshold > 1 {
		result = multierror.Append(result, fmt.Errorf("filter url_ratio_threshold must be in (0, 1], got %v", c.Filter.URLRatioThreshold))
	}
	if c.Filter.MinContentLength <= 0 {
		result = multierror.Append(result, fmt.Errorf("filter min_content_length must be greater than 0"))
	}
	if c.Filter.TrivialMaxRunes <= 0 {
		result = multierror.Append(result, fmt.Errorf("filter trivial_max_runes must be greater than 0"))
	}

	switch c.Storage.Backend {
	case "local":
		if c.Storage.LocalDir == "" && c.Filter.EnableDiskStorage {
			result = multierror.Append(result, fmt.Errorf("filter disk storage is enabled but storage local_dir is empty"))
		}
	case "s3":
		if c.Storage.S3Bucket == "" {
			result = multierror.Append(result, fmt.Errorf("storage s3_bucket is required for the s3 backend"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("storage backend must be 'local' or 's3', got %q", c.Storage.Backend))
	}

	switch c.Memory.PromotionThreshold {
	case "low", "medium", "high", "critical":
	default:
		result = multierror.Append(result, fmt.Errorf("memory promotion_threshold must be one of [low, medium, high, critical], got %q",
			c.Memory.PromotionThreshold))
	}

	if c.Reminders.Enabled && c.Reminders.PollInterval <= 0 {
		result = multierror.Append(result, fmt.Errorf("reminders poll_interval must be greater than 0"))
	}

	if c.Security.MaxRequestSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("max_request_size must be greater than 0"))
	}

	return result
}

// GetLogLevel returns the parsed logger level
func (c *AppConfig) GetLogLevel() logger.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return logger.DebugLevel
	case "warn", "warning":
		return logger.WarnLevel
	case "error":
		return logger.ErrorLevel
	default:
		return logger.InfoLevel
	}
}

// IsProduction returns true if running in production environment
func (c *AppConfig) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}

// LogConfig logs the current configuration (without sensitive data)
func (c *AppConfig) LogConfig(log logger.Logger) {
	log.Info("Application configuration loaded",
		logger.StringField("service_name", c.ServiceName),
		logger.StringField("version", c.Version),
		logger.StringField("environment", c.Environment),
		logger.IntField("port", c.Port),
		logger.StringField("default_provider", c.LLM.DefaultProvider),
		logger.BoolField("anthropic_configured", c.Anthropic.APIKey != ""),
		logger.BoolField("openai_configured", c.OpenAI.APIKey != ""),
		logger.StringField("storage_backend", c.Storage.Backend),
		logger.IntField("history_max_messages", c.History.MaxMessages),
		logger.BoolField("memory_enabled", c.Memory.Enabled),
		logger.BoolField("reminders_enabled", c.Reminders.Enabled),
		logger.BoolField("telegram_enabled", c.Telegram.Enabled()),
		logger.BoolField("metrics_enabled", c.Monitoring.MetricsEnabled),
		logger.StringField("log_level", c.Logging.Level),
		logger.StringField("log_format", c.Logging.Format),
	)
}
