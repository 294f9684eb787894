package config

// MemoryConfig holds long-term memory configuration
type MemoryConfig struct {
	Enabled bool `env:"MEMORY_ENABLED" yaml:"enabled" default:"true"`
	// PromotionThreshold is the minimum importance for a turn to be
	// persisted: "low", "medium", "high" or "critical"
	PromotionThreshold string `env:"MEMORY_PROMOTION_THRESHOLD" yaml:"promotion_threshold" default:"medium"`
}
