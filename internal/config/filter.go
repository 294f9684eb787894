package config

// FilterConfig holds history filter configuration
type FilterConfig struct {
	EnableURLFilter     bool `env:"FILTER_URL_ENABLED" yaml:"url_enabled" default:"true"`
	EnableTrivialFilter bool `env:"FILTER_TRIVIAL_ENABLED" yaml:"trivial_enabled" default:"true"`
	EnableDiskStorage   bool `env:"FILTER_DISK_STORAGE_ENABLED" yaml:"disk_storage_enabled" default:"true"`
	// MinContentLength is the minimum prose length, in runes, a turn must
	// keep after URL stripping
	MinContentLength int `env:"FILTER_MIN_CONTENT_LENGTH" yaml:"min_content_length" default:"5"`
	// URLRatioThreshold is the URL character fraction at which a turn
	// counts as URL-dominated
	URLRatioThreshold float64 `env:"FILTER_URL_RATIO_THRESHOLD" yaml:"url_ratio_threshold" default:"0.6"`
	// TrivialMaxRunes is the length below which the trivial dictionary
	// applies
	TrivialMaxRunes int `env:"FILTER_TRIVIAL_MAX_RUNES" yaml:"trivial_max_runes" default:"20"`
}
