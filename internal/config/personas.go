package config

// PersonasConfig holds persona loading configuration
type PersonasConfig struct {
	// BotsDir is the directory holding one subdirectory per bot with a
	// config.yaml inside
	BotsDir string `env:"PERSONAS_BOTS_DIR" yaml:"bots_dir" default:"./bots"`
}
