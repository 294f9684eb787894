package config

// SecurityConfig holds the HTTP API hardening settings.
type SecurityConfig struct {
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" yaml:"cors_allowed_origins" default:"http://localhost:3000,http://localhost:8080"`
	// MaxRequestSize caps request bodies, in bytes.
	MaxRequestSize int64 `env:"MAX_REQUEST_SIZE" yaml:"max_request_size" default:"10485760"`
}
