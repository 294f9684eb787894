package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/solinlabs/persona_bot_platform/internal/config"
	"github.com/solinlabs/persona_bot_platform/internal/server"
	pkgconfig "github.com/solinlabs/persona_bot_platform/pkg/config"
	"github.com/solinlabs/persona_bot_platform/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional, env vars override)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	var cfg config.AppConfig
	var err error
	if configPath != "" {
		err = pkgconfig.Load(&cfg, configPath, false)
	} else {
		err = pkgconfig.LoadFromEnv(&cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.NewLogger(logger.Config{
		Level:   cfg.GetLogLevel(),
		Format:  cfg.Logging.Format,
		Service: cfg.ServiceName,
	})
	cfg.LogConfig(log)

	srv, err := server.New(context.Background(), &cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Run()
}
