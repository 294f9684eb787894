// Package server wires the platform's components and manages their
// lifecycle.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	openaioption "github.com/openai/openai-go/option"

	appconfig "github.com/solinlabs/persona_bot_platform/internal/config"
	"github.com/solinlabs/persona_bot_platform/internal/connectors/telegram"
	"github.com/solinlabs/persona_bot_platform/internal/history_filter"
	"github.com/solinlabs/persona_bot_platform/internal/history_service"
	"github.com/solinlabs/persona_bot_platform/internal/llm"
	"github.com/solinlabs/persona_bot_platform/internal/memory_service"
	"github.com/solinlabs/persona_bot_platform/internal/models/anthropic"
	"github.com/solinlabs/persona_bot_platform/internal/monitoring"
	"github.com/solinlabs/persona_bot_platform/internal/models/openai"
	"github.com/solinlabs/persona_bot_platform/internal/orchestrator"
	"github.com/solinlabs/persona_bot_platform/internal/persona"
	"github.com/solinlabs/persona_bot_platform/internal/reminder_service"
	"github.com/solinlabs/persona_bot_platform/internal/storage_manager"
	"github.com/solinlabs/persona_bot_platform/pkg/logger"
	"github.com/solinlabs/persona_bot_platform/pkg/metrics"
)

// Server encapsulates all platform components and lifecycle management.
type Server struct {
	cfg               *appconfig.AppConfig
	log               logger.Logger
	metrics           *metrics.Metrics
	storageManager    *storage_manager.Manager
	orch              *orchestrator.Orchestrator
	api               *API
	reminders         *reminder_service.Service
	telegramConnector *telegram.Connector
	cancel            context.CancelFunc
}

// New creates a Server instance with all components initialized.
//
//nolint:revive // cognitive-complexity: initialization is sequential component setup
func New(ctx context.Context, cfg *appconfig.AppConfig, log logger.Logger) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		log:     log,
		metrics: metrics.NewMetrics(log),
	}

	var err error
	s.storageManager, err = s.createStorageManager(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage manager: %w", err)
	}

	store := history_service.NewStore(history_service.Config{
		MaxMessages: cfg.History.MaxMessages,
		Logger:      log,
	})

	var archive *history_filter.Archive
	if cfg.Filter.EnableDiskStorage {
		archive = history_filter.NewArchive(s.storageManager.GetProvider("filtered"), log)
	}
	filter := history_filter.New(history_filter.Options{
		EnableURLFilter:     cfg.Filter.EnableURLFilter,
		EnableTrivialFilter: cfg.Filter.EnableTrivialFilter,
		EnableDiskStorage:   cfg.Filter.EnableDiskStorage,
		MinContentLength:    cfg.Filter.MinContentLength,
		URLRatioThreshold:   cfg.Filter.URLRatioThreshold,
		TrivialMaxRunes:     cfg.Filter.TrivialMaxRunes,
	}, archive, log)

	personas := persona.NewLoader(cfg.Personas.BotsDir, log)

	providers, err := s.createProviders()
	if err != nil {
		return nil, fmt.Errorf("failed to create providers: %w", err)
	}

	var memory *memory_service.Service
	if cfg.Memory.Enabled {
		var refiner llm.Provider
		if cfg.LLM.RefineMemory {
			refiner = providers[cfg.LLM.DefaultProvider]
		}
		memory = memory_service.New(memory_service.Config{
			Provider:     refiner,
			FileProvider: s.storageManager.GetProvider(""),
			Threshold:    memory_service.Importance(cfg.Memory.PromotionThreshold),
			Logger:       log,
			Metrics:      s.metrics,
		})
	}

	if cfg.Reminders.Enabled {
		s.reminders = reminder_service.New(reminder_service.Config{
			FileProvider: s.storageManager.GetProvider(""),
			Logger:       log,
		})
	}

	s.orch, err = orchestrator.New(orchestrator.Config{
		Store:           store,
		Filter:          filter,
		Personas:        personas,
		Providers:       providers,
		DefaultProvider: cfg.LLM.DefaultProvider,
		Memory:          memory,
		Reminders:       s.reminders,
		Metrics:         s.metrics,
		Logger:          log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}

	health := monitoring.NewHealthMonitor(monitoring.Config{
		Timeout: cfg.Monitoring.HealthCheckTimeout,
		Logger:  log,
		Checks: []monitoring.Check{
			{Name: "storage", Probe: func(ctx context.Context) error {
				_, err := s.storageManager.GetProvider("").Exists(ctx, ".healthcheck")
				return err
			}},
			{Name: "personas", Probe: func(context.Context) error {
				_, err := personas.List()
				return err
			}},
		},
	})

	s.api = NewAPI(APIConfig{
		Orchestrator:   s.orch,
		Filter:         filter,
		Archive:        archive,
		Metrics:        s.metrics,
		Health:         health,
		CORSOrigins:    cfg.Security.CORSAllowedOrigins,
		MaxRequestSize: cfg.Security.MaxRequestSize,
		Logger:         log,
	})

	if cfg.Telegram.Enabled() {
		personaID, err := s.defaultPersonaID(personas)
		if err != nil {
			return nil, fmt.Errorf("failed to pick telegram persona: %w", err)
		}
		s.telegramConnector, err = telegram.NewConnector(telegram.Config{
			BotToken:  cfg.Telegram.BotToken,
			PersonaID: personaID,
			Debug:     cfg.Telegram.Debug,
			Logger:    log,
		}, s.orch)
		if err != nil {
			return nil, fmt.Errorf("failed to create Telegram connector: %w", err)
		}
	}

	return s, nil
}

// Run starts the server and blocks until shutdown.
func (s *Server) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	defer cancel()

	s.setupGracefulShutdown()

	var wg sync.WaitGroup

	// HTTP API
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.RequestTimeout,
		WriteTimeout:      s.cfg.RequestTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.log.Info("HTTP API listening", logger.IntField("port", s.cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("HTTP server failed", logger.ErrorField(err))
			cancel()
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second) //nolint:contextcheck // fresh context for shutdown
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil { //nolint:contextcheck // fresh context for shutdown
			s.log.Error("HTTP server shutdown error", logger.ErrorField(err))
		}
	}()

	// dedicated metrics listener
	if s.cfg.Monitoring.MetricsEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.metrics.Listen(ctx, s.cfg.Monitoring.MetricsPort); err != nil {
				s.log.Error("Metrics listener failed", logger.ErrorField(err))
			}
		}()
	}

	// Telegram polling
	if s.telegramConnector != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			botInfo, err := s.telegramConnector.GetBotInfo(ctx)
			if err != nil {
				s.log.Warn("Failed to get Telegram bot info", logger.ErrorField(err))
			} else {
				s.log.Info("Telegram bot connected", logger.StringField("bot_username", botInfo.Username))
			}
			if err := s.telegramConnector.Start(ctx); err != nil {
				s.log.Error("Telegram connector error", logger.ErrorField(err))
				cancel()
			}
		}()
	} else {
		s.log.Info("Telegram connector disabled (missing TELEGRAM_BOT_TOKEN)")
	}

	// reminder scheduler
	if s.reminders != nil {
		scheduler := reminder_service.NewScheduler(s.reminders, s.deliverReminder, s.cfg.Reminders.PollInterval, s.log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			scheduler.Run(ctx)
		}()
	}

	wg.Wait()
	s.log.Info("All components stopped")
	return nil
}

// deliverReminder routes a fired reminder to the transport that can reach
// the user. Without a transport the reminder is only logged.
func (s *Server) deliverReminder(ctx context.Context, reminder reminder_service.Reminder) error {
	if s.telegramConnector != nil {
		return s.telegramConnector.Deliver(ctx, reminder)
	}
	s.log.Info("Reminder due",
		logger.StringField("user_id", reminder.UserID),
		logger.StringField("text", reminder.Text))
	return nil
}

// defaultPersonaID picks the persona served over Telegram: the configured
// one, or the first listed bot directory.
func (s *Server) defaultPersonaID(personas *persona.Loader) (string, error) {
	if s.cfg.Telegram.PersonaID != "" {
		return s.cfg.Telegram.PersonaID, nil
	}
	ids, err := personas.List()
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("no personas found in %s", s.cfg.Personas.BotsDir)
	}
	return ids[0], nil
}

// createProviders builds the configured completion backends.
func (s *Server) createProviders() (map[string]llm.Provider, error) {
	providers := make(map[string]llm.Provider)

	if s.cfg.Anthropic.APIKey != "" {
		model, err := anthropic.NewClaudeModel(
			s.cfg.Anthropic.APIKey,
			s.cfg.Anthropic.Model,
			s.log,
			option.WithBaseURL(s.cfg.Anthropic.APIBaseURL),
			option.WithMaxRetries(s.cfg.Anthropic.MaxRetries),
			option.WithRequestTimeout(s.cfg.Anthropic.Timeout),
		)
		if err != nil {
			return nil, err
		}
		providers[appconfig.ProviderAnthropic] = model
	}

	if s.cfg.OpenAI.APIKey != "" {
		model, err := openai.New(
			s.cfg.OpenAI.APIKey,
			s.cfg.OpenAI.Model,
			s.log,
			openaioption.WithBaseURL(s.cfg.OpenAI.APIBaseURL),
			openaioption.WithMaxRetries(s.cfg.OpenAI.MaxRetries),
			openaioption.WithRequestTimeout(s.cfg.OpenAI.Timeout),
		)
		if err != nil {
			return nil, err
		}
		providers[appconfig.ProviderOpenAI] = model
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no provider API keys configured")
	}
	return providers, nil
}

// createStorageManager creates a storage manager based on configuration.
func (s *Server) createStorageManager(ctx context.Context) (*storage_manager.Manager, error) {
	cfg := &s.cfg.Storage

	switch cfg.Backend {
	case "local":
		s.log.Info("Using local file-based storage", logger.StringField("directory", cfg.LocalDir))

		if err := os.MkdirAll(cfg.LocalDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
		return storage_manager.New(storage_manager.Config{
			Backend: storage_manager.BackendLocal,
			Local:   &storage_manager.LocalConfig{BaseDir: cfg.LocalDir},
		})

	case "s3":
		s.log.Info("Using S3-based storage",
			logger.StringField("bucket", cfg.S3Bucket),
			logger.StringField("prefix", cfg.S3Prefix),
			logger.StringField("region", cfg.S3Region))

		configOptions := []func(*awsconfig.LoadOptions) error{}
		if cfg.S3Profile != "" {
			configOptions = append(configOptions, awsconfig.WithSharedConfigProfile(cfg.S3Profile))
		}
		if cfg.S3Region != "" {
			configOptions = append(configOptions, awsconfig.WithRegion(cfg.S3Region))
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, configOptions...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}

		return storage_manager.New(storage_manager.Config{
			Backend: storage_manager.BackendS3,
			S3: &storage_manager.S3Config{
				Bucket: cfg.S3Bucket,
				Prefix: cfg.S3Prefix,
				Client: s3.NewFromConfig(awsCfg),
			},
		})

	default:
		return nil, fmt.Errorf("unsupported storage backend: %s (must be 'local' or 's3')", cfg.Backend)
	}
}

// setupGracefulShutdown sets up signal handling for graceful shutdown.
func (s *Server) setupGracefulShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		s.log.Info("Received shutdown signal", logger.StringField("signal", sig.String()))

		if s.cancel != nil {
			s.cancel()
		}

		// force exit if components hang during shutdown
		time.AfterFunc(30*time.Second, func() {
			s.log.Warn("Force exiting due to timeout")
			os.Exit(1)
		})
	}()
}
