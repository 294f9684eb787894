// Command cli chats with a persona from the terminal, without running the
// HTTP server or any connector.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/solinlabs/persona_bot_platform/internal/config"
	"github.com/solinlabs/persona_bot_platform/internal/history_filter"
	"github.com/solinlabs/persona_bot_platform/internal/history_service"
	"github.com/solinlabs/persona_bot_platform/internal/llm"
	"github.com/solinlabs/persona_bot_platform/internal/models/anthropic"
	"github.com/solinlabs/persona_bot_platform/internal/models/openai"
	"github.com/solinlabs/persona_bot_platform/internal/orchestrator"
	"github.com/solinlabs/persona_bot_platform/internal/persona"
	pkgconfig "github.com/solinlabs/persona_bot_platform/pkg/config"
	"github.com/solinlabs/persona_bot_platform/pkg/logger"
)

func main() {
	botID := flag.String("bot", "", "persona to chat with (defaults to the first configured bot)")
	flag.Parse()

	if err := run(*botID); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(botID string) error {
	var cfg config.AppConfig
	if err := pkgconfig.LoadFromEnv(&cfg); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// keep the terminal clean, warnings and up only
	log := logger.NewLogger(logger.Config{
		Level:   logger.WarnLevel,
		Format:  "text",
		Service: cfg.ServiceName,
	})

	personas := persona.NewLoader(cfg.Personas.BotsDir, log)
	if botID == "" {
		ids, err := personas.List()
		if err != nil || len(ids) == 0 {
			return fmt.Errorf("no personas found in %s", cfg.Personas.BotsDir)
		}
		botID = ids[0]
	}
	p, err := personas.Get(botID)
	if err != nil {
		return fmt.Errorf("unknown bot %q: %w", botID, err)
	}

	providers, defaultProvider, err := buildProviders(&cfg, log)
	if err != nil {
		return err
	}

	store := history_service.NewStore(history_service.Config{
		MaxMessages: cfg.History.MaxMessages,
		Logger:      log,
	})
	filter := history_filter.New(history_filter.Options{
		EnableURLFilter:     cfg.Filter.EnableURLFilter,
		EnableTrivialFilter: cfg.Filter.EnableTrivialFilter,
		MinContentLength:    cfg.Filter.MinContentLength,
		URLRatioThreshold:   cfg.Filter.URLRatioThreshold,
		TrivialMaxRunes:     cfg.Filter.TrivialMaxRunes,
	}, nil, log)

	orch, err := orchestrator.New(orchestrator.Config{
		Store:           store,
		Filter:          filter,
		Personas:        personas,
		Providers:       providers,
		DefaultProvider: defaultProvider,
		Logger:          log,
	})
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	userID := "cli-" + uuid.NewString()[:8]
	fmt.Printf("Chatting with %s. Type /quit to exit, /clear to reset the session.\n\n", p.Name)
	if p.Messages.Welcome != "" {
		fmt.Printf("%s> %s\n", p.Name, p.Messages.Welcome)
	}

	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		switch text {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/clear":
			orch.ClearHistory(userID, botID)
			fmt.Println("session cleared")
			continue
		}

		reply, err := orch.HandleMessage(ctx, botID, userID, userID, text)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Printf("%s> %s\n", p.Name, reply.Text)
	}
	return scanner.Err()
}

func buildProviders(cfg *config.AppConfig, log logger.Logger) (map[string]llm.Provider, string, error) {
	providers := make(map[string]llm.Provider)

	if cfg.Anthropic.APIKey != "" {
		model, err := anthropic.NewClaudeModel(cfg.Anthropic.APIKey, cfg.Anthropic.Model, log)
		if err != nil {
			return nil, "", err
		}
		providers[config.ProviderAnthropic] = model
	}
	if cfg.OpenAI.APIKey != "" {
		model, err := openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model, log)
		if err != nil {
			return nil, "", err
		}
		providers[config.ProviderOpenAI] = model
	}
	if len(providers) == 0 {
		return nil, "", fmt.Errorf("set ANTHROPIC_API_KEY or OPENAI_API_KEY")
	}

	defaultProvider := cfg.LLM.DefaultProvider
	if _, ok := providers[defaultProvider]; !ok {
		for name := range providers {
			defaultProvider = name
			break
		}
	}
	return providers, defaultProvider, nil
}
