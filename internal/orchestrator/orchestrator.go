// Package orchestrator runs the conversation pipeline: history capture,
// context filtering, persona prompt assembly, model invocation and memory
// promotion.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/solinlabs/persona_bot_platform/internal/history_filter"
	"github.com/solinlabs/persona_bot_platform/internal/history_service"
	"github.com/solinlabs/persona_bot_platform/internal/llm"
	"github.com/solinlabs/persona_bot_platform/internal/memory_service"
	"github.com/solinlabs/persona_bot_platform/internal/persona"
	"github.com/solinlabs/persona_bot_platform/internal/reminder_service"
	"github.com/solinlabs/persona_bot_platform/pkg/logger"
	"github.com/solinlabs/persona_bot_platform/pkg/metrics"
)

// Orchestrator drives one user message through the full pipeline.
type Orchestrator struct {
	store           *history_service.Store
	filter          *history_filter.Filter
	personas        *persona.Loader
	providers       map[string]llm.Provider
	defaultProvider string
	memory          *memory_service.Service
	reminders       *reminder_service.Service
	metrics         *metrics.Metrics
	log             logger.Logger
}

// Config holds the orchestrator's collaborators. Store, Filter, Personas,
// Providers and Logger are required; the rest are optional features.
type Config struct {
	Store    *history_service.Store
	Filter   *history_filter.Filter
	Personas *persona.Loader
	// Providers maps provider names to backends. DefaultProvider is used
	// when a persona does not name one.
	Providers       map[string]llm.Provider
	DefaultProvider string
	Memory          *memory_service.Service
	Reminders       *reminder_service.Service
	Metrics         *metrics.Metrics
	Logger          logger.Logger
}

// New creates an orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil || cfg.Filter == nil || cfg.Personas == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("store, filter, personas and logger are required")
	}
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("at least one provider is required")
	}
	if cfg.DefaultProvider == "" {
		for name := range cfg.Providers {
			cfg.DefaultProvider = name
			break
		}
	}
	if _, ok := cfg.Providers[cfg.DefaultProvider]; !ok {
		return nil, fmt.Errorf("default provider %q is not configured", cfg.DefaultProvider)
	}

	return &Orchestrator{
		store:           cfg.Store,
		filter:          cfg.Filter,
		personas:        cfg.Personas,
		providers:       cfg.Providers,
		defaultProvider: cfg.DefaultProvider,
		memory:          cfg.Memory,
		reminders:       cfg.Reminders,
		metrics:         cfg.Metrics,
		log:             cfg.Logger,
	}, nil
}

// Reply is the outcome of handling one user message.
type Reply struct {
	Text string
	// ReminderCreated is set when the message was intercepted as a
	// reminder request and never reached the model.
	ReminderCreated bool
	// Analysis is the memory verdict on the user message, when memory is
	// enabled.
	Analysis *memory_service.Analysis
}

// HandleMessage runs the pipeline for one user message and returns the
// bot's reply.
func (o *Orchestrator) HandleMessage(ctx context.Context, botID, userID, chatID, text string) (Reply, error) {
	p, err := o.personas.Get(botID)
	if err != nil {
		return Reply{}, fmt.Errorf("unknown bot %s: %w", botID, err)
	}

	// reminder requests are answered directly, without the model
	if o.reminders != nil {
		reminder, ok, err := o.reminders.ParseAndCreate(ctx, text, userID, botID, chatID)
		if err != nil {
			o.log.Warn("Failed to create reminder, continuing as chat",
				logger.StringField("user_id", userID),
				logger.ErrorField(err))
		} else if ok {
			minutes := int(time.Until(reminder.RemindAt).Round(time.Minute) / time.Minute)
			return Reply{
				Text:            reminder_service.FormatConfirmation(minutes, reminder.Text),
				ReminderCreated: true,
			}, nil
		}
	}

	sessionID := history_service.SessionKey(userID, botID)
	o.store.AddMessage(sessionID, history_service.Turn{
		Role:      history_service.RoleUser,
		Content:   text,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})

	history := o.store.GetHistory(sessionID, 0)
	result := o.filter.FilterHistory(ctx, history, chatID, userID)
	o.recordFilterMetrics(result)

	answer, err := o.generate(ctx, p, result.FilteredHistory)
	if err != nil {
		return Reply{}, err
	}

	o.store.AddMessage(sessionID, history_service.Turn{
		Role:      history_service.RoleAssistant,
		Content:   answer,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})

	reply := Reply{Text: answer}
	if o.memory != nil {
		analysis, err := o.memory.ProcessTurn(ctx, userID, botID, text)
		if err != nil {
			o.log.Warn("Failed to process turn for memory",
				logger.StringField("user_id", userID),
				logger.ErrorField(err))
		}
		reply.Analysis = &analysis
	}
	return reply, nil
}

// History returns the stored turns for a user/bot session.
func (o *Orchestrator) History(userID, botID string, limit int) []history_service.Turn {
	return o.store.GetHistory(history_service.SessionKey(userID, botID), limit)
}

// ClearHistory drops the stored turns for a user/bot session.
func (o *Orchestrator) ClearHistory(userID, botID string) {
	o.store.ClearHistory(history_service.SessionKey(userID, botID))
}

// Personas exposes the persona loader for transports.
func (o *Orchestrator) Personas() *persona.Loader {
	return o.personas
}

// Reminders exposes the reminder service for transports. Nil when reminders
// are disabled.
func (o *Orchestrator) Reminders() *reminder_service.Service {
	return o.reminders
}

// Memory exposes the memory service. Nil when memory is disabled.
func (o *Orchestrator) Memory() *memory_service.Service {
	return o.memory
}

// generate selects the provider for the persona and asks it for a reply.
func (o *Orchestrator) generate(ctx context.Context, p *persona.Persona, history []history_service.Turn) (string, error) {
	name := p.AI.Provider
	if name == "" {
		name = o.defaultProvider
	}
	provider, ok := o.providers[name]
	if !ok {
		return "", fmt.Errorf("provider %q for bot %s is not configured", name, p.ID)
	}

	messages := make([]llm.Message, 0, len(history))
	for _, turn := range history {
		role := llm.RoleUser
		if turn.Role == history_service.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content})
	}

	answer, err := provider.GenerateResponse(ctx, messages, p.SystemPrompt())
	if err != nil {
		return "", fmt.Errorf("generation failed for bot %s: %w", p.ID, err)
	}
	return answer, nil
}

func (o *Orchestrator) recordFilterMetrics(result history_filter.Result) {
	if o.metrics == nil {
		return
	}
	for _, fc := range result.FilteredOut {
		o.metrics.TurnsFilteredCounter.WithLabelValues(string(fc.FilterReason)).Inc()
	}
	if len(result.FilteredOut) == 0 || !o.filter.DiskStorageEnabled() {
		return
	}
	if result.StoragePath != "" {
		o.metrics.ArchiveWritesCounter.Inc()
	} else {
		o.metrics.ArchiveFailuresCounter.Inc()
	}
}
