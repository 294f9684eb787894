package memory_service //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/solinlabs/persona_bot_platform/internal/llm"
	"github.com/solinlabs/persona_bot_platform/internal/storage_manager"
	"github.com/solinlabs/persona_bot_platform/pkg/logger"
	"github.com/solinlabs/persona_bot_platform/pkg/metrics"
)

// refinementPrompt instructs the model to return a bare JSON verdict.
const refinementPrompt = `You analyse one user message from a chat and decide whether it contains ` +
	`information worth remembering about the user long-term.

Respond with ONLY a JSON object, no prose, in this exact shape:
{"is_important": bool, "importance": "low"|"medium"|"high"|"critical", ` +
	`"event_type": string, "summary": string, "keywords": [string]}`

// Service grades conversation content and persists memories that pass the
// promotion threshold. The LLM refinement tier is optional; without it the
// rule-based classifier's verdict stands.
type Service struct {
	classifier   *Classifier
	provider     llm.Provider
	fileProvider storage_manager.FileProvider
	threshold    Importance
	userLocks    map[string]*sync.Mutex
	userLockMux  sync.Mutex
	log          logger.Logger
	metrics      *metrics.Metrics
}

// Config holds configuration for the memory service.
type Config struct {
	// Provider enables LLM refinement of rule-based verdicts. Optional.
	Provider llm.Provider
	// FileProvider enables persistence of promoted memories. Optional.
	FileProvider storage_manager.FileProvider
	// Threshold is the minimum importance for promotion. Defaults to medium.
	Threshold Importance
	Logger    logger.Logger
	Metrics   *metrics.Metrics
}

// New creates a new memory service with the given configuration.
func New(cfg Config) *Service {
	if cfg.Logger == nil {
		panic("logger cannot be nil")
	}
	if cfg.Threshold == "" {
		cfg.Threshold = ImportanceMedium
	}

	return &Service{
		classifier:   NewClassifier(),
		provider:     cfg.Provider,
		fileProvider: cfg.FileProvider,
		threshold:    cfg.Threshold,
		userLocks:    make(map[string]*sync.Mutex),
		log:          cfg.Logger,
		metrics:      cfg.Metrics,
	}
}

// Analyze grades content, refining the rule-based verdict through the LLM
// when one is configured. Refinement failures degrade to the rule verdict.
func (s *Service) Analyze(ctx context.Context, content string) Analysis {
	analysis := s.classifier.Analyze(content)

	if s.provider == nil || strings.TrimSpace(content) == "" {
		return analysis
	}

	refined, err := s.refine(ctx, content)
	if err != nil {
		s.log.Warn("LLM refinement failed, keeping rule verdict",
			logger.StringField("rule_importance", string(analysis.Importance)),
			logger.ErrorField(err))
		return analysis
	}
	return refined
}

// ProcessTurn analyses a user turn and persists it as a memory when the
// verdict passes the promotion threshold. The analysis is always returned;
// a persistence failure is returned alongside it.
func (s *Service) ProcessTurn(ctx context.Context, userID, botID, content string) (Analysis, error) {
	analysis := s.Analyze(ctx, content)

	if !analysis.IsImportant || !analysis.Importance.Passes(s.threshold) {
		return analysis, nil
	}

	if s.fileProvider == nil {
		return analysis, nil
	}

	record := MemoryRecord{
		UserID:    userID,
		BotID:     botID,
		Content:   content,
		Analysis:  analysis,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.appendRecord(ctx, record); err != nil {
		return analysis, fmt.Errorf("failed to persist memory: %w", err)
	}

	if s.metrics != nil {
		s.metrics.MemoriesPromotedCounter.Inc()
	}
	s.log.Info("Promoted memory",
		logger.StringField("user_id", userID),
		logger.StringField("bot_id", botID),
		logger.StringField("event_type", analysis.EventType))

	return analysis, nil
}

// GetMemories returns all promoted memories for a user and bot, oldest first.
// A missing store yields an empty slice.
func (s *Service) GetMemories(ctx context.Context, userID, botID string) ([]MemoryRecord, error) {
	if s.fileProvider == nil {
		return []MemoryRecord{}, nil
	}

	data, err := s.fileProvider.Read(ctx, s.memoryPath(userID, botID))
	if err != nil {
		return []MemoryRecord{}, nil
	}

	var records []MemoryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal memory store: %w", err)
	}
	return records, nil
}

// refine asks the LLM for a structured verdict on the content.
func (s *Service) refine(ctx context.Context, content string) (Analysis, error) {
	response, err := s.provider.GenerateResponse(ctx,
		[]llm.Message{{Role: llm.RoleUser, Content: content}}, refinementPrompt)
	if err != nil {
		return Analysis{}, fmt.Errorf("refinement call failed: %w", err)
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(stripCodeFences(response)), &analysis); err != nil {
		return Analysis{}, fmt.Errorf("failed to parse refinement response: %w", err)
	}
	if _, ok := importanceRank[analysis.Importance]; !ok {
		return Analysis{}, fmt.Errorf("unknown importance value %q", analysis.Importance)
	}
	return analysis, nil
}

// appendRecord loads the per-user store, appends the record and writes it
// back under the user lock.
func (s *Service) appendRecord(ctx context.Context, record MemoryRecord) error {
	lock := s.getUserLock(record.UserID, record.BotID)
	lock.Lock()
	defer lock.Unlock()

	records, err := s.GetMemories(ctx, record.UserID, record.BotID)
	if err != nil {
		return err
	}
	records = append(records, record)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal memory store: %w", err)
	}
	return s.fileProvider.Write(ctx, s.memoryPath(record.UserID, record.BotID), data)
}

// getUserLock returns a user-specific lock, creating it if necessary.
func (s *Service) getUserLock(userID, botID string) *sync.Mutex {
	key := fmt.Sprintf("%s/%s", userID, botID)

	s.userLockMux.Lock()
	defer s.userLockMux.Unlock()

	if lock, exists := s.userLocks[key]; exists {
		return lock
	}

	lock := &sync.Mutex{}
	s.userLocks[key] = lock
	return lock
}

// memoryPath returns the storage path for a user's promoted memories.
func (s *Service) memoryPath(userID, botID string) string {
	return fmt.Sprintf("memories/%s/%s.json", userID, botID)
}

// stripCodeFences removes a surrounding markdown code fence, if any, from an
// LLM response.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
