package reminder_service //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/solinlabs/persona_bot_platform/internal/storage_manager"
	"github.com/solinlabs/persona_bot_platform/pkg/logger"
)

// Status tracks a reminder's delivery lifecycle.
type Status string

const (
	// StatusPending marks reminders awaiting delivery.
	StatusPending Status = "pending"
	// StatusSent marks delivered reminders.
	StatusSent Status = "sent"
	// StatusFailed marks reminders whose delivery failed.
	StatusFailed Status = "failed"
)

// Reminder is one scheduled reminder.
type Reminder struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	BotID           string     `json:"bot_id"`
	ChatID          string     `json:"chat_id"`
	Text            string     `json:"text"`
	OriginalMessage string     `json:"original_message"`
	RemindAt        time.Time  `json:"remind_at"`
	Status          Status     `json:"status"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	RetryCount      int        `json:"retry_count"`
	CreatedAt       time.Time  `json:"created_at"`
	SentAt          *time.Time `json:"sent_at,omitempty"`
}

// Service parses reminder requests and manages the reminder store. One JSON
// file per reminder; the mutex guards read-modify-write cycles.
type Service struct {
	parser       *Parser
	fileProvider storage_manager.FileProvider
	mu           sync.Mutex
	log          logger.Logger
	now          func() time.Time
}

// Config holds configuration for the reminder service.
type Config struct {
	FileProvider storage_manager.FileProvider
	Logger       logger.Logger
}

// New creates a new reminder service with the given configuration.
func New(cfg Config) *Service {
	if cfg.FileProvider == nil {
		panic("file provider cannot be nil")
	}
	if cfg.Logger == nil {
		panic("logger cannot be nil")
	}
	return &Service{
		parser:       NewParser(),
		fileProvider: cfg.FileProvider,
		log:          cfg.Logger,
		now:          time.Now,
	}
}

// Parse runs the parser without creating a reminder.
func (s *Service) Parse(message string) (Request, bool) {
	return s.parser.Parse(message)
}

// ParseAndCreate parses the message and, when it is a reminder request,
// persists a pending reminder. The second return value is false when the
// message is not a reminder request.
func (s *Service) ParseAndCreate(ctx context.Context, message, userID, botID, chatID string) (*Reminder, bool, error) {
	req, ok := s.parser.Parse(message)
	if !ok {
		return nil, false, nil
	}

	now := s.now().UTC()
	reminder := Reminder{
		ID:              uuid.NewString(),
		UserID:          userID,
		BotID:           botID,
		ChatID:          chatID,
		Text:            req.Content,
		OriginalMessage: message,
		RemindAt:        now.Add(time.Duration(req.Minutes) * time.Minute),
		Status:          StatusPending,
		CreatedAt:       now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(ctx, reminder); err != nil {
		return nil, true, fmt.Errorf("failed to persist reminder: %w", err)
	}

	s.log.Info("Created reminder",
		logger.StringField("reminder_id", reminder.ID),
		logger.StringField("user_id", userID),
		logger.IntField("minutes", req.Minutes))

	return &reminder, true, nil
}

// GetPending returns reminders due at or before now, oldest first.
func (s *Service) GetPending(ctx context.Context, now time.Time) ([]Reminder, error) {
	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	var due []Reminder
	for _, r := range all {
		if r.Status == StatusPending && !r.RemindAt.After(now) {
			due = append(due, r)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].RemindAt.Before(due[j].RemindAt) })
	return due, nil
}

// GetUserReminders returns all reminders for a user, newest first.
func (s *Service) GetUserReminders(ctx context.Context, userID string) ([]Reminder, error) {
	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	var out []Reminder
	for _, r := range all {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RemindAt.After(out[j].RemindAt) })
	return out, nil
}

// MarkSent records a successful delivery.
func (s *Service) MarkSent(ctx context.Context, id string) error {
	return s.update(ctx, id, func(r *Reminder) {
		r.Status = StatusSent
		sentAt := s.now().UTC()
		r.SentAt = &sentAt
	})
}

// MarkFailed records a failed delivery attempt.
func (s *Service) MarkFailed(ctx context.Context, id, errorMessage string) error {
	return s.update(ctx, id, func(r *Reminder) {
		r.Status = StatusFailed
		r.ErrorMessage = errorMessage
		r.RetryCount++
	})
}

func (s *Service) update(ctx context.Context, id string, apply func(*Reminder)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.fileProvider.Read(ctx, s.path(id))
	if err != nil {
		return fmt.Errorf("reminder %s not found: %w", id, err)
	}
	var reminder Reminder
	if err := json.Unmarshal(data, &reminder); err != nil {
		return fmt.Errorf("failed to unmarshal reminder %s: %w", id, err)
	}

	apply(&reminder)
	return s.write(ctx, reminder)
}

// load reads every stored reminder, skipping unreadable records.
func (s *Service) load(ctx context.Context) ([]Reminder, error) {
	paths, err := s.fileProvider.List(ctx, "reminders")
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}

	reminders := make([]Reminder, 0, len(paths))
	for _, p := range paths {
		data, err := s.fileProvider.Read(ctx, p)
		if err != nil {
			s.log.Warn("Failed to read reminder", logger.StringField("path", p), logger.ErrorField(err))
			continue
		}
		var r Reminder
		if err := json.Unmarshal(data, &r); err != nil {
			s.log.Warn("Skipping malformed reminder", logger.StringField("path", p), logger.ErrorField(err))
			continue
		}
		reminders = append(reminders, r)
	}
	return reminders, nil
}

func (s *Service) write(ctx context.Context, reminder Reminder) error {
	data, err := json.MarshalIndent(reminder, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal reminder: %w", err)
	}
	return s.fileProvider.Write(ctx, s.path(reminder.ID), data)
}

func (s *Service) path(id string) string {
	return fmt.Sprintf("reminders/%s.json", id)
}

// FormatConfirmation renders the confirmation sent right after a reminder
// is created.
func FormatConfirmation(minutes int, text string) string {
	var timeStr string
	switch {
	case minutes >= 1440:
		timeStr = fmt.Sprintf("%d天", minutes/1440)
	case minutes >= 60:
		hours := minutes / 60
		if rest := minutes % 60; rest > 0 {
			timeStr = fmt.Sprintf("%d小时%d分钟", hours, rest)
		} else {
			timeStr = fmt.Sprintf("%d小时", hours)
		}
	default:
		timeStr = fmt.Sprintf("%d分钟", minutes)
	}
	return fmt.Sprintf("⏰ 好的！我会在 %s 后提醒你：\n\n📝 %s\n\n放心吧，到时间我会准时提醒你的！", timeStr, text)
}

// FormatDelivery renders the message sent when a reminder fires.
func FormatDelivery(text string) string {
	return fmt.Sprintf("⏰ **提醒时间到！**\n\n📝 %s\n\n记得去做哦！", text)
}
