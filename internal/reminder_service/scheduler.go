package reminder_service //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"time"

	"github.com/solinlabs/persona_bot_platform/pkg/logger"
)

// DefaultPollInterval is how often the scheduler scans for due reminders.
const DefaultPollInterval = 30 * time.Second

// DeliverFunc sends a fired reminder to the user.
type DeliverFunc func(ctx context.Context, reminder Reminder) error

// Scheduler periodically scans for due reminders and delivers them.
type Scheduler struct {
	service  *Service
	deliver  DeliverFunc
	interval time.Duration
	log      logger.Logger
}

// NewScheduler creates a scheduler over the given service. A non-positive
// interval falls back to the default.
func NewScheduler(service *Service, deliver DeliverFunc, interval time.Duration, log logger.Logger) *Scheduler {
	if service == nil {
		panic("service cannot be nil")
	}
	if deliver == nil {
		panic("deliver func cannot be nil")
	}
	if log == nil {
		panic("logger cannot be nil")
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Scheduler{service: service, deliver: deliver, interval: interval, log: log}
}

// Run blocks, delivering due reminders until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("Reminder scheduler started",
		logger.DurationField("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Reminder scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick processes every reminder due right now. Exposed for tests and for
// transports that drive their own loop.
func (s *Scheduler) Tick(ctx context.Context) {
	due, err := s.service.GetPending(ctx, time.Now().UTC())
	if err != nil {
		s.log.Warn("Failed to scan for due reminders", logger.ErrorField(err))
		return
	}

	for _, reminder := range due {
		if err := s.deliver(ctx, reminder); err != nil {
			s.log.Warn("Failed to deliver reminder",
				logger.StringField("reminder_id", reminder.ID),
				logger.ErrorField(err))
			if err := s.service.MarkFailed(ctx, reminder.ID, err.Error()); err != nil {
				s.log.Error("Failed to mark reminder failed",
					logger.StringField("reminder_id", reminder.ID),
					logger.ErrorField(err))
			}
			continue
		}
		if err := s.service.MarkSent(ctx, reminder.ID); err != nil {
			s.log.Error("Failed to mark reminder sent",
				logger.StringField("reminder_id", reminder.ID),
				logger.ErrorField(err))
		}
	}
}
