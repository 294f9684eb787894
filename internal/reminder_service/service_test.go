package reminder_service //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solinlabs/persona_bot_platform/internal/storage_manager"
	"github.com/solinlabs/persona_bot_platform/pkg/logger"
)

func newTestLogger() logger.Logger {
	return logger.NewLogger(logger.Config{
		Level:  logger.DebugLevel,
		Output: io.Discard,
	})
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return New(Config{
		FileProvider: storage_manager.NewLocalFileProvider(t.TempDir()),
		Logger:       newTestLogger(),
	})
}

func TestParseAndCreate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	reminder, ok, err := svc.ParseAndCreate(ctx, "5分钟后提醒我喝水", "user1", "bot1", "chat1")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, reminder)
	assert.Equal(t, "喝水", reminder.Text)
	assert.Equal(t, StatusPending, reminder.Status)
	assert.WithinDuration(t, time.Now().UTC().Add(5*time.Minute), reminder.RemindAt, 5*time.Second)

	// non-reminder messages pass through
	reminder, ok, err = svc.ParseAndCreate(ctx, "今天天气怎么样？", "user1", "bot1", "chat1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, reminder)
}

func TestGetPendingOrdering(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	_, ok, err := svc.ParseAndCreate(ctx, "30分钟后提醒我后到的", "user1", "bot1", "chat1")
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = svc.ParseAndCreate(ctx, "5分钟后提醒我先到的", "user1", "bot1", "chat1")
	require.NoError(t, err)
	require.True(t, ok)

	// nothing due yet
	due, err := svc.GetPending(ctx, base)
	require.NoError(t, err)
	assert.Empty(t, due)

	// both due an hour later, oldest first
	due, err = svc.GetPending(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "先到的", due[0].Text)
	assert.Equal(t, "后到的", due[1].Text)
}

func TestMarkSentAndFailed(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	first, ok, err := svc.ParseAndCreate(ctx, "5分钟后提醒我喝水", "user1", "bot1", "chat1")
	require.NoError(t, err)
	require.True(t, ok)
	second, ok, err := svc.ParseAndCreate(ctx, "10分钟后提醒我吃饭", "user1", "bot1", "chat1")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, svc.MarkSent(ctx, first.ID))
	require.NoError(t, svc.MarkFailed(ctx, second.ID, "chat unreachable"))

	reminders, err := svc.GetUserReminders(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, reminders, 2)

	byID := map[string]Reminder{}
	for _, r := range reminders {
		byID[r.ID] = r
	}
	assert.Equal(t, StatusSent, byID[first.ID].Status)
	assert.NotNil(t, byID[first.ID].SentAt)
	assert.Equal(t, StatusFailed, byID[second.ID].Status)
	assert.Equal(t, "chat unreachable", byID[second.ID].ErrorMessage)
	assert.Equal(t, 1, byID[second.ID].RetryCount)

	assert.Error(t, svc.MarkSent(ctx, "no-such-id"))
}

func TestSchedulerTick(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	past := time.Now().UTC().Add(-time.Hour)
	svc.now = func() time.Time { return past }
	good, ok, err := svc.ParseAndCreate(ctx, "5分钟后提醒我喝水", "user1", "bot1", "chat1")
	require.NoError(t, err)
	require.True(t, ok)
	bad, ok, err := svc.ParseAndCreate(ctx, "5分钟后提醒我吃饭", "user2", "bot1", "chat2")
	require.NoError(t, err)
	require.True(t, ok)
	svc.now = time.Now

	delivered := map[string]int{}
	deliver := func(_ context.Context, r Reminder) error {
		delivered[r.ID]++
		if r.ID == bad.ID {
			return errors.New("chat unreachable")
		}
		return nil
	}

	sched := NewScheduler(svc, deliver, time.Minute, newTestLogger())
	sched.Tick(ctx)

	assert.Equal(t, 1, delivered[good.ID])
	assert.Equal(t, 1, delivered[bad.ID])

	// second tick finds nothing pending
	sched.Tick(ctx)
	assert.Equal(t, 1, delivered[good.ID])
	assert.Equal(t, 1, delivered[bad.ID])

	reminders, err := svc.GetUserReminders(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, StatusSent, reminders[0].Status)

	reminders, err = svc.GetUserReminders(ctx, "user2")
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, StatusFailed, reminders[0].Status)
}
