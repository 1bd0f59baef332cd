package reminder

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venkytv/event-creator/internal/models"
)

var fixedNow = time.Date(2025, 10, 6, 9, 30, 0, 0, time.UTC)

type recordingPublisher struct {
	mu   sync.Mutex
	sent []*models.Notification
	err  error
}

func (p *recordingPublisher) PublishNotification(ctx context.Context, n *models.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, n)
	return nil
}

func (p *recordingPublisher) notifications() []*models.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*models.Notification(nil), p.sent...)
}

func newTestScheduler(pub Publisher) *Scheduler {
	return NewScheduler(pub,
		WithLocation(time.UTC),
		WithClock(func() time.Time { return fixedNow }))
}

func eventAt(start time.Time, r *models.Reminder) *models.Event {
	return &models.Event{
		Title:     "Review",
		Location:  "Room 2",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Reminder:  r,
	}
}

func reminderPtr(r models.Reminder) *models.Reminder {
	return &r
}

func TestSchedule_DueReminderFiresImmediately(t *testing.T) {
	pub := &recordingPublisher{}
	s := newTestScheduler(pub)
	defer s.Stop()

	// starts in 10 minutes with a 15 minute reminder
	event := eventAt(models.WallClock(2025, 10, 6, 9, 40, 0), reminderPtr(models.ReminderFifteenMinutes))
	require.True(t, s.Schedule(event))

	assert.Eventually(t, func() bool {
		return len(pub.notifications()) == 1
	}, time.Second, 10*time.Millisecond)

	n := pub.notifications()[0]
	assert.Equal(t, "Review", n.Title)
	assert.Equal(t, "Room 2", n.Location)
	assert.Equal(t, 15, n.Lead)
	assert.True(t, n.When.Equal(time.Date(2025, 10, 6, 9, 40, 0, 0, time.UTC)))

	assert.Eventually(t, func() bool { return s.Pending() == 0 }, time.Second, 10*time.Millisecond)
}

func TestSchedule_FutureReminderIsPending(t *testing.T) {
	pub := &recordingPublisher{}
	s := newTestScheduler(pub)

	event := eventAt(models.WallClock(2025, 10, 7, 9, 0, 0), reminderPtr(models.ReminderOneHour))
	require.True(t, s.Schedule(event))
	assert.Equal(t, 1, s.Pending())

	s.Stop()
	assert.Equal(t, 0, s.Pending())
	assert.Empty(t, pub.notifications())
}

func TestSchedule_Skips(t *testing.T) {
	tests := []struct {
		name  string
		event *models.Event
	}{
		{"no reminder", eventAt(models.WallClock(2025, 10, 7, 9, 0, 0), nil)},
		{"reminder none", eventAt(models.WallClock(2025, 10, 7, 9, 0, 0), reminderPtr(models.ReminderNone))},
		{"already started", eventAt(models.WallClock(2025, 10, 6, 9, 0, 0), reminderPtr(models.ReminderAtTime))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScheduler(&recordingPublisher{})
			defer s.Stop()
			assert.False(t, s.Schedule(tt.event))
			assert.Equal(t, 0, s.Pending())
		})
	}
}

func TestSchedule_AfterStop(t *testing.T) {
	s := newTestScheduler(&recordingPublisher{})
	s.Stop()
	s.Stop()

	event := eventAt(models.WallClock(2025, 10, 7, 9, 0, 0), reminderPtr(models.ReminderOneHour))
	assert.False(t, s.Schedule(event))
}

func TestSchedule_PublishErrorIsLogged(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("nats down")}
	s := newTestScheduler(pub)

	event := eventAt(models.WallClock(2025, 10, 6, 9, 35, 0), reminderPtr(models.ReminderFiveMinutes))
	require.True(t, s.Schedule(event))

	assert.Eventually(t, func() bool { return s.Pending() == 0 }, time.Second, 10*time.Millisecond)
	s.Stop()
	assert.Empty(t, pub.notifications())
}

func TestStop_LogsDroppedReminders(t *testing.T) {
	var logs bytes.Buffer
	pub := &recordingPublisher{}
	s := NewScheduler(pub,
		WithLocation(time.UTC),
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	event := eventAt(models.WallClock(2025, 10, 7, 9, 0, 0), reminderPtr(models.ReminderOneHour))
	require.True(t, s.Schedule(event))

	s.Stop()

	assert.Empty(t, pub.notifications())
	assert.Contains(t, logs.String(), "Dropping pending reminder")
	assert.Contains(t, logs.String(), "title=Review")
	assert.Contains(t, logs.String(), "trigger_time=2025-10-07T08:00:00Z")
	assert.Contains(t, logs.String(), "cancelled=1")
}
