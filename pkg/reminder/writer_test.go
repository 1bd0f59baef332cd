package reminder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/venkytv/event-creator/internal/models"
	"github.com/venkytv/event-creator/pkg/calendar"
)

type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) Name() string { return "mock" }
func (m *MockWriter) Type() string { return "mock" }

func (m *MockWriter) HasPermission(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func (m *MockWriter) RequestPermission(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func (m *MockWriter) AddEvent(ctx context.Context, event *models.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockWriter) Close() error {
	return m.Called().Error(0)
}

func TestWriter_SchedulesAfterSuccessfulAdd(t *testing.T) {
	inner := new(MockWriter)
	s := newTestScheduler(&recordingPublisher{})
	w := NewWriter(inner, s)

	event := eventAt(models.WallClock(2025, 10, 7, 9, 0, 0), reminderPtr(models.ReminderOneDay))
	inner.On("AddEvent", mock.Anything, event).Return(nil)
	inner.On("HasPermission", mock.Anything).Return(true)
	inner.On("Close").Return(nil)

	var _ calendar.Writer = w
	assert.True(t, w.HasPermission(context.Background()))
	assert.NoError(t, w.AddEvent(context.Background(), event))
	assert.Equal(t, 1, s.Pending())

	assert.NoError(t, w.Close())
	assert.Equal(t, 0, s.Pending())
	inner.AssertExpectations(t)
}

func TestWriter_FailedAddIsNotScheduled(t *testing.T) {
	inner := new(MockWriter)
	s := newTestScheduler(&recordingPublisher{})
	defer s.Stop()
	w := NewWriter(inner, s)

	event := eventAt(models.WallClock(2025, 10, 7, 9, 0, 0), reminderPtr(models.ReminderOneHour))
	inner.On("AddEvent", mock.Anything, event).Return(calendar.ErrWriteFailed)

	err := w.AddEvent(context.Background(), event)
	assert.True(t, errors.Is(err, calendar.ErrWriteFailed))
	assert.Equal(t, 0, s.Pending())
}
