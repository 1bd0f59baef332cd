package reminder

import (
	"context"

	"github.com/venkytv/event-creator/internal/models"
	"github.com/venkytv/event-creator/pkg/calendar"
)

// Writer schedules a reminder for every event its inner writer stores
type Writer struct {
	calendar.Writer
	scheduler *Scheduler
}

// NewWriter wraps inner so that successful adds are scheduled
func NewWriter(inner calendar.Writer, scheduler *Scheduler) *Writer {
	return &Writer{
		Writer:    inner,
		scheduler: scheduler,
	}
}

// AddEvent stores the event and then arms its reminder
func (w *Writer) AddEvent(ctx context.Context, event *models.Event) error {
	if err := w.Writer.AddEvent(ctx, event); err != nil {
		return err
	}
	w.scheduler.Schedule(event)
	return nil
}

// Close stops the scheduler before closing the inner writer
func (w *Writer) Close() error {
	w.scheduler.Stop()
	return w.Writer.Close()
}
