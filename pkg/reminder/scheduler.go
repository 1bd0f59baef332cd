// Package reminder publishes a notification when a created event's reminder comes due.
package reminder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/venkytv/event-creator/internal/models"
)

// Publisher defines the interface for notification publishing
type Publisher interface {
	PublishNotification(ctx context.Context, notification *models.Notification) error
}

// Scheduler arms one timer per scheduled event
type Scheduler struct {
	publisher      Publisher
	location       *time.Location
	publishTimeout time.Duration
	now            func() time.Time
	logger         *slog.Logger

	mu      sync.Mutex
	nextID  int
	pending map[int]*pendingReminder
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type pendingReminder struct {
	timer   *time.Timer
	title   string
	trigger time.Time
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithLocation sets the zone event wall clocks are interpreted in
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		s.location = loc
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScheduler creates a scheduler that publishes through publisher
func NewScheduler(publisher Publisher, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		publisher:      publisher,
		publishTimeout: 10 * time.Second,
		now:            time.Now,
		logger:         slog.Default(),
		pending:        make(map[int]*pendingReminder),
		ctx:            ctx,
		cancel:         cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule arms a timer for the event's reminder. Events without a reminder
// or that have already started are skipped. A reminder whose moment has
// passed fires immediately. It reports whether a timer was armed.
func (s *Scheduler) Schedule(event *models.Event) bool {
	now := s.now()

	if !event.HasReminder() {
		s.logger.Debug("Skipping event with no reminder", "title", event.Title)
		return false
	}
	if !event.IsUpcoming(now, s.location) {
		s.logger.Debug("Skipping event that has already started",
			"title", event.Title,
			"start", event.StartIn(s.location).Format(time.RFC3339))
		return false
	}

	notification := models.NewNotification(event, event.StartIn(s.location))
	triggerTime := event.NotifyAt(s.location)
	delay := triggerTime.Sub(now)
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		s.logger.Warn("Scheduler stopped, dropping reminder", "title", event.Title)
		return false
	}

	id := s.nextID
	s.nextID++
	s.wg.Add(1)
	timer := time.AfterFunc(delay, func() {
		defer s.wg.Done()
		s.fire(id, notification)
	})
	s.pending[id] = &pendingReminder{
		timer:   timer,
		title:   event.Title,
		trigger: triggerTime,
	}

	s.logger.Info("Scheduled reminder",
		"title", event.Title,
		"trigger_time", triggerTime.Format(time.RFC3339),
		"lead", notification.Lead)

	return true
}

func (s *Scheduler) fire(id int, notification *models.Notification) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(s.ctx, s.publishTimeout)
	defer cancel()

	if err := s.publisher.PublishNotification(ctx, notification); err != nil {
		s.logger.Error("Failed to publish notification",
			"error", err,
			"title", notification.Title)
		return
	}

	s.logger.Info("Reminder sent",
		"title", notification.Title,
		"when", notification.When.Format(time.RFC3339))
}

// Pending returns the number of armed timers
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stop cancels pending timers and waits for in-flight publishes. Reminders
// that have not fired yet are dropped and logged; nothing persists them.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true

	cancelled := 0
	for id, p := range s.pending {
		if p.timer.Stop() {
			s.wg.Done()
			cancelled++
			s.logger.Warn("Dropping pending reminder",
				"title", p.title,
				"trigger_time", p.trigger.Format(time.RFC3339))
		}
		delete(s.pending, id)
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()

	s.logger.Info("Reminder scheduler stopped", "cancelled", cancelled)
}
