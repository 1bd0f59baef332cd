// Package creator drives the flow from typed text to a stored calendar event.
package creator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/venkytv/event-creator/internal/models"
	"github.com/venkytv/event-creator/pkg/calendar"
)

// User-facing messages
const (
	MsgEmptyText          = "Please enter event details"
	MsgPermissionRequired = "Calendar permission is required to add events"
	MsgEventAdded         = "Event added to calendar!"
	MsgParseFailed        = "Failed to parse event"
	msgAddFailedPrefix    = "Failed to add event: "
)

// DefaultResetDelay is how long CalendarSuccess is shown before returning to Idle
const DefaultResetDelay = 1500 * time.Millisecond

var (
	// ErrBusy is returned when an operation is requested while another is in flight
	ErrBusy = errors.New("an operation is already in progress")

	// ErrNoEvent is returned by ConfirmEvent when there is no event to add
	ErrNoEvent = errors.New("no event to add")
)

// EventParser turns free text into an event
type EventParser interface {
	ParseEvent(ctx context.Context, text string) (*models.Event, error)
}

// Machine holds the state of one event creation screen. Operations block the
// calling goroutine; State and subscriptions may be read from any goroutine.
type Machine struct {
	parser     EventParser
	writer     calendar.Writer
	resetDelay time.Duration
	logger     *slog.Logger

	mu          sync.Mutex
	state       State
	text        string
	generation  uint64
	resetTimer  *time.Timer
	subscribers map[int]chan State
	nextSubID   int
}

// Option configures a Machine
type Option func(*Machine)

// WithResetDelay sets how long CalendarSuccess is held before returning to Idle
func WithResetDelay(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.resetDelay = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New creates a machine in the Idle state
func New(parser EventParser, writer calendar.Writer, opts ...Option) *Machine {
	m := &Machine{
		parser:      parser,
		writer:      writer,
		resetDelay:  DefaultResetDelay,
		logger:      slog.Default(),
		state:       Idle{},
		subscribers: make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Text returns the buffered input text
func (m *Machine) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}

// UpdateText buffers input without changing state
func (m *Machine) UpdateText(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
}

// ParseEvent sends the buffered text to the parser. Failures are reported
// through the ParseError state; the returned error is only ErrBusy.
func (m *Machine) ParseEvent(ctx context.Context) error {
	m.mu.Lock()
	if IsBusy(m.state) {
		m.mu.Unlock()
		return ErrBusy
	}

	text := m.text
	if strings.TrimSpace(text) == "" {
		m.setLocked(ParseError{Message: MsgEmptyText})
		m.mu.Unlock()
		return nil
	}

	m.stopResetLocked()
	m.setLocked(Loading{})
	gen := m.generation
	m.mu.Unlock()

	event, err := m.parser.ParseEvent(ctx, text)

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		m.logger.Debug("Discarding parse result after reset")
		return nil
	}

	if err != nil {
		m.logger.Warn("Failed to parse event", "error", err)
		m.setLocked(ParseError{Message: parseMessage(err), Err: err})
		return nil
	}

	m.setLocked(Loaded{Event: event})
	return nil
}

// ConfirmEvent writes the loaded event, or retries after a CalendarError.
// Outcomes are reported through state; the returned error is ErrBusy or
// ErrNoEvent when there is nothing to confirm.
func (m *Machine) ConfirmEvent(ctx context.Context) error {
	m.mu.Lock()
	var event *models.Event
	switch s := m.state.(type) {
	case Loaded:
		event = s.Event
	case CalendarError:
		event = s.Event
	case Loading, AddingToCalendar:
		m.mu.Unlock()
		return ErrBusy
	default:
		m.mu.Unlock()
		return ErrNoEvent
	}

	m.setLocked(AddingToCalendar{Event: event})
	gen := m.generation
	m.mu.Unlock()

	next := m.addToCalendar(ctx, event)

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		m.logger.Debug("Discarding calendar result after reset", "title", event.Title)
		return nil
	}

	m.setLocked(next)
	if _, ok := next.(CalendarSuccess); ok {
		m.scheduleResetLocked(gen)
	}
	return nil
}

func (m *Machine) addToCalendar(ctx context.Context, event *models.Event) State {
	if !m.writer.HasPermission(ctx) && !m.writer.RequestPermission(ctx) {
		m.logger.Warn("Calendar permission not granted", "calendar", m.writer.Name())
		return CalendarError{Event: event, Message: MsgPermissionRequired, Err: calendar.ErrPermissionDenied}
	}

	if err := m.writer.AddEvent(ctx, event); err != nil {
		m.logger.Error("Failed to add event",
			"calendar", m.writer.Name(),
			"title", event.Title,
			"error", err)

		if errors.Is(err, calendar.ErrPermissionDenied) {
			return CalendarError{Event: event, Message: MsgPermissionRequired, Err: err}
		}
		return CalendarError{Event: event, Message: msgAddFailedPrefix + err.Error(), Err: err}
	}

	m.logger.Info("Event added to calendar",
		"calendar", m.writer.Name(),
		"title", event.Title)

	return CalendarSuccess{Message: MsgEventAdded}
}

// Reset returns to Idle and clears the buffered text. Results of
// operations still in flight are discarded.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
}

func (m *Machine) resetLocked() {
	m.generation++
	m.stopResetLocked()
	m.text = ""
	m.setLocked(Idle{})
}

func (m *Machine) scheduleResetLocked(gen uint64) {
	m.resetTimer = time.AfterFunc(m.resetDelay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if gen != m.generation {
			return
		}
		if _, ok := m.state.(CalendarSuccess); !ok {
			return
		}
		m.resetLocked()
	})
}

func (m *Machine) stopResetLocked() {
	if m.resetTimer != nil {
		m.resetTimer.Stop()
		m.resetTimer = nil
	}
}

func (m *Machine) setLocked(s State) {
	from := m.state
	m.state = s

	m.logger.Debug("State transition",
		"from", from.Name(),
		"to", s.Name())

	for _, ch := range m.subscribers {
		select {
		case ch <- s:
		default:
			// drop the oldest state so the subscriber always sees the latest
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	}
}

// Subscribe returns a channel receiving every new state and a function that
// ends the subscription. Slow subscribers lose intermediate states but
// always receive the latest one.
func (m *Machine) Subscribe() (<-chan State, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	ch := make(chan State, 16)
	m.subscribers[id] = ch

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if sub, ok := m.subscribers[id]; ok {
			delete(m.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Close stops the pending auto-reset and ends all subscriptions
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopResetLocked()
	for id, ch := range m.subscribers {
		delete(m.subscribers, id)
		close(ch)
	}
}

// parseMessage converts a parser failure into the text shown to the user
func parseMessage(err error) string {
	if err == nil {
		return MsgParseFailed
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return MsgParseFailed
	}
	return msg
}

// String renders a state for display
func String(s State) string {
	switch v := s.(type) {
	case Loaded:
		return fmt.Sprintf("loaded: %s", v.Event.Title)
	case ParseError:
		return "error: " + v.Message
	case CalendarError:
		return "calendar error: " + v.Message
	case CalendarSuccess:
		return v.Message
	default:
		return s.Name()
	}
}
