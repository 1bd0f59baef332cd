package calendar

import (
	"context"
	"errors"

	"github.com/venkytv/event-creator/internal/models"
)

var (
	// ErrPermissionDenied is returned when the calendar refuses access
	ErrPermissionDenied = errors.New("calendar permission denied")

	// ErrWriteFailed is returned when the event could not be stored
	ErrWriteFailed = errors.New("calendar write failed")
)

// Writer defines the interface that all calendar destinations must satisfy
type Writer interface {
	// Name returns the human-readable name of the calendar destination
	Name() string

	// Type returns the writer type identifier (e.g., "ics", "google")
	Type() string

	// HasPermission reports whether events can be added right now
	HasPermission(ctx context.Context) bool

	// RequestPermission tries to obtain access and reports whether it was granted
	RequestPermission(ctx context.Context) bool

	// AddEvent inserts the event. Failures wrap ErrPermissionDenied or ErrWriteFailed.
	AddEvent(ctx context.Context, event *models.Event) error

	// Close cleans up any resources used by the writer
	Close() error
}

// Lister is implemented by writers that can enumerate the calendars they reach
type Lister interface {
	ListCalendars(ctx context.Context) ([]*Calendar, error)
}

// Calendar represents metadata about a calendar
type Calendar struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TimeZone    string `json:"timezone,omitempty"`
	Primary     bool   `json:"primary,omitempty"`
	AccessRole  string `json:"access_role,omitempty"`
}

// CanWrite reports whether the access role allows inserting events
func (c *Calendar) CanWrite() bool {
	return c.AccessRole == "owner" || c.AccessRole == "writer"
}
