// Package google writes events to Google Calendar through the Calendar v3 API.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/venkytv/event-creator/internal/models"
	calendarPkg "github.com/venkytv/event-creator/pkg/calendar"
)

// API is the subset of the Calendar service the writer needs
type API interface {
	InsertEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error)
	GetCalendar(ctx context.Context, calendarID string) (*calendar.CalendarListEntry, error)
	ListCalendars(ctx context.Context) ([]*calendar.CalendarListEntry, error)
}

// serviceAPI adapts *calendar.Service to API
type serviceAPI struct {
	service *calendar.Service
}

func (s *serviceAPI) InsertEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error) {
	return s.service.Events.Insert(calendarID, event).Context(ctx).Do()
}

func (s *serviceAPI) GetCalendar(ctx context.Context, calendarID string) (*calendar.CalendarListEntry, error) {
	return s.service.CalendarList.Get(calendarID).Context(ctx).Do()
}

func (s *serviceAPI) ListCalendars(ctx context.Context) ([]*calendar.CalendarListEntry, error) {
	var entries []*calendar.CalendarListEntry
	err := s.service.CalendarList.List().Context(ctx).Pages(ctx, func(list *calendar.CalendarList) error {
		entries = append(entries, list.Items...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Writer inserts events into a single Google calendar
type Writer struct {
	api        API
	calendarID string
	location   *time.Location
	logger     *slog.Logger
}

// NewWriter creates a writer authenticated with the stored OAuth2 token
func NewWriter(ctx context.Context, tm *TokenManager, calendarID string, loc *time.Location, logger *slog.Logger) (*Writer, error) {
	client, err := tm.GetClient(ctx)
	if err != nil {
		return nil, err
	}

	service, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar client: %w", err)
	}

	return NewWriterWithAPI(&serviceAPI{service: service}, calendarID, loc, logger), nil
}

// NewWriterWithAPI creates a writer over an existing API implementation
func NewWriterWithAPI(api API, calendarID string, loc *time.Location, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if calendarID == "" {
		calendarID = "primary"
	}

	return &Writer{
		api:        api,
		calendarID: calendarID,
		location:   loc,
		logger:     logger,
	}
}

// Name returns the human-readable name of the writer
func (w *Writer) Name() string {
	return "Google Calendar"
}

// Type returns the writer type identifier
func (w *Writer) Type() string {
	return "google"
}

// HasPermission reports whether the authorized account can write to the calendar
func (w *Writer) HasPermission(ctx context.Context) bool {
	entry, err := w.api.GetCalendar(ctx, w.calendarID)
	if err != nil {
		w.logger.Warn("Unable to read calendar access role",
			"calendar_id", w.calendarID,
			"error", err)
		return false
	}

	cal := toCalendar(entry)
	return cal.CanWrite()
}

// RequestPermission re-checks access; granting it requires the OAuth consent flow
func (w *Writer) RequestPermission(ctx context.Context) bool {
	if w.HasPermission(ctx) {
		return true
	}
	w.logger.Warn("Calendar is not writable, re-run authorization with the calendar.events scope",
		"calendar_id", w.calendarID)
	return false
}

// AddEvent inserts the event
func (w *Writer) AddEvent(ctx context.Context, event *models.Event) error {
	item := toGoogleEvent(event, w.location)

	created, err := w.api.InsertEvent(ctx, w.calendarID, item)
	if err != nil {
		w.logger.Error("Failed to insert event",
			"calendar_id", w.calendarID,
			"title", event.Title,
			"error", err)

		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden) {
			return fmt.Errorf("%w: %v", calendarPkg.ErrPermissionDenied, err)
		}
		return fmt.Errorf("%w: %v", calendarPkg.ErrWriteFailed, err)
	}

	w.logger.Info("Event inserted into Google Calendar",
		"calendar_id", w.calendarID,
		"event_id", created.Id,
		"title", event.Title,
		"link", created.HtmlLink)

	return nil
}

// ListCalendars returns available Google calendars
func (w *Writer) ListCalendars(ctx context.Context) ([]*calendarPkg.Calendar, error) {
	entries, err := w.api.ListCalendars(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve calendar list: %w", err)
	}

	calendars := make([]*calendarPkg.Calendar, 0, len(entries))
	for _, entry := range entries {
		calendars = append(calendars, toCalendar(entry))
	}
	return calendars, nil
}

// Close cleans up resources
func (w *Writer) Close() error {
	return nil
}

func toCalendar(entry *calendar.CalendarListEntry) *calendarPkg.Calendar {
	return &calendarPkg.Calendar{
		ID:          entry.Id,
		Name:        entry.Summary,
		Description: entry.Description,
		TimeZone:    entry.TimeZone,
		Primary:     entry.Primary,
		AccessRole:  entry.AccessRole,
	}
}
