// Package caldav stores events on a CalDAV server as single-event calendar resources.
package caldav

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/venkytv/event-creator/internal/models"
	"github.com/venkytv/event-creator/pkg/calendar"
	"github.com/venkytv/event-creator/pkg/calendar/ical"
	"github.com/venkytv/event-creator/pkg/retry"
)

// Config holds CalDAV writer configuration
type Config struct {
	// URL of the calendar collection, e.g. https://dav.example.com/calendars/me/personal/
	URL      string
	Username string
	Password string
	Location *time.Location
}

// Writer PUTs each event to <collection>/<uid>.ics with If-None-Match: *.
// Transient failures are retried with the same UID; a 412 on a retry means an
// earlier attempt stored the resource.
type Writer struct {
	collection string
	username   string
	password   string
	location   *time.Location
	client     *http.Client
	retryer    *retry.Retryer
	now        func() time.Time
	newUID     func() string
	logger     *slog.Logger
}

// NewWriter creates a CalDAV writer
func NewWriter(cfg Config, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("CalDAV URL is required")
	}

	collection := cfg.URL
	if !strings.HasSuffix(collection, "/") {
		collection += "/"
	}

	return &Writer{
		collection: collection,
		username:   cfg.Username,
		password:   cfg.Password,
		location:   cfg.Location,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		retryer: retry.New(retry.DefaultPolicy(), logger),
		now:     time.Now,
		newUID:  ical.NewUID,
		logger:  logger,
	}, nil
}

// Name returns the writer name
func (w *Writer) Name() string {
	return "CalDAV"
}

// Type returns the writer type identifier
func (w *Writer) Type() string {
	return "caldav"
}

// HasPermission checks that the collection accepts our credentials
func (w *Writer) HasPermission(ctx context.Context) bool {
	req, err := w.newRequest(ctx, http.MethodOptions, w.collection, nil)
	if err != nil {
		return false
	}

	resp, err := w.client.Do(req)
	if err != nil {
		w.logger.Warn("CalDAV server not reachable",
			"url", w.collection,
			"error", err)
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// RequestPermission cannot prompt for credentials; it re-checks access
func (w *Writer) RequestPermission(ctx context.Context) bool {
	granted := w.HasPermission(ctx)
	if !granted {
		w.logger.Warn("CalDAV access denied, check username and password",
			"url", w.collection,
			"username", w.username)
	}
	return granted
}

// AddEvent uploads the event as a new calendar object resource
func (w *Writer) AddEvent(ctx context.Context, event *models.Event) error {
	uid := w.newUID()
	cal := ical.NewCalendar()
	ical.AddEvent(cal, uid, event, w.location, w.now())
	body := ical.Serialize(cal)

	target := w.collection + resourceName(uid)

	attempt := 0
	err := w.retryer.Do(ctx, func(ctx context.Context) error {
		attempt++
		err := w.put(ctx, target, body)

		var statusErr *retry.StatusError
		if attempt > 1 && errors.As(err, &statusErr) && statusErr.Code == http.StatusPreconditionFailed {
			w.logger.Debug("Resource already stored by an earlier attempt", "url", target)
			return nil
		}
		return err
	})
	if err != nil {
		w.logger.Error("Failed to store event on CalDAV server",
			"url", target,
			"title", event.Title,
			"error", err)

		var statusErr *retry.StatusError
		if errors.As(err, &statusErr) && (statusErr.Code == http.StatusUnauthorized || statusErr.Code == http.StatusForbidden) {
			return fmt.Errorf("%w: %v", calendar.ErrPermissionDenied, err)
		}
		return fmt.Errorf("%w: %v", calendar.ErrWriteFailed, err)
	}

	w.logger.Info("Event stored on CalDAV server",
		"url", target,
		"uid", uid,
		"title", event.Title)

	return nil
}

func (w *Writer) put(ctx context.Context, target string, body []byte) error {
	req, err := w.newRequest(ctx, http.MethodPut, target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/calendar; charset=utf-8")
	req.Header.Set("If-None-Match", "*")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	default:
		return retry.NewStatusError(resp.StatusCode, resp.Status, target)
	}
}

func (w *Writer) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if w.username != "" {
		req.SetBasicAuth(w.username, w.password)
	}
	req.Header.Set("User-Agent", "event-creator/1.0")
	return req, nil
}

// ListCalendars reports the configured collection
func (w *Writer) ListCalendars(ctx context.Context) ([]*calendar.Calendar, error) {
	return []*calendar.Calendar{{
		ID:          w.collection,
		Name:        "CalDAV Calendar",
		Description: fmt.Sprintf("Calendar at %s", w.collection),
		Primary:     true,
		AccessRole:  "owner",
	}}, nil
}

// Close releases idle connections
func (w *Writer) Close() error {
	w.client.CloseIdleConnections()
	return nil
}

// resourceName turns a UID into a path segment
func resourceName(uid string) string {
	name := strings.NewReplacer("@", "-", "/", "-").Replace(uid)
	return name + ".ics"
}
