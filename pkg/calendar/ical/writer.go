package ical

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/venkytv/event-creator/internal/models"
	"github.com/venkytv/event-creator/pkg/calendar"
)

// FileWriter appends events to a local iCalendar file that other calendar
// applications can subscribe to or import
type FileWriter struct {
	path     string
	location *time.Location
	now      func() time.Time
	mu       sync.Mutex
	logger   *slog.Logger
}

// NewFileWriter creates a writer for the .ics file at path. A nil location
// writes floating local times.
func NewFileWriter(path string, loc *time.Location, logger *slog.Logger) *FileWriter {
	if logger == nil {
		logger = slog.Default()
	}

	return &FileWriter{
		path:     path,
		location: loc,
		now:      time.Now,
		logger:   logger,
	}
}

// Name returns the writer name
func (w *FileWriter) Name() string {
	return "iCalendar file " + filepath.Base(w.path)
}

// Type returns the writer type identifier
func (w *FileWriter) Type() string {
	return "ics"
}

// Path returns the calendar file location
func (w *FileWriter) Path() string {
	return w.path
}

// HasPermission reports whether the file can be rewritten in place
func (w *FileWriter) HasPermission(ctx context.Context) bool {
	dir := filepath.Dir(w.path)

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}

	check, err := os.CreateTemp(dir, ".event-creator-check-*")
	if err != nil {
		return false
	}
	check.Close()
	os.Remove(check.Name())

	if _, err := os.Stat(w.path); err == nil {
		f, err := os.OpenFile(w.path, os.O_RDONLY, 0)
		if err != nil {
			return false
		}
		f.Close()
	}

	return true
}

// RequestPermission creates the calendar directory if needed
func (w *FileWriter) RequestPermission(ctx context.Context) bool {
	if err := os.MkdirAll(filepath.Dir(w.path), 0o700); err != nil {
		w.logger.Warn("Failed to create calendar directory",
			"path", w.path,
			"error", err)
		return false
	}
	return w.HasPermission(ctx)
}

// AddEvent appends the event and atomically replaces the file
func (w *FileWriter) AddEvent(ctx context.Context, event *models.Event) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", calendar.ErrWriteFailed, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	cal, err := w.load()
	if err != nil {
		return classify(err)
	}

	uid := NewUID()
	AddEvent(cal, uid, event, w.location, w.now())

	if err := writeAtomic(w.path, Serialize(cal)); err != nil {
		return classify(err)
	}

	w.logger.Info("Event written to calendar file",
		"path", w.path,
		"uid", uid,
		"title", event.Title,
		"event_count", len(cal.Events()))

	return nil
}

// Close is a no-op; the file is rewritten on every add
func (w *FileWriter) Close() error {
	return nil
}

func (w *FileWriter) load() (*ics.Calendar, error) {
	data, err := os.ReadFile(w.path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewCalendar(), nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return NewCalendar(), nil
	}

	cal, err := ics.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse existing calendar %s: %w", w.path, err)
	}
	return cal, nil
}

// writeAtomic writes data to a temp file in the same directory and renames it over path
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".event-creator-*.ics.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

func classify(err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %v", calendar.ErrPermissionDenied, err)
	}
	return fmt.Errorf("%w: %v", calendar.ErrWriteFailed, err)
}
