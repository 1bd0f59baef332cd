package main

import (
	"context"
	"log/slog"

	"github.com/venkytv/event-creator/internal/models"
	"github.com/venkytv/event-creator/pkg/parser"
)

// DryRunWriter logs events instead of writing them
type DryRunWriter struct {
	logger *slog.Logger
	added  []*models.Event
}

// NewDryRunWriter creates a dry-run writer
func NewDryRunWriter(logger *slog.Logger) *DryRunWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &DryRunWriter{logger: logger}
}

func (w *DryRunWriter) Name() string { return "dry run" }
func (w *DryRunWriter) Type() string { return "dry-run" }

func (w *DryRunWriter) HasPermission(ctx context.Context) bool     { return true }
func (w *DryRunWriter) RequestPermission(ctx context.Context) bool { return true }

// AddEvent logs the event
func (w *DryRunWriter) AddEvent(ctx context.Context, event *models.Event) error {
	w.logger.Info("[DRY RUN] Would add event",
		"title", event.Title,
		"start", parser.FormatDateTime(event.StartTime),
		"end", parser.FormatDateTime(event.EndTime),
		"all_day", event.AllDay,
		"location", event.Location)
	w.added = append(w.added, event)
	return nil
}

// Close is a no-op for the dry-run writer
func (w *DryRunWriter) Close() error {
	return nil
}
