package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/venkytv/event-creator/internal/models"
	"github.com/venkytv/event-creator/pkg/ai"
	aiproviders "github.com/venkytv/event-creator/pkg/ai/providers"
	"github.com/venkytv/event-creator/pkg/calendar"
	calproviders "github.com/venkytv/event-creator/pkg/calendar/providers"
	"github.com/venkytv/event-creator/pkg/config"
	"github.com/venkytv/event-creator/pkg/creator"
	"github.com/venkytv/event-creator/pkg/nats"
	"github.com/venkytv/event-creator/pkg/parser"
	"github.com/venkytv/event-creator/pkg/reminder"
)

// App holds the main application components
type App struct {
	config    *config.Config
	logger    *slog.Logger
	parser    *parser.Parser
	writer    calendar.Writer
	machine   *creator.Machine
	scheduler *reminder.Scheduler
	reminders *nats.Publisher
}

// NewApp wires models, parser, calendar writer and the state machine
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	return newApp(ctx, cfg, logger, nil)
}

// newApp publishes reminders through notifier when it is set, otherwise
// through NATS
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, notifier reminder.Publisher) (*App, error) {
	modelFactory := ai.NewDefaultModelFactory()
	aiproviders.InitializeBuiltinModels(modelFactory)
	registry := aiproviders.BuildRegistry(ctx, modelFactory, cfg.Models, logger)

	parserOpts := []parser.Option{
		parser.WithModel(cfg.Parser.Model),
		parser.WithLocation(cfg.Location()),
		parser.WithLogger(logger),
	}
	if cfg.Parser.DecodeReminders {
		parserOpts = append(parserOpts, parser.WithDecoder(parser.NewDecoder(parser.WithReminders())))
	}
	eventParser := parser.New(registry, parserOpts...)

	writerFactory := calendar.NewDefaultWriterFactory()
	calproviders.InitializeBuiltinWriters(writerFactory)
	writerFactory.RegisterWriter("dry-run", func(cfg *config.Config, logger *slog.Logger) (calendar.Writer, error) {
		return NewDryRunWriter(logger), nil
	})

	writer, err := writerFactory.CreateWriter(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s calendar writer: %w", cfg.Calendar.Type, err)
	}

	app := &App{
		config: cfg,
		logger: logger,
		parser: eventParser,
	}

	if cfg.Reminders.Enabled {
		if notifier == nil {
			notifier, err = app.reminderPublisher(writer)
			if err != nil {
				writer.Close()
				return nil, err
			}
		}

		app.scheduler = reminder.NewScheduler(notifier,
			reminder.WithLocation(cfg.CalendarLocation()),
			reminder.WithLogger(logger))
		writer = reminder.NewWriter(writer, app.scheduler)
	}

	app.writer = writer
	app.machine = creator.New(eventParser, writer,
		creator.WithResetDelay(cfg.Creator.ResetDelay),
		creator.WithLogger(logger))

	logger.Info("Event creator ready",
		"models", len(registry.ListModels(ctx)),
		"calendar", writer.Name(),
		"reminders", cfg.Reminders.Enabled)

	return app, nil
}

// reminderPublisher reuses the calendar's NATS connection when there is one
func (a *App) reminderPublisher(writer calendar.Writer) (reminder.Publisher, error) {
	if publisher, ok := writer.(*nats.Publisher); ok {
		return publisher, nil
	}

	publisher, err := nats.NewPublisher(calproviders.NATSConfig(a.config), a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS publisher for reminders: %w", err)
	}
	a.reminders = publisher
	return publisher, nil
}

// ListModels prints the available models; the one marked * parses events
func (a *App) ListModels(ctx context.Context, out io.Writer) error {
	available := a.parser.AvailableModels(ctx)
	if len(available) == 0 {
		return parser.ErrNoModelAvailable
	}

	for i, m := range available {
		marker := " "
		if i == 0 {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s\t%s\t%s\n", marker, m.ID(), m.Name(), m.Description())
	}
	return nil
}

// RunOptions controls a non-interactive run
type RunOptions struct {
	Confirm bool
	JSON    bool
}

// RunOnce parses text and, when confirmed, adds the event
func (a *App) RunOnce(ctx context.Context, text string, opts RunOptions, out io.Writer) error {
	a.machine.UpdateText(text)
	if err := a.machine.ParseEvent(ctx); err != nil {
		return err
	}

	event, err := a.loadedEvent()
	if err != nil {
		return err
	}

	if err := a.printEvent(out, event, opts.JSON); err != nil {
		return err
	}
	if !opts.Confirm {
		return nil
	}

	if err := a.confirm(ctx, out); err != nil {
		return err
	}
	a.notePendingReminders(out)
	return nil
}

// notePendingReminders warns that armed reminders do not outlive the process
func (a *App) notePendingReminders(out io.Writer) {
	if a.scheduler == nil {
		return
	}
	if n := a.scheduler.Pending(); n > 0 {
		fmt.Fprintf(out, "Note:        %d pending reminder(s) will be dropped when event-creator exits\n", n)
	}
}

func (a *App) loadedEvent() (*models.Event, error) {
	switch s := a.machine.State().(type) {
	case creator.Loaded:
		return s.Event, nil
	case creator.ParseError:
		return nil, errors.New(s.Message)
	default:
		return nil, fmt.Errorf("unexpected state %s", s.Name())
	}
}

func (a *App) confirm(ctx context.Context, out io.Writer) error {
	if err := a.machine.ConfirmEvent(ctx); err != nil {
		return err
	}

	switch s := a.machine.State().(type) {
	case creator.CalendarSuccess:
		fmt.Fprintln(out, s.Message)
		return nil
	case creator.CalendarError:
		return errors.New(s.Message)
	default:
		return fmt.Errorf("unexpected state %s", s.Name())
	}
}

func (a *App) printEvent(out io.Writer, event *models.Event, asJSON bool) error {
	if asJSON {
		data, err := parser.EncodeEvent(event)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	fmt.Fprintf(out, "Title:       %s\n", event.Title)
	if event.AllDay {
		fmt.Fprintf(out, "Date:        %s", event.StartTime.Format("Mon Jan 2, 2006"))
		if !sameDay(event.StartTime, event.EndTime) && event.EndTime.After(event.StartTime) {
			fmt.Fprintf(out, " - %s", event.EndTime.Format("Mon Jan 2, 2006"))
		}
		fmt.Fprintln(out, " (all day)")
	} else {
		fmt.Fprintf(out, "Start:       %s\n", event.StartTime.Format("Mon Jan 2, 2006 15:04"))
		fmt.Fprintf(out, "End:         %s\n", event.EndTime.Format("Mon Jan 2, 2006 15:04"))
	}
	if event.Location != "" {
		fmt.Fprintf(out, "Location:    %s\n", event.Location)
	}
	if event.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", event.Description)
	}
	if event.HasReminder() {
		fmt.Fprintf(out, "Reminder:    %s\n", event.Reminder)
	}
	if event.EndsBeforeStart() {
		fmt.Fprintln(out, "Warning:     end time is before start time")
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// Close releases the calendar writer and any reminder publisher
func (a *App) Close() error {
	a.machine.Close()

	err := a.writer.Close()
	if a.reminders != nil {
		err = errors.Join(err, a.reminders.Close())
	}
	return err
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
