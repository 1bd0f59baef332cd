package providers

import (
	"context"
	"log/slog"
	"time"

	"github.com/venkytv/event-creator/pkg/calendar"
	"github.com/venkytv/event-creator/pkg/calendar/caldav"
	"github.com/venkytv/event-creator/pkg/calendar/google"
	"github.com/venkytv/event-creator/pkg/calendar/ical"
	"github.com/venkytv/event-creator/pkg/config"
	"github.com/venkytv/event-creator/pkg/nats"
)

// DefaultGoogleToken is used when no token path is configured
const DefaultGoogleToken = "token.json"

// InitializeBuiltinWriters registers all built-in calendar writers with the factory
func InitializeBuiltinWriters(factory *calendar.DefaultWriterFactory) {
	// Local .ics file; floating times unless a calendar timezone is set
	factory.RegisterWriter("ics", func(cfg *config.Config, logger *slog.Logger) (calendar.Writer, error) {
		var loc *time.Location
		if cfg.Calendar.Timezone != "" {
			loc = cfg.CalendarLocation()
		}
		return ical.NewFileWriter(cfg.Calendar.Path, loc, logger), nil
	})

	factory.RegisterWriter("caldav", func(cfg *config.Config, logger *slog.Logger) (calendar.Writer, error) {
		return caldav.NewWriter(caldav.Config{
			URL:      cfg.Calendar.URL,
			Username: cfg.Calendar.Username,
			Password: cfg.Calendar.Password,
			Location: cfg.CalendarLocation(),
		}, logger)
	})

	factory.RegisterWriter("google", func(cfg *config.Config, logger *slog.Logger) (calendar.Writer, error) {
		token := cfg.Calendar.Token
		if token == "" {
			token = DefaultGoogleToken
		}
		tm, err := google.NewTokenManager(cfg.Calendar.Credentials, token, logger)
		if err != nil {
			return nil, err
		}

		// the token source refreshes with this context for the writer's lifetime
		return google.NewWriter(context.Background(), tm, cfg.Calendar.CalendarID, cfg.CalendarLocation(), logger)
	})

	factory.RegisterWriter("nats", func(cfg *config.Config, logger *slog.Logger) (calendar.Writer, error) {
		return nats.NewPublisher(NATSConfig(cfg), logger)
	})
}

// NATSConfig derives the publisher configuration from the application config
func NATSConfig(cfg *config.Config) *nats.Config {
	natsConfig := nats.DefaultConfig()
	natsConfig.URL = cfg.NATS.URL
	natsConfig.Subject = cfg.NATS.Subject
	natsConfig.NotificationSubject = cfg.NATS.ReminderSubject
	return natsConfig
}
