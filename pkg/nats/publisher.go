// Package nats publishes created events and reminder notifications to NATS subjects.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/venkytv/event-creator/internal/models"
	"github.com/venkytv/event-creator/pkg/calendar"
	"github.com/venkytv/event-creator/pkg/parser"
)

// Conn is the subset of *nats.Conn used by the publisher
type Conn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	IsClosed() bool
	IsConnected() bool
	ConnectedUrl() string
	Close()
}

// Publisher hands events to a downstream calendar service over NATS and
// also carries reminder notifications
type Publisher struct {
	conn                Conn
	subject             string
	notificationSubject string
	logger              *slog.Logger
}

// Config holds NATS publisher configuration
type Config struct {
	URL                 string
	Subject             string
	NotificationSubject string
	ConnectTimeout      time.Duration
	ReconnectWait       time.Duration
	MaxReconnects       int
	PingInterval        time.Duration
	MaxPingsOut         int
	ReconnectBuffer     int
}

// DefaultConfig returns a default NATS configuration
func DefaultConfig() *Config {
	return &Config{
		URL:                 "nats://localhost:4222",
		Subject:             "calendar.events",
		NotificationSubject: "calendar.notifications",
		ConnectTimeout:      5 * time.Second,
		ReconnectWait:       2 * time.Second,
		MaxReconnects:       10,
		PingInterval:        2 * time.Minute,
		MaxPingsOut:         2,
		ReconnectBuffer:     5 * 1024 * 1024, // 5MB
	}
}

// NewPublisher connects to NATS with the given configuration
func NewPublisher(config *Config, logger *slog.Logger) (*Publisher, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(config.URL, connectOptions(config, logger)...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", config.URL, err)
	}

	p := NewPublisherWithConn(conn, config, logger)
	logger.Info("Connected to NATS",
		"url", conn.ConnectedUrl(),
		"subject", p.subject,
		"notification_subject", p.notificationSubject)

	return p, nil
}

func connectOptions(config *Config, logger *slog.Logger) []nats.Option {
	return []nats.Option{
		nats.Name("event-creator"),
		nats.Timeout(config.ConnectTimeout),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.PingInterval(config.PingInterval),
		nats.MaxPingsOutstanding(config.MaxPingsOut),
		nats.ReconnectBufSize(config.ReconnectBuffer),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("Lost NATS connection", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Regained NATS connection", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			logger.Debug("NATS connection closed")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			attrs := []any{"error", err}
			if sub != nil {
				attrs = append(attrs, "subject", sub.Subject)
			}
			logger.Error("Asynchronous NATS error", attrs...)
		}),
	}
}

// NewPublisherWithConn wraps an existing connection
func NewPublisherWithConn(conn Conn, config *Config, logger *slog.Logger) *Publisher {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	subject := config.Subject
	if subject == "" {
		subject = "calendar.events"
	}
	notificationSubject := config.NotificationSubject
	if notificationSubject == "" {
		notificationSubject = "calendar.notifications"
	}

	return &Publisher{
		conn:                conn,
		subject:             subject,
		notificationSubject: notificationSubject,
		logger:              logger,
	}
}

// Name returns the writer name
func (p *Publisher) Name() string {
	return "NATS subject " + p.subject
}

// Type returns the writer type identifier
func (p *Publisher) Type() string {
	return "nats"
}

// HasPermission reports whether the connection can carry events
func (p *Publisher) HasPermission(ctx context.Context) bool {
	return p.IsHealthy() == nil
}

// RequestPermission flushes the connection to confirm the server is reachable
func (p *Publisher) RequestPermission(ctx context.Context) bool {
	if err := p.IsHealthy(); err != nil {
		p.logger.Warn("NATS not available", "error", err)
		return false
	}

	timeout := 2 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if err := p.conn.FlushTimeout(timeout); err != nil {
		p.logger.Warn("NATS flush failed", "error", err)
		return false
	}
	return true
}

// AddEvent publishes the event in the same JSON shape the model produces
func (p *Publisher) AddEvent(ctx context.Context, event *models.Event) error {
	data, err := parser.EncodeEvent(event)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal event: %v", calendar.ErrWriteFailed, err)
	}

	if err := p.publish(ctx, p.subject, data); err != nil {
		return fmt.Errorf("%w: %w", calendar.ErrWriteFailed, err)
	}

	p.logger.Info("Published event",
		"subject", p.subject,
		"title", event.Title,
		"start", parser.FormatDateTime(event.StartTime))

	return nil
}

// PublishNotification publishes a single reminder notification
func (p *Publisher) PublishNotification(ctx context.Context, notification *models.Notification) error {
	data, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if err := p.publish(ctx, p.notificationSubject, data); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	p.logger.Debug("Published notification",
		"subject", p.notificationSubject,
		"title", notification.Title,
		"when", notification.When.Format(time.RFC3339),
		"lead", notification.Lead)

	return nil
}

func (p *Publisher) publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.ready(false); err != nil {
		return err
	}
	return p.conn.Publish(subject, data)
}

// ready checks the connection; a reconnecting connection still buffers
// publishes, so connected is only required when asked for
func (p *Publisher) ready(connected bool) error {
	switch {
	case p.conn == nil:
		return errNoConn
	case p.conn.IsClosed():
		return errClosed
	case connected && !p.conn.IsConnected():
		return errDisconnected
	}
	return nil
}

// Flush waits until the server has processed everything published so far
func (p *Publisher) Flush(timeout time.Duration) error {
	if err := p.ready(false); err != nil {
		return err
	}
	if err := p.conn.FlushTimeout(timeout); err != nil {
		return fmt.Errorf("failed to flush NATS messages: %w", err)
	}
	return nil
}

// IsHealthy returns nil while the connection is up
func (p *Publisher) IsHealthy() error {
	return p.ready(true)
}

// Close flushes pending messages and closes the connection
func (p *Publisher) Close() error {
	if p.ready(false) != nil {
		return nil
	}
	if err := p.Flush(5 * time.Second); err != nil {
		p.logger.Warn("Failed to flush messages on close", "error", err)
	}
	p.conn.Close()
	return nil
}

var (
	errNoConn       = errors.New("NATS connection is not available")
	errClosed       = errors.New("NATS connection is closed")
	errDisconnected = errors.New("NATS is not connected")
)
