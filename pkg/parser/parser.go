// Package parser turns free-form text into a calendar event by prompting a
// language model and decoding its JSON answer.
package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/venkytv/event-creator/internal/models"
	"github.com/venkytv/event-creator/pkg/ai"
)

// ModelSource provides the models available for parsing, in preference order
type ModelSource interface {
	ListModels(ctx context.Context) []ai.Model
	GetByID(id string) (ai.Model, bool)
}

// Parser coordinates prompt building, model invocation, extraction and decoding.
// It performs no retries; a failed parse is reported once.
type Parser struct {
	models       ModelSource
	preferred    string
	instructions string
	now          func() time.Time
	location     *time.Location
	decoder      *Decoder
	logger       *slog.Logger
}

// Option configures a Parser
type Option func(*Parser)

// WithClock sets the source of the reference instant embedded in prompts
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		p.now = now
	}
}

// WithLocation sets the zone the reference instant is rendered in
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) {
		p.location = loc
	}
}

// WithModel prefers the model with the given id over registration order.
// An empty id keeps the default.
func WithModel(id string) Option {
	return func(p *Parser) {
		p.preferred = id
	}
}

// WithInstructions replaces the default extraction instructions
func WithInstructions(instructions string) Option {
	return func(p *Parser) {
		p.instructions = instructions
	}
}

// WithDecoder sets the decoder used for model output
func WithDecoder(d *Decoder) Option {
	return func(p *Parser) {
		p.decoder = d
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// New creates a parser backed by the given models
func New(source ModelSource, opts ...Option) *Parser {
	p := &Parser{
		models:       source,
		instructions: EventExtractionInstructions,
		now:          time.Now,
		location:     time.Local,
		decoder:      NewDecoder(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.location == nil {
		p.location = time.Local
	}
	return p
}

// ParseEvent extracts an event from text using the preferred model, or the
// first available one
func (p *Parser) ParseEvent(ctx context.Context, text string) (*models.Event, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	available := p.AvailableModels(ctx)
	if len(available) == 0 {
		return nil, ErrNoModelAvailable
	}
	model := available[0]

	prompt := BuildPrompt(p.instructions, p.now().In(p.location), text)

	p.logger.Debug("Parsing event text",
		"model_id", model.ID(),
		"text_length", len(text))

	resp, err := runModel(ctx, model, prompt)
	if err != nil {
		p.logger.Error("Model invocation failed",
			"model_id", model.ID(),
			"error", err)
		return nil, err
	}

	if resp.FinishReason == ai.FinishReasonLength {
		p.logger.Warn("Model output was truncated",
			"model_id", model.ID())
	}

	event, err := p.decoder.Decode(ExtractJSON(resp.Text))
	if err != nil {
		p.logger.Warn("Failed to decode model response",
			"model_id", model.ID(),
			"error", err)
		return nil, err
	}

	if event.EndsBeforeStart() {
		p.logger.Warn("Parsed event ends before it starts",
			"title", event.Title,
			"start", FormatDateTime(event.StartTime),
			"end", FormatDateTime(event.EndTime))
	}

	p.logger.Info("Parsed event",
		"model_id", model.ID(),
		"title", event.Title,
		"all_day", event.AllDay)

	return event, nil
}

// AvailableModels returns the models that could serve a parse. The one
// ParseEvent uses comes first.
func (p *Parser) AvailableModels(ctx context.Context) []ai.Model {
	available := p.models.ListModels(ctx)
	if p.preferred == "" {
		return available
	}

	preferred, ok := p.models.GetByID(p.preferred)
	if !ok {
		p.logger.Warn("Preferred model is not available, using registration order",
			"model_id", p.preferred)
		return available
	}

	ordered := make([]ai.Model, 0, len(available))
	ordered = append(ordered, preferred)
	for _, m := range available {
		if m.ID() != preferred.ID() {
			ordered = append(ordered, m)
		}
	}
	return ordered
}

// runModel invokes the model and converts panics and empty output into a *ModelError
func runModel(ctx context.Context, model ai.Model, prompt string) (resp *ai.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = &ModelError{ModelID: model.ID(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	resp, err = model.Run(ctx, prompt)
	if err != nil {
		return nil, &ModelError{ModelID: model.ID(), Err: err}
	}
	if resp == nil {
		return nil, &ModelError{ModelID: model.ID(), Err: ai.ErrEmptyResponse}
	}
	return resp, nil
}
