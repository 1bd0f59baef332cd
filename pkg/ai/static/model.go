// Package static provides a model that answers every prompt with a fixed reply
package static

import (
	"context"
	"log/slog"
	"strings"

	"github.com/venkytv/event-creator/pkg/ai"
	"github.com/venkytv/event-creator/pkg/config"
)

// Model replies to every prompt with the response from its configuration
type Model struct {
	id          string
	name        string
	description string
	response    string
	logger      *slog.Logger
}

// New creates a static model. An empty response makes every Run fail with
// ai.ErrEmptyResponse.
func New(cfg config.ModelConfig, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}

	description := cfg.Description
	if description == "" {
		description = "Canned response"
	}

	return &Model{
		id:          cfg.ID,
		name:        cfg.Name,
		description: description,
		response:    cfg.Response,
		logger:      logger,
	}
}

// ID returns the configured model id
func (m *Model) ID() string { return m.id }

// Name returns the configured display name
func (m *Model) Name() string { return m.name }

// Description returns the configured description, or "Canned response"
func (m *Model) Description() string { return m.description }

// Run returns the canned response unless ctx is already done
func (m *Model) Run(ctx context.Context, prompt string) (*ai.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.logger.Debug("Returning canned response", "model_id", m.id)

	if strings.TrimSpace(m.response) == "" {
		return nil, ai.ErrEmptyResponse
	}
	return &ai.Response{Text: m.response, FinishReason: ai.FinishReasonStop}, nil
}
