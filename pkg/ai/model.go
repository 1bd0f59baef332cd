package ai

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a model completes without producing text
var ErrEmptyResponse = errors.New("empty response from model")

// FinishReason describes why a model stopped generating
type FinishReason string

const (
	FinishReasonStop   FinishReason = "stop"
	FinishReasonLength FinishReason = "length"
	FinishReasonError  FinishReason = "error"
)

// Response is the outcome of a single model run
type Response struct {
	Text         string
	FinishReason FinishReason
}

// Model defines the interface that all language model backends must satisfy
type Model interface {
	// ID returns the stable identifier of the model
	ID() string

	// Name returns the human-readable name of the model
	Name() string

	// Description returns a short description shown when listing models
	Description() string

	// Run sends the prompt to the model and blocks until it completes.
	// Failures are returned as errors, never as panics.
	Run(ctx context.Context, prompt string) (*Response, error)
}

// HealthChecker is implemented by models that can verify they are usable
type HealthChecker interface {
	IsHealthy(ctx context.Context) error
}
