package parser

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned for blank text; no model is called
	ErrEmptyInput = errors.New("text cannot be empty")

	// ErrNoModelAvailable is returned when the registry holds no models
	ErrNoModelAvailable = errors.New("no AI models available on this platform")
)

// ModelError wraps a failure of the model invocation itself
type ModelError struct {
	ModelID string
	Err     error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model %s failed: %v", e.ModelID, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// DecodeError is the single failure kind for model output that cannot be
// turned into an event: malformed JSON, a missing field or a bad date.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to parse AI response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
