package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Registry holds the models available on this machine in registration order.
// An empty registry is a valid state.
type Registry struct {
	mu     sync.RWMutex
	models []Model
	byID   map[string]Model
	logger *slog.Logger
}

// NewRegistry creates an empty model registry
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		byID:   make(map[string]Model),
		logger: logger,
	}
}

// Register adds a model after checking it can serve requests.
// Duplicate IDs are rejected and models reporting themselves unhealthy are skipped.
func (r *Registry) Register(ctx context.Context, m Model) error {
	if m == nil {
		return fmt.Errorf("model is nil")
	}
	if m.ID() == "" {
		return fmt.Errorf("model id is required")
	}

	r.mu.RLock()
	_, exists := r.byID[m.ID()]
	r.mu.RUnlock()
	if exists {
		return fmt.Errorf("model %q already registered", m.ID())
	}

	if checker, ok := m.(HealthChecker); ok {
		if err := checker.IsHealthy(ctx); err != nil {
			r.logger.Warn("Skipping unavailable model",
				"model_id", m.ID(),
				"error", err)
			return fmt.Errorf("model %q is not available: %w", m.ID(), err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[m.ID()]; exists {
		return fmt.Errorf("model %q already registered", m.ID())
	}
	r.models = append(r.models, m)
	r.byID[m.ID()] = m

	r.logger.Debug("Registered model",
		"model_id", m.ID(),
		"model_name", m.Name())

	return nil
}

// ListModels returns the registered models in registration order
func (r *Registry) ListModels(ctx context.Context) []Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := make([]Model, len(r.models))
	copy(models, r.models)
	return models
}

// GetByID looks up a model by its identifier
func (r *Registry) GetByID(id string) (Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byID[id]
	return m, ok
}
