package ai

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/venkytv/event-creator/pkg/config"
)

// ModelConstructor builds a model from its configuration
type ModelConstructor func(cfg config.ModelConfig, logger *slog.Logger) (Model, error)

// DefaultModelFactory maps configured model types to constructors
type DefaultModelFactory struct {
	constructors map[string]ModelConstructor
}

// NewDefaultModelFactory creates a new default model factory
func NewDefaultModelFactory() *DefaultModelFactory {
	return &DefaultModelFactory{
		constructors: make(map[string]ModelConstructor),
	}
}

// RegisterModel registers a model constructor function
func (f *DefaultModelFactory) RegisterModel(modelType string, constructor ModelConstructor) {
	f.constructors[modelType] = constructor
}

// CreateModel creates a new model instance based on the configured type
func (f *DefaultModelFactory) CreateModel(cfg config.ModelConfig, logger *slog.Logger) (Model, error) {
	constructor, exists := f.constructors[cfg.Type]
	if !exists {
		return nil, fmt.Errorf("unsupported model type: %s", cfg.Type)
	}
	return constructor(cfg, logger)
}

// SupportedTypes returns the registered model types in sorted order
func (f *DefaultModelFactory) SupportedTypes() []string {
	types := make([]string, 0, len(f.constructors))
	for modelType := range f.constructors {
		types = append(types, modelType)
	}
	sort.Strings(types)
	return types
}
