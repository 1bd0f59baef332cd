package calendar

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/venkytv/event-creator/pkg/config"
)

// WriterConstructor builds a writer from the application configuration
type WriterConstructor func(cfg *config.Config, logger *slog.Logger) (Writer, error)

// DefaultWriterFactory maps configured calendar types to writer constructors
type DefaultWriterFactory struct {
	writers map[string]WriterConstructor
}

// NewDefaultWriterFactory creates a new default writer factory
func NewDefaultWriterFactory() *DefaultWriterFactory {
	return &DefaultWriterFactory{
		writers: make(map[string]WriterConstructor),
	}
}

// RegisterWriter registers a writer constructor function
func (f *DefaultWriterFactory) RegisterWriter(writerType string, constructor WriterConstructor) {
	f.writers[writerType] = constructor
}

// CreateWriter creates the writer selected by cfg.Calendar.Type
func (f *DefaultWriterFactory) CreateWriter(cfg *config.Config, logger *slog.Logger) (Writer, error) {
	constructor, exists := f.writers[cfg.Calendar.Type]
	if !exists {
		return nil, fmt.Errorf("unsupported calendar type: %s", cfg.Calendar.Type)
	}
	return constructor(cfg, logger)
}

// SupportedTypes returns a sorted list of supported writer types
func (f *DefaultWriterFactory) SupportedTypes() []string {
	types := make([]string, 0, len(f.writers))
	for writerType := range f.writers {
		types = append(types, writerType)
	}
	sort.Strings(types)
	return types
}
