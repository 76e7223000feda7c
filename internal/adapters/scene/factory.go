package scene

import (
	"sync/atomic"

	"github.com/arboimoveis/mapexplorer/internal/core/ports"
)

// Factory creates scene maps.
type Factory struct {
	created atomic.Int64
}

// NewFactory returns a Factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Create returns a new Map.
func (f *Factory) Create(opts ports.MapOptions) (ports.MapEngine, error) {
	f.created.Add(1)
	return New(opts), nil
}

// Created returns how many maps the factory has built.
func (f *Factory) Created() int64 {
	return f.created.Load()
}
