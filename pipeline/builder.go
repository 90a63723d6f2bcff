package pipeline

import (
	"github.com/google/uuid"

	"github.com/skillsenselab/resilix/errors"
)

// Builder is the mutable configuration surface strategies attach to.
// Build produces an immutable Pipeline; the builder may be reused, each
// Build yielding an independent instance.
type Builder struct {
	// Name identifies the pipeline for logging and metrics.
	Name string
	// InstanceName distinguishes instances built from the same recipe.
	InstanceName string

	strategies []Strategy
}

// NewBuilder creates an empty pipeline builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddStrategy appends a strategy to the pipeline. Strategies execute in
// the order they are added, first added outermost.
func (b *Builder) AddStrategy(s Strategy) *Builder {
	b.strategies = append(b.strategies, s)
	return b
}

// Build validates the configuration and produces an immutable Pipeline.
// An empty builder yields a pass-through pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	for i, s := range b.strategies {
		if s == nil {
			return nil, errors.InvalidConfig("nil strategy").WithDetail("position", i)
		}
	}

	strategies := make([]Strategy, len(b.strategies))
	copy(strategies, b.strategies)

	return &Pipeline{
		name:         b.Name,
		instanceName: b.InstanceName,
		instanceID:   uuid.NewString(),
		strategies:   strategies,
	}, nil
}

// Must builds the pipeline and panics on configuration errors. Use only
// with statically known-good configuration.
func (b *Builder) Must() *Pipeline {
	p, err := b.Build()
	if err != nil {
		panic(err)
	}
	return p
}
