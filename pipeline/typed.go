package pipeline

import (
	"context"
	"fmt"
)

// Typed is a generic facade over a Pipeline for callers that want a
// compile-time result type instead of any.
type Typed[T any] struct {
	p *Pipeline
}

// NewTyped wraps a pipeline in a typed facade.
func NewTyped[T any](p *Pipeline) *Typed[T] {
	return &Typed[T]{p: p}
}

// Pipeline returns the underlying untyped pipeline.
func (tp *Typed[T]) Pipeline() *Pipeline {
	return tp.p
}

// Execute runs fn through the underlying pipeline. fn's error, and any
// strategy error, propagate unchanged.
func (tp *Typed[T]) Execute(ctx context.Context, ec *Context, fn func(context.Context, *Context) (T, error)) (T, error) {
	return Execute(ctx, tp.p, ec, fn)
}

// assertResult converts a boxed strategy result back to T. Strategies
// must pass the operation result through unchanged, so a mismatch here
// is a strategy bug, not a caller error.
func assertResult[T any](out any) (T, error) {
	var zero T
	if out == nil {
		return zero, nil
	}
	v, ok := out.(T)
	if !ok {
		return zero, fmt.Errorf("pipeline produced %T, want %T", out, zero)
	}
	return v, nil
}
