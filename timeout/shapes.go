package timeout

import (
	"context"
	"fmt"

	"github.com/skillsenselab/resilix/pipeline"
)

// The four call shapes: with/without an execution context, with/without
// a result value. All reduce to Timeout.Execute.

// Execute runs fn under the policy with a fresh execution context.
func Execute[T any](ctx context.Context, t *Timeout, fn func(context.Context) (T, error)) (T, error) {
	return ExecuteContext(ctx, t, pipeline.NewContext(""), func(ctx context.Context, _ *pipeline.Context) (T, error) {
		return fn(ctx)
	})
}

// ExecuteContext runs fn under the policy with a caller-supplied
// execution context.
func ExecuteContext[T any](ctx context.Context, t *Timeout, ec *pipeline.Context, fn func(context.Context, *pipeline.Context) (T, error)) (T, error) {
	out, err := t.Execute(ctx, ec, func(ctx context.Context, ec *pipeline.Context) (any, error) {
		return fn(ctx, ec)
	})
	var zero T
	if err != nil {
		return zero, err
	}
	if out == nil {
		return zero, nil
	}
	v, ok := out.(T)
	if !ok {
		return zero, fmt.Errorf("timeout produced %T, want %T", out, zero)
	}
	return v, nil
}

// Run runs an error-only fn under the policy.
func Run(ctx context.Context, t *Timeout, fn func(context.Context) error) error {
	_, err := Execute(ctx, t, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// RunContext runs an error-only fn with a caller-supplied execution context.
func RunContext(ctx context.Context, t *Timeout, ec *pipeline.Context, fn func(context.Context, *pipeline.Context) error) error {
	_, err := ExecuteContext(ctx, t, ec, func(ctx context.Context, ec *pipeline.Context) (struct{}, error) {
		return struct{}{}, fn(ctx, ec)
	})
	return err
}
