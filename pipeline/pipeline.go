package pipeline

import (
	"context"
)

// Operation is a unit of work executed through a pipeline. Strategies
// wrap it; the innermost Operation is the caller's delegate.
type Operation func(ctx context.Context, ec *Context) (any, error)

// Strategy is a single resilience behavior composable into a Pipeline.
// Execute must either invoke next (possibly with a derived ctx) or fail
// without invoking it; errors from next propagate unchanged unless the
// strategy's contract is specifically to translate them.
type Strategy interface {
	// Name identifies the strategy for logging and metrics.
	Name() string
	// Execute runs the wrapped operation under this strategy's behavior.
	Execute(ctx context.Context, ec *Context, next Operation) (any, error)
}

// Pipeline is an immutable composed chain of strategies with one
// Execute entry point. Build one with a Builder.
type Pipeline struct {
	name         string
	instanceName string
	instanceID   string
	strategies   []Strategy
}

// Name returns the pipeline name set on the builder, if any.
func (p *Pipeline) Name() string {
	return p.name
}

// InstanceName returns the instance name set on the builder, if any.
func (p *Pipeline) InstanceName() string {
	return p.instanceName
}

// InstanceID returns the unique identifier assigned at build time.
// Rebuilding from the same builder yields a new ID, which is how tests
// and telemetry distinguish pipeline generations across reloads.
func (p *Pipeline) InstanceID() string {
	return p.instanceID
}

// Strategies returns the number of composed strategies.
func (p *Pipeline) Strategies() int {
	return len(p.strategies)
}

// Execute runs op through the composed strategies, first added
// outermost. A nil ec is replaced with an empty context. The operation's
// own error is propagated unchanged.
func (p *Pipeline) Execute(ctx context.Context, ec *Context, op Operation) (any, error) {
	if ec == nil {
		ec = NewContext("")
	}
	next := op
	for i := len(p.strategies) - 1; i >= 0; i-- {
		s := p.strategies[i]
		inner := next
		next = func(ctx context.Context, ec *Context) (any, error) {
			return s.Execute(ctx, ec, inner)
		}
	}
	return next(ctx, ec)
}

// Execute runs a typed operation through p without requiring a Typed
// facade. It is the package-level generic form of Pipeline.Execute.
func Execute[T any](ctx context.Context, p *Pipeline, ec *Context, fn func(context.Context, *Context) (T, error)) (T, error) {
	out, err := p.Execute(ctx, ec, func(ctx context.Context, ec *Context) (any, error) {
		return fn(ctx, ec)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return assertResult[T](out)
}
