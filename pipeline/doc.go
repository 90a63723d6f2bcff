// Package pipeline defines the composition model for resilience strategies.
//
// A Strategy is a single resilience behavior (timeout, retry, circuit
// breaker). A Builder collects strategies and produces an immutable
// Pipeline whose Execute entry point runs them in registration order,
// first added outermost:
//
//	b := pipeline.NewBuilder()
//	b.AddStrategy(retryStrategy)
//	b.AddStrategy(timeoutStrategy)
//	p, err := b.Build()
//
//	out, err := p.Execute(ctx, pipeline.NewContext("get-user"), op)
//
// Context is the per-call carrier of an operation key and a typed
// key/value bag. It is passed by reference through one execution and is
// not safe for concurrent mutation.
//
// Typed[T] is a generic facade over a Pipeline for callers that want
// compile-time result types; errors from the wrapped operation propagate
// unchanged through both surfaces.
package pipeline
