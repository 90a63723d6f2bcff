// Package timeout wraps a unit of work with deadline enforcement.
//
// Two strategies are supported. Optimistic enforcement links the
// caller's ctx with an internal timer and hands the merged signal to the
// operation; a cooperative operation returns promptly when either fires,
// and the engine classifies the resulting cancellation by its source.
// Pessimistic enforcement races the operation against a timer without
// ever showing it the internal signal; when the timer wins, the
// operation is abandoned to finish in the background and the caller gets
// a timeout rejection immediately.
//
//	t := timeout.Must(timeout.Config{
//		Timeout:  2 * time.Second,
//		Strategy: timeout.Pessimistic,
//	})
//	user, err := timeout.Execute(ctx, t, fetchUser)
//
// A Timeout also implements pipeline.Strategy, so it composes into a
// pipeline alongside retry, circuit breaking, and the other behaviors in
// the resilience package.
package timeout
