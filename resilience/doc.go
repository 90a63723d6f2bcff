// Package resilience provides concrete strategies composable into a
// pipeline: retry with exponential backoff, circuit breaker, bulkhead,
// and token-bucket rate limiting. Each type implements
// pipeline.Strategy; combine them through a pipeline.Builder, typically
// with a timeout.Timeout innermost:
//
//	p := pipeline.NewBuilder().
//		AddStrategy(resilience.NewRetry(resilience.DefaultRetryConfig())).
//		AddStrategy(resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("payments"))).
//		AddStrategy(timeout.Must(timeout.Config{Timeout: 2 * time.Second})).
//		Must()
package resilience
