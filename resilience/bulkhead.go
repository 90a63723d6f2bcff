package resilience

import (
	"context"
	"time"

	"github.com/skillsenselab/resilix/errors"
	"github.com/skillsenselab/resilix/pipeline"
)

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	// Name identifies this bulkhead for metrics/logging.
	Name string
	// MaxConcurrent is the maximum number of concurrent calls.
	MaxConcurrent int
	// MaxWait is how long to wait for a slot. 0 means fail immediately.
	MaxWait time.Duration
	// OnReject is called when a request is rejected.
	OnReject func(name string)
}

// DefaultBulkheadConfig returns sensible defaults.
func DefaultBulkheadConfig(name string) BulkheadConfig {
	return BulkheadConfig{
		Name:          name,
		MaxConcurrent: 10,
	}
}

// Bulkhead is a pipeline strategy that caps concurrent executions of the
// wrapped operation to isolate failures.
type Bulkhead struct {
	config BulkheadConfig
	sem    chan struct{}
}

// NewBulkhead creates a bulkhead, filling zero config fields with defaults.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}
	return &Bulkhead{
		config: config,
		sem:    make(chan struct{}, config.MaxConcurrent),
	}
}

// Name implements pipeline.Strategy.
func (b *Bulkhead) Name() string { return "bulkhead" }

// Execute implements pipeline.Strategy. A call that cannot acquire a
// slot fails with BULKHEAD_FULL without invoking the wrapped operation.
func (b *Bulkhead) Execute(ctx context.Context, ec *pipeline.Context, next pipeline.Operation) (any, error) {
	if err := b.acquire(ctx); err != nil {
		if b.config.OnReject != nil {
			b.config.OnReject(b.config.Name)
		}
		return nil, err
	}
	defer b.release()

	return next(ctx, ec)
}

// acquire tries to acquire a slot in the bulkhead.
func (b *Bulkhead) acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	default:
	}

	if b.config.MaxWait <= 0 {
		return errors.New(errors.ErrCodeBulkheadFull, "bulkhead is full").
			WithDetail("name", b.config.Name)
	}

	timer := time.NewTimer(b.config.MaxWait)
	defer timer.Stop()

	select {
	case b.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return errors.New(errors.ErrCodeBulkheadFull, "bulkhead wait timed out").
			WithDetail("name", b.config.Name)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bulkhead) release() {
	<-b.sem
}

// Available returns the number of available slots.
func (b *Bulkhead) Available() int {
	return b.config.MaxConcurrent - len(b.sem)
}

// InUse returns the number of slots currently in use.
func (b *Bulkhead) InUse() int {
	return len(b.sem)
}
