package timeout

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/skillsenselab/resilix/errors"
	"github.com/skillsenselab/resilix/logger"
	"github.com/skillsenselab/resilix/pipeline"
)

// timerCause marks a cancellation triggered by the internal timer, as
// opposed to the caller's own cancellation.
type timerCause struct {
	timeout time.Duration
}

func (c *timerCause) Error() string {
	return fmt.Sprintf("timeout of %s elapsed", c.timeout)
}

// Execute implements pipeline.Strategy. The duration source is resolved
// first, synchronously; an already-cancelled caller ctx fails before the
// operation is ever invoked, under both strategies.
func (t *Timeout) Execute(ctx context.Context, ec *pipeline.Context, next pipeline.Operation) (any, error) {
	if ec == nil {
		ec = pipeline.NewContext("")
	}

	d, err := t.resolveTimeout(ec)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if d == Infinite {
		return next(ctx, ec)
	}

	if t.cfg.Strategy == Pessimistic {
		return t.pessimistic(ctx, ec, next, d)
	}
	return t.optimistic(ctx, ec, next, d)
}

// optimistic links the caller's ctx with the internal timer into one
// signal the operation observes for its whole execution. The two sources
// are distinguished only when classifying the resulting error.
func (t *Timeout) optimistic(ctx context.Context, ec *pipeline.Context, next pipeline.Operation, d time.Duration) (any, error) {
	cause := &timerCause{timeout: d}
	linked, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	timer := t.clk.NewTimer(d)
	stop := make(chan struct{})
	go func() {
		select {
		case <-timer.C():
			cancel(cause)
		case <-stop:
			timer.Stop()
		}
	}()

	out, err := next(linked, ec)
	close(stop)

	if err == nil {
		return out, nil
	}
	if t.attributedToTimer(ctx, linked, err, cause) {
		t.fireOnTimeout(ec, d, nil, err)
		return nil, errors.TimeoutRejected(d).WithCause(err)
	}
	return nil, err
}

// attributedToTimer reports whether a failed execution should be
// classified as a timeout: the error is a cancellation, the linked ctx
// was cancelled by the internal timer, and the caller's own ctx has not
// fired. Caller cancellation is never reclassified as a timeout.
func (t *Timeout) attributedToTimer(caller, linked context.Context, err error, cause *timerCause) bool {
	if caller.Err() != nil {
		return false
	}
	if context.Cause(linked) != error(cause) {
		return false
	}
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, error(cause))
}

// pessimistic races the operation against the timer. The operation only
// ever sees the caller's ctx; once started, nothing forces it to stop.
// When the timer wins, the operation is abandoned: it keeps running in
// the background and its eventual outcome is observed internally, never
// delivered to the caller.
func (t *Timeout) pessimistic(ctx context.Context, ec *pipeline.Context, next pipeline.Operation, d time.Duration) (any, error) {
	ab := newAbandoned()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ab.settle(nil, fmt.Errorf("operation panicked: %v", r))
			}
		}()
		out, err := next(ctx, ec)
		ab.settle(out, err)
	}()

	timer := t.clk.NewTimer(d)
	select {
	case <-ab.done:
		timer.Stop()
		return ab.Result()
	case <-timer.C():
		cause := &timerCause{timeout: d}
		t.drainAbandoned(ab)
		t.fireOnTimeout(ec, d, ab, cause)
		return nil, errors.TimeoutRejected(d).WithCause(cause)
	case <-ctx.Done():
		timer.Stop()
		t.drainAbandoned(ab)
		return nil, ctx.Err()
	}
}

// drainAbandoned observes the abandoned operation's eventual outcome so
// an unobserved failure never goes unaccounted for.
func (t *Timeout) drainAbandoned(ab *Abandoned) {
	go func() {
		if _, err := ab.Result(); err != nil {
			t.log.Debug("abandoned operation settled with error",
				logger.Fields(logger.FieldError, err.Error()))
		}
	}()
}

// fireOnTimeout is invoked and awaited strictly before the timeout
// rejection surfaces to the caller.
func (t *Timeout) fireOnTimeout(ec *pipeline.Context, d time.Duration, ab *Abandoned, cause error) {
	if t.cfg.Metrics != nil {
		t.cfg.Metrics.RecordTimeout(context.Background(), ec.OperationKey(), d)
	}
	t.log.Debug("execution timed out", logger.Fields(
		logger.FieldOperation, ec.OperationKey(),
		logger.FieldTimeout, d.String(),
		logger.FieldStrategy, t.cfg.Strategy.String(),
	))
	if t.cfg.OnTimeout != nil {
		t.cfg.OnTimeout(OnTimeoutArgs{Context: ec, Timeout: d, Abandoned: ab, Err: cause})
	}
}
