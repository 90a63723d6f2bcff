package timeout

import (
	"fmt"
	"math"
	"time"

	"github.com/skillsenselab/resilix/clock"
	"github.com/skillsenselab/resilix/errors"
	"github.com/skillsenselab/resilix/logger"
	"github.com/skillsenselab/resilix/pipeline"
	"github.com/skillsenselab/resilix/telemetry"
)

// Infinite disables timeout enforcement for an execution. The pre-flight
// cancellation check still runs.
const Infinite = time.Duration(math.MaxInt64)

// Strategy selects how the deadline is enforced.
type Strategy int

const (
	// Optimistic relies on the operation observing the ctx it is given;
	// the engine cancels that ctx when the timeout elapses.
	Optimistic Strategy = iota
	// Pessimistic races the operation against a timer. The operation
	// only ever sees the caller's ctx and may be abandoned, never
	// forcibly stopped.
	Pessimistic
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case Optimistic:
		return "optimistic"
	case Pessimistic:
		return "pessimistic"
	default:
		return "unknown"
	}
}

// OnTimeoutArgs is passed to the OnTimeout callback when the resolved
// timeout elapses.
type OnTimeoutArgs struct {
	// Context is the execution context of the timed-out call.
	Context *pipeline.Context
	// Timeout is the resolved duration that elapsed.
	Timeout time.Duration
	// Abandoned is a live handle onto the still-running operation.
	// Always nil under the optimistic strategy.
	Abandoned *Abandoned
	// Err is the cancellation attributed to the internal timer.
	Err error
}

// Config configures a Timeout policy. Exactly one of Timeout and
// TimeoutProvider must be set.
type Config struct {
	// Timeout is a fixed duration: Infinite or strictly positive.
	Timeout time.Duration
	// TimeoutProvider resolves the duration per execution. Providers
	// that do not care about the execution context ignore the argument.
	TimeoutProvider func(*pipeline.Context) time.Duration
	// Strategy selects optimistic or pessimistic enforcement.
	Strategy Strategy
	// OnTimeout, if set, is invoked and awaited before the timeout
	// rejection is surfaced to the caller.
	OnTimeout func(OnTimeoutArgs)
	// Clock defaults to the system clock.
	Clock clock.Clock
	// Logger defaults to a no-op logger.
	Logger *logger.Logger
	// Metrics, if set, records timeout occurrences.
	Metrics *telemetry.Metrics
}

// Timeout wraps a unit of work with deadline enforcement. It owns no
// long-lived state; one instance per policy configuration, safe for
// concurrent use.
type Timeout struct {
	cfg Config
	clk clock.Clock
	log *logger.Logger
}

// New validates cfg and creates a Timeout policy. All configuration
// errors surface here, never at execution time.
func New(cfg Config) (*Timeout, error) {
	if cfg.Timeout == 0 && cfg.TimeoutProvider == nil {
		return nil, errors.InvalidConfig("timeout: set Timeout or TimeoutProvider")
	}
	if cfg.Timeout != 0 && cfg.TimeoutProvider != nil {
		return nil, errors.InvalidConfig("timeout: Timeout and TimeoutProvider are mutually exclusive")
	}
	if cfg.TimeoutProvider == nil && cfg.Timeout < 0 {
		return nil, errors.InvalidConfig(fmt.Sprintf("timeout: duration must be positive or Infinite, got %s", cfg.Timeout))
	}
	if cfg.Strategy != Optimistic && cfg.Strategy != Pessimistic {
		return nil, errors.InvalidConfig(fmt.Sprintf("timeout: unknown strategy %d", cfg.Strategy))
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.System()
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Timeout{cfg: cfg, clk: clk, log: log.WithComponent("timeout")}, nil
}

// Must creates a Timeout policy and panics on configuration errors.
func Must(cfg Config) *Timeout {
	t, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return t
}

// Name implements pipeline.Strategy.
func (t *Timeout) Name() string { return "timeout" }

// resolveTimeout evaluates the configured duration source for one
// execution. Providers are re-evaluated per call.
func (t *Timeout) resolveTimeout(ec *pipeline.Context) (time.Duration, error) {
	d := t.cfg.Timeout
	if t.cfg.TimeoutProvider != nil {
		d = t.cfg.TimeoutProvider(ec)
	}
	if d != Infinite && d <= 0 {
		return 0, errors.InvalidConfig(fmt.Sprintf("timeout: provider resolved non-positive duration %s", d))
	}
	return d, nil
}
