package timeout

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/skillsenselab/resilix/clock"
	"github.com/skillsenselab/resilix/errors"
	"github.com/skillsenselab/resilix/pipeline"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"no duration source", Config{Strategy: Optimistic}, true},
		{"both duration sources", Config{Timeout: time.Second, TimeoutProvider: func(*pipeline.Context) time.Duration { return time.Second }}, true},
		{"negative duration", Config{Timeout: -time.Second}, true},
		{"unknown strategy", Config{Timeout: time.Second, Strategy: Strategy(99)}, true},
		{"positive duration", Config{Timeout: time.Second}, false},
		{"infinite duration", Config{Timeout: Infinite}, false},
		{"provider only", Config{TimeoutProvider: func(*pipeline.Context) time.Duration { return time.Second }}, false},
		{"pessimistic", Config{Timeout: time.Second, Strategy: Pessimistic}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if tt.wantErr {
				if !errors.IsInvalidConfig(err) {
					t.Errorf("expected INVALID_CONFIG, got %v", err)
				}
			} else if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestOptimistic_SuccessReturnsResult(t *testing.T) {
	to := Must(Config{Timeout: time.Second, Strategy: Optimistic})

	got, err := Execute(context.Background(), to, func(ctx context.Context) (string, error) {
		return "done", nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "done" {
		t.Errorf("expected done, got %q", got)
	}
}

func TestOptimistic_CooperativeWorkTimesOut(t *testing.T) {
	to := Must(Config{Timeout: 50 * time.Millisecond, Strategy: Optimistic})

	start := time.Now()
	_, err := Execute(context.Background(), to, func(ctx context.Context) (int, error) {
		select {
		case <-time.After(3 * time.Second):
			return 1, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	})
	elapsed := time.Since(start)

	if !errors.IsTimeoutRejected(err) {
		t.Fatalf("expected TIMEOUT_REJECTED, got %v", err)
	}
	if d, ok := errors.RejectedTimeout(err); !ok || d != 50*time.Millisecond {
		t.Errorf("expected rejection to carry 50ms, got %v ok=%v", d, ok)
	}
	if elapsed > time.Second {
		t.Errorf("expected rejection near 50ms, took %v", elapsed)
	}
}

func TestPessimistic_UncooperativeWorkTimesOut(t *testing.T) {
	to := Must(Config{Timeout: 50 * time.Millisecond, Strategy: Pessimistic})

	finished := make(chan struct{})
	start := time.Now()
	_, err := Execute(context.Background(), to, func(ctx context.Context) (int, error) {
		// Ignores ctx entirely.
		time.Sleep(500 * time.Millisecond)
		close(finished)
		return 1, nil
	})
	elapsed := time.Since(start)

	if !errors.IsTimeoutRejected(err) {
		t.Fatalf("expected TIMEOUT_REJECTED, got %v", err)
	}
	if elapsed > 400*time.Millisecond {
		t.Errorf("expected rejection near 50ms, took %v", elapsed)
	}

	// The abandoned work keeps running; its outcome never reaches us.
	select {
	case <-finished:
		t.Error("work should still be running when Execute returns")
	default:
	}
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Error("abandoned work never ran to completion")
	}
}

func TestPreCancelledCaller_WorkNeverInvoked(t *testing.T) {
	for _, strategy := range []Strategy{Optimistic, Pessimistic} {
		t.Run(strategy.String(), func(t *testing.T) {
			to := Must(Config{Timeout: time.Second, Strategy: strategy})

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			var invoked atomic.Bool
			_, err := Execute(ctx, to, func(ctx context.Context) (int, error) {
				invoked.Store(true)
				return 1, nil
			})

			if !stderrors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
			if errors.IsTimeoutRejected(err) {
				t.Error("caller cancellation must not be reclassified as timeout")
			}
			if invoked.Load() {
				t.Error("work must never be invoked under a pre-cancelled ctx")
			}
		})
	}
}

func TestOptimistic_CallerCancellationPropagatesUnchanged(t *testing.T) {
	to := Must(Config{Timeout: time.Minute, Strategy: Optimistic})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := Execute(ctx, to, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if errors.IsTimeoutRejected(err) {
		t.Error("caller cancellation must not be reclassified as timeout")
	}
}

func TestOptimistic_InnerErrorPropagatesUnchanged(t *testing.T) {
	to := Must(Config{Timeout: time.Second, Strategy: Optimistic})

	opErr := stderrors.New("downstream exploded")
	_, err := Execute(context.Background(), to, func(ctx context.Context) (int, error) {
		return 0, opErr
	})

	if err != opErr {
		t.Errorf("expected the inner error unchanged, got %v", err)
	}
}

func TestPessimistic_WorkSettlingFirstWins(t *testing.T) {
	to := Must(Config{Timeout: time.Second, Strategy: Pessimistic})

	got, err := Execute(context.Background(), to, func(ctx context.Context) (string, error) {
		return "fast", nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "fast" {
		t.Errorf("expected fast, got %q", got)
	}
}

func TestPessimistic_AbandonedHandleExposesEventualError(t *testing.T) {
	workErr := stderrors.New("late failure")

	var handle atomic.Pointer[Abandoned]
	to := Must(Config{
		Timeout:  30 * time.Millisecond,
		Strategy: Pessimistic,
		OnTimeout: func(args OnTimeoutArgs) {
			if args.Abandoned == nil {
				t.Error("pessimistic OnTimeout must receive a live handle")
				return
			}
			if args.Err == nil {
				t.Error("OnTimeout must receive the attributed cancellation")
			}
			handle.Store(args.Abandoned)
		},
	})

	_, err := Execute(context.Background(), to, func(ctx context.Context) (int, error) {
		time.Sleep(100 * time.Millisecond)
		return 0, workErr
	})
	if !errors.IsTimeoutRejected(err) {
		t.Fatalf("expected TIMEOUT_REJECTED, got %v", err)
	}

	ab := handle.Load()
	if ab == nil {
		t.Fatal("OnTimeout was not invoked with a handle")
	}
	if ab.Settled() {
		t.Error("abandoned work should not have settled yet")
	}

	select {
	case <-ab.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("abandoned work never settled")
	}
	if _, gotErr := ab.Result(); gotErr != workErr {
		t.Errorf("expected handle to expose %v, got %v", workErr, gotErr)
	}
}

func TestOptimistic_OnTimeoutHandleIsNil(t *testing.T) {
	var sawArgs atomic.Bool
	to := Must(Config{
		Timeout:  30 * time.Millisecond,
		Strategy: Optimistic,
		OnTimeout: func(args OnTimeoutArgs) {
			sawArgs.Store(true)
			if args.Abandoned != nil {
				t.Error("optimistic OnTimeout must not receive a handle")
			}
			if args.Timeout != 30*time.Millisecond {
				t.Errorf("expected 30ms, got %v", args.Timeout)
			}
		},
	})

	_, err := Execute(context.Background(), to, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	if !errors.IsTimeoutRejected(err) {
		t.Fatalf("expected TIMEOUT_REJECTED, got %v", err)
	}
	if !sawArgs.Load() {
		t.Error("OnTimeout was not invoked")
	}
}

func TestOnTimeout_AwaitedBeforeRejectionSurfaces(t *testing.T) {
	var order []string
	to := Must(Config{
		Timeout:  30 * time.Millisecond,
		Strategy: Pessimistic,
		OnTimeout: func(args OnTimeoutArgs) {
			time.Sleep(20 * time.Millisecond)
			order = append(order, "callback")
		},
	})

	_, err := Execute(context.Background(), to, func(ctx context.Context) (int, error) {
		time.Sleep(200 * time.Millisecond)
		return 1, nil
	})
	order = append(order, "rejected")

	if !errors.IsTimeoutRejected(err) {
		t.Fatalf("expected TIMEOUT_REJECTED, got %v", err)
	}
	if len(order) != 2 || order[0] != "callback" || order[1] != "rejected" {
		t.Errorf("expected callback strictly before rejection, got %v", order)
	}
}

func TestInfinite_DisablesEnforcement(t *testing.T) {
	to := Must(Config{Timeout: Infinite, Strategy: Optimistic})

	got, err := Execute(context.Background(), to, func(ctx context.Context) (int, error) {
		if _, hasDeadline := ctx.Deadline(); hasDeadline {
			t.Error("infinite timeout must not impose a deadline")
		}
		return 5, nil
	})
	if err != nil || got != 5 {
		t.Errorf("expected 5/nil, got %v/%v", got, err)
	}
}

func TestInfinite_PreFlightCheckStillRuns(t *testing.T) {
	to := Must(Config{Timeout: Infinite, Strategy: Pessimistic})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var invoked atomic.Bool
	_, err := Execute(ctx, to, func(ctx context.Context) (int, error) {
		invoked.Store(true)
		return 1, nil
	})
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if invoked.Load() {
		t.Error("work must not run under a pre-cancelled ctx even with Infinite")
	}
}

func TestProvider_ReEvaluatedPerExecution(t *testing.T) {
	var calls atomic.Int32
	to := Must(Config{
		TimeoutProvider: func(ec *pipeline.Context) time.Duration {
			calls.Add(1)
			return time.Second
		},
	})

	for i := 0; i < 3; i++ {
		if _, err := Execute(context.Background(), to, func(ctx context.Context) (int, error) {
			return i, nil
		}); err != nil {
			t.Fatalf("execution %d failed: %v", i, err)
		}
	}
	if calls.Load() != 3 {
		t.Errorf("expected provider evaluated 3 times, got %d", calls.Load())
	}
}

func TestProvider_ReceivesExecutionContext(t *testing.T) {
	var sawKey atomic.Value
	to := Must(Config{
		TimeoutProvider: func(ec *pipeline.Context) time.Duration {
			sawKey.Store(ec.OperationKey())
			return time.Second
		},
	})

	ec := pipeline.NewContext("slow-op")
	_, err := ExecuteContext(context.Background(), to, ec, func(ctx context.Context, ec *pipeline.Context) (int, error) {
		return 1, nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sawKey.Load() != "slow-op" {
		t.Errorf("expected provider to see the execution context key, got %v", sawKey.Load())
	}
}

func TestProvider_NonPositiveResolutionFails(t *testing.T) {
	to := Must(Config{
		TimeoutProvider: func(*pipeline.Context) time.Duration { return 0 },
	})

	var invoked atomic.Bool
	_, err := Execute(context.Background(), to, func(ctx context.Context) (int, error) {
		invoked.Store(true)
		return 1, nil
	})
	if !errors.IsInvalidConfig(err) {
		t.Errorf("expected INVALID_CONFIG, got %v", err)
	}
	if invoked.Load() {
		t.Error("work must not run when the resolved duration is invalid")
	}
}

func TestPessimistic_PanicInWorkBecomesHandleError(t *testing.T) {
	var handle atomic.Pointer[Abandoned]
	to := Must(Config{
		Timeout:  30 * time.Millisecond,
		Strategy: Pessimistic,
		OnTimeout: func(args OnTimeoutArgs) {
			handle.Store(args.Abandoned)
		},
	})

	_, err := Execute(context.Background(), to, func(ctx context.Context) (int, error) {
		time.Sleep(100 * time.Millisecond)
		panic("worker blew up")
	})
	if !errors.IsTimeoutRejected(err) {
		t.Fatalf("expected TIMEOUT_REJECTED, got %v", err)
	}

	ab := handle.Load()
	if ab == nil {
		t.Fatal("OnTimeout was not invoked")
	}
	<-ab.Done()
	if _, gotErr := ab.Result(); gotErr == nil {
		t.Error("expected the panic to surface as the handle's error")
	}
}

func TestRun_ErrorOnlyShape(t *testing.T) {
	to := Must(Config{Timeout: time.Second, Strategy: Optimistic})

	if err := Run(context.Background(), to, func(ctx context.Context) error {
		return nil
	}); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	opErr := stderrors.New("fail")
	if err := Run(context.Background(), to, func(ctx context.Context) error {
		return opErr
	}); err != opErr {
		t.Errorf("expected opErr, got %v", err)
	}
}

func TestRunContext_Shape(t *testing.T) {
	to := Must(Config{Timeout: time.Second, Strategy: Optimistic})

	ec := pipeline.NewContext("op")
	err := RunContext(context.Background(), to, ec, func(ctx context.Context, got *pipeline.Context) error {
		if got != ec {
			t.Error("expected the supplied execution context")
		}
		return nil
	})
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestPessimistic_FakeClockDeterministicTimeout(t *testing.T) {
	fake := clock.NewFake(time.Now())
	to := Must(Config{Timeout: time.Minute, Strategy: Pessimistic, Clock: fake})

	block := make(chan struct{})
	defer close(block)

	errCh := make(chan error, 1)
	go func() {
		_, err := Execute(context.Background(), to, func(ctx context.Context) (int, error) {
			<-block
			return 1, nil
		})
		errCh <- err
	}()

	waitForPendingTimer(t, fake)
	fake.Advance(time.Minute)

	select {
	case err := <-errCh:
		if !errors.IsTimeoutRejected(err) {
			t.Errorf("expected TIMEOUT_REJECTED, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Execute did not return after the fake timer fired")
	}
}

func TestOptimistic_FakeClockDeterministicTimeout(t *testing.T) {
	fake := clock.NewFake(time.Now())
	to := Must(Config{Timeout: time.Minute, Strategy: Optimistic, Clock: fake})

	errCh := make(chan error, 1)
	go func() {
		_, err := Execute(context.Background(), to, func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		})
		errCh <- err
	}()

	waitForPendingTimer(t, fake)
	fake.Advance(time.Minute)

	select {
	case err := <-errCh:
		if !errors.IsTimeoutRejected(err) {
			t.Errorf("expected TIMEOUT_REJECTED, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Execute did not return after the fake timer fired")
	}
}

func TestTimeout_ComposesIntoPipeline(t *testing.T) {
	to := Must(Config{Timeout: 30 * time.Millisecond, Strategy: Optimistic})

	p := pipeline.NewBuilder().AddStrategy(to).Must()
	_, err := p.Execute(context.Background(), pipeline.NewContext("op"), func(ctx context.Context, ec *pipeline.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	if !errors.IsTimeoutRejected(err) {
		t.Errorf("expected TIMEOUT_REJECTED through the pipeline, got %v", err)
	}
}

func waitForPendingTimer(t *testing.T, fake *clock.Fake) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for fake.PendingTimers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("engine never scheduled its timer")
		}
		time.Sleep(time.Millisecond)
	}
}
