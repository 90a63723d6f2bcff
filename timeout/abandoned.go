package timeout

import "sync"

// Abandoned is a live handle onto an operation the pessimistic strategy
// walked away from. The operation keeps running to completion in the
// background; its eventual outcome is readable here and is never
// delivered to the original caller.
type Abandoned struct {
	done chan struct{}

	mu  sync.Mutex
	out any
	err error
}

func newAbandoned() *Abandoned {
	return &Abandoned{done: make(chan struct{})}
}

// Done returns a channel closed when the operation settles.
func (a *Abandoned) Done() <-chan struct{} {
	return a.done
}

// Settled reports whether the operation has already settled.
func (a *Abandoned) Settled() bool {
	select {
	case <-a.done:
		return true
	default:
		return false
	}
}

// Result blocks until the operation settles and returns its outcome.
func (a *Abandoned) Result() (any, error) {
	<-a.done
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.out, a.err
}

func (a *Abandoned) settle(out any, err error) {
	a.mu.Lock()
	a.out = out
	a.err = err
	a.mu.Unlock()
	close(a.done)
}
