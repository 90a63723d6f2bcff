package registry

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/skillsenselab/resilix/errors"
	"github.com/skillsenselab/resilix/logger"
	"github.com/skillsenselab/resilix/pipeline"
)

// entry is one cached pipeline: the current instance behind an atomic
// indirection cell, the recipe used to rebuild it, and the reload/dispose
// registrations from the most recent successful build. All state changes
// run under mu, the per-key critical section.
type entry struct {
	reg    *Registry
	key    entryKey
	handle *Handle

	// instance is swapped atomically so concurrent handle executions
	// never observe a partially reloaded pipeline.
	instance atomic.Pointer[pipeline.Pipeline]

	mu               sync.Mutex
	built            bool
	buildErr         error
	disposed         bool
	configure        ConfigureFunc
	reloadTokens     []context.Context
	disposeCallbacks []func()
	stopWatch        func()
}

func newEntry(r *Registry, ek entryKey, cfg ConfigureFunc) *entry {
	e := &entry{reg: r, key: ek, configure: cfg}
	e.handle = &Handle{entry: e}
	return e
}

// ensureBuilt is the single-flight gate: concurrent first-access callers
// serialize here and exactly one of them runs the build. A failed build
// is sticky for callers already waiting on this entry; the registry
// drops the entry so fresh calls retry.
func (e *entry) ensureBuilt() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed || e.reg.isDisposed() {
		return errors.RegistryDisposed()
	}
	if e.built {
		return nil
	}
	if e.buildErr != nil {
		return e.buildErr
	}
	if err := e.buildLocked(); err != nil {
		e.buildErr = err
		return err
	}
	e.built = true

	if e.reg.opts.Metrics != nil {
		e.reg.opts.Metrics.RecordBuild(context.Background(), e.key.name)
	}
	e.reg.log.Debug("pipeline built", logger.Fields(
		logger.FieldKey, e.key.name,
		logger.FieldInstanceID, e.instance.Load().InstanceID(),
	))
	return nil
}

// buildLocked runs the configure callback and, only on success, swaps
// the instance, fires the previous generation's dispose callbacks, and
// adopts the new generation's reload tokens and dispose callbacks.
// Callers hold e.mu.
func (e *entry) buildLocked() error {
	bc := &BuilderContext{
		key:          e.key.name,
		instanceName: e.reg.instanceName(e.key.name),
		builderName:  e.reg.builderName(e.key.name),
	}
	b := pipeline.NewBuilder()
	b.Name = bc.builderName
	b.InstanceName = bc.instanceName

	if err := e.configure(bc, b); err != nil {
		// Tokens registered before the failure still count: a later
		// cancellation may trigger another rebuild attempt. The failed
		// generation's dispose callbacks are discarded with it.
		e.reloadTokens = append(e.reloadTokens, bc.reloadTokens...)
		return err
	}
	p, err := b.Build()
	if err != nil {
		e.reloadTokens = append(e.reloadTokens, bc.reloadTokens...)
		return err
	}

	e.instance.Store(p)

	oldCallbacks := e.disposeCallbacks
	e.disposeCallbacks = bc.disposeCallbacks
	e.reloadTokens = bc.reloadTokens
	if e.stopWatch != nil {
		e.stopWatch()
	}
	e.stopWatch = e.watchReload(e.reloadTokens)

	for _, cb := range oldCallbacks {
		cb()
	}
	return nil
}

// watchReload observes the token set from the latest successful build.
// The first token to fire triggers one reload; the watcher from the
// rebuild (or the post-failure rewatch) takes over from there.
func (e *entry) watchReload(tokens []context.Context) func() {
	active := tokens[:0:0]
	for _, tok := range tokens {
		if tok.Err() == nil {
			active = append(active, tok)
		}
	}
	if len(active) == 0 {
		return nil
	}

	stop := make(chan struct{})
	var once sync.Once
	stopFn := func() { once.Do(func() { close(stop) }) }

	fired := make(chan struct{}, 1)
	for _, tok := range active {
		go func(tok context.Context) {
			select {
			case <-tok.Done():
				select {
				case fired <- struct{}{}:
				default:
				}
			case <-stop:
			}
		}(tok)
	}

	go func() {
		select {
		case <-fired:
			e.reload()
		case <-stop:
		}
	}()
	return stopFn
}

// reload re-invokes the original configure callback under the per-key
// critical section. Success swaps the instance behind the existing
// handle; failure keeps the old instance authoritative, reports through
// the injectable hook, and re-arms the watcher on still-active tokens so
// a later cancellation may trigger another attempt. No automatic retry.
func (e *entry) reload() {
	e.mu.Lock()
	if e.disposed || e.reg.isDisposed() {
		e.mu.Unlock()
		return
	}
	err := e.buildLocked()
	if err != nil {
		if e.stopWatch != nil {
			e.stopWatch()
		}
		e.stopWatch = e.watchReload(e.reloadTokens)
	}
	e.mu.Unlock()

	if e.reg.opts.Metrics != nil {
		e.reg.opts.Metrics.RecordReload(context.Background(), e.key.name, err == nil)
	}
	if err != nil {
		e.reg.reportReloadError(e.key.name, err)
		return
	}
	e.reg.log.Info("pipeline reloaded", logger.Fields(
		logger.FieldKey, e.key.name,
		logger.FieldInstanceID, e.instance.Load().InstanceID(),
	))
}

// dispose drains the per-key critical section, stops the reload watcher,
// fires the current dispose callbacks exactly once, and drops the
// instance so the handle rejects further execution.
func (e *entry) dispose() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return
	}
	e.disposed = true
	if e.stopWatch != nil {
		e.stopWatch()
		e.stopWatch = nil
	}
	cbs := e.disposeCallbacks
	e.disposeCallbacks = nil
	e.reloadTokens = nil
	e.instance.Store(nil)

	for _, cb := range cbs {
		cb()
	}
}
