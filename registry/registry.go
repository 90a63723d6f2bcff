package registry

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/skillsenselab/resilix/errors"
	"github.com/skillsenselab/resilix/logger"
	"github.com/skillsenselab/resilix/pipeline"
	"github.com/skillsenselab/resilix/telemetry"
)

// ConfigureFunc configures a builder for one pipeline build. The registry
// re-invokes it on reload, so it must be safe to call more than once.
type ConfigureFunc func(*BuilderContext, *pipeline.Builder) error

// Options configure a Registry. The zero value is usable.
type Options struct {
	// KeyNormalizer defines key equality as a normalization function
	// (for example strings.ToLower). Defaults to identity.
	KeyNormalizer func(string) string
	// InstanceNameFormatter derives the instance name handed to builder
	// callbacks. Defaults to the key itself.
	InstanceNameFormatter func(string) string
	// BuilderNameFormatter derives the builder name handed to builder
	// callbacks. Defaults to the key itself.
	BuilderNameFormatter func(string) string
	// OnReloadError receives rebuild failures. They are never thrown
	// into a caller's execution path. Defaults to logging.
	OnReloadError func(key string, err error)
	// Logger defaults to a no-op logger.
	Logger *logger.Logger
	// Metrics, if set, records builds, reloads, and disposals.
	Metrics *telemetry.Metrics
}

// entryKey is the composite cache key: generic pipelines carry the result
// type's tag so they never collide with non-generic pipelines of the same
// name.
type entryKey struct {
	name    string
	typeTag string
}

// Registry is a concurrent map from key to either a registered build
// recipe or a cached built pipeline. Safe for concurrent use.
type Registry struct {
	opts     Options
	log      *logger.Logger
	disposed atomic.Bool

	mu       sync.Mutex
	builders map[entryKey]ConfigureFunc
	entries  map[entryKey]*entry
}

// New creates a registry with the given options.
func New(opts Options) *Registry {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{
		opts:     opts,
		log:      log.WithComponent("registry"),
		builders: make(map[entryKey]ConfigureFunc),
		entries:  make(map[entryKey]*entry),
	}
}

func (r *Registry) normalize(key string) string {
	if r.opts.KeyNormalizer != nil {
		return r.opts.KeyNormalizer(key)
	}
	return key
}

func (r *Registry) instanceName(key string) string {
	if r.opts.InstanceNameFormatter != nil {
		return r.opts.InstanceNameFormatter(key)
	}
	return key
}

func (r *Registry) builderName(key string) string {
	if r.opts.BuilderNameFormatter != nil {
		return r.opts.BuilderNameFormatter(key)
	}
	return key
}

func (r *Registry) isDisposed() bool {
	return r.disposed.Load()
}

func (r *Registry) reportReloadError(key string, err error) {
	if r.opts.OnReloadError != nil {
		r.opts.OnReloadError(key, err)
		return
	}
	r.log.Error("pipeline reload failed", logger.Fields(
		logger.FieldKey, key,
		logger.FieldError, err.Error(),
	))
}

// TryAddBuilder registers a build recipe for key in the non-generic
// namespace. Returns false, without mutating anything, if a recipe is
// already registered there.
func (r *Registry) TryAddBuilder(key string, cfg ConfigureFunc) (bool, error) {
	return r.tryAddBuilder(entryKey{name: r.normalize(key)}, cfg)
}

func (r *Registry) tryAddBuilder(ek entryKey, cfg ConfigureFunc) (bool, error) {
	if cfg == nil {
		return false, errors.InvalidConfig("registry: nil configure callback")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isDisposed() {
		return false, errors.RegistryDisposed()
	}
	if _, exists := r.builders[ek]; exists {
		return false, nil
	}
	r.builders[ek] = cfg
	return true, nil
}

// GetPipeline returns the cached pipeline handle for key, building from
// the registered recipe on first access. Fails with KEY_NOT_FOUND when
// neither a cached instance nor a recipe exists.
func (r *Registry) GetPipeline(key string) (*Handle, error) {
	return r.resolve(entryKey{name: r.normalize(key)}, nil)
}

// TryGetPipeline resolves like GetPipeline but reports absence instead
// of failing. The error is non-nil only for disposal or build failures.
func (r *Registry) TryGetPipeline(key string) (*Handle, bool, error) {
	h, err := r.GetPipeline(key)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return h, true, nil
}

// GetOrAddPipeline returns the cached handle for key, or builds one with
// cfg. The callback is used only for this build; it is not persisted as
// a reusable recipe.
func (r *Registry) GetOrAddPipeline(key string, cfg ConfigureFunc) (*Handle, error) {
	if cfg == nil {
		return nil, errors.InvalidConfig("registry: nil configure callback")
	}
	return r.resolve(entryKey{name: r.normalize(key)}, cfg)
}

// resolve implements the shared cache-hit / single-flight-build path.
// oneShot, when non-nil, is the build recipe for a miss; otherwise the
// registered builder is used.
func (r *Registry) resolve(ek entryKey, oneShot ConfigureFunc) (*Handle, error) {
	r.mu.Lock()
	if r.isDisposed() {
		r.mu.Unlock()
		return nil, errors.RegistryDisposed()
	}
	e, ok := r.entries[ek]
	if !ok {
		cfg := oneShot
		if cfg == nil {
			cfg = r.builders[ek]
			if cfg == nil {
				r.mu.Unlock()
				return nil, errors.KeyNotFound(ek.name)
			}
		}
		e = newEntry(r, ek, cfg)
		r.entries[ek] = e
	}
	r.mu.Unlock()

	if err := e.ensureBuilt(); err != nil {
		// A failed first build is not cached; later calls start fresh.
		r.mu.Lock()
		if r.entries[ek] == e {
			delete(r.entries, ek)
		}
		r.mu.Unlock()
		return nil, err
	}
	return e.handle, nil
}

// Dispose is terminal: it runs every entry's dispose callbacks exactly
// once, drops all cached instances, and flips the registry into a state
// where every method and every previously returned handle fails with
// REGISTRY_DISPOSED.
func (r *Registry) Dispose() error {
	r.mu.Lock()
	if r.isDisposed() {
		r.mu.Unlock()
		return errors.RegistryDisposed()
	}
	r.disposed.Store(true)
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.builders = nil
	r.entries = nil
	r.mu.Unlock()

	// Draining each entry's critical section serializes disposal with
	// in-flight builds and reloads.
	for _, e := range entries {
		e.dispose()
	}

	if r.opts.Metrics != nil {
		r.opts.Metrics.RecordDisposal(context.Background())
	}
	r.log.Info("registry disposed", logger.Fields("entries", len(entries)))
	return nil
}
