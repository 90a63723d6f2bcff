package registry

import (
	"context"
	"fmt"
	"reflect"

	"github.com/skillsenselab/resilix/errors"
	"github.com/skillsenselab/resilix/pipeline"
)

// The generic namespace. A pipeline cached for result type T never
// collides with the non-generic pipeline of the same key, nor with a
// pipeline cached for a different T. Go methods cannot be generic, so
// the typed surface is this package-level function family.

func typeTag[T any]() string {
	return reflect.TypeFor[T]().String()
}

// TypedHandle is a typed facade over a Handle. The underlying Handle
// carries the stable identity; TypedHandle values are cheap wrappers.
type TypedHandle[T any] struct {
	handle *Handle
}

// Handle returns the underlying untyped handle.
func (th TypedHandle[T]) Handle() *Handle {
	return th.handle
}

// InstanceID returns the current instance's build identifier.
func (th TypedHandle[T]) InstanceID() (string, error) {
	return th.handle.InstanceID()
}

// Execute runs fn through the entry's current pipeline instance.
func (th TypedHandle[T]) Execute(ctx context.Context, ec *pipeline.Context, fn func(context.Context, *pipeline.Context) (T, error)) (T, error) {
	out, err := th.handle.Execute(ctx, ec, func(ctx context.Context, ec *pipeline.Context) (any, error) {
		return fn(ctx, ec)
	})
	var zero T
	if err != nil {
		return zero, err
	}
	if out == nil {
		return zero, nil
	}
	v, ok := out.(T)
	if !ok {
		return zero, fmt.Errorf("pipeline produced %T, want %T", out, zero)
	}
	return v, nil
}

// TryAddBuilderFor registers a build recipe for key in the namespace of
// result type T.
func TryAddBuilderFor[T any](r *Registry, key string, cfg ConfigureFunc) (bool, error) {
	return r.tryAddBuilder(entryKey{name: r.normalize(key), typeTag: typeTag[T]()}, cfg)
}

// GetPipelineFor resolves key in the namespace of result type T.
func GetPipelineFor[T any](r *Registry, key string) (TypedHandle[T], error) {
	h, err := r.resolve(entryKey{name: r.normalize(key), typeTag: typeTag[T]()}, nil)
	if err != nil {
		return TypedHandle[T]{}, err
	}
	return TypedHandle[T]{handle: h}, nil
}

// TryGetPipelineFor resolves like GetPipelineFor but reports absence
// instead of failing.
func TryGetPipelineFor[T any](r *Registry, key string) (TypedHandle[T], bool, error) {
	th, err := GetPipelineFor[T](r, key)
	if err != nil {
		if errors.IsNotFound(err) {
			return TypedHandle[T]{}, false, nil
		}
		return TypedHandle[T]{}, false, err
	}
	return th, true, nil
}

// GetOrAddPipelineFor returns the cached typed handle for key, or builds
// one with cfg. The callback is used only for this build.
func GetOrAddPipelineFor[T any](r *Registry, key string, cfg ConfigureFunc) (TypedHandle[T], error) {
	if cfg == nil {
		return TypedHandle[T]{}, errors.InvalidConfig("registry: nil configure callback")
	}
	h, err := r.resolve(entryKey{name: r.normalize(key), typeTag: typeTag[T]()}, cfg)
	if err != nil {
		return TypedHandle[T]{}, err
	}
	return TypedHandle[T]{handle: h}, nil
}
