package pipeline

import (
	"errors"
	"fmt"
)

// Common context bag errors.
var (
	ErrValueNotFound = errors.New("context value not found")
	ErrValueType     = errors.New("context value type mismatch")
)

// Context carries per-call execution state through a pipeline: the
// operation key and a typed string-keyed value bag. A Context belongs to
// one execution at a time; sharing a single instance across overlapping
// executions is the caller's responsibility.
type Context struct {
	operationKey string
	values       map[string]any
}

// NewContext creates an execution context with the given operation key.
func NewContext(operationKey string) *Context {
	return &Context{operationKey: operationKey}
}

// OperationKey returns the operation key this context was created with.
func (ec *Context) OperationKey() string {
	return ec.operationKey
}

// Set stores a value under key, replacing any previous value.
func (ec *Context) Set(key string, value any) {
	if ec.values == nil {
		ec.values = make(map[string]any)
	}
	ec.values[key] = value
}

// Has reports whether a value is stored under key.
func (ec *Context) Has(key string) bool {
	_, ok := ec.values[key]
	return ok
}

// Delete removes the value stored under key.
func (ec *Context) Delete(key string) {
	delete(ec.values, key)
}

// Get retrieves a typed value from the context bag. It fails with
// ErrValueNotFound when the key is absent and ErrValueType when the
// stored value is not a T; there is no implicit coercion.
func Get[T any](ec *Context, key string) (T, error) {
	var zero T
	v, ok := ec.values[key]
	if !ok {
		return zero, fmt.Errorf("%w: %q", ErrValueNotFound, key)
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q holds %T, want %T", ErrValueType, key, v, zero)
	}
	return typed, nil
}

// GetOr retrieves a typed value, falling back to def when the key is
// absent or holds a different type.
func GetOr[T any](ec *Context, key string, def T) T {
	v, err := Get[T](ec, key)
	if err != nil {
		return def
	}
	return v
}
