package registry

import "context"

// BuilderContext is handed to a ConfigureFunc for one build. It exposes
// the key and derived names, and collects the reload tokens and dispose
// callbacks registered during that single build call. Each build (and
// each rebuild) gets a fresh BuilderContext, which is how the registry
// replaces the token and callback sets wholesale per generation.
type BuilderContext struct {
	key          string
	instanceName string
	builderName  string

	reloadTokens     []context.Context
	disposeCallbacks []func()
}

// Key returns the normalized key being built.
func (bc *BuilderContext) Key() string {
	return bc.key
}

// InstanceName returns the derived instance name.
func (bc *BuilderContext) InstanceName() string {
	return bc.instanceName
}

// BuilderName returns the derived builder name.
func (bc *BuilderContext) BuilderName() string {
	return bc.builderName
}

// AddReloadToken subscribes the built pipeline to a reload signal:
// cancelling tok asks the registry to rebuild this entry. Tokens that
// are already cancelled are ignored.
func (bc *BuilderContext) AddReloadToken(tok context.Context) {
	if tok == nil || tok.Err() != nil {
		return
	}
	bc.reloadTokens = append(bc.reloadTokens, tok)
}

// OnPipelineDisposed registers a callback fired when this build's
// pipeline instance is replaced by a reload or the registry is disposed.
// Callbacks run in registration order, exactly once.
func (bc *BuilderContext) OnPipelineDisposed(cb func()) {
	if cb == nil {
		return
	}
	bc.disposeCallbacks = append(bc.disposeCallbacks, cb)
}
