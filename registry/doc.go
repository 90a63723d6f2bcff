// Package registry provides a concurrent, keyed cache of built resilience
// pipelines with single-flight construction, hot reload, and disposal.
//
// Callers either register a build recipe up front with TryAddBuilder and
// resolve it later with GetPipeline, or build-and-cache in one step with
// GetOrAddPipeline. Either way the registry returns a stable *Handle whose
// identity survives reloads: executing the handle always runs the entry's
// current pipeline instance.
//
// A recipe may register reload tokens (plain context.Contexts) during its
// build; cancelling one triggers a rebuild under the entry's critical
// section. A successful rebuild atomically swaps the instance behind the
// existing handles; a failed rebuild is reported through the OnReloadError
// hook and leaves the old instance authoritative.
//
// Generic and non-generic pipelines occupy disjoint namespaces even under
// the same key string; the generic surface is the *For[T] function family,
// since Go methods cannot be generic.
package registry
