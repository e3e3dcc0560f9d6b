// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about store mutations, projection passes, transitions, and
// cache operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetStoreHooks(&myStoreHooks{})
//	    observability.SetTransitionHooks(&myTransitionHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Store().OnMutation("add-node", id)
//	observability.Transition().OnSettle(id, "completed", duration)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Store Hooks
// =============================================================================

// StoreHooks receives events from graph store mutations.
type StoreHooks interface {
	// OnMutation records a structural mutation. op is the operation name
	// ("add-node", "remove-node", "reparent", "add-edge", "remove-edge",
	// "set-position", "clear-position") and id the primary node involved.
	OnMutation(op, id string)

	// OnOrphan records a node attached as a root because its requested
	// parent did not exist at the time of the call.
	OnOrphan(id, missingParent string)

	// OnRecompute records a derived-attribute pass (depth, descendant
	// counts, centroids) over the hierarchy.
	OnRecompute(nodeCount int, duration time.Duration)
}

// =============================================================================
// Projection Hooks
// =============================================================================

// ProjectionHooks receives events from projection passes.
type ProjectionHooks interface {
	// OnProject records a completed projection with the visible node and
	// edge counts it produced.
	OnProject(nodeCount, edgeCount int, duration time.Duration)
}

// =============================================================================
// Transition Hooks
// =============================================================================

// TransitionHooks receives events from the transition engine.
type TransitionHooks interface {
	// OnStart records a transition starting, with the size of each plan
	// category.
	OnStart(id string, entering, exiting, moving int)

	// OnSettle records a transition resolving. outcome is "completed" or
	// "superseded".
	OnSettle(id string, outcome string, duration time.Duration)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnMutation(string, string)      {}
func (NoopStoreHooks) OnOrphan(string, string)        {}
func (NoopStoreHooks) OnRecompute(int, time.Duration) {}

// NoopProjectionHooks is a no-op implementation of ProjectionHooks.
type NoopProjectionHooks struct{}

func (NoopProjectionHooks) OnProject(int, int, time.Duration) {}

// NoopTransitionHooks is a no-op implementation of TransitionHooks.
type NoopTransitionHooks struct{}

func (NoopTransitionHooks) OnStart(string, int, int, int)          {}
func (NoopTransitionHooks) OnSettle(string, string, time.Duration) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	storeHooks      StoreHooks      = NoopStoreHooks{}
	projectionHooks ProjectionHooks = NoopProjectionHooks{}
	transitionHooks TransitionHooks = NoopTransitionHooks{}
	cacheHooks      CacheHooks      = NoopCacheHooks{}
	hooksMu         sync.RWMutex
)

// SetStoreHooks registers custom store hooks.
// This should be called once at application startup before any store mutations.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// SetProjectionHooks registers custom projection hooks.
// This should be called once at application startup before any projections.
func SetProjectionHooks(h ProjectionHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		projectionHooks = h
	}
}

// SetTransitionHooks registers custom transition hooks.
// This should be called once at application startup before any transitions.
func SetTransitionHooks(h TransitionHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		transitionHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// Projection returns the registered projection hooks.
func Projection() ProjectionHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return projectionHooks
}

// Transition returns the registered transition hooks.
func Transition() TransitionHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return transitionHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	storeHooks = NoopStoreHooks{}
	projectionHooks = NoopProjectionHooks{}
	transitionHooks = NoopTransitionHooks{}
	cacheHooks = NoopCacheHooks{}
}
