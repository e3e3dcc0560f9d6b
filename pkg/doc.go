// Package pkg provides the core libraries for hierarchical graph
// visualization.
//
// # Overview
//
// The module renders large graphs at adjustable levels of detail: nodes
// live in a containment hierarchy, any group can be collapsed into a
// single summary node, and every change between two views animates
// smoothly. The pkg directory is organized into four main areas:
//
//  1. [metagraph] - The source of truth (hierarchy, edges, derived attributes)
//  2. [projection] - Pure derivation of the currently drawable graph
//  3. [transition] - Animation planning and frame interpolation
//  4. [scene] - The single-threaded facade tying the three together
//
// # Architecture
//
// The typical data flow:
//
//	Definitions (code, TOML manifest, JSON snapshot)
//	         ↓
//	    [metagraph] package (hierarchy + relational edges)
//	         ↓
//	    [projection] package (expansion set → visible graph)
//	         ↓
//	    [transition] package (plan + interpolate frames)
//	         ↓
//	    frames to a sink (renderer, TUI player, SSE stream)
//
// # Quick Start
//
// Build a graph, expand a group, and receive animated frames:
//
//	import (
//	    "github.com/econic-ai/graphs/pkg/metagraph"
//	    "github.com/econic-ai/graphs/pkg/scene"
//	)
//
//	// 1. Describe the hierarchy
//	store := metagraph.New()
//	store.Define([]metagraph.NodeDef{
//	    {ID: "infra", Kind: metagraph.KindGroup},
//	    {ID: "web-1", Kind: metagraph.KindLeaf, Parent: "infra"},
//	    {ID: "web-2", Kind: metagraph.KindLeaf, Parent: "infra"},
//	})
//	store.AddEdge("web-1", "web-2")
//
//	// 2. Attach a scene with a frame sink
//	sc := scene.New(store, scene.Options{Sink: mySink})
//
//	// 3. Expand: the scene plans the transition and streams frames
//	handle, _ := sc.Expand("infra")
//	<-handle.Done()
//
// # Main Packages
//
// ## Graph State
//
// [metagraph] - The mutable store: a containment hierarchy of leaves and
// groups plus independent relational edges. Maintains derived attributes
// (depth, leaf counts, group centroids) incrementally on every mutation.
//
// [projection] - Pure projection of a store and an expansion set into
// the visible graph. Collapsed groups summarize their subtrees; edges
// re-route to visible representatives and aggregate.
//
// ## Motion
//
// [transition] - Plans the difference between two projections as moving,
// entering, and exiting nodes, then interpolates frames with easing and
// per-node stagger. The Animator owns the frame clock; handles resolve
// with completed, superseded, or cancelled outcomes.
//
// [scene] - Single-threaded facade over store, projection, and animator.
// Structural edits snap, expansion changes animate, listeners observe
// lifecycle events, and Batch coalesces many edits into one update.
//
// ## Persistence and Layout
//
// [snapshot] - Capture/restore of the full graph state (definitions,
// explicit positions, expansion set) as deterministic JSON, plus a TOML
// authoring manifest.
//
// [layout] - Position solvers for visible graphs: a deterministic
// layered solver, a Graphviz adapter, and a caching wrapper. Solved
// positions feed back into the store as explicit positions.
//
// [cache] - Derived-result cache keyed by content hash, with file,
// Redis, and null backends.
//
// ## Support
//
// [observability] - Pluggable hooks for store mutations, projections,
// transitions, and cache traffic.
//
// [errors] - Structured error codes shared by the CLI and HTTP API.
//
// [buildinfo] - Build-time version information injected via ldflags.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...              # All tests
//	go test ./pkg/projection/...   # Specific package
//	go test -run Example           # Examples only
//
// [metagraph]: https://pkg.go.dev/github.com/econic-ai/graphs/pkg/metagraph
// [projection]: https://pkg.go.dev/github.com/econic-ai/graphs/pkg/projection
// [transition]: https://pkg.go.dev/github.com/econic-ai/graphs/pkg/transition
// [scene]: https://pkg.go.dev/github.com/econic-ai/graphs/pkg/scene
// [snapshot]: https://pkg.go.dev/github.com/econic-ai/graphs/pkg/snapshot
// [layout]: https://pkg.go.dev/github.com/econic-ai/graphs/pkg/layout
// [cache]: https://pkg.go.dev/github.com/econic-ai/graphs/pkg/cache
// [observability]: https://pkg.go.dev/github.com/econic-ai/graphs/pkg/observability
// [errors]: https://pkg.go.dev/github.com/econic-ai/graphs/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/econic-ai/graphs/pkg/buildinfo
package pkg
