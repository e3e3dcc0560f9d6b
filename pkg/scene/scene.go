// Package scene ties the graph store, the projection engine, and the
// transition engine into one caller-facing surface.
//
// A Scene owns a store and an expansion state, keeps the last committed
// projection, and pushes every visual change to a FrameSink. Structural
// mutations snap: the new projection is pushed immediately and any running
// transition is superseded. Expansion changes animate: the scene plans a
// transition from the current visual state and the host drives it by
// calling Step once per display tick (or by running Play with a clock).
//
// # Usage
//
// Create a scene over a store and mutate it:
//
//	sc := scene.New(store, scene.Options{Sink: sink})
//	sc.AddNode(metagraph.NodeDef{ID: "web-3", Kind: metagraph.KindLeaf, Parent: "servers"})
//
//	h, _ := sc.Expand("servers")
//	for now := range clock.Tick() {
//	    sc.Step(now)
//	}
//	<-h.Done()
//
// Everything is single-threaded: the scene must be driven from one
// goroutine, typically the host's frame loop.
package scene

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/econic-ai/graphs/pkg/metagraph"
	"github.com/econic-ai/graphs/pkg/projection"
	"github.com/econic-ai/graphs/pkg/snapshot"
	"github.com/econic-ai/graphs/pkg/transition"
)

// FrameSink receives the visible graph after every committed or
// interpolated change. Semantically each call means "the displayed graph is
// now exactly this"; the sink must not retain the slices past the call.
type FrameSink interface {
	SetGraph(nodes []projection.VisibleNode, edges []projection.VisibleEdge)
}

// Options configures a scene.
type Options struct {
	// Sink receives every frame. May be nil for headless use; queries and
	// events still work.
	Sink FrameSink

	// Defaults are the transition options used when an animated call does
	// not pass its own. The zero value means transition.DefaultOptions.
	Defaults transition.Options

	// Clock supplies timestamps for transition starts and synchronous
	// commits. Nil means the wall clock.
	Clock transition.Clock

	// Logger defaults to log.Default.
	Logger *log.Logger
}

// Scene is the single-threaded facade over a store, its expansion state,
// and the animator. Not safe for concurrent use.
type Scene struct {
	store  *metagraph.Store
	exp    projection.Expansion
	anim   transition.Animator
	sink   FrameSink
	clock  transition.Clock
	logger *log.Logger

	defaults  transition.Options
	listeners []Listener

	visible *projection.VisibleGraph // last committed projection
	target  *projection.VisibleGraph // in-flight target, committed on settle
	cur     *transition.Handle       // transition bracketed by listener events

	batchDepth int
	dirty      bool
}

// New creates a scene over the given store. A nil store starts empty. The
// initial projection (everything collapsed) is computed and pushed to the
// sink before New returns.
func New(store *metagraph.Store, opts Options) *Scene {
	if store == nil {
		store = metagraph.New()
	}
	defaults := opts.Defaults
	if defaults.Duration == 0 && defaults.Stagger == 0 && defaults.Easing.IsZero() {
		defaults = transition.DefaultOptions()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	sc := &Scene{
		store:    store,
		exp:      projection.NewExpansion(),
		sink:     opts.Sink,
		clock:    opts.Clock,
		logger:   logger,
		defaults: defaults,
	}
	sc.visible = projection.Project(sc.store, sc.exp)
	sc.push(sc.visible)
	return sc
}

// =============================================================================
// Structural Mutations
// =============================================================================

// AddNode adds one node to the store and snaps the projection.
func (sc *Scene) AddNode(def metagraph.NodeDef) error {
	if err := sc.store.AddNode(def); err != nil {
		return err
	}
	sc.structuralChanged("add-node", def.ID)
	return nil
}

// Define applies a batch of definitions atomically and snaps once.
func (sc *Scene) Define(defs []metagraph.NodeDef) error {
	if err := sc.store.Define(defs); err != nil {
		return err
	}
	sc.structuralChanged("define", "")
	return nil
}

// RemoveNode removes a node, promoting its children, and snaps.
func (sc *Scene) RemoveNode(id string) {
	sc.store.RemoveNode(id)
	sc.structuralChanged("remove-node", id)
}

// Reparent moves a node to a new parent and snaps.
func (sc *Scene) Reparent(id, newParent string) error {
	if err := sc.store.Reparent(id, newParent); err != nil {
		return err
	}
	sc.structuralChanged("reparent", id)
	return nil
}

// AddEdge adds a relational edge and snaps.
func (sc *Scene) AddEdge(from, to string) {
	sc.store.AddEdge(from, to)
	sc.structuralChanged("add-edge", from)
}

// RemoveEdge removes all parallel edges between two nodes and snaps.
func (sc *Scene) RemoveEdge(from, to string) {
	sc.store.RemoveEdge(from, to)
	sc.structuralChanged("remove-edge", from)
}

// SetPosition pins a node to an explicit position and snaps.
func (sc *Scene) SetPosition(id string, pos metagraph.Vec3) {
	sc.store.SetPosition(id, pos)
	sc.structuralChanged("set-position", id)
}

// ClearPosition returns a group to derived centroid placement and snaps.
func (sc *Scene) ClearPosition(id string) {
	sc.store.ClearPosition(id)
	sc.structuralChanged("clear-position", id)
}

// structuralChanged fires the listener event and snaps the projection, or
// defers the snap when inside a batch.
func (sc *Scene) structuralChanged(op, id string) {
	sc.logger.Debug("structural change", "op", op, "id", id)
	sc.fireStructuralChange(op, id)
	if sc.batchDepth > 0 {
		sc.dirty = true
		return
	}
	sc.commitSnap()
}

// =============================================================================
// Batching
// =============================================================================

// Batch runs fn with snapping deferred: any number of mutations inside
// reproject exactly once, when the outermost batch ends. Structural-change
// events still fire per mutation.
func (sc *Scene) Batch(fn func()) {
	sc.batchDepth++
	defer func() {
		sc.batchDepth--
		if sc.batchDepth == 0 && sc.dirty {
			sc.dirty = false
			sc.commitSnap()
		}
	}()
	fn()
}

// BatchAnimated runs fn like Batch, then animates from the pre-batch visual
// state to the resulting projection instead of snapping. This is how a
// structural reload (for example a watched manifest changing on disk)
// morphs into the new graph rather than jumping.
func (sc *Scene) BatchAnimated(fn func(), opts ...transition.Options) (*transition.Handle, error) {
	o := sc.pick(opts)
	if err := o.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	sc.batchDepth++
	fn()
	sc.batchDepth--
	if sc.batchDepth > 0 {
		// Nested inside an outer batch: leave the snap to it.
		return transition.ResolvedHandle(transition.OutcomeCompleted), nil
	}
	sc.dirty = false
	return sc.startTransition(projection.Project(sc.store, sc.exp), o)
}

// =============================================================================
// Queries
// =============================================================================

// Store returns the underlying store. Mutating it directly bypasses
// snapping and events; prefer the scene's mutation methods.
func (sc *Scene) Store() *metagraph.Store { return sc.store }

// Node returns a store node by ID.
func (sc *Scene) Node(id string) (*metagraph.Node, bool) { return sc.store.Node(id) }

// Children returns the direct child IDs of a node.
func (sc *Scene) Children(id string) []string { return sc.store.Children(id) }

// Parent returns a node's parent ID, or empty for roots and unknown IDs.
func (sc *Scene) Parent(id string) string { return sc.store.Parent(id) }

// Ancestors returns the chain from a node's parent up to its root.
func (sc *Scene) Ancestors(id string) []string { return sc.store.Ancestors(id) }

// Descendants returns a node's subtree in depth-first pre-order.
func (sc *Scene) Descendants(id string) []string { return sc.store.Descendants(id) }

// Roots returns all root IDs in insertion order.
func (sc *Scene) Roots() []string { return sc.store.Roots() }

// Nodes returns every store node in insertion order.
func (sc *Scene) Nodes() []*metagraph.Node { return sc.store.Nodes() }

// Edges returns a copy of the store's relational edges.
func (sc *Scene) Edges() []metagraph.Edge { return sc.store.Edges() }

// Visible returns the last committed projection. During a transition this
// is still the previous state; the in-flight picture goes to the sink.
func (sc *Scene) Visible() *projection.VisibleGraph { return sc.visible }

// Expanded returns a copy of the current expansion state.
func (sc *Scene) Expanded() projection.Expansion { return sc.exp.Clone() }

// IsExpanded reports whether a group is currently expanded.
func (sc *Scene) IsExpanded(id string) bool { return sc.exp.Has(id) }

// RepresentativeOf returns the visible node that stands in for id in the
// last committed projection.
func (sc *Scene) RepresentativeOf(id string) (string, bool) {
	return sc.visible.RepresentativeOf(id)
}

// Running reports whether a transition is in flight.
func (sc *Scene) Running() bool { return sc.anim.Running() }

// =============================================================================
// State Snapshot
// =============================================================================

// ExportState captures the store and expansion as a snapshot.
func (sc *Scene) ExportState() snapshot.Snapshot {
	return snapshot.Capture(sc.store, sc.exp)
}

// ImportState replaces the scene's store and expansion from a snapshot and
// snaps to the restored state. The previous store is discarded.
func (sc *Scene) ImportState(snap snapshot.Snapshot) error {
	store, exp, err := snapshot.Restore(snap)
	if err != nil {
		return err
	}
	sc.store = store
	sc.exp = exp
	sc.structuralChanged("import", "")
	return nil
}

// =============================================================================
// Internals
// =============================================================================

// commitSnap reprojects and pushes the result as the committed state. A
// running transition is superseded; its exit is reported before the new
// state is announced.
func (sc *Scene) commitSnap() {
	to := projection.Project(sc.store, sc.exp)

	if sc.anim.Running() {
		old := sc.cur
		sc.cur = nil
		sc.target = to
		// Zero duration resolves the old handle as superseded and queues
		// the commit frame, which the Step below delivers.
		if _, err := sc.anim.Start(transition.BuildPlan(sc.store, nil, to), transition.Options{Duration: 0}, sc.now()); err == nil {
			if old != nil {
				if out, ok := old.Outcome(); ok {
					sc.fireTransitionEnd(old.ID(), out)
				}
			}
			sc.Step(sc.now())
			return
		}
	}

	sc.visible = to
	sc.push(to)
	sc.fireVisibleGraphChange(to)
}

func (sc *Scene) push(g *projection.VisibleGraph) {
	if sc.sink == nil {
		return
	}
	sc.sink.SetGraph(g.Nodes, g.Edges)
}

func (sc *Scene) pick(opts []transition.Options) transition.Options {
	if len(opts) > 0 {
		return opts[0]
	}
	return sc.defaults
}

func (sc *Scene) now() time.Time {
	if sc.clock != nil {
		return sc.clock.Now()
	}
	return time.Now()
}
