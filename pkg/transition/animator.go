// Package transition animates the change between two projections. Planning
// classifies every visible node as moving, entering, or exiting; execution
// interpolates frames against a wall clock supplied by the host; exactly one
// transition runs at a time, and starting a new one supersedes the old from
// its current interpolated state, never from a snapped endpoint.
//
// The engine never sleeps and owns no goroutines: the host drives it by
// calling [Animator.Step] with the current time, typically once per display
// tick. This keeps the package free of concurrency and lets tests drive
// animations with a manual clock.
package transition

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/econic-ai/graphs/pkg/observability"
	"github.com/econic-ai/graphs/pkg/projection"
)

// State is the animator's lifecycle state.
type State int

const (
	// StateIdle means no transition is in flight.
	StateIdle State = iota
	// StateRunning means frames are being produced.
	StateRunning
)

// Outcome is how a transition resolved.
type Outcome string

const (
	// OutcomeCompleted means the transition reached its target.
	OutcomeCompleted Outcome = "completed"
	// OutcomeSuperseded means a newer transition took over mid-flight.
	OutcomeSuperseded Outcome = "superseded"
)

// Frame is one interpolated picture of the graph. Nodes holds the target
// projection's nodes (animated ones at interpolated values) followed by the
// exiting nodes mid-fade; Edges is the target projection's edge list for
// the whole run. T is global progress in [0,1]; the frame with Final set
// carries the exact target values.
type Frame struct {
	Nodes []projection.VisibleNode `json:"nodes"`
	Edges []projection.VisibleEdge `json:"edges"`
	T     float64                  `json:"t"`
	Final bool                     `json:"final,omitempty"`
}

// Handle tracks one started transition. The engine is single-threaded, but
// Done is a real channel so hosts may await resolution from another
// goroutine; after Done is closed, Outcome is safe to read anywhere.
type Handle struct {
	id       string
	done     chan struct{}
	outcome  Outcome
	resolved bool
}

func newHandle() *Handle {
	return &Handle{id: uuid.NewString(), done: make(chan struct{})}
}

// ResolvedHandle returns a handle that has already resolved with the given
// outcome. Callers expose it for operations that turn out to be visual
// no-ops, so that code awaiting Done never hangs.
func ResolvedHandle(o Outcome) *Handle {
	h := newHandle()
	h.resolve(o)
	return h
}

// ID returns the transition's unique identifier, as seen by hooks and
// lifecycle events.
func (h *Handle) ID() string { return h.id }

// Done is closed when the transition resolves.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Outcome returns how the transition resolved, and false while it is still
// in flight.
func (h *Handle) Outcome() (Outcome, bool) {
	if !h.resolved {
		return "", false
	}
	return h.outcome, true
}

func (h *Handle) resolve(o Outcome) {
	if h.resolved {
		return
	}
	h.outcome = o
	h.resolved = true
	close(h.done)
}

// Animator executes plans. It is owned by a single caller (usually a scene)
// and is not safe for concurrent use.
//
// The zero value is ready to use.
type Animator struct {
	state   State
	plan    *Plan
	opts    Options
	startAt time.Time
	handle  *Handle

	byID    map[string]*Motion // moving + entering, looked up per target node
	last    *Frame             // most recent emitted frame
	pending *Frame             // commit frame awaiting the next Step
}

// State returns the animator's current lifecycle state.
func (a *Animator) State() State { return a.state }

// Running reports whether a transition is in flight.
func (a *Animator) Running() bool { return a.state == StateRunning }

// Handle returns the handle of the most recently started transition, or nil
// if none was ever started.
func (a *Animator) Handle() *Handle { return a.handle }

// Start begins executing a plan at the given time and returns its handle.
// A transition already in flight is superseded: its handle resolves
// [OutcomeSuperseded] immediately. Callers wanting the supersede to pick up
// mid-flight should build the new plan from [Animator.CurrentVisible]
// before calling Start.
//
// A static plan or a zero duration resolves [OutcomeCompleted] before Start
// returns; the commit frame is still emitted by the next Step so the sink
// always sees the settled state.
func (a *Animator) Start(plan *Plan, opts Options, now time.Time) (*Handle, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	if a.state == StateRunning {
		a.handle.resolve(OutcomeSuperseded)
		observability.Transition().OnSettle(a.handle.id, string(OutcomeSuperseded), now.Sub(a.startAt))
	}

	h := newHandle()
	a.handle = h
	observability.Transition().OnStart(h.id, len(plan.Entering), len(plan.Exiting), len(plan.Moving))

	if plan.IsStatic() || opts.Duration == 0 {
		a.state = StateIdle
		a.plan = nil
		a.byID = nil
		f := commitFrame(plan)
		a.pending = &f
		a.last = &f
		h.resolve(OutcomeCompleted)
		observability.Transition().OnSettle(h.id, string(OutcomeCompleted), 0)
		return h, nil
	}

	a.state = StateRunning
	a.plan = plan
	a.opts = opts
	a.startAt = now
	a.pending = nil
	a.byID = make(map[string]*Motion, len(plan.Moving)+len(plan.Entering))
	for i := range plan.Moving {
		a.byID[plan.Moving[i].ID] = &plan.Moving[i]
	}
	for i := range plan.Entering {
		a.byID[plan.Entering[i].ID] = &plan.Entering[i]
	}
	return h, nil
}

// Step advances the animation to the given wall-clock time and returns the
// frame to draw. The second return is false when there is nothing to emit:
// the animator is idle and no commit frame is outstanding.
//
// When the clock reaches or passes the duration, the emitted frame is the
// exact target projection (no accumulated interpolation error), Final is
// set, the handle resolves [OutcomeCompleted], and the animator returns to
// idle.
func (a *Animator) Step(now time.Time) (Frame, bool) {
	if a.pending != nil {
		f := *a.pending
		a.pending = nil
		return f, true
	}
	if a.state != StateRunning {
		return Frame{}, false
	}

	t := float64(now.Sub(a.startAt)) / float64(a.opts.Duration)
	if t >= 1 {
		f := commitFrame(a.plan)
		elapsed := now.Sub(a.startAt)
		a.state = StateIdle
		a.plan = nil
		a.byID = nil
		a.last = &f
		a.handle.resolve(OutcomeCompleted)
		observability.Transition().OnSettle(a.handle.id, string(OutcomeCompleted), elapsed)
		return f, true
	}
	if t < 0 {
		t = 0
	}

	f := a.interpolate(t)
	a.last = &f
	return f, true
}

// CurrentVisible returns the most recently emitted frame as a graph: the
// state a superseding plan should depart from. Returns nil before any frame
// has been produced.
func (a *Animator) CurrentVisible() *projection.VisibleGraph {
	if a.last == nil {
		return nil
	}
	return projection.NewGraph(a.last.Nodes, a.last.Edges)
}

// interpolate renders the frame at global progress t (0 < t < 1).
func (a *Animator) interpolate(t float64) Frame {
	target := a.plan.Target()
	f := Frame{
		Nodes: make([]projection.VisibleNode, 0, len(target.Nodes)+len(a.plan.Exiting)),
		Edges: target.Edges,
		T:     t,
	}

	for _, tn := range target.Nodes {
		m, ok := a.byID[tn.ID]
		if !ok {
			f.Nodes = append(f.Nodes, tn)
			continue
		}
		f.Nodes = append(f.Nodes, a.lerpMotion(m, t))
	}
	for i := range a.plan.Exiting {
		f.Nodes = append(f.Nodes, a.lerpMotion(&a.plan.Exiting[i], t))
	}
	return f
}

// lerpMotion evaluates one motion at global progress t, applying the
// node's stagger window and the easing curve.
func (a *Animator) lerpMotion(m *Motion, t float64) projection.VisibleNode {
	p := a.opts.Easing.Apply(a.localProgress(m, t))
	n := m.To
	n.Pos = m.From.Pos.Lerp(m.To.Pos, p)
	n.Scale = m.From.Scale + (m.To.Scale-m.From.Scale)*p
	n.Opacity = m.From.Opacity + (m.To.Opacity-m.From.Opacity)*p
	return n
}

// localProgress maps global progress onto a motion's stagger window.
// Node i waits i*stagger of wall time, then runs over the remainder of the
// timeline, so every window closes exactly when the global clock does. The
// window start is capped at maxStaggerShare of the timeline.
func (a *Animator) localProgress(m *Motion, t float64) float64 {
	if m.Stagger < 0 || a.opts.Stagger == 0 {
		return t
	}
	delay := float64(m.Stagger) * float64(a.opts.Stagger) / float64(a.opts.Duration)
	if delay > maxStaggerShare {
		delay = maxStaggerShare
	}
	p := (t - delay) / (1 - delay)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// commitFrame renders a plan's exact target as the final frame. The node
// slice is cloned because callers may hold frames across later projections.
func commitFrame(p *Plan) Frame {
	target := p.Target()
	return Frame{
		Nodes: slices.Clone(target.Nodes),
		Edges: target.Edges,
		T:     1,
		Final: true,
	}
}
