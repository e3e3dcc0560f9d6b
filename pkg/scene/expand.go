package scene

import (
	"github.com/econic-ai/graphs/pkg/projection"
	"github.com/econic-ai/graphs/pkg/transition"
)

// =============================================================================
// Expansion Surface
// =============================================================================

// SetExpanded replaces the expansion state without animating: the new
// projection is committed and pushed immediately. Unknown and leaf IDs are
// kept inert, the way projection treats them.
func (sc *Scene) SetExpanded(ids ...string) {
	sc.exp = projection.NewExpansion(ids...)
	if sc.batchDepth > 0 {
		sc.dirty = true
		return
	}
	sc.commitSnap()
}

// Expand marks a group expanded and animates its children growing out of
// the summary node. The expansion state changes before the animation
// starts; the returned handle resolves when the transition settles.
//
// Expanding a leaf, an unknown ID, or an already-expanded group changes
// nothing and returns an already-resolved handle.
func (sc *Scene) Expand(id string, opts ...transition.Options) (*transition.Handle, error) {
	n, ok := sc.store.Node(id)
	if !ok || n.IsLeaf() || sc.exp.Has(id) {
		return transition.ResolvedHandle(transition.OutcomeCompleted), nil
	}
	o := sc.pick(opts)
	if err := o.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	sc.fireBeforeExpand(id)
	sc.exp.Add(id)
	sc.fireAfterExpand(id)
	return sc.startTransition(projection.Project(sc.store, sc.exp), o)
}

// Collapse removes a group from the expansion state and animates its
// visible descendants shrinking into the summary node. Collapsing a group
// that is not expanded returns an already-resolved handle.
func (sc *Scene) Collapse(id string, opts ...transition.Options) (*transition.Handle, error) {
	if !sc.exp.Has(id) {
		return transition.ResolvedHandle(transition.OutcomeCompleted), nil
	}
	o := sc.pick(opts)
	if err := o.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	sc.fireBeforeCollapse(id)
	sc.exp.Remove(id)
	sc.fireAfterCollapse(id)
	return sc.startTransition(projection.Project(sc.store, sc.exp), o)
}

// Toggle expands a collapsed group or collapses an expanded one.
func (sc *Scene) Toggle(id string, opts ...transition.Options) (*transition.Handle, error) {
	if sc.exp.Has(id) {
		return sc.Collapse(id, opts...)
	}
	return sc.Expand(id, opts...)
}

// TransitionTo animates to an arbitrary expansion state in one plan. The
// expansion commits at call time; no per-group expand or collapse events
// fire, only the transition bracket.
func (sc *Scene) TransitionTo(exp projection.Expansion, opts ...transition.Options) (*transition.Handle, error) {
	o := sc.pick(opts)
	if err := o.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	sc.exp = exp.Clone()
	return sc.startTransition(projection.Project(sc.store, sc.exp), o)
}

// startTransition plans a transition from the current visual state to the
// given projection and starts it. Options must already be validated.
func (sc *Scene) startTransition(to *projection.VisibleGraph, o transition.Options) (*transition.Handle, error) {
	from := sc.visible
	if sc.anim.Running() {
		if cv := sc.anim.CurrentVisible(); cv != nil {
			from = cv
		}
	}
	plan := transition.BuildPlan(sc.store, from, to)

	old := sc.cur
	sc.cur = nil
	h, err := sc.anim.Start(plan, o, sc.now())
	if err != nil {
		return nil, err
	}
	sc.target = to

	if old != nil {
		if out, ok := old.Outcome(); ok {
			sc.fireTransitionEnd(old.ID(), out)
		}
	}
	sc.cur = h
	sc.fireTransitionStart(h.ID())
	sc.logger.Debug("transition started",
		"id", h.ID(),
		"moving", len(plan.Moving),
		"entering", len(plan.Entering),
		"exiting", len(plan.Exiting),
		"duration", o.Duration)

	// Static and zero-duration plans resolve inside Start; deliver their
	// commit frame right away so the sink settles synchronously.
	if _, done := h.Outcome(); done {
		sc.Step(sc.now())
	}
	return h, nil
}
