package transition

import (
	"github.com/econic-ai/graphs/pkg/metagraph"
	"github.com/econic-ai/graphs/pkg/projection"
)

// Motion is one node's journey through a transition: the visual state it
// starts from and the state it must land on. From and To are complete
// visible nodes, so a renderer can draw a fading node with its real kind,
// payload, and summary count.
type Motion struct {
	ID   string
	From projection.VisibleNode
	To   projection.VisibleNode

	// Stagger is the node's index in its stagger sequence, or -1 for
	// unstaggered motion.
	Stagger int
}

// Plan is a classified transition between two projections. Every node of
// either projection lands in exactly one category:
//
//   - Moving: visible in both, possibly at different positions
//   - Entering: visible only in the target, grown from its old cover
//   - Exiting: visible only in the source, shrunk toward its new cover
//
// Moving entries whose start and end states are identical are dropped at
// build time; a plan with no entries is a no-op.
type Plan struct {
	Moving   []Motion
	Entering []Motion
	Exiting  []Motion

	target *projection.VisibleGraph
}

// Target returns the projection this plan settles on.
func (p *Plan) Target() *projection.VisibleGraph { return p.target }

// IsStatic reports whether the plan changes nothing visually.
func (p *Plan) IsStatic() bool {
	return len(p.Moving) == 0 && len(p.Entering) == 0 && len(p.Exiting) == 0
}

// BuildPlan classifies the change from one projection to another against
// the store both were (or the target was) projected from.
//
// Entering nodes start at the position of the node that represented them in
// the source projection, which is what makes an expansion look like the
// group splitting apart. When no representative exists (the node was just
// added to the store), the nearest ancestor visible in the source stands
// in; failing that the node fades in at its own target position. Exiting
// nodes run the same logic against the target projection, shrinking into
// their new cover, or fading out in place when they have none.
//
// A nil from is treated as an empty projection: every target node enters.
func BuildPlan(s *metagraph.Store, from, to *projection.VisibleGraph) *Plan {
	p := &Plan{target: to}

	for _, tn := range to.Nodes {
		if from != nil {
			if fn, ok := from.Node(tn.ID); ok {
				if !sameVisual(fn, tn) {
					p.Moving = append(p.Moving, Motion{ID: tn.ID, From: fn, To: tn, Stagger: -1})
				}
				continue
			}
		}
		start := tn
		start.Pos = enterOrigin(s, from, tn)
		start.Scale = 0
		start.Opacity = 0
		p.Entering = append(p.Entering, Motion{
			ID:      tn.ID,
			From:    start,
			To:      tn,
			Stagger: len(p.Entering),
		})
	}

	if from != nil {
		for _, fn := range from.Nodes {
			if to.Contains(fn.ID) {
				continue
			}
			end := fn
			end.Pos = exitTarget(s, to, fn)
			end.Scale = 0
			end.Opacity = 0
			p.Exiting = append(p.Exiting, Motion{
				ID:      fn.ID,
				From:    fn,
				To:      end,
				Stagger: len(p.Exiting),
			})
		}
	}

	return p
}

// sameVisual reports whether two visible states are indistinguishable for
// animation purposes. Non-animated attributes (counts, payload) may differ;
// the target's values take over on the first frame either way.
func sameVisual(a, b projection.VisibleNode) bool {
	return a.Pos == b.Pos && a.Scale == b.Scale && a.Opacity == b.Opacity
}

// enterOrigin finds where an entering node grows from: the position of its
// representative in the source projection, or of the first store ancestor
// the source can place, or its own target position as a last resort.
func enterOrigin(s *metagraph.Store, from *projection.VisibleGraph, n projection.VisibleNode) metagraph.Vec3 {
	if from == nil {
		return n.Pos
	}
	if r, ok := from.RepresentativeOf(n.ID); ok {
		if rn, ok := from.Node(r); ok {
			return rn.Pos
		}
	}
	for _, anc := range s.Ancestors(n.ID) {
		if r, ok := from.RepresentativeOf(anc); ok {
			if rn, ok := from.Node(r); ok {
				return rn.Pos
			}
		}
	}
	return n.Pos
}

// exitTarget finds where an exiting node shrinks toward: the position of
// its representative in the target projection, or of the first store
// ancestor the target can place, or its own current position (fade out in
// place, which also covers nodes just removed from the store).
func exitTarget(s *metagraph.Store, to *projection.VisibleGraph, n projection.VisibleNode) metagraph.Vec3 {
	if r, ok := to.RepresentativeOf(n.ID); ok {
		if rn, ok := to.Node(r); ok {
			return rn.Pos
		}
	}
	for _, anc := range s.Ancestors(n.ID) {
		if r, ok := to.RepresentativeOf(anc); ok {
			if rn, ok := to.Node(r); ok {
				return rn.Pos
			}
		}
	}
	return n.Pos
}
