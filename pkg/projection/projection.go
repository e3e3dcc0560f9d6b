// Package projection derives the drawable graph from a meta-graph and an
// expansion set. The projection is a pure function of its inputs: no caller
// state, no incremental updates, and deterministic output order, so equal
// inputs always produce byte-for-byte equal projections.
//
// The rules are:
//
//   - A leaf on a fully expanded path is visible as itself.
//   - A collapsed group is visible as a summary node and represents every
//     node in its subtree.
//   - An expanded group is invisible and represents nothing; its children
//     take its place.
//
// Relational edges are re-routed to the visible representatives of their
// endpoints and aggregated per ordered pair. Edges whose endpoints share a
// representative (self-loops after aggregation) and edges with an unmapped
// endpoint (inside an expanded group) are dropped.
package projection

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
	"time"

	"github.com/econic-ai/graphs/pkg/metagraph"
	"github.com/econic-ai/graphs/pkg/observability"
)

// VisibleNode is one drawable node of a projection. The same type carries
// interpolated frames during transitions: Scale and Opacity are 1 at rest
// and swept by the transition engine while nodes enter or exit.
type VisibleNode struct {
	ID   string         `json:"id"`
	Kind metagraph.Kind `json:"kind"`
	Pos  metagraph.Vec3 `json:"pos"`

	// RepresentsCount is the number of leaf descendants a collapsed group
	// stands in for. Zero for leaves.
	RepresentsCount int `json:"representsCount,omitempty"`

	Depth   int     `json:"depth"`
	Data    any     `json:"data,omitempty"`
	Scale   float64 `json:"scale"`
	Opacity float64 `json:"opacity"`
}

// VisibleEdge is one drawable edge of a projection, aggregated over every
// underlying relational edge whose endpoints map to the same ordered pair
// of representatives.
type VisibleEdge struct {
	From string `json:"from"`
	To   string `json:"to"`

	// UnderlyingCount is the number of relational edges this edge stands
	// in for. Always at least 1.
	UnderlyingCount int `json:"underlyingCount"`
}

// VisibleGraph is the result of a projection. Nodes is in depth-first
// pre-order over the hierarchy (roots in insertion order); Edges is in
// first-encounter order of the underlying edge list. Both orders are
// deterministic for equal inputs.
type VisibleGraph struct {
	Nodes []VisibleNode `json:"nodes"`
	Edges []VisibleEdge `json:"edges"`

	index map[string]int    // visible ID -> position in Nodes
	repr  map[string]string // meta ID -> visible representative ID
}

// Node returns the visible node with the given ID.
func (g *VisibleGraph) Node(id string) (VisibleNode, bool) {
	if i, ok := g.index[id]; ok {
		return g.Nodes[i], true
	}
	return VisibleNode{}, false
}

// Contains reports whether id is visible in this projection.
func (g *VisibleGraph) Contains(id string) bool {
	_, ok := g.index[id]
	return ok
}

// RepresentativeOf returns the visible node standing in for the given meta
// node: the node itself when visible, otherwise the collapsed ancestor
// closest to the root (the only visible one on its path). Returns false for
// unknown IDs and for expanded groups, which have no representative.
func (g *VisibleGraph) RepresentativeOf(metaID string) (string, bool) {
	r, ok := g.repr[metaID]
	return r, ok
}

// IDs returns the visible node IDs in projection order.
func (g *VisibleGraph) IDs() []string {
	ids := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// Hash returns a content hash over the nodes and edges in order. Equal
// projections hash equally, so derived results (layouts, rendered
// artifacts) can be cached under it.
func (g *VisibleGraph) Hash() string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	_ = enc.Encode(g.Nodes)
	_ = enc.Encode(g.Edges)
	return hex.EncodeToString(h.Sum(nil))
}

// add appends a node and indexes it.
func (g *VisibleGraph) add(n VisibleNode) {
	g.index[n.ID] = len(g.Nodes)
	g.Nodes = append(g.Nodes, n)
}

// NewGraph builds a VisibleGraph directly from node and edge lists, with
// every node representing itself. This wraps interpolated frames (and other
// synthetic states) in the same type projections produce; hidden-node
// representative lookups are only meaningful on graphs built by [Project].
func NewGraph(nodes []VisibleNode, edges []VisibleEdge) *VisibleGraph {
	g := &VisibleGraph{
		Nodes: slices.Clone(nodes),
		Edges: slices.Clone(edges),
		index: make(map[string]int, len(nodes)),
		repr:  make(map[string]string, len(nodes)),
	}
	for i, n := range g.Nodes {
		g.index[n.ID] = i
		g.repr[n.ID] = n.ID
	}
	return g
}

// Project computes the visible graph for a store and expansion set.
// It runs in O(N+E), allocates a fresh result, and never mutates its
// inputs. IDs in exp that are unknown or name leaves are ignored.
func Project(s *metagraph.Store, exp Expansion) *VisibleGraph {
	start := time.Now()
	g := &VisibleGraph{
		index: make(map[string]int),
		repr:  make(map[string]string),
	}

	// Node pass: iterative DFS from the roots. Each frame carries the
	// collapsed group covering it, "" while the path is fully expanded.
	type frame struct {
		id    string
		cover string
	}
	roots := s.Roots()
	stack := make([]frame, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{id: roots[i]})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n, _ := s.Node(f.id)

		cover := f.cover
		switch {
		case cover != "":
			// Hidden inside a collapsed subtree.
			g.repr[f.id] = cover
		case n.IsGroup() && !exp.Has(f.id):
			// Collapsed group: the summary node for its whole subtree.
			g.add(VisibleNode{
				ID:              n.ID,
				Kind:            n.Kind,
				Pos:             n.Pos,
				RepresentsCount: n.DescendantCount,
				Depth:           n.Depth,
				Data:            n.Data,
				Scale:           1,
				Opacity:         1,
			})
			g.repr[f.id] = f.id
			cover = f.id
		case n.IsGroup():
			// Expanded group: invisible and unmapped. Edges reaching for
			// it directly drop until it collapses again.
		default:
			g.add(VisibleNode{
				ID:      n.ID,
				Kind:    n.Kind,
				Pos:     n.Pos,
				Depth:   n.Depth,
				Data:    n.Data,
				Scale:   1,
				Opacity: 1,
			})
			g.repr[f.id] = f.id
		}

		children := n.Children()
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{id: children[i], cover: cover})
		}
	}

	// Edge pass: re-route to representatives and aggregate per ordered pair.
	type pair struct{ from, to string }
	at := make(map[pair]int)
	for _, e := range s.Edges() {
		rf, okF := g.repr[e.From]
		rt, okT := g.repr[e.To]
		if !okF || !okT || rf == rt {
			continue
		}
		p := pair{from: rf, to: rt}
		if i, ok := at[p]; ok {
			g.Edges[i].UnderlyingCount++
			continue
		}
		at[p] = len(g.Edges)
		g.Edges = append(g.Edges, VisibleEdge{From: rf, To: rt, UnderlyingCount: 1})
	}

	observability.Projection().OnProject(len(g.Nodes), len(g.Edges), time.Since(start))
	return g
}
