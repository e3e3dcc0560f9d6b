package layout

import (
	"context"
	"maps"
	"slices"

	"github.com/econic-ai/graphs/pkg/metagraph"
	"github.com/econic-ai/graphs/pkg/projection"
)

// Layered is the built-in solver. It assigns nodes to horizontal rows
// with a longest-path layering over the visible edges and spreads each
// row across the frame.
//
// Rows are computed by topological traversal (Kahn's algorithm): nodes
// without incoming edges start at row 0 and every other node lands one
// past the deepest of its predecessors, so edges point downward. Nodes
// with no incident edges fall back to their hierarchy depth, which bands
// sibling groups together when a projection carries no relational edges.
// Nodes on a cycle never reach zero in-degree and keep the deepest row
// their processed predecessors pushed them to.
//
// The output is deterministic: traversal order is seeded from the
// projection's node order and each row keeps that order left to right.
type Layered struct{}

// Name identifies the provider in cache keys and logs.
func (Layered) Name() string { return "layered" }

// Positions computes a position for every visible node.
func (Layered) Positions(ctx context.Context, g *projection.VisibleGraph, opts Options) (map[string]metagraph.Vec3, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	rows := assignRows(g)

	// Group nodes per row, keeping projection order within each row.
	byRow := make(map[int][]string)
	for _, n := range g.Nodes {
		r := rows[n.ID]
		byRow[r] = append(byRow[r], n.ID)
	}
	order := slices.Sorted(maps.Keys(byRow))

	positions := make(map[string]metagraph.Vec3, len(g.Nodes))
	rowGap := opts.Height
	if len(order) > 1 {
		rowGap = opts.Height / float64(len(order))
	}
	for i, r := range order {
		y := (float64(i) + 0.5) * rowGap
		ids := byRow[r]

		gap := min(opts.Spacing, opts.Width/float64(len(ids)))
		startX := (opts.Width - gap*float64(len(ids)-1)) / 2
		for j, id := range ids {
			positions[id] = metagraph.Vec3{X: startX + gap*float64(j), Y: y}
		}
	}
	return positions, nil
}

// assignRows computes the row per visible node: one past the deepest
// predecessor for connected nodes, the hierarchy depth for nodes with no
// incident edges.
func assignRows(g *projection.VisibleGraph) map[string]int {
	rows := make(map[string]int, len(g.Nodes))
	inDegree := make(map[string]int, len(g.Nodes))
	children := make(map[string][]string, len(g.Nodes))
	hasEdge := make(map[string]bool, len(g.Nodes))

	for _, e := range g.Edges {
		inDegree[e.To]++
		children[e.From] = append(children[e.From], e.To)
		hasEdge[e.From], hasEdge[e.To] = true, true
	}

	queue := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, child := range children[curr] {
			if row := rows[curr] + 1; row > rows[child] {
				rows[child] = row
			}
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	for _, n := range g.Nodes {
		if !hasEdge[n.ID] {
			rows[n.ID] = n.Depth
		}
	}
	return rows
}

// Ensure Layered implements Provider.
var _ Provider = Layered{}
