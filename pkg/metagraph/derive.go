package metagraph

import (
	"time"

	"github.com/econic-ai/graphs/pkg/observability"
)

// recompute refreshes every derived attribute: depths top-down, descendant
// counts and group centroids bottom-up (children before parents). One
// iterative walk does both, setting depth on the pre-visit and aggregating
// on the post-visit. Hierarchies routinely exceed stack-friendly depths, so
// no recursion.
//
// Runs in O(N) and is called after every structural mutation.
func (s *Store) recompute() {
	start := time.Now()

	type frame struct {
		id   string
		post bool
	}
	roots := s.Roots()
	stack := make([]frame, 0, len(s.nodes))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{id: roots[i]})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := s.nodes[f.id]

		if !f.post {
			if n.parent == "" {
				n.Depth = 0
			} else {
				n.Depth = s.nodes[n.parent].Depth + 1
			}
			stack = append(stack, frame{id: f.id, post: true})
			for i := len(n.children) - 1; i >= 0; i-- {
				stack = append(stack, frame{id: n.children[i]})
			}
			continue
		}

		// Post-visit: every child has settled.
		if n.Kind == KindLeaf {
			n.DescendantCount = 0
			continue
		}
		count := 0
		sum := Vec3{}
		for _, childID := range n.children {
			c := s.nodes[childID]
			if c.Kind == KindLeaf {
				count++
			} else {
				count += c.DescendantCount
			}
			sum = sum.Add(c.Pos)
		}
		n.DescendantCount = count
		if n.PosMode == PositionCentroid && len(n.children) > 0 {
			n.Pos = sum.Scale(1 / float64(len(n.children)))
		}
	}

	observability.Store().OnRecompute(len(s.nodes), time.Since(start))
}

// recomputeCentroids refreshes centroid positions along the chain from id up
// to its root. Position-only changes use this instead of a full recompute:
// counts and depths are unaffected, and only ancestors can observe the moved
// position.
func (s *Store) recomputeCentroids(id string) {
	for cur := id; cur != ""; {
		n := s.nodes[cur]
		if n.PosMode == PositionCentroid && len(n.children) > 0 {
			sum := Vec3{}
			for _, childID := range n.children {
				sum = sum.Add(s.nodes[childID].Pos)
			}
			n.Pos = sum.Scale(1 / float64(len(n.children)))
		}
		cur = n.parent
	}
}
