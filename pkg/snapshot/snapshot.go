// Package snapshot serializes a graph store and its expansion state.
//
// A Snapshot is the plain structural export of a scene: node definitions,
// relational edges, the set of expanded groups, and the explicitly placed
// positions. Centroid positions are derived data and deliberately absent;
// restoring a snapshot recomputes them. Round-tripping through Capture and
// Restore reproduces an equivalent store: same nodes, same hierarchy, same
// edges, same expansion, same explicit positions.
//
// Two on-disk formats are supported: canonical JSON (Marshal, Write,
// WriteFile and their Read counterparts) and a TOML authoring manifest
// (ReadManifest) meant to be written by hand. Load picks the codec from the
// file extension.
package snapshot

import (
	"fmt"
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/econic-ai/graphs/pkg/metagraph"
	"github.com/econic-ai/graphs/pkg/projection"
)

// NodeDef is one node in a snapshot. Positions live in the snapshot's
// Positions map, keyed by ID, so that derived (centroid) placements never
// leak into the export.
type NodeDef struct {
	ID     string         `json:"id"`
	Kind   metagraph.Kind `json:"kind"`
	Parent string         `json:"parent,omitempty"`
	Data   any            `json:"data,omitempty"`
}

// Validate checks the definition is well formed.
func (d NodeDef) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.ID, validation.Required),
		validation.Field(&d.Kind, validation.In(metagraph.KindLeaf, metagraph.KindGroup)),
	)
}

// EdgeDef is one relational edge in a snapshot.
type EdgeDef struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Validate checks both endpoints are present.
func (d EdgeDef) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.From, validation.Required),
		validation.Field(&d.To, validation.Required),
	)
}

// Snapshot is the export format for a store plus its expansion state.
type Snapshot struct {
	Nodes     []NodeDef                 `json:"nodes"`
	Edges     []EdgeDef                 `json:"edges,omitempty"`
	Expanded  []string                  `json:"expanded,omitempty"`
	Positions map[string]metagraph.Vec3 `json:"positions,omitempty"`
}

// Validate checks every definition in the snapshot. Structural rules that
// need the whole picture (duplicate IDs, leaf parents, hierarchy cycles)
// are enforced by Restore, which delegates them to the store.
func (s *Snapshot) Validate() error {
	if err := validation.Validate(s.Nodes); err != nil {
		return fmt.Errorf("nodes: %w", err)
	}
	if err := validation.Validate(s.Edges); err != nil {
		return fmt.Errorf("edges: %w", err)
	}
	return nil
}

// Capture exports the store and expansion as a snapshot. Nodes and edges
// are sorted so output is deterministic; the hierarchy order is rebuilt by
// Restore, not by position in the slice. Only explicitly placed positions
// are captured.
func Capture(s *metagraph.Store, exp projection.Expansion) Snapshot {
	snap := Snapshot{
		Expanded:  exp.IDs(),
		Positions: make(map[string]metagraph.Vec3),
	}

	for _, n := range s.Nodes() {
		snap.Nodes = append(snap.Nodes, NodeDef{
			ID:     n.ID,
			Kind:   n.Kind,
			Parent: n.Parent(),
			Data:   n.Data,
		})
		if n.PosMode == metagraph.PositionExplicit {
			snap.Positions[n.ID] = n.Pos
		}
	}
	slices.SortFunc(snap.Nodes, func(a, b NodeDef) int {
		return strings.Compare(a.ID, b.ID)
	})

	for _, e := range s.Edges() {
		snap.Edges = append(snap.Edges, EdgeDef{From: e.From, To: e.To})
	}
	slices.SortFunc(snap.Edges, func(a, b EdgeDef) int {
		if c := strings.Compare(a.From, b.From); c != 0 {
			return c
		}
		return strings.Compare(a.To, b.To)
	})

	if len(snap.Positions) == 0 {
		snap.Positions = nil
	}
	return snap
}

// Restore builds a fresh store and expansion from a snapshot. The node
// definitions are applied as one batch, so parents may appear after their
// children; edges referencing unknown nodes are dropped the way the store
// always drops them. Expanded entries are kept verbatim, including IDs the
// snapshot no longer defines (they are inert until such a node reappears).
func Restore(snap Snapshot) (*metagraph.Store, projection.Expansion, error) {
	if err := snap.Validate(); err != nil {
		return nil, nil, err
	}

	defs := make([]metagraph.NodeDef, len(snap.Nodes))
	for i, d := range snap.Nodes {
		def := metagraph.NodeDef{ID: d.ID, Kind: d.Kind, Parent: d.Parent, Data: d.Data}
		if pos, ok := snap.Positions[d.ID]; ok {
			p := pos
			def.Pos = &p
		}
		defs[i] = def
	}

	s := metagraph.New()
	if err := s.Define(defs); err != nil {
		return nil, nil, err
	}
	for _, e := range snap.Edges {
		s.AddEdge(e.From, e.To)
	}
	return s, projection.NewExpansion(snap.Expanded...), nil
}
