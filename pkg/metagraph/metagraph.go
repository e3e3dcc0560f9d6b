// Package metagraph implements the hierarchical meta-graph underlying every
// projection: nodes carry a containment hierarchy (parent/children) plus
// arbitrary relational edges, and the store maintains derived attributes
// (depth, descendant counts, group centroids) across mutations.
//
// The hierarchy is the source of truth for expansion semantics: group nodes
// contain other nodes, leaf nodes terminate the tree. Relational edges are
// independent of containment and may connect any two nodes.
//
// A Store is owned by a single caller at a time and is not safe for
// concurrent use. Hosts that mutate from multiple goroutines must serialize
// access externally, typically by funneling mutations through one loop.
package metagraph

import (
	"errors"
	"fmt"
	"slices"

	"github.com/econic-ai/graphs/pkg/observability"
)

var (
	// ErrEmptyNodeID is returned by [Store.AddNode] and [Store.Define] when
	// a node ID is empty. All nodes must have non-empty identifiers.
	ErrEmptyNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Store.AddNode] and [Store.Define]
	// when a node with the same ID already exists. Node IDs must be unique.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrInvalidKind is returned by [Store.AddNode] and [Store.Define] when
	// a node kind is neither [KindLeaf] nor [KindGroup].
	ErrInvalidKind = errors.New("unknown node kind")

	// ErrLeafParent is returned when a node names a leaf as its parent.
	// Only group nodes can contain children.
	ErrLeafParent = errors.New("leaf nodes cannot have children")

	// ErrCycle is returned by [Store.Reparent] and [Store.Define] when the
	// requested parent links would make a node its own ancestor. The store
	// is left untouched.
	ErrCycle = errors.New("reparenting would create a hierarchy cycle")

	// ErrInvalidEdgeEndpoint is returned by [Store.Validate] when an edge
	// references a node that doesn't exist. This indicates store corruption.
	ErrInvalidEdgeEndpoint = errors.New("edge references a missing node")

	// ErrBrokenHierarchy is returned by [Store.Validate] when parent and
	// children links disagree or a node is unreachable from the roots.
	// This indicates store corruption.
	ErrBrokenHierarchy = errors.New("parent and children links are inconsistent")
)

// Kind distinguishes leaf nodes from group nodes in the hierarchy.
type Kind int

const (
	// KindLeaf is a terminal node. Leaves cannot contain children and hold
	// an explicit position by default.
	KindLeaf Kind = iota
	// KindGroup is a container node. Groups can be expanded or collapsed by
	// a projection and derive their position from their children by default.
	KindGroup
)

// String returns "leaf" or "group", or "unknown" for out-of-range values.
func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindGroup:
		return "group"
	default:
		return "unknown"
	}
}

// KindFromString parses "leaf" or "group" into a Kind.
// Returns ErrInvalidKind for anything else.
func KindFromString(s string) (Kind, error) {
	switch s {
	case "leaf":
		return KindLeaf, nil
	case "group":
		return KindGroup, nil
	default:
		return 0, fmt.Errorf("%q: %w", s, ErrInvalidKind)
	}
}

// MarshalText encodes the kind as "leaf" or "group" for JSON and TOML.
func (k Kind) MarshalText() ([]byte, error) {
	if k != KindLeaf && k != KindGroup {
		return nil, ErrInvalidKind
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes "leaf" or "group".
func (k *Kind) UnmarshalText(text []byte) error {
	kind, err := KindFromString(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// PositionMode controls how a node's position is maintained.
type PositionMode int

const (
	// PositionExplicit means the position was set by the caller (or a layout
	// pass) and the store never overwrites it.
	PositionExplicit PositionMode = iota
	// PositionCentroid means the store derives the position as the mean of
	// the node's direct children positions on every recompute. A node with
	// no children keeps its last position.
	PositionCentroid
)

// String returns "explicit" or "centroid", or "unknown" for out-of-range values.
func (m PositionMode) String() string {
	switch m {
	case PositionExplicit:
		return "explicit"
	case PositionCentroid:
		return "centroid"
	default:
		return "unknown"
	}
}

// Node is a vertex in the meta-graph. Hierarchy links (parent, children) are
// managed exclusively by the store so that the two stay exact inverses; use
// [Store.Reparent] to move a node. Depth and DescendantCount are derived and
// recomputed after every structural mutation.
//
// The zero value is not usable. Nodes are created through [Store.AddNode] or
// [Store.Define].
type Node struct {
	ID   string // Unique identifier
	Kind Kind   // Leaf or group
	Data any    // Opaque host payload, carried through projections untouched

	// Pos is the node's position. For PositionExplicit nodes it is caller
	// owned; for PositionCentroid nodes the store rewrites it from the
	// children on every recompute.
	Pos     Vec3
	PosMode PositionMode

	// Depth is the distance from the hierarchy root (roots have depth 0).
	Depth int
	// DescendantCount is the number of leaf descendants in the subtree.
	// Leaves have count 0; a group counts each leaf child as 1 and each
	// group child by that child's count.
	DescendantCount int

	parent   string
	children []string
}

// IsLeaf reports whether the node is a terminal node.
func (n *Node) IsLeaf() bool { return n.Kind == KindLeaf }

// IsGroup reports whether the node can contain children.
func (n *Node) IsGroup() bool { return n.Kind == KindGroup }

// Parent returns the ID of the node's parent, or "" for a root.
func (n *Node) Parent() string { return n.parent }

// Children returns the node's direct children in insertion order.
// The returned slice should not be modified - use it as a read-only view.
func (n *Node) Children() []string { return n.children }

// Edge is a directed relational edge between two nodes, independent of the
// containment hierarchy. Parallel edges between the same pair are allowed
// and are counted separately by projections.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// NodeDef describes a node to create. Parent may name a node created earlier
// or, inside [Store.Define], any other node of the same batch. A nil Pos
// leaves leaves at the origin and groups in centroid mode.
type NodeDef struct {
	ID     string
	Kind   Kind
	Parent string
	Pos    *Vec3
	Data   any
}

// Store holds the meta-graph: the node hierarchy plus relational edges.
// Roots, children, and edges all preserve insertion order, which makes every
// traversal (and therefore every projection) deterministic.
//
// The zero value is not usable - use New. Store is not safe for concurrent
// use without external synchronization.
type Store struct {
	nodes map[string]*Node
	order []string // node IDs in insertion order
	edges []Edge
}

// New creates an empty store.
func New() *Store {
	return &Store{nodes: make(map[string]*Node)}
}

// =============================================================================
// Mutations
// =============================================================================

// AddNode creates a node from def and recomputes derived attributes.
// Returns ErrEmptyNodeID, ErrDuplicateNodeID, or ErrInvalidKind for invalid
// definitions, and ErrLeafParent when def.Parent names an existing leaf.
//
// A parent that does not exist (yet) is not an error: the node starts as a
// root and the store hooks report an orphan. Adding the parent later does
// not re-attach it - use Reparent once both exist.
func (s *Store) AddNode(def NodeDef) error {
	if err := s.checkDef(def); err != nil {
		return err
	}
	if def.Parent != "" {
		if p, ok := s.nodes[def.Parent]; ok && p.Kind == KindLeaf {
			return ErrLeafParent
		}
	}
	s.createNode(def)
	s.recompute()
	observability.Store().OnMutation("add-node", def.ID)
	return nil
}

// Define creates a batch of nodes in two passes: every node is created
// first, then parents are linked. Definition order therefore never decides
// which parents exist - a child may be listed before its parent. This is the
// restore path for snapshots.
//
// The batch is validated before the store is touched: on error the store is
// unchanged. Parents naming a leaf return ErrLeafParent; parent links that
// loop within the batch return ErrCycle; individual definition problems are
// wrapped with the offending node ID.
func (s *Store) Define(defs []NodeDef) error {
	if err := s.checkBatch(defs); err != nil {
		return err
	}

	for _, def := range defs {
		s.createNode(NodeDef{ID: def.ID, Kind: def.Kind, Pos: def.Pos, Data: def.Data})
	}
	for _, def := range defs {
		if def.Parent == "" {
			continue
		}
		s.attach(s.nodes[def.ID], def.Parent)
	}

	s.recompute()
	observability.Store().OnMutation("define", "")
	return nil
}

// RemoveNode deletes the node, promotes its children to the removed node's
// parent (or to roots), and drops every relational edge touching it.
// Removing an unknown ID is a no-op.
//
// Promoted children keep their relative order and are appended after the
// surviving children of the new parent.
func (s *Store) RemoveNode(id string) {
	n, ok := s.nodes[id]
	if !ok {
		return
	}

	newParent := n.parent
	s.detach(n)
	for _, childID := range n.children {
		c := s.nodes[childID]
		c.parent = newParent
		if newParent != "" {
			p := s.nodes[newParent]
			p.children = append(p.children, childID)
		}
	}
	n.children = nil

	delete(s.nodes, id)
	s.order = slices.DeleteFunc(s.order, func(x string) bool { return x == id })
	s.edges = slices.DeleteFunc(s.edges, func(e Edge) bool { return e.From == id || e.To == id })

	s.recompute()
	observability.Store().OnMutation("remove-node", id)
}

// Reparent moves a node (and implicitly its whole subtree) under newParent.
// An empty newParent makes the node a root. Reparenting an unknown ID is a
// no-op. Returns ErrLeafParent if newParent is an existing leaf, or ErrCycle
// if newParent is the node itself or one of its descendants; in both cases
// the store is untouched.
//
// Like AddNode, an unknown newParent attaches the node as a root and
// reports an orphan instead of failing.
func (s *Store) Reparent(id, newParent string) error {
	n, ok := s.nodes[id]
	if !ok {
		return nil
	}
	if newParent == id {
		return ErrCycle
	}
	if newParent != "" {
		if p, ok := s.nodes[newParent]; ok {
			if p.Kind == KindLeaf {
				return ErrLeafParent
			}
			if s.inSubtree(newParent, id) {
				return ErrCycle
			}
		}
	}

	s.detach(n)
	s.attach(n, newParent)
	s.recompute()
	observability.Store().OnMutation("reparent", id)
	return nil
}

// AddEdge appends a relational edge between two existing nodes. Parallel
// edges are allowed and kept. An unknown endpoint makes the call a no-op:
// relational edges never error.
func (s *Store) AddEdge(from, to string) {
	if _, ok := s.nodes[from]; !ok {
		return
	}
	if _, ok := s.nodes[to]; !ok {
		return
	}
	s.edges = append(s.edges, Edge{From: from, To: to})
	observability.Store().OnMutation("add-edge", from)
}

// RemoveEdge removes every edge from→to, including parallels.
// Removing an absent edge is a no-op.
func (s *Store) RemoveEdge(from, to string) {
	before := len(s.edges)
	s.edges = slices.DeleteFunc(s.edges, func(e Edge) bool { return e.From == from && e.To == to })
	if len(s.edges) != before {
		observability.Store().OnMutation("remove-edge", from)
	}
}

// SetPosition pins the node's position and switches it to explicit mode.
// Ancestor centroids are refreshed. Unknown IDs are a no-op.
func (s *Store) SetPosition(id string, pos Vec3) {
	n, ok := s.nodes[id]
	if !ok {
		return
	}
	n.Pos = pos
	n.PosMode = PositionExplicit
	s.recomputeCentroids(id)
	observability.Store().OnMutation("set-position", id)
}

// ClearPosition returns the node to centroid mode, deriving its position
// from its children again. A node without children keeps its last position.
// Unknown IDs are a no-op.
func (s *Store) ClearPosition(id string) {
	n, ok := s.nodes[id]
	if !ok {
		return
	}
	n.PosMode = PositionCentroid
	s.recomputeCentroids(id)
	observability.Store().OnMutation("clear-position", id)
}

// =============================================================================
// Queries
// =============================================================================

// Node returns the node with the given ID and true, or nil and false if not
// found. The returned pointer refers to the live node; hierarchy links must
// still be changed through the store.
func (s *Store) Node(id string) (*Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Children returns the direct children of a node in insertion order.
// Returns nil for unknown IDs and childless nodes. The returned slice
// should not be modified - use it as a read-only view.
func (s *Store) Children(id string) []string {
	if n, ok := s.nodes[id]; ok {
		return n.children
	}
	return nil
}

// Parent returns the parent ID of a node, or "" for roots and unknown IDs.
func (s *Store) Parent(id string) string {
	if n, ok := s.nodes[id]; ok {
		return n.parent
	}
	return ""
}

// Ancestors returns the chain of ancestor IDs from the node's parent up to
// its root, nearest first. Returns nil for roots and unknown IDs.
func (s *Store) Ancestors(id string) []string {
	n, ok := s.nodes[id]
	if !ok {
		return nil
	}
	var chain []string
	for cur := n.parent; cur != ""; cur = s.nodes[cur].parent {
		chain = append(chain, cur)
	}
	return chain
}

// Descendants returns every node in the subtree below id in depth-first
// pre-order, excluding id itself. Returns nil for leaves and unknown IDs.
func (s *Store) Descendants(id string) []string {
	n, ok := s.nodes[id]
	if !ok {
		return nil
	}
	var out []string
	stack := make([]string, len(n.children))
	for i, c := range n.children {
		stack[len(n.children)-1-i] = c
	}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, cur)
		cn := s.nodes[cur]
		for i := len(cn.children) - 1; i >= 0; i-- {
			stack = append(stack, cn.children[i])
		}
	}
	return out
}

// Roots returns the IDs of all parentless nodes in insertion order.
func (s *Store) Roots() []string {
	var roots []string
	for _, id := range s.order {
		if s.nodes[id].parent == "" {
			roots = append(roots, id)
		}
	}
	return roots
}

// Nodes returns all nodes in insertion order. The returned slice contains
// pointers to the live nodes.
func (s *Store) Nodes() []*Node {
	nodes := make([]*Node, len(s.order))
	for i, id := range s.order {
		nodes[i] = s.nodes[id]
	}
	return nodes
}

// Edges returns a copy of all relational edges in insertion order.
func (s *Store) Edges() []Edge { return slices.Clone(s.edges) }

// NodeCount returns the number of nodes in the store.
func (s *Store) NodeCount() int { return len(s.nodes) }

// EdgeCount returns the number of relational edges, counting parallels.
func (s *Store) EdgeCount() int { return len(s.edges) }

// LeafCount returns the number of leaf nodes.
func (s *Store) LeafCount() int {
	count := 0
	for _, n := range s.nodes {
		if n.Kind == KindLeaf {
			count++
		}
	}
	return count
}

// GroupCount returns the number of group nodes.
func (s *Store) GroupCount() int {
	count := 0
	for _, n := range s.nodes {
		if n.Kind == KindGroup {
			count++
		}
	}
	return count
}

// =============================================================================
// Integrity
// =============================================================================

// Validate checks store integrity and returns nil if valid.
// It verifies three constraints:
//
//  1. All relational edges reference existing nodes
//  2. Parent and children links are exact inverses of each other
//  3. Every node is reachable from a root exactly once (no hierarchy cycles)
//
// Returns ErrInvalidEdgeEndpoint or ErrBrokenHierarchy. Mutations maintain
// these invariants, so Validate is a test and debugging aid rather than a
// routine call.
func (s *Store) Validate() error {
	for _, e := range s.edges {
		if _, ok := s.nodes[e.From]; !ok {
			return ErrInvalidEdgeEndpoint
		}
		if _, ok := s.nodes[e.To]; !ok {
			return ErrInvalidEdgeEndpoint
		}
	}

	for id, n := range s.nodes {
		if n.parent != "" {
			p, ok := s.nodes[n.parent]
			if !ok || !slices.Contains(p.children, id) {
				return ErrBrokenHierarchy
			}
		}
		for _, c := range n.children {
			cn, ok := s.nodes[c]
			if !ok || cn.parent != id {
				return ErrBrokenHierarchy
			}
		}
	}

	// Coverage walk from the roots. A hierarchy cycle leaves its members
	// parented to each other and unreachable from any root.
	seen := make(map[string]bool, len(s.nodes))
	stack := s.Roots()
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			return ErrBrokenHierarchy
		}
		seen[cur] = true
		stack = append(stack, s.nodes[cur].children...)
	}
	if len(seen) != len(s.nodes) {
		return ErrBrokenHierarchy
	}
	return nil
}

// =============================================================================
// Internals
// =============================================================================

// checkDef validates a single definition against the current store.
func (s *Store) checkDef(def NodeDef) error {
	if def.ID == "" {
		return ErrEmptyNodeID
	}
	if _, exists := s.nodes[def.ID]; exists {
		return ErrDuplicateNodeID
	}
	if def.Kind != KindLeaf && def.Kind != KindGroup {
		return ErrInvalidKind
	}
	return nil
}

// checkBatch validates a Define batch without touching the store.
func (s *Store) checkBatch(defs []NodeDef) error {
	batch := make(map[string]NodeDef, len(defs))
	for _, def := range defs {
		if err := s.checkDef(def); err != nil {
			return fmt.Errorf("node %q: %w", def.ID, err)
		}
		if _, dup := batch[def.ID]; dup {
			return fmt.Errorf("node %q: %w", def.ID, ErrDuplicateNodeID)
		}
		batch[def.ID] = def
	}

	for _, def := range defs {
		if def.Parent == "" {
			continue
		}
		if p, ok := s.nodes[def.Parent]; ok {
			if p.Kind == KindLeaf {
				return fmt.Errorf("node %q: %w", def.ID, ErrLeafParent)
			}
		} else if bp, ok := batch[def.Parent]; ok {
			if bp.Kind == KindLeaf {
				return fmt.Errorf("node %q: %w", def.ID, ErrLeafParent)
			}
		}
	}

	// Parent links within the batch form chains; a chain that revisits a
	// batch member is a cycle. Chains leaving the batch (into the store or
	// to a missing parent) cannot come back, because store nodes never name
	// batch nodes as parents.
	const (
		unvisited = iota
		visiting
		settled
	)
	state := make(map[string]int, len(defs))
	for _, def := range defs {
		if state[def.ID] != unvisited {
			continue
		}
		var path []string
		cur := def.ID
		for {
			bdef, inBatch := batch[cur]
			if !inBatch || state[cur] == settled {
				break
			}
			if state[cur] == visiting {
				return fmt.Errorf("node %q: %w", cur, ErrCycle)
			}
			state[cur] = visiting
			path = append(path, cur)
			if bdef.Parent == "" {
				break
			}
			if _, inStore := s.nodes[bdef.Parent]; inStore {
				break
			}
			cur = bdef.Parent
		}
		for _, p := range path {
			state[p] = settled
		}
	}
	return nil
}

// createNode inserts a validated definition without linking or recomputing.
func (s *Store) createNode(def NodeDef) {
	n := &Node{ID: def.ID, Kind: def.Kind, Data: def.Data}
	switch {
	case def.Pos != nil:
		n.Pos = *def.Pos
		n.PosMode = PositionExplicit
	case def.Kind == KindGroup:
		n.PosMode = PositionCentroid
	default:
		n.PosMode = PositionExplicit
	}
	s.nodes[n.ID] = n
	s.order = append(s.order, n.ID)
}

// attach links n under parentID. An empty or unknown parent leaves n a root;
// unknown parents additionally report an orphan through the store hooks.
// The caller has already rejected leaf parents.
func (s *Store) attach(n *Node, parentID string) {
	if parentID == "" {
		return
	}
	p, ok := s.nodes[parentID]
	if !ok {
		observability.Store().OnOrphan(n.ID, parentID)
		return
	}
	n.parent = parentID
	p.children = append(p.children, n.ID)
}

// detach unlinks n from its parent, making it a root.
func (s *Store) detach(n *Node) {
	if n.parent == "" {
		return
	}
	if p, ok := s.nodes[n.parent]; ok {
		p.children = slices.DeleteFunc(p.children, func(id string) bool { return id == n.ID })
	}
	n.parent = ""
}

// inSubtree reports whether candidate lies in the subtree rooted at rootID.
func (s *Store) inSubtree(candidate, rootID string) bool {
	n, ok := s.nodes[rootID]
	if !ok {
		return false
	}
	stack := slices.Clone(n.children)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == candidate {
			return true
		}
		stack = append(stack, s.nodes[cur].children...)
	}
	return false
}
