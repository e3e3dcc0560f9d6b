package snapshot

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/econic-ai/graphs/pkg/metagraph"
	"github.com/econic-ai/graphs/pkg/projection"
)

// testStore builds the shared fixture:
//
//	infra (group)
//	├── servers (group)
//	│   ├── web-1 (leaf, 0,0)
//	│   └── web-2 (leaf, 2,0)
//	└── db (group)
//	    └── pg-1 (leaf, 4,2)
//	lb (leaf, 1,-2)
//
// with edges lb→web-1, lb→web-2, web-1→pg-1.
func testStore(t *testing.T) *metagraph.Store {
	t.Helper()
	s := metagraph.New()
	err := s.Define([]metagraph.NodeDef{
		{ID: "infra", Kind: metagraph.KindGroup},
		{ID: "servers", Kind: metagraph.KindGroup, Parent: "infra"},
		{ID: "web-1", Kind: metagraph.KindLeaf, Parent: "servers", Pos: &metagraph.Vec3{X: 0, Y: 0}},
		{ID: "web-2", Kind: metagraph.KindLeaf, Parent: "servers", Pos: &metagraph.Vec3{X: 2, Y: 0}},
		{ID: "db", Kind: metagraph.KindGroup, Parent: "infra"},
		{ID: "pg-1", Kind: metagraph.KindLeaf, Parent: "db", Pos: &metagraph.Vec3{X: 4, Y: 2}},
		{ID: "lb", Kind: metagraph.KindLeaf, Pos: &metagraph.Vec3{X: 1, Y: -2}},
	})
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	s.AddEdge("lb", "web-1")
	s.AddEdge("lb", "web-2")
	s.AddEdge("web-1", "pg-1")
	return s
}

func TestCaptureRestoreRoundTrip(t *testing.T) {
	s := testStore(t)
	exp := projection.NewExpansion("infra", "servers")

	snap := Capture(s, exp)
	restored, rexp, err := Restore(snap)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if restored.NodeCount() != s.NodeCount() {
		t.Errorf("NodeCount = %d, want %d", restored.NodeCount(), s.NodeCount())
	}
	if restored.EdgeCount() != s.EdgeCount() {
		t.Errorf("EdgeCount = %d, want %d", restored.EdgeCount(), s.EdgeCount())
	}
	for _, n := range s.Nodes() {
		rn, ok := restored.Node(n.ID)
		if !ok {
			t.Fatalf("restored store is missing %q", n.ID)
		}
		if rn.Kind != n.Kind || rn.Parent() != n.Parent() {
			t.Errorf("%s = (%v, parent %q), want (%v, parent %q)",
				n.ID, rn.Kind, rn.Parent(), n.Kind, n.Parent())
		}
		if rn.Pos != n.Pos {
			t.Errorf("%s position = %v, want %v", n.ID, rn.Pos, n.Pos)
		}
		if rn.PosMode != n.PosMode {
			t.Errorf("%s position mode = %v, want %v", n.ID, rn.PosMode, n.PosMode)
		}
	}
	if !reflect.DeepEqual(rexp, exp) {
		t.Errorf("expansion = %v, want %v", rexp.IDs(), exp.IDs())
	}
	if err := restored.Validate(); err != nil {
		t.Errorf("restored store invalid: %v", err)
	}

	// The decisive check: every expansion state projects identically.
	for _, e := range []projection.Expansion{
		projection.NewExpansion(),
		projection.NewExpansion("infra"),
		exp,
	} {
		got := projection.Project(restored, e)
		want := projection.Project(s, e)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("projection with %v differs after round-trip", e.IDs())
		}
	}
}

func TestCaptureDeterministic(t *testing.T) {
	s := testStore(t)
	exp := projection.NewExpansion("servers", "infra")

	a := Capture(s, exp)
	b := Capture(s, exp)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("two captures of the same store differ")
	}

	for i := 1; i < len(a.Nodes); i++ {
		if a.Nodes[i-1].ID >= a.Nodes[i].ID {
			t.Fatalf("nodes not sorted: %q before %q", a.Nodes[i-1].ID, a.Nodes[i].ID)
		}
	}
	if !reflect.DeepEqual(a.Expanded, []string{"infra", "servers"}) {
		t.Errorf("Expanded = %v, want sorted [infra servers]", a.Expanded)
	}
}

func TestCaptureOnlyExplicitPositions(t *testing.T) {
	s := testStore(t)

	snap := Capture(s, nil)
	for _, id := range []string{"infra", "servers", "db"} {
		if _, ok := snap.Positions[id]; ok {
			t.Errorf("centroid position of %q captured, want derived positions omitted", id)
		}
	}
	if len(snap.Positions) != 4 {
		t.Errorf("captured %d positions, want 4 leaves", len(snap.Positions))
	}

	// Pinning a group makes its position part of the export.
	s.SetPosition("servers", metagraph.Vec3{X: 7, Y: 7})
	snap = Capture(s, nil)
	if pos, ok := snap.Positions["servers"]; !ok || pos != (metagraph.Vec3{X: 7, Y: 7}) {
		t.Errorf("pinned servers position = (%v, %v), want ({7 7 0}, true)", pos, ok)
	}
}

func TestRestoreRejectsInvalidSnapshots(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
	}{
		{
			name: "MissingNodeID",
			snap: Snapshot{Nodes: []NodeDef{{Kind: metagraph.KindLeaf}}},
		},
		{
			name: "UnknownKind",
			snap: Snapshot{Nodes: []NodeDef{{ID: "a", Kind: metagraph.Kind(9)}}},
		},
		{
			name: "EdgeWithoutEndpoint",
			snap: Snapshot{
				Nodes: []NodeDef{{ID: "a", Kind: metagraph.KindLeaf}},
				Edges: []EdgeDef{{From: "a"}},
			},
		},
		{
			name: "DuplicateIDs",
			snap: Snapshot{Nodes: []NodeDef{
				{ID: "a", Kind: metagraph.KindLeaf},
				{ID: "a", Kind: metagraph.KindLeaf},
			}},
		},
		{
			name: "LeafUsedAsParent",
			snap: Snapshot{Nodes: []NodeDef{
				{ID: "a", Kind: metagraph.KindLeaf},
				{ID: "b", Kind: metagraph.KindLeaf, Parent: "a"},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Restore(tt.snap); err == nil {
				t.Fatal("Restore accepted an invalid snapshot")
			}
		})
	}
}

func TestRestoreParentAfterChild(t *testing.T) {
	// Capture sorts by ID, so children regularly precede their parents.
	snap := Snapshot{Nodes: []NodeDef{
		{ID: "a-child", Kind: metagraph.KindLeaf, Parent: "z-parent"},
		{ID: "z-parent", Kind: metagraph.KindGroup},
	}}

	s, _, err := Restore(snap)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got := s.Parent("a-child"); got != "z-parent" {
		t.Errorf("Parent(a-child) = %q, want z-parent", got)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	s := testStore(t)
	snap := Capture(s, projection.NewExpansion("infra"))

	data, err := Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"kind": "group"`) {
		t.Errorf("kinds not serialized as text:\n%s", data)
	}

	back, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back, snap) {
		t.Errorf("decoded snapshot differs from original")
	}

	var buf bytes.Buffer
	if err := Write(snap, &buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	back, err = Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !reflect.DeepEqual(back, snap) {
		t.Errorf("stream round-trip differs from original")
	}
}

func TestFileRoundTrip(t *testing.T) {
	s := testStore(t)
	snap := Capture(s, projection.NewExpansion("infra"))
	path := filepath.Join(t.TempDir(), "state.json")

	if err := WriteFile(snap, path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	back, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !reflect.DeepEqual(back, snap) {
		t.Errorf("file round-trip differs from original")
	}

	// Load dispatches on extension.
	if _, err := Load(path); err != nil {
		t.Errorf("Load(json): %v", err)
	}
	if _, err := Load("state.yaml"); err == nil {
		t.Error("Load accepted an unsupported extension")
	}
}

func TestReadManifest(t *testing.T) {
	src := `
expanded = ["infra"]

[[node]]
id = "infra"

[[node]]
id = "web-1"
parent = "infra"
pos = [0, 0]

[[node]]
id = "web-2"
parent = "infra"
pos = [2, 0, 1]

[[node]]
id = "lb"
kind = "leaf"
pos = [1, -2]

[[edge]]
from = "lb"
to = "web-1"
`
	path := filepath.Join(t.TempDir(), "graph.toml")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	snap, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}

	kinds := make(map[string]metagraph.Kind, len(snap.Nodes))
	for _, n := range snap.Nodes {
		kinds[n.ID] = n.Kind
	}
	if kinds["infra"] != metagraph.KindGroup {
		t.Errorf("infra kind = %v, want group (inferred from parent references)", kinds["infra"])
	}
	if kinds["web-1"] != metagraph.KindLeaf || kinds["lb"] != metagraph.KindLeaf {
		t.Errorf("leaf kinds = %v/%v, want leaf/leaf", kinds["web-1"], kinds["lb"])
	}
	if pos := snap.Positions["web-2"]; pos != (metagraph.Vec3{X: 2, Y: 0, Z: 1}) {
		t.Errorf("web-2 position = %v, want {2 0 1}", pos)
	}
	if pos := snap.Positions["lb"]; pos != (metagraph.Vec3{X: 1, Y: -2}) {
		t.Errorf("lb position = %v, want {1 -2 0}", pos)
	}
	if !reflect.DeepEqual(snap.Expanded, []string{"infra"}) {
		t.Errorf("Expanded = %v, want [infra]", snap.Expanded)
	}

	// The manifest must restore into a working store.
	st, exp, err := Restore(snap)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if st.NodeCount() != 4 || !exp.Has("infra") {
		t.Errorf("restored = %d nodes, expanded(infra)=%v, want 4 and true", st.NodeCount(), exp.Has("infra"))
	}
}

func TestReadManifestErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{
			name: "BadKind",
			src:  "[[node]]\nid = \"a\"\nkind = \"cluster\"\n",
		},
		{
			name: "BadPosLength",
			src:  "[[node]]\nid = \"a\"\npos = [1]\n",
		},
		{
			name: "MissingID",
			src:  "[[node]]\nkind = \"leaf\"\n",
		},
		{
			name: "BadTOML",
			src:  "[[node\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "graph.toml")
			if err := os.WriteFile(path, []byte(tt.src), 0o644); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			if _, err := ReadManifest(path); err == nil {
				t.Fatal("ReadManifest accepted an invalid manifest")
			}
		})
	}
}
