package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/econic-ai/graphs/pkg/metagraph"
)

// =============================================================================
// JSON Codec
// =============================================================================

// Marshal converts a snapshot to JSON bytes.
func Marshal(snap Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeTo(snap, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a snapshot from JSON bytes and validates it.
func Unmarshal(data []byte) (Snapshot, error) {
	return readFrom(bytes.NewReader(data))
}

// Write writes a snapshot as indented JSON to an io.Writer.
func Write(snap Snapshot, w io.Writer) error {
	return writeTo(snap, w)
}

// Read decodes a snapshot from an io.Reader and validates it.
func Read(r io.Reader) (Snapshot, error) {
	return readFrom(r)
}

// WriteFile writes a snapshot to a JSON file.
// The file is created with 0644 permissions.
func WriteFile(snap Snapshot, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return writeTo(snap, f)
}

// ReadFile reads a JSON file and returns the decoded snapshot.
func ReadFile(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return readFrom(f)
}

func writeTo(snap Snapshot, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func readFrom(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode: %w", err)
	}
	if err := snap.Validate(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// =============================================================================
// TOML Authoring Manifest
// =============================================================================

// manifest is the hand-written input format:
//
//	expanded = ["infra"]
//
//	[[node]]
//	id = "infra"
//	kind = "group"
//
//	[[node]]
//	id = "web-1"
//	parent = "infra"
//	pos = [0, 0]
//
//	[[edge]]
//	from = "lb"
//	to = "web-1"
//
// kind may be omitted: a node some other node names as parent is a group,
// everything else is a leaf. pos takes two or three coordinates.
type manifest struct {
	Nodes    []manifestNode `toml:"node"`
	Edges    []manifestEdge `toml:"edge"`
	Expanded []string       `toml:"expanded"`
}

type manifestNode struct {
	ID     string    `toml:"id"`
	Kind   string    `toml:"kind"`
	Parent string    `toml:"parent"`
	Pos    []float64 `toml:"pos"`
	Data   any       `toml:"data"`
}

type manifestEdge struct {
	From string `toml:"from"`
	To   string `toml:"to"`
}

// ReadManifest reads a TOML manifest and converts it to a snapshot.
func ReadManifest(path string) (Snapshot, error) {
	var m manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return Snapshot{}, fmt.Errorf("parse %s: %w", path, err)
	}
	snap, err := m.toSnapshot()
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

func (m *manifest) toSnapshot() (Snapshot, error) {
	parents := make(map[string]bool, len(m.Nodes))
	for _, n := range m.Nodes {
		if n.Parent != "" {
			parents[n.Parent] = true
		}
	}

	snap := Snapshot{
		Expanded:  m.Expanded,
		Positions: make(map[string]metagraph.Vec3),
	}
	for _, n := range m.Nodes {
		kind := metagraph.KindLeaf
		switch {
		case n.Kind != "":
			k, err := metagraph.KindFromString(n.Kind)
			if err != nil {
				return Snapshot{}, fmt.Errorf("node %q: %w", n.ID, err)
			}
			kind = k
		case parents[n.ID]:
			kind = metagraph.KindGroup
		}

		snap.Nodes = append(snap.Nodes, NodeDef{
			ID:     n.ID,
			Kind:   kind,
			Parent: n.Parent,
			Data:   n.Data,
		})

		switch len(n.Pos) {
		case 0:
		case 2:
			snap.Positions[n.ID] = metagraph.Vec3{X: n.Pos[0], Y: n.Pos[1]}
		case 3:
			snap.Positions[n.ID] = metagraph.Vec3{X: n.Pos[0], Y: n.Pos[1], Z: n.Pos[2]}
		default:
			return Snapshot{}, fmt.Errorf("node %q: pos needs 2 or 3 coordinates, got %d", n.ID, len(n.Pos))
		}
	}
	for _, e := range m.Edges {
		snap.Edges = append(snap.Edges, EdgeDef{From: e.From, To: e.To})
	}
	if len(snap.Positions) == 0 {
		snap.Positions = nil
	}

	if err := snap.Validate(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// =============================================================================
// Format Dispatch
// =============================================================================

// Load reads a snapshot from a file, picking the codec by extension:
// .json for canonical snapshots, .toml for authoring manifests.
func Load(path string) (Snapshot, error) {
	switch ext := filepath.Ext(path); ext {
	case ".json":
		return ReadFile(path)
	case ".toml":
		return ReadManifest(path)
	default:
		return Snapshot{}, fmt.Errorf("unsupported snapshot format %q (want .json or .toml)", ext)
	}
}
