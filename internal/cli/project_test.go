package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/econic-ai/graphs/pkg/errors"
	"github.com/econic-ai/graphs/pkg/projection"
	"github.com/econic-ai/graphs/pkg/snapshot"
)

func TestValidateFormat(t *testing.T) {
	for _, f := range []string{formatJSON, formatDOT, formatSVG, formatTable} {
		if err := validateFormat(f); err != nil {
			t.Errorf("validateFormat(%q) = %v", f, err)
		}
	}

	err := validateFormat("xml")
	if !apperrors.Is(err, apperrors.ErrCodeInvalidFormat) {
		t.Errorf("validateFormat(xml) = %v, want INVALID_FORMAT", err)
	}
}

func TestPickProvider(t *testing.T) {
	if _, err := pickProvider(providerLayered); err != nil {
		t.Errorf("layered: %v", err)
	}
	if _, err := pickProvider(providerGraphviz); err != nil {
		t.Errorf("graphviz: %v", err)
	}
	if _, err := pickProvider("magic"); !apperrors.Is(err, apperrors.ErrCodeInvalidInput) {
		t.Errorf("unknown provider: err = %v, want INVALID_INPUT", err)
	}
}

func TestResolveExpansion(t *testing.T) {
	snap, err := snapshot.ReadFile(writeGraphFixture(t, "infra"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	store, fileExp, err := snapshot.Restore(snap)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if got := resolveExpansion(store, fileExp, ""); !got.Has("infra") {
		t.Error("empty flag should keep the file's expansion")
	}

	all := resolveExpansion(store, fileExp, "all")
	if !all.Has("infra") || all.Len() != 1 {
		t.Errorf("all: got %v, want just the one group", all.IDs())
	}

	picked := resolveExpansion(store, fileExp, "infra,ghost")
	if !picked.Has("infra") || picked.Has("ghost") {
		t.Errorf("picked: got %v, want infra only", picked.IDs())
	}
}

func TestRunProjectJSON(t *testing.T) {
	input := writeGraphFixture(t)
	output := filepath.Join(t.TempDir(), "out.json")

	c := New(io.Discard, LogInfo)
	opts := &projectOpts{output: output, format: formatJSON, expand: "all"}
	if err := c.runProject(context.Background(), input, opts); err != nil {
		t.Fatalf("runProject: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	var g projection.VisibleGraph
	if err := json.Unmarshal(data, &g); err != nil {
		t.Fatalf("output is not a visible graph: %v", err)
	}
	if len(g.Nodes) != 3 {
		t.Errorf("nodes = %d, want 3 with everything expanded", len(g.Nodes))
	}
}

func TestRunProjectDOT(t *testing.T) {
	input := writeGraphFixture(t)
	output := filepath.Join(t.TempDir(), "out.dot")

	c := New(io.Discard, LogInfo)
	opts := &projectOpts{output: output, format: formatDOT}
	if err := c.runProject(context.Background(), input, opts); err != nil {
		t.Fatalf("runProject: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	dot := string(data)
	if !strings.HasPrefix(dot, "digraph G {") {
		t.Errorf("output does not start a digraph: %q", dot[:min(len(dot), 40)])
	}
	if !strings.Contains(dot, `"infra"`) {
		t.Error("collapsed group missing from DOT output")
	}
}

func TestRunProjectWithLayeredLayout(t *testing.T) {
	input := writeGraphFixture(t, "infra")
	output := filepath.Join(t.TempDir(), "out.json")

	c := New(io.Discard, LogInfo)
	opts := &projectOpts{
		output:   output,
		format:   formatJSON,
		layout:   true,
		noCache:  true,
		provider: providerLayered,
	}
	if err := c.runProject(context.Background(), input, opts); err != nil {
		t.Fatalf("runProject: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	var g projection.VisibleGraph
	if err := json.Unmarshal(data, &g); err != nil {
		t.Fatal(err)
	}

	placed := false
	for _, n := range g.Nodes {
		if n.Pos.X != 0 || n.Pos.Y != 0 {
			placed = true
		}
	}
	if !placed {
		t.Error("layout left every node at the origin")
	}
}

func TestNodeTable(t *testing.T) {
	snap, err := snapshot.ReadFile(writeGraphFixture(t))
	if err != nil {
		t.Fatal(err)
	}
	store, exp, err := snapshot.Restore(snap)
	if err != nil {
		t.Fatal(err)
	}
	g := projection.Project(store, exp)

	// Both leaf edges reroute to the collapsed group and merge into one.
	out := nodeTable(g)
	for _, want := range []string{"infra", "web", "1 visible edges"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "db") {
		t.Error("hidden leaf appears in the table")
	}
}
