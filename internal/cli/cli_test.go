package cli

import (
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	apperrors "github.com/econic-ai/graphs/pkg/errors"
	"github.com/econic-ai/graphs/pkg/scene"
)

// writeGraphFixture writes a small graph file: one group with two leaves,
// plus a standalone leaf wired to both. The expanded set is written as
// given.
func writeGraphFixture(t *testing.T, expanded ...string) string {
	t.Helper()

	doc := `{
  "nodes": [
    {"id": "infra", "kind": "group"},
    {"id": "db", "kind": "leaf", "parent": "infra"},
    {"id": "queue", "kind": "leaf", "parent": "infra"},
    {"id": "web", "kind": "leaf"}
  ],
  "edges": [
    {"from": "web", "to": "db"},
    {"from": "web", "to": "queue"}
  ]`
	if len(expanded) > 0 {
		doc += `,
  "expanded": [`
		for i, id := range expanded {
			if i > 0 {
				doc += ", "
			}
			doc += `"` + id + `"`
		}
		doc += `]`
	}
	doc += "\n}\n"

	path := filepath.Join(t.TempDir(), "graph.json")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRootCommandStructure(t *testing.T) {
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()

	if root.Use != "graphs" {
		t.Errorf("Use = %q, want graphs", root.Use)
	}

	want := []string{"inspect", "project", "animate", "play", "serve", "cache", "completion"}
	for _, name := range want {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
			}
		}
		if !found {
			t.Errorf("root command is missing %q", name)
		}
	}
}

func TestSetLogLevel(t *testing.T) {
	c := New(io.Discard, LogInfo)
	c.SetLogLevel(LogDebug)

	if got := c.Logger.GetLevel(); got != LogDebug {
		t.Errorf("level = %v, want debug", got)
	}
}

func TestParseIDList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a,b", []string{"a", "b"}},
		{" a , b ", []string{"a", "b"}},
		{"a,,b,", []string{"a", "b"}},
	}
	for _, tt := range tests {
		if got := parseIDList(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("parseIDList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoadSnapshotMissingFile(t *testing.T) {
	_, err := loadSnapshot(filepath.Join(t.TempDir(), "missing.json"))
	if !apperrors.Is(err, apperrors.ErrCodeFileNotFound) {
		t.Errorf("err = %v, want FILE_NOT_FOUND", err)
	}
}

func TestNewSceneAppliesFileExpansion(t *testing.T) {
	path := writeGraphFixture(t, "infra")

	c := New(io.Discard, LogInfo)
	sc, err := c.newScene(path, scene.Options{})
	if err != nil {
		t.Fatalf("newScene: %v", err)
	}

	if !sc.IsExpanded("infra") {
		t.Error("file's expanded set was not applied")
	}
	if got := len(sc.Visible().Nodes); got != 3 {
		t.Errorf("visible nodes = %d, want 3", got)
	}
}
