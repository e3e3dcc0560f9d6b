package layout

import (
	"context"
	"strings"
	"testing"

	"github.com/econic-ai/graphs/pkg/metagraph"
	"github.com/econic-ai/graphs/pkg/projection"
)

// sampleSVG mimics the dot engine's output shape: a graph background
// polygon, two node groups, and an edge group whose title carries the
// escaped arrow.
const sampleSVG = `<svg width="134pt" height="116pt" viewBox="0.00 0.00 134.00 116.00" xmlns="http://www.w3.org/2000/svg">
<g id="graph0" class="graph" transform="scale(1 1) rotate(0) translate(4 112)">
<title>G</title>
<polygon fill="white" stroke="none" points="-4,4 -4,-112 130,-112 130,4 -4,4"/>
<g id="node1" class="node">
<title>a&amp;b</title>
<ellipse fill="none" stroke="black" cx="27" cy="-90" rx="27" ry="18"/>
<text text-anchor="middle" x="27" y="-85.8">a&amp;b</text>
</g>
<g id="node2" class="node">
<title>c</title>
<ellipse fill="none" stroke="black" cx="27" cy="-18" rx="27" ry="18"/>
<text text-anchor="middle" x="27" y="-13.8">c</text>
</g>
<g id="edge1" class="edge">
<title>a&amp;b&#45;&gt;c</title>
<path fill="none" stroke="black" d="M27,-71.7C27,-64.41 27,-55.73 27,-47.54"/>
<polygon fill="black" stroke="black" points="30.5,-47.62 27,-37.62 23.5,-47.62 30.5,-47.62"/>
</g>
</g>
</svg>`

func TestExtractCenters(t *testing.T) {
	centers, err := extractCenters([]byte(sampleSVG))
	if err != nil {
		t.Fatalf("extractCenters: %v", err)
	}
	if len(centers) != 2 {
		t.Fatalf("got %d centers, want 2 (edges and background must not match)", len(centers))
	}

	// Titles are unescaped back to the node ID.
	if got := centers["a&b"]; got != (metagraph.Vec3{X: 27, Y: -90}) {
		t.Errorf(`centers["a&b"] = %+v, want {27 -90 0}`, got)
	}
	if got := centers["c"]; got != (metagraph.Vec3{X: 27, Y: -18}) {
		t.Errorf(`centers["c"] = %+v, want {27 -18 0}`, got)
	}
}

func TestExtractCentersNoNodes(t *testing.T) {
	if _, err := extractCenters([]byte(`<svg></svg>`)); err == nil {
		t.Error("SVG without node centers should error")
	}
}

func TestFitToFrame(t *testing.T) {
	centers := map[string]metagraph.Vec3{
		"a": {X: 0, Y: -100},
		"b": {X: 50, Y: -50},
		"c": {X: 100, Y: 0},
	}
	fitted := fitToFrame(centers, Options{Width: 800, Height: 600})

	if fitted["a"] != (metagraph.Vec3{X: 0, Y: 0}) {
		t.Errorf("a = %+v, want {0 0 0}", fitted["a"])
	}
	if fitted["b"] != (metagraph.Vec3{X: 400, Y: 300}) {
		t.Errorf("b = %+v, want {400 300 0}", fitted["b"])
	}
	if fitted["c"] != (metagraph.Vec3{X: 800, Y: 600}) {
		t.Errorf("c = %+v, want {800 600 0}", fitted["c"])
	}
}

func TestFitToFrameDegenerateAxis(t *testing.T) {
	centers := map[string]metagraph.Vec3{
		"a": {X: 27, Y: -90},
		"b": {X: 27, Y: -18},
	}
	fitted := fitToFrame(centers, Options{Width: 800, Height: 600})

	// All nodes share an X: the axis collapses to the frame center.
	if fitted["a"].X != 400 || fitted["b"].X != 400 {
		t.Errorf("degenerate axis should center: %v / %v", fitted["a"].X, fitted["b"].X)
	}
	if fitted["a"].Y != 0 || fitted["b"].Y != 600 {
		t.Errorf("Y extent should span the frame: %v / %v", fitted["a"].Y, fitted["b"].Y)
	}
}

func TestSolverDOT(t *testing.T) {
	g := chainGraph(t)
	dot := solverDOT(g)

	for _, want := range []string{"digraph G {", `"a";`, `"a" -> "c";`, `"c" -> "d";`} {
		if !strings.Contains(dot, want) {
			t.Errorf("solver DOT missing %q:\n%s", want, dot)
		}
	}
	if strings.Contains(dot, "label") || strings.Contains(dot, "shape") {
		t.Errorf("solver DOT should stay bare:\n%s", dot)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	svg := normalizeViewBox([]byte(sampleSVG))
	if !strings.Contains(string(svg), `viewBox="0 0 134.00 116.00"`) {
		t.Errorf("viewBox not normalized:\n%s", svg)
	}
	if !strings.Contains(string(svg), `width="134" height="116"`) {
		t.Errorf("explicit pixel size missing:\n%s", svg)
	}
}

func TestGraphvizRejectsInvalidOptions(t *testing.T) {
	g := chainGraph(t)
	if _, err := (Graphviz{}).Positions(context.Background(), g, Options{Spacing: -1}); err == nil {
		t.Error("negative spacing should be rejected")
	}
}

func TestGraphvizEmptyGraph(t *testing.T) {
	g := projection.Project(metagraph.New(), projection.NewExpansion())

	positions, err := Graphviz{}.Positions(context.Background(), g, Options{})
	if err != nil {
		t.Fatalf("Positions: %v", err)
	}
	if len(positions) != 0 {
		t.Errorf("empty graph should yield no positions: %v", positions)
	}
}
