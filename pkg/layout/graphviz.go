package layout

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/econic-ai/graphs/pkg/metagraph"
	"github.com/econic-ai/graphs/pkg/projection"
)

// DOT converts a visible graph to Graphviz DOT format. Collapsed-group
// summaries are drawn dashed and grey with their leaf count, and
// aggregated edges carry their underlying count as a label. The result
// can be rendered with [RenderSVG] or fed to any Graphviz tool.
func DOT(g *projection.VisibleGraph) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes {
		if n.RepresentsCount > 0 {
			label := fmt.Sprintf("%s\n(%d nodes)", n.ID, n.RepresentsCount)
			fmt.Fprintf(&buf, "  %q [label=%q, style=\"rounded,filled,dashed\", fillcolor=lightgrey];\n", n.ID, label)
			continue
		}
		fmt.Fprintf(&buf, "  %q;\n", n.ID)
	}

	buf.WriteString("\n")
	for _, e := range g.Edges {
		if e.UnderlyingCount > 1 {
			fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.From, e.To, fmt.Sprintf("x%d", e.UnderlyingCount))
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a visible graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, g *projection.VisibleGraph) ([]byte, error) {
	svg, err := renderDOT(ctx, DOT(g))
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(svg), nil
}

// renderDOT runs the Graphviz dot engine on a DOT document.
func renderDOT(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	parsed, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer parsed.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, parsed, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
	nodePosRe = regexp.MustCompile(`<title>([^<]*)</title>\s*<ellipse[^>]*cx="(-?[0-9.]+)"[^>]*cy="(-?[0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// Graphviz solves positions with the Graphviz dot engine. It renders a
// bare node-and-edge document to SVG and reads the node centers back
// out, so the full hierarchy-aware rank solver decides the arrangement
// while this package only rescales it into the frame.
type Graphviz struct{}

// Name identifies the provider in cache keys and logs.
func (Graphviz) Name() string { return "graphviz" }

// Positions computes a position for every visible node.
func (Graphviz) Positions(ctx context.Context, g *projection.VisibleGraph, opts Options) (map[string]metagraph.Vec3, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if len(g.Nodes) == 0 {
		return map[string]metagraph.Vec3{}, nil
	}

	svg, err := renderDOT(ctx, solverDOT(g))
	if err != nil {
		return nil, err
	}

	centers, err := extractCenters(svg)
	if err != nil {
		return nil, err
	}
	if len(centers) != len(g.Nodes) {
		return nil, fmt.Errorf("extract positions: got %d of %d nodes", len(centers), len(g.Nodes))
	}
	return fitToFrame(centers, opts), nil
}

// solverDOT emits the minimal document for position solving: default
// ellipse nodes, whose centers extract cleanly from the SVG output.
func solverDOT(g *projection.VisibleGraph) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	for _, n := range g.Nodes {
		fmt.Fprintf(&buf, "  %q;\n", n.ID)
	}
	for _, e := range g.Edges {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}
	buf.WriteString("}\n")
	return buf.String()
}

// extractCenters pulls node centers out of a Graphviz SVG. Node groups
// carry a <title> with the node ID followed by the <ellipse> outline;
// edge titles are followed by paths and never match.
func extractCenters(svg []byte) (map[string]metagraph.Vec3, error) {
	matches := nodePosRe.FindAllSubmatch(svg, -1)
	if matches == nil {
		return nil, fmt.Errorf("extract positions: no node centers in SVG")
	}

	centers := make(map[string]metagraph.Vec3, len(matches))
	for _, m := range matches {
		id := html.UnescapeString(string(m[1]))
		x, err := strconv.ParseFloat(string(m[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("extract positions: bad cx for %q: %w", id, err)
		}
		y, err := strconv.ParseFloat(string(m[3]), 64)
		if err != nil {
			return nil, fmt.Errorf("extract positions: bad cy for %q: %w", id, err)
		}
		centers[id] = metagraph.Vec3{X: x, Y: y}
	}
	return centers, nil
}

// fitToFrame rescales raw solver coordinates into [0,Width] x [0,Height]
// per axis. Axes without extent collapse to the frame center.
func fitToFrame(centers map[string]metagraph.Vec3, opts Options) map[string]metagraph.Vec3 {
	var minX, maxX, minY, maxY float64
	first := true
	for _, p := range centers {
		if first {
			minX, maxX, minY, maxY = p.X, p.X, p.Y, p.Y
			first = false
			continue
		}
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}

	scale := func(v, lo, hi, size float64) float64 {
		if hi == lo {
			return size / 2
		}
		return (v - lo) / (hi - lo) * size
	}

	fitted := make(map[string]metagraph.Vec3, len(centers))
	for id, p := range centers {
		fitted[id] = metagraph.Vec3{
			X: scale(p.X, minX, maxX, opts.Width),
			Y: scale(p.Y, minY, maxY, opts.Height),
		}
	}
	return fitted
}

// Ensure Graphviz implements Provider.
var _ Provider = Graphviz{}
