package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/econic-ai/graphs/pkg/cache"
	apperrors "github.com/econic-ai/graphs/pkg/errors"
	"github.com/econic-ai/graphs/pkg/layout"
	"github.com/econic-ai/graphs/pkg/metagraph"
	"github.com/econic-ai/graphs/pkg/observability"
	"github.com/econic-ai/graphs/pkg/projection"
	"github.com/econic-ai/graphs/pkg/snapshot"
)

const (
	formatJSON  = "json"
	formatDOT   = "dot"
	formatSVG   = "svg"
	formatTable = "table"

	providerLayered  = "layered"
	providerGraphviz = "graphviz"
)

// projectOpts holds the command-line flags for the project command.
type projectOpts struct {
	output   string  // output file path; empty means stdout (svg derives from input)
	format   string  // output format: json, dot, svg, table
	expand   string  // expansion override: comma-separated group IDs or "all"
	layout   bool    // compute positions before emitting
	noCache  bool    // disable layout and render caching
	width    float64 // layout frame width
	height   float64 // layout frame height
	spacing  float64 // preferred horizontal spacing
	provider string  // layout provider: layered, graphviz
}

// projectCommand creates the project command for emitting visible graphs.
func (c *CLI) projectCommand() *cobra.Command {
	opts := projectOpts{
		format:   formatJSON,
		width:    layout.DefaultWidth,
		height:   layout.DefaultHeight,
		spacing:  layout.DefaultSpacing,
		provider: providerLayered,
	}

	cmd := &cobra.Command{
		Use:   "project [graph.json|graph.toml]",
		Short: "Project a graph file to its visible graph",
		Long: `Project a graph file to its visible graph.

The project command loads a graph file, applies its expansion state (or the
one given with --expand), and emits the resulting visible graph: collapsed
groups appear as summary nodes and edges are re-routed to them.

Formats:
  json   the visible graph as indented JSON (default)
  dot    a Graphviz document for external tooling
  svg    a rendered SVG (cached between runs)
  table  a terminal table of the visible nodes

With --layout, node positions are computed first and included in the
output. Layout results are cached under the graph's content hash.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(opts.format); err != nil {
				return err
			}
			return c.runProject(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout, or <input>.svg for svg)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: json (default), dot, svg, table")
	cmd.Flags().StringVarP(&opts.expand, "expand", "e", "", "expanded group IDs (comma-separated), or 'all'")
	cmd.Flags().BoolVar(&opts.layout, "layout", false, "compute node positions before emitting")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().Float64Var(&opts.width, "width", opts.width, "layout frame width")
	cmd.Flags().Float64Var(&opts.height, "height", opts.height, "layout frame height")
	cmd.Flags().Float64Var(&opts.spacing, "spacing", opts.spacing, "preferred horizontal node spacing")
	cmd.Flags().StringVar(&opts.provider, "provider", opts.provider, "layout provider: layered (default), graphviz")

	return cmd
}

// validFormats is the set of supported output formats.
var validFormats = map[string]bool{formatJSON: true, formatDOT: true, formatSVG: true, formatTable: true}

// validateFormat checks that the requested format is supported.
func validateFormat(f string) error {
	if !validFormats[f] {
		return apperrors.New(apperrors.ErrCodeInvalidFormat, "invalid format %q (must be 'json', 'dot', 'svg', or 'table')", f)
	}
	return nil
}

// pickProvider resolves a provider name to a layout provider.
func pickProvider(name string) (layout.Provider, error) {
	switch name {
	case providerLayered:
		return layout.Layered{}, nil
	case providerGraphviz:
		return layout.Graphviz{}, nil
	}
	return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "unknown layout provider %q (must be 'layered' or 'graphviz')", name)
}

// resolveExpansion builds the expansion set for the projection. "all"
// expands every group; otherwise the comma-separated IDs are used, with
// unknown ones warned about and skipped.
func resolveExpansion(store *metagraph.Store, fileExp projection.Expansion, flag string) projection.Expansion {
	if flag == "" {
		return fileExp
	}
	if flag == "all" {
		exp := projection.NewExpansion()
		for _, n := range store.Nodes() {
			if n.IsGroup() {
				exp.Add(n.ID)
			}
		}
		return exp
	}
	exp := projection.NewExpansion()
	for _, id := range parseIDList(flag) {
		if _, ok := store.Node(id); !ok {
			printWarning("unknown node %q in --expand, skipping", id)
			continue
		}
		exp.Add(id)
	}
	return exp
}

// cacheHitRecorder counts layout cache hits during a single run.
type cacheHitRecorder struct {
	observability.NoopCacheHooks
	hits int
}

func (r *cacheHitRecorder) OnCacheHit(context.Context, string) { r.hits++ }

// runProject loads the graph, projects it, and emits the requested format.
func (c *CLI) runProject(ctx context.Context, input string, opts *projectOpts) error {
	snap, err := loadSnapshot(input)
	if err != nil {
		return err
	}
	store, fileExp, err := snapshot.Restore(snap)
	if err != nil {
		return fmt.Errorf("restore %s: %w", input, err)
	}

	exp := resolveExpansion(store, fileExp, opts.expand)
	g := projection.Project(store, exp)
	loggerFromContext(ctx).Debug("Projected", "nodes", len(g.Nodes), "edges", len(g.Edges), "expanded", exp.Len())

	cached := false
	if opts.layout {
		hit, err := c.applyLayout(ctx, store, g, opts)
		if err != nil {
			return err
		}
		cached = hit
		g = projection.Project(store, exp)
	}

	var data []byte
	switch opts.format {
	case formatJSON:
		data, err = json.MarshalIndent(g, "", "  ")
		if err != nil {
			return fmt.Errorf("encode visible graph: %w", err)
		}
		data = append(data, '\n')
	case formatDOT:
		data = []byte(layout.DOT(g))
	case formatTable:
		data = []byte(nodeTable(g))
	case formatSVG:
		data, cached, err = c.renderSVG(ctx, g, opts.noCache)
		if err != nil {
			return err
		}
	}

	outputPath := opts.output
	if outputPath == "" && opts.format == formatSVG {
		outputPath = strings.TrimSuffix(input, filepath.Ext(input)) + ".svg"
	}

	out, err := openOutput(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := out.Write(data); err != nil {
		return err
	}

	// Chrome only when writing to a file; stdout stays clean for piping.
	if outputPath != "" {
		printSuccess("Projected %s", filepath.Base(input))
		printFile(outputPath)
		printStats(len(g.Nodes), len(g.Edges), cached)
		printNewline()
		printNextStep("Play", "graphs play "+input)
	}
	return nil
}

// applyLayout computes positions for the visible graph and feeds them back
// into the store as explicit positions. It reports whether the positions
// came from the cache.
func (c *CLI) applyLayout(ctx context.Context, store *metagraph.Store, g *projection.VisibleGraph, opts *projectOpts) (bool, error) {
	provider, err := pickProvider(opts.provider)
	if err != nil {
		return false, err
	}
	cc, err := newCache(opts.noCache)
	if err != nil {
		return false, err
	}
	defer cc.Close()

	rec := &cacheHitRecorder{}
	observability.SetCacheHooks(rec)
	defer observability.Reset()

	positions, err := layout.Cached(provider, cc, 0).Positions(ctx, g, layout.Options{
		Width:   opts.width,
		Height:  opts.height,
		Spacing: opts.spacing,
	})
	if err != nil {
		return false, fmt.Errorf("compute %s layout: %w", opts.provider, err)
	}
	layout.Apply(store, positions)
	return rec.hits > 0, nil
}

// renderSVG renders the visible graph to SVG, reusing a cached artifact
// keyed on the graph's content hash when one exists.
func (c *CLI) renderSVG(ctx context.Context, g *projection.VisibleGraph, noCache bool) ([]byte, bool, error) {
	cc, err := newCache(noCache)
	if err != nil {
		return nil, false, err
	}
	defer cc.Close()

	key := cache.NewDefaultKeyer().ArtifactKey(g.Hash(), cache.ArtifactKeyOpts{Format: formatSVG})
	if data, ok, err := cc.Get(ctx, key); err == nil && ok {
		c.Logger.Debug("Render cache hit", "bytes", len(data))
		return data, true, nil
	}

	spinner := newSpinnerWithContext(ctx, "Rendering SVG...")
	spinner.Start()

	data, err := layout.RenderSVG(ctx, g)
	if err != nil {
		spinner.StopWithError("Render failed")
		return nil, false, fmt.Errorf("render svg: %w", err)
	}
	spinner.Stop()
	if spinner.Cancelled() {
		return nil, false, ctx.Err()
	}

	if err := cc.Set(ctx, key, data, cache.TTLArtifact); err != nil {
		c.Logger.Debug("Render cache write failed", "error", err)
	}
	return data, false, nil
}

// nodeTable renders the visible nodes as a terminal table.
func nodeTable(g *projection.VisibleGraph) string {
	var rows [][]string
	for _, n := range g.Nodes {
		represents := ""
		if n.RepresentsCount > 0 {
			represents = strconv.Itoa(n.RepresentsCount)
		}
		rows = append(rows, []string{
			n.ID,
			n.Kind.String(),
			strconv.Itoa(n.Depth),
			fmt.Sprintf("%.0f,%.0f", n.Pos.X, n.Pos.Y),
			represents,
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("ID", "Kind", "Depth", "Pos", "Represents").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	return t.Render() + "\n" + StyleDim.Render(fmt.Sprintf("%d visible edges", len(g.Edges))) + "\n"
}

// nopCloser wraps an io.Writer with a no-op Close method.
// It is used to make os.Stdout compatible with io.WriteCloser.
type nopCloser struct{ io.Writer }

// Close implements io.Closer with a no-op.
func (nopCloser) Close() error { return nil }

// openOutput returns a WriteCloser for the given path.
// If path is empty, it returns os.Stdout wrapped in nopCloser.
// Otherwise, it creates the file at path, overwriting if it exists.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}
