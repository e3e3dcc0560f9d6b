package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/econic-ai/graphs/pkg/metagraph"
	"github.com/econic-ai/graphs/pkg/projection"
	"github.com/econic-ai/graphs/pkg/snapshot"
)

// inspectCommand creates the inspect command for examining graph files.
func (c *CLI) inspectCommand() *cobra.Command {
	var depth int

	cmd := &cobra.Command{
		Use:   "inspect [graph.json|graph.toml]",
		Short: "Show the hierarchy and statistics of a graph file",
		Long: `Show the hierarchy and statistics of a graph file.

The inspect command loads a graph file and prints its node and edge counts
followed by the hierarchy as a tree. Groups carry a trailing slash and the
number of leaves they contain; groups in the file's expanded set are
highlighted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(cmd.Context(), args[0], depth)
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 0, "limit tree depth (0 = unlimited)")

	return cmd
}

// runInspect loads the graph file and prints stats plus the hierarchy tree.
func (c *CLI) runInspect(ctx context.Context, input string, depth int) error {
	snap, err := loadSnapshot(input)
	if err != nil {
		return err
	}
	store, exp, err := snapshot.Restore(snap)
	if err != nil {
		return fmt.Errorf("restore %s: %w", input, err)
	}
	loggerFromContext(ctx).Debug("Loaded graph", "nodes", store.NodeCount(), "edges", store.EdgeCount())

	fmt.Println(StyleTitle.Render(filepath.Base(input)))
	printNewline()

	printKeyValue("Nodes", StyleNumber.Render(strconv.Itoa(store.NodeCount())))
	printKeyValue("Leaves", StyleNumber.Render(strconv.Itoa(store.LeafCount())))
	printKeyValue("Groups", StyleNumber.Render(strconv.Itoa(store.GroupCount())))
	printKeyValue("Edges", StyleNumber.Render(strconv.Itoa(store.EdgeCount())))
	printKeyValue("Roots", StyleNumber.Render(strconv.Itoa(len(store.Roots()))))
	printKeyValue("Depth", StyleNumber.Render(strconv.Itoa(maxDepth(store))))
	printKeyValue("Expanded", expandedLabel(exp))
	printNewline()

	fmt.Print(hierarchyTree(store, exp, depth))
	printNewline()
	printNextStep("Project", "graphs project "+input)

	return nil
}

// expandedLabel formats the expanded set as "N (a, b)" or "0".
func expandedLabel(exp projection.Expansion) string {
	ids := exp.IDs()
	if len(ids) == 0 {
		return "0"
	}
	return fmt.Sprintf("%d (%s)", len(ids), strings.Join(ids, ", "))
}

// maxDepth returns the deepest hierarchy level in the store.
func maxDepth(s *metagraph.Store) int {
	depth := 0
	for _, n := range s.Nodes() {
		if n.Depth > depth {
			depth = n.Depth
		}
	}
	return depth
}

// hierarchyTree renders the store's hierarchy with box-drawing connectors.
// depth limits how many levels are shown; 0 means no limit.
func hierarchyTree(s *metagraph.Store, exp projection.Expansion, depth int) string {
	var b strings.Builder
	for _, root := range s.Roots() {
		b.WriteString(nodeLabel(s, exp, root) + "\n")
		writeChildren(&b, s, exp, root, "", depth)
	}
	return b.String()
}

// writeChildren appends one hierarchy level per call. remaining counts down
// from the depth limit; starting at zero it goes negative and never hits
// one, which is how "no limit" works.
func writeChildren(b *strings.Builder, s *metagraph.Store, exp projection.Expansion, id, prefix string, remaining int) {
	if remaining == 1 {
		return
	}
	children := s.Children(id)
	for i, child := range children {
		connector, childPrefix := "├── ", prefix+"│   "
		if i == len(children)-1 {
			connector, childPrefix = "└── ", prefix+"    "
		}
		b.WriteString(prefix + connector + nodeLabel(s, exp, child) + "\n")
		writeChildren(b, s, exp, child, childPrefix, remaining-1)
	}
}

// nodeLabel formats one tree entry. Groups get a trailing slash and their
// leaf-descendant count; expanded groups are highlighted.
func nodeLabel(s *metagraph.Store, exp projection.Expansion, id string) string {
	n, ok := s.Node(id)
	if !ok || n.IsLeaf() {
		return id
	}
	label := id + "/"
	if exp.Has(id) {
		label = StyleHighlight.Render(label)
	}
	return label + StyleDim.Render(fmt.Sprintf(" (%d)", leavesUnder(s, id)))
}

// leavesUnder counts the leaf descendants of a group.
func leavesUnder(s *metagraph.Store, id string) int {
	count := 0
	for _, d := range s.Descendants(id) {
		if n, ok := s.Node(d); ok && n.IsLeaf() {
			count++
		}
	}
	return count
}
