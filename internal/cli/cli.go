package cli

import (
	"errors"
	"io"
	"io/fs"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/econic-ai/graphs/pkg/buildinfo"
	"github.com/econic-ai/graphs/pkg/cache"
	apperrors "github.com/econic-ai/graphs/pkg/errors"
	"github.com/econic-ai/graphs/pkg/scene"
	"github.com/econic-ai/graphs/pkg/snapshot"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "graphs"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "graphs",
		Short:        "Graphs animates expandable hierarchical graphs",
		Long:         `Graphs is a CLI tool for working with hierarchical graph files: it projects them to their visible graphs, animates expand and collapse transitions, plays them interactively in the terminal, and serves them over HTTP.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.projectCommand())
	root.AddCommand(c.animateCommand())
	root.AddCommand(c.playCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Scene Factory
// =============================================================================

// loadSnapshot reads a graph file, dispatching on its extension.
func loadSnapshot(path string) (snapshot.Snapshot, error) {
	snap, err := snapshot.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return snapshot.Snapshot{}, apperrors.New(apperrors.ErrCodeFileNotFound, "graph file not found: %s", path)
		}
		return snapshot.Snapshot{}, err
	}
	return snap, nil
}

// newScene loads a graph file into a fresh scene. The file's expanded set
// is applied, so the scene starts in the state the file was saved in.
func (c *CLI) newScene(path string, opts scene.Options) (*scene.Scene, error) {
	snap, err := loadSnapshot(path)
	if err != nil {
		return nil, err
	}
	store, exp, err := snapshot.Restore(snap)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = c.Logger
	}
	sc := scene.New(store, opts)
	sc.SetExpanded(exp.IDs()...)
	return sc, nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cache.DefaultDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Flag Helpers
// =============================================================================

// parseIDList parses a comma-separated ID list into a slice.
// Whitespace around entries is trimmed and empty entries are dropped.
func parseIDList(s string) []string {
	if s == "" {
		return nil
	}
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
