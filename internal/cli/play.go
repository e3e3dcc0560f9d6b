package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	apperrors "github.com/econic-ai/graphs/pkg/errors"
	"github.com/econic-ai/graphs/pkg/layout"
	"github.com/econic-ai/graphs/pkg/projection"
	"github.com/econic-ai/graphs/pkg/scene"
	"github.com/econic-ai/graphs/pkg/transition"
)

// Player styles
var (
	playSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	playBorderStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 1)
)

// playCommand creates the play command for interactive terminal playback.
func (c *CLI) playCommand() *cobra.Command {
	var (
		watch    bool
		fps      int
		duration time.Duration
		easing   string
		stagger  time.Duration
	)
	fps = transition.DefaultFPS
	duration = transition.DefaultDuration
	easing = transition.DefaultEasing.String()

	cmd := &cobra.Command{
		Use:   "play [graph.json|graph.toml]",
		Short: "Play a graph interactively in the terminal",
		Long: `Play a graph interactively in the terminal.

The play command opens a full-screen player showing the visible graph on a
character grid. Moving the cursor selects a node; enter expands a collapsed
group or collapses the group around a leaf, animating the change. With
--watch, the file is reloaded whenever it changes on disk.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			topts, err := resolveTransition(cfg, duration, easing, stagger, cmd.Flags().Changed)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("fps") && cfg.Play.FPS > 0 {
				fps = cfg.Play.FPS
			}
			return c.runPlay(cmd.Context(), args[0], fps, watch, topts)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload when the file changes")
	cmd.Flags().IntVar(&fps, "fps", fps, "playback frames per second")
	cmd.Flags().DurationVar(&duration, "duration", duration, "transition duration")
	cmd.Flags().StringVar(&easing, "easing", easing, "easing curve: "+strings.Join(transition.EasingNames(), ", "))
	cmd.Flags().DurationVar(&stagger, "stagger", stagger, "per-node entry delay")

	return cmd
}

// runPlay builds the scene and runs the bubbletea program.
func (c *CLI) runPlay(ctx context.Context, path string, fps int, watch bool, topts transition.Options) error {
	if fps <= 0 {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "fps must be positive, got %d", fps)
	}

	// The player owns the terminal; scene logs would corrupt it.
	quiet := log.NewWithOptions(io.Discard, log.Options{})

	frame := &latestFrame{}
	sc, err := c.newScene(path, scene.Options{Sink: frame, Logger: quiet})
	if err != nil {
		return err
	}

	var watcher *fsnotify.Watcher
	if watch {
		watcher, err = fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		defer watcher.Close()
		// Watch the directory: editors replace files on save, and the
		// events land on the directory entry, not the old inode.
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
		}
	}

	m := newPlayerModel(sc, frame, path, fps, topts, watcher)
	m.relayout(sc.Expanded())

	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// =============================================================================
// Model
// =============================================================================

// latestFrame captures the scene's newest frame for the view. The sink
// contract forbids retaining the slices, so they are copied.
type latestFrame struct {
	nodes []projection.VisibleNode
	edges []projection.VisibleEdge
}

func (f *latestFrame) SetGraph(nodes []projection.VisibleNode, edges []projection.VisibleEdge) {
	f.nodes = append(f.nodes[:0], nodes...)
	f.edges = append(f.edges[:0], edges...)
}

// playTickMsg advances the animation.
type playTickMsg time.Time

// playReloadMsg asks the player to reload the graph file.
type playReloadMsg struct{}

// playWatchErrMsg reports a watcher failure; the player keeps running.
type playWatchErrMsg struct{ err error }

// playerModel is the bubbletea model for the player.
type playerModel struct {
	sc      *scene.Scene
	frame   *latestFrame
	path    string
	fps     int
	topts   transition.Options
	watcher *fsnotify.Watcher // nil without --watch

	cursor    int
	width     int
	height    int
	status    string
	statusErr bool
	quitting  bool
}

// newPlayerModel creates a player over an already-loaded scene.
func newPlayerModel(sc *scene.Scene, frame *latestFrame, path string, fps int, topts transition.Options, watcher *fsnotify.Watcher) playerModel {
	return playerModel{
		sc:      sc,
		frame:   frame,
		path:    path,
		fps:     fps,
		topts:   topts,
		watcher: watcher,
		width:   80,
		height:  24,
	}
}

func (m playerModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.tickCmd()}
	if m.watcher != nil {
		cmds = append(cmds, m.watchCmd())
	}
	return tea.Batch(cmds...)
}

// tickCmd schedules the next animation step.
func (m playerModel) tickCmd() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(t time.Time) tea.Msg {
		return playTickMsg(t)
	})
}

// watchCmd waits for the graph file to change on disk.
func (m playerModel) watchCmd() tea.Cmd {
	base := filepath.Base(m.path)
	w := m.watcher
	return func() tea.Msg {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return nil
				}
				if filepath.Base(ev.Name) != base {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					return playReloadMsg{}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return nil
				}
				return playWatchErrMsg{err}
			}
		}
	}
}

func (m playerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.frame.nodes)-1 {
				m.cursor++
			}
		case "enter", " ":
			return m.toggleSelected(), nil
		case "r":
			return m.reload(), nil
		}

	case playTickMsg:
		if m.sc.Running() {
			m.sc.Step(time.Time(msg))
		}
		if last := len(m.frame.nodes) - 1; m.cursor > last && last >= 0 {
			m.cursor = last
		}
		return m, m.tickCmd()

	case playReloadMsg:
		m = m.reload()
		if m.watcher != nil {
			return m, m.watchCmd()
		}
		return m, nil

	case playWatchErrMsg:
		m.status, m.statusErr = "watch error: "+msg.err.Error(), true
		if m.watcher != nil {
			return m, m.watchCmd()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

// toggleSelected expands or collapses around the node under the cursor:
// collapsed groups expand, leaves collapse their parent group.
func (m playerModel) toggleSelected() playerModel {
	nodes := m.frame.nodes
	if m.cursor < 0 || m.cursor >= len(nodes) {
		return m
	}
	id := nodes[m.cursor].ID
	meta, ok := m.sc.Node(id)
	if !ok {
		return m
	}

	target := id
	verb := "expanding"
	if meta.IsLeaf() {
		target = m.sc.Parent(id)
		if target == "" {
			m.status, m.statusErr = id+" has no group to collapse", true
			return m
		}
		verb = "collapsing"
	} else if m.sc.IsExpanded(target) {
		verb = "collapsing"
	}

	// Lay out the state being animated to, so entering nodes land on
	// their final positions instead of a pile at the origin.
	next := m.sc.Expanded()
	next.Toggle(target)
	m.relayout(next)

	if _, err := m.sc.Toggle(target, m.topts); err != nil {
		m.status, m.statusErr = err.Error(), true
		return m
	}
	m.status, m.statusErr = verb+" "+target, false
	return m
}

// reload re-reads the graph file into the running scene.
func (m playerModel) reload() playerModel {
	snap, err := loadSnapshot(m.path)
	if err != nil {
		m.status, m.statusErr = "reload failed: "+err.Error(), true
		return m
	}
	if err := m.sc.ImportState(snap); err != nil {
		m.status, m.statusErr = "reload failed: "+err.Error(), true
		return m
	}
	m.relayout(m.sc.Expanded())
	m.status, m.statusErr = "reloaded "+time.Now().Format("15:04:05"), false
	m.cursor = 0
	return m
}

// relayout positions the projection of the given expansion state and
// commits the coordinates to the store in one batch.
func (m playerModel) relayout(exp projection.Expansion) {
	g := projection.Project(m.sc.Store(), exp)
	positions, err := layout.Layered{}.Positions(context.Background(), g, layout.Options{})
	if err != nil {
		return
	}
	m.sc.Batch(func() {
		layout.Apply(m.sc.Store(), positions)
	})
}

// selectedID returns the ID under the cursor, or "".
func (m playerModel) selectedID() string {
	if m.cursor < 0 || m.cursor >= len(m.frame.nodes) {
		return ""
	}
	return m.frame.nodes[m.cursor].ID
}

func (m playerModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	state := "idle"
	if m.sc.Running() {
		state = "animating"
	}
	b.WriteString(StyleTitle.Render(appName + " · " + filepath.Base(m.path)))
	b.WriteString("  ")
	b.WriteString(StyleDim.Render(fmt.Sprintf("%d nodes · %d edges · %s", len(m.frame.nodes), len(m.frame.edges), state)))
	b.WriteString("\n\n")

	gridW := m.width - 6
	gridH := m.height - 8
	if gridH < 4 {
		gridH = 4
	}
	b.WriteString(playBorderStyle.Render(renderGrid(m.frame.nodes, gridW, gridH, m.cursor)))
	b.WriteString("\n")

	if sel := m.selectedID(); sel != "" {
		b.WriteString(playSelectedStyle.Render("▸ " + sel))
		if n, ok := m.sc.Node(sel); ok && n.IsGroup() {
			b.WriteString(StyleDim.Render(fmt.Sprintf(" · group, %d leaves", n.DescendantCount)))
		}
		b.WriteString("\n")
	}
	if m.status != "" {
		style := StyleSuccess
		if m.statusErr {
			style = StyleWarning
		}
		b.WriteString(style.Render(m.status) + "\n")
	}
	b.WriteString(StyleDim.Render("↑/↓ select · enter toggle · r reload · q quit") + "\n")

	return b.String()
}

// =============================================================================
// Grid Rendering
// =============================================================================

// renderGrid places the visible nodes on a character canvas by their
// positions. Nodes mid-transition (scale below one) draw with a faint
// marker; the cursor's node gets an arrow. Labels are clipped at the right
// edge.
func renderGrid(nodes []projection.VisibleNode, width, height, cursor int) string {
	if width < 16 {
		width = 16
	}
	if height < 4 {
		height = 4
	}
	if len(nodes) == 0 {
		return "empty graph"
	}

	minX, maxX := nodes[0].Pos.X, nodes[0].Pos.X
	minY, maxY := nodes[0].Pos.Y, nodes[0].Pos.Y
	for _, n := range nodes[1:] {
		minX, maxX = min(minX, n.Pos.X), max(maxX, n.Pos.X)
		minY, maxY = min(minY, n.Pos.Y), max(maxY, n.Pos.Y)
	}

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for i, n := range nodes {
		label := []rune(nodeMarker(n, i == cursor))
		col := scaleToCell(n.Pos.X, minX, maxX, width-len(label))
		row := scaleToCell(n.Pos.Y, minY, maxY, height-1)
		copy(canvas[row][col:], label)
	}

	lines := make([]string, height)
	for i, r := range canvas {
		lines[i] = string(r)
	}
	return strings.Join(lines, "\n")
}

// nodeMarker formats a node's grid label.
func nodeMarker(n projection.VisibleNode, selected bool) string {
	marker := "•"
	if n.Scale < 0.99 {
		marker = "·"
	}
	if selected {
		marker = "▸"
	}
	label := marker + n.ID
	if n.RepresentsCount > 0 {
		label += fmt.Sprintf("(+%d)", n.RepresentsCount)
	}
	return label
}

// scaleToCell maps v from [lo,hi] onto [0,limit]. A degenerate range lands
// in the middle.
func scaleToCell(v, lo, hi float64, limit int) int {
	if limit <= 0 {
		return 0
	}
	if hi == lo {
		return limit / 2
	}
	cell := int(math.Round((v - lo) / (hi - lo) * float64(limit)))
	if cell < 0 {
		cell = 0
	}
	if cell > limit {
		cell = limit
	}
	return cell
}
