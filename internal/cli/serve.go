package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/econic-ai/graphs/internal/httpapi"
	apperrors "github.com/econic-ai/graphs/pkg/errors"
	"github.com/econic-ai/graphs/pkg/scene"
	"github.com/econic-ai/graphs/pkg/transition"
)

type serveOpts struct {
	addr string
	fps  int
}

func (c *CLI) serveCommand() *cobra.Command {
	opts := &serveOpts{}

	cmd := &cobra.Command{
		Use:   "serve <graph-file>",
		Short: "Serve a graph over HTTP with a live event stream",
		Long: `Serve a graph over HTTP.

The server exposes the graph as a JSON API and streams animation frames
and lifecycle events to Server-Sent Events clients:

  GET  /api/graph                      full snapshot
  PUT  /api/graph                      replace the graph
  GET  /api/visible                    current projection
  POST /api/expanded                   transition to an expansion set
  POST /api/expand/{id}                expand one group
  POST /api/collapse/{id}              collapse one group
  GET  /api/nodes/{id}/representative  where a node is drawn
  GET  /api/events                     SSE stream

The listen address comes from --addr, the GRAPHS_ADDR environment
variable (a .env file is honored), or the config file, in that order.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			addr := resolveAddr(opts.addr, cmd.Flags().Changed("addr"), cfg)
			return c.runServe(cmd.Context(), args[0], addr, opts.fps)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", defaultServeAddr, "listen address")
	cmd.Flags().IntVar(&opts.fps, "fps", transition.DefaultFPS, "animation frame rate")

	return cmd
}

// resolveAddr picks the listen address: an explicit --addr wins, then
// GRAPHS_ADDR, then the config file.
func resolveAddr(flag string, flagSet bool, cfg Config) string {
	if flagSet {
		return flag
	}
	if env := os.Getenv("GRAPHS_ADDR"); env != "" {
		return env
	}
	if cfg.Serve.Addr != "" {
		return cfg.Serve.Addr
	}
	return defaultServeAddr
}

// displayAddr rewrites a bare ":port" listen address into something a
// browser accepts.
func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}

func (c *CLI) runServe(ctx context.Context, path, addr string, fps int) error {
	if fps <= 0 {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "fps must be positive, got %d", fps)
	}

	broker := httpapi.NewBroker()
	defer broker.Close()

	sc, err := c.newScene(path, scene.Options{Sink: broker})
	if err != nil {
		return err
	}
	srv := httpapi.NewServer(sc, broker, httpapi.ServerOptions{FPS: fps, Logger: c.Logger})

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	printSuccess("Serving %s", filepath.Base(path))
	printInfo("API at %s", StyleLink.Render("http://"+displayAddr(addr)+"/api/graph"))
	printInfo("Events at %s", StyleLink.Render("http://"+displayAddr(addr)+"/api/events"))
	printDetail("Press Ctrl+C to stop")
	printNewline()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gctx)
	})

	g.Go(func() error {
		c.Logger.Info("Server starting", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	c.Logger.Info("Server stopped")
	return nil
}
