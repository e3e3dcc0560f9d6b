// Package httpapi exposes a scene over HTTP. A Server owns the scene and
// serializes requests against the animation loop; a Broker streams frames
// and lifecycle events to Server-Sent Events clients.
//
// The API is JSON end to end:
//
//	GET  /api/graph                      full snapshot (nodes, edges, expanded, positions)
//	PUT  /api/graph                      replace the graph from a snapshot
//	GET  /api/visible                    current visible projection
//	POST /api/expanded                   transition to an expansion set
//	POST /api/expand/{id}                expand one group
//	POST /api/collapse/{id}              collapse one group
//	GET  /api/nodes/{id}/representative  where a node is currently drawn
//	GET  /api/events                     SSE stream
//
// Mutation bodies may carry optional transition tuning: durationMs,
// easing, staggerMs. Without them the scene defaults apply.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apperrors "github.com/econic-ai/graphs/pkg/errors"
	"github.com/econic-ai/graphs/pkg/projection"
	"github.com/econic-ai/graphs/pkg/scene"
	"github.com/econic-ai/graphs/pkg/snapshot"
	"github.com/econic-ai/graphs/pkg/transition"
)

// Server handles the REST routes over a single scene.
//
// Scenes are not safe for concurrent use, so every handler and the Run
// loop take mu around scene access. The lock covers only the scene call,
// never the response write.
type Server struct {
	mu     sync.Mutex
	sc     *scene.Scene
	broker *Broker
	logger *log.Logger
	fps    int
}

// ServerOptions configures NewServer.
type ServerOptions struct {
	// FPS is the frame rate of the Run loop. Zero means
	// transition.DefaultFPS.
	FPS int

	// Logger receives request failures. Nil means the default logger.
	Logger *log.Logger
}

// NewServer wires a scene to a broker. The broker is registered as a
// lifecycle listener here; for frames to stream too, the scene must have
// been created with the broker as its sink.
func NewServer(sc *scene.Scene, broker *Broker, opts ServerOptions) *Server {
	if opts.FPS <= 0 {
		opts.FPS = transition.DefaultFPS
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	sc.AddListener(broker)
	return &Server{sc: sc, broker: broker, logger: opts.Logger, fps: opts.FPS}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/graph", s.handleGetGraph)
		r.Put("/graph", s.handlePutGraph)
		r.Get("/visible", s.handleVisible)
		r.Post("/expanded", s.handleSetExpanded)
		r.Post("/expand/{id}", s.handleExpand)
		r.Post("/collapse/{id}", s.handleCollapse)
		r.Get("/nodes/{id}/representative", s.handleRepresentative)
		r.Get("/events", s.broker.ServeHTTP)
	})

	return r
}

// Run steps in-flight transitions at the configured frame rate until ctx
// is cancelled, then reports ctx.Err.
func (s *Server) Run(ctx context.Context) error {
	clock := transition.NewTickerClock(s.fps)
	defer clock.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-clock.Tick():
			s.mu.Lock()
			if s.sc.Running() {
				s.sc.Step(now)
			}
			s.mu.Unlock()
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetGraph(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	snap := s.sc.ExportState()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handlePutGraph(w http.ResponseWriter, r *http.Request) {
	var snap snapshot.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.ErrCodeInvalidFormat, err, "decode snapshot"))
		return
	}

	s.mu.Lock()
	err := s.sc.ImportState(snap)
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.ErrCodeInvalidDefinition, err, "import graph"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleVisible returns the last committed projection. Committed graphs
// are immutable, so marshaling after the unlock is safe even while an
// animation is replacing them.
func (s *Server) handleVisible(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	g := s.sc.Visible()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, g)
}

type expandedRequest struct {
	Expanded []string `json:"expanded"`
	optionsRequest
}

func (s *Server) handleSetExpanded(w http.ResponseWriter, r *http.Request) {
	var req expandedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.ErrCodeInvalidFormat, err, "decode request"))
		return
	}
	if err := apperrors.ValidateNodeIDs(req.Expanded); err != nil {
		s.writeError(w, err)
		return
	}
	opts, hasOpts, err := req.options()
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.Lock()
	var h *transition.Handle
	if hasOpts {
		h, err = s.sc.TransitionTo(projection.NewExpansion(req.Expanded...), opts)
	} else {
		h, err = s.sc.TransitionTo(projection.NewExpansion(req.Expanded...))
	}
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, newTransitionResponse(h))
}

func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	s.handleNodeTransition(w, r, s.sc.Expand)
}

func (s *Server) handleCollapse(w http.ResponseWriter, r *http.Request) {
	s.handleNodeTransition(w, r, s.sc.Collapse)
}

// handleNodeTransition runs one Expand or Collapse. The scene treats
// unknown IDs as no-ops, so the 404 check happens here.
func (s *Server) handleNodeTransition(w http.ResponseWriter, r *http.Request, op func(string, ...transition.Options) (*transition.Handle, error)) {
	id := chi.URLParam(r, "id")
	if err := apperrors.ValidateNodeID(id); err != nil {
		s.writeError(w, err)
		return
	}
	req, err := decodeOptions(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	opts, hasOpts, err := req.options()
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.Lock()
	if _, ok := s.sc.Node(id); !ok {
		s.mu.Unlock()
		s.writeError(w, apperrors.New(apperrors.ErrCodeNotFound, "node not found: %s", id))
		return
	}
	var h *transition.Handle
	if hasOpts {
		h, err = op(id, opts)
	} else {
		h, err = op(id)
	}
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, newTransitionResponse(h))
}

// representativeResponse reports where a node is currently drawn: itself
// when visible, otherwise the collapsed ancestor standing in for it.
// Expanded groups are not drawn as themselves and have neither.
type representativeResponse struct {
	ID             string `json:"id"`
	Representative string `json:"representative"`
	Visible        bool   `json:"visible"`
}

func (s *Server) handleRepresentative(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := apperrors.ValidateNodeID(id); err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.Lock()
	_, exists := s.sc.Node(id)
	rep, _ := s.sc.RepresentativeOf(id)
	s.mu.Unlock()
	if !exists {
		s.writeError(w, apperrors.New(apperrors.ErrCodeNotFound, "node not found: %s", id))
		return
	}
	writeJSON(w, http.StatusOK, representativeResponse{
		ID:             id,
		Representative: rep,
		Visible:        rep == id,
	})
}

// transitionResponse acknowledges an accepted transition. Outcome is set
// when it settled synchronously (instant transitions and no-ops).
type transitionResponse struct {
	ID      string `json:"id"`
	Outcome string `json:"outcome,omitempty"`
}

func newTransitionResponse(h *transition.Handle) transitionResponse {
	resp := transitionResponse{ID: h.ID()}
	if outcome, ok := h.Outcome(); ok {
		resp.Outcome = string(outcome)
	}
	return resp
}

// optionsRequest is the optional transition-tuning section of mutation
// bodies. Absent fields keep the scene defaults.
type optionsRequest struct {
	DurationMS *int   `json:"durationMs"`
	Easing     string `json:"easing"`
	StaggerMS  *int   `json:"staggerMs"`
}

// decodeOptions reads an optional JSON options body. An empty body is
// fine and yields zero options.
func decodeOptions(r *http.Request) (optionsRequest, error) {
	var req optionsRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		return optionsRequest{}, apperrors.Wrap(apperrors.ErrCodeInvalidFormat, err, "decode request")
	}
	return req, nil
}

// options converts the request into transition options. The boolean is
// false when no field was set, which lets callers take the variadic
// default path instead.
func (req optionsRequest) options() (transition.Options, bool, error) {
	if req.DurationMS == nil && req.Easing == "" && req.StaggerMS == nil {
		return transition.Options{}, false, nil
	}
	opts := transition.DefaultOptions()
	if req.DurationMS != nil {
		if *req.DurationMS < 0 {
			return transition.Options{}, false, apperrors.New(apperrors.ErrCodeInvalidInput, "durationMs must not be negative")
		}
		opts.Duration = time.Duration(*req.DurationMS) * time.Millisecond
	}
	if req.StaggerMS != nil {
		if *req.StaggerMS < 0 {
			return transition.Options{}, false, apperrors.New(apperrors.ErrCodeInvalidInput, "staggerMs must not be negative")
		}
		opts.Stagger = time.Duration(*req.StaggerMS) * time.Millisecond
	}
	if req.Easing != "" {
		e, err := transition.ParseEasing(req.Easing)
		if err != nil {
			return transition.Options{}, false, apperrors.Wrap(apperrors.ErrCodeInvalidEasing, err, "easing %q", req.Easing)
		}
		opts.Easing = e
	}
	return opts, true, nil
}
