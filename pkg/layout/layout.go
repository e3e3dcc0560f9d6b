// Package layout computes positions for visible graphs.
//
// The engine treats layout as a black box: a [Provider] maps a
// projection to one position per visible node, and [Apply] feeds those
// positions back into the store as explicit positions, where following
// projections and transitions pick them up. Two providers are built in,
// a deterministic layered solver and a Graphviz adapter; [Cached] wraps
// any provider with a derived-result cache.
package layout

import (
	"context"
	"fmt"

	"github.com/econic-ai/graphs/pkg/metagraph"
	"github.com/econic-ai/graphs/pkg/projection"
)

// Default frame and spacing, in the same abstract units positions use.
const (
	DefaultWidth   = 800.0
	DefaultHeight  = 600.0
	DefaultSpacing = 120.0
)

// Options configures a layout solve.
type Options struct {
	// Width and Height frame the solved positions: every position falls
	// inside [0,Width] x [0,Height] on the XY plane.
	Width  float64
	Height float64

	// Spacing is the preferred distance between neighbouring nodes.
	// Solvers shrink it when a row would otherwise overflow the frame.
	Spacing float64

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks fields and applies defaults.
// This method is idempotent - calling it multiple times has the same
// effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Width < 0 || o.Height < 0 || o.Spacing < 0 {
		return fmt.Errorf("layout options must not be negative")
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.Spacing == 0 {
		o.Spacing = DefaultSpacing
	}
	o.validated = true
	return nil
}

// Provider computes positions for the visible nodes of a projection.
type Provider interface {
	// Positions returns one position per visible node ID. Equal inputs
	// must yield equal output, and g must not be mutated.
	Positions(ctx context.Context, g *projection.VisibleGraph, opts Options) (map[string]metagraph.Vec3, error)

	// Name identifies the provider in cache keys and logs.
	Name() string
}

// Apply writes solved positions into the store as explicit positions.
// IDs unknown to the store are skipped, which covers positions solved
// against a projection that has since changed.
func Apply(s *metagraph.Store, positions map[string]metagraph.Vec3) {
	for id, pos := range positions {
		if _, ok := s.Node(id); ok {
			s.SetPosition(id, pos)
		}
	}
}
