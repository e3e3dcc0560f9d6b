package transition

import (
	"fmt"
	"time"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, API, and Player
// =============================================================================

const (
	// DefaultDuration is the wall-clock length of a transition. Short enough
	// to feel immediate, long enough to read which node went where.
	DefaultDuration = 300 * time.Millisecond

	// maxStaggerShare caps how far into the timeline a staggered node may
	// start. Staggered nodes always keep at least the last tenth of the
	// timeline to animate, so every window closes with the global clock.
	maxStaggerShare = 0.9
)

// DefaultEasing is the curve applied when options leave it unset.
var DefaultEasing = EaseInOutCubic

// Options configures one transition run.
type Options struct {
	// Duration is the wall-clock length. Zero is valid and means the
	// transition commits synchronously with a single final frame.
	Duration time.Duration

	// Easing remaps progress for every animated node. The zero value is
	// replaced by DefaultEasing.
	Easing Easing

	// Stagger delays each entering (and exiting) node by its index times
	// this amount. Moving nodes are never staggered. Zero disables it.
	Stagger time.Duration

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// DefaultOptions returns the package defaults.
func DefaultOptions() Options {
	return Options{Duration: DefaultDuration, Easing: DefaultEasing}
}

// ValidateAndSetDefaults checks fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect
// as calling it once. A zero Duration is preserved: it is the synchronous
// commit, not an unset value.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Duration < 0 {
		return fmt.Errorf("duration must not be negative, got %v", o.Duration)
	}
	if o.Stagger < 0 {
		return fmt.Errorf("stagger must not be negative, got %v", o.Stagger)
	}
	if o.Easing.fn == nil && o.Easing.name == "" {
		o.Easing = DefaultEasing
	}
	o.validated = true
	return nil
}
