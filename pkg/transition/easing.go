package transition

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/tanema/gween/ease"
)

// ErrUnknownEasing is returned by [ParseEasing] for names outside the preset
// table. Use [EasingNames] for the accepted set.
var ErrUnknownEasing = errors.New("unknown easing")

// Easing remaps normalized transition progress. The type is closed: values
// are either one of the presets below or built through [Custom], so a plan
// can always be inspected and serialized by name without chasing arbitrary
// function values.
//
// Apply is clamped and anchored: Apply(0) is exactly 0 and Apply(1) is
// exactly 1 regardless of the curve, which is what lets the engine commit
// exact target positions on the final frame.
//
// The zero value behaves as linear; [Options.ValidateAndSetDefaults]
// replaces it with the package default.
type Easing struct {
	name string
	fn   func(float64) float64
}

// fromTween adapts a gween easing function to normalized [0,1] progress.
func fromTween(name string, fn ease.TweenFunc) Easing {
	return Easing{
		name: name,
		fn: func(t float64) float64 {
			return float64(fn(float32(t), 0, 1, 1))
		},
	}
}

var (
	EaseLinear     = fromTween("linear", ease.Linear)
	EaseInQuad     = fromTween("in-quad", ease.InQuad)
	EaseOutQuad    = fromTween("out-quad", ease.OutQuad)
	EaseInOutQuad  = fromTween("in-out-quad", ease.InOutQuad)
	EaseInCubic    = fromTween("in-cubic", ease.InCubic)
	EaseOutCubic   = fromTween("out-cubic", ease.OutCubic)
	EaseInOutCubic = fromTween("in-out-cubic", ease.InOutCubic)
	EaseInOutSine  = fromTween("in-out-sine", ease.InOutSine)
	EaseOutElastic = fromTween("out-elastic", ease.OutElastic)
	EaseOutBounce  = fromTween("out-bounce", ease.OutBounce)
)

var easings = map[string]Easing{
	"linear":       EaseLinear,
	"in-quad":      EaseInQuad,
	"out-quad":     EaseOutQuad,
	"in-out-quad":  EaseInOutQuad,
	"in-cubic":     EaseInCubic,
	"out-cubic":    EaseOutCubic,
	"in-out-cubic": EaseInOutCubic,
	"in-out-sine":  EaseInOutSine,
	"out-elastic":  EaseOutElastic,
	"out-bounce":   EaseOutBounce,
}

// Custom builds an easing from an arbitrary progress function. fn should map
// [0,1] onto [0,1]; the endpoints are anchored by Apply either way, so a
// curve that overshoots mid-flight (elastic-style) is fine. The name is only
// used by String.
func Custom(name string, fn func(float64) float64) Easing {
	return Easing{name: name, fn: fn}
}

// Apply remaps progress t through the curve. Input outside [0,1] is clamped,
// and the endpoints return exactly 0 and 1.
func (e Easing) Apply(t float64) float64 {
	switch {
	case t <= 0:
		return 0
	case t >= 1:
		return 1
	}
	if e.fn == nil {
		return t
	}
	return e.fn(t)
}

// IsZero reports whether the easing is the unset zero value, as opposed to
// an explicitly chosen curve.
func (e Easing) IsZero() bool { return e.name == "" && e.fn == nil }

// String returns the easing's name, or "linear" for the zero value.
func (e Easing) String() string {
	if e.name == "" {
		return "linear"
	}
	return e.name
}

// ParseEasing resolves a preset by name ("linear", "in-out-cubic", ...).
// Returns ErrUnknownEasing for anything else. This is the flag and config
// file entry point; programmatic callers use the preset values directly.
func ParseEasing(name string) (Easing, error) {
	if e, ok := easings[name]; ok {
		return e, nil
	}
	return Easing{}, fmt.Errorf("%q: %w", name, ErrUnknownEasing)
}

// EasingNames returns the preset names in sorted order, for flag help and
// shell completion.
func EasingNames() []string {
	return slices.Sorted(maps.Keys(easings))
}
