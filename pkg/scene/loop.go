package scene

import (
	"context"
	"time"

	"github.com/econic-ai/graphs/pkg/transition"
)

// Step advances any in-flight transition to the given time and pushes the
// resulting frame to the sink. It returns false when there was nothing to
// emit. On the final frame the target projection is committed, the
// transition-end event fires, and visible-graph-changed announces the new
// state.
func (sc *Scene) Step(now time.Time) bool {
	f, ok := sc.anim.Step(now)
	if !ok {
		return false
	}

	if sc.sink != nil {
		sc.sink.SetGraph(f.Nodes, f.Edges)
	}

	if f.Final {
		if sc.target != nil {
			sc.visible = sc.target
			sc.target = nil
		}
		if sc.cur != nil {
			if out, ok := sc.cur.Outcome(); ok {
				sc.fireTransitionEnd(sc.cur.ID(), out)
			}
			sc.cur = nil
		}
		sc.fireVisibleGraphChange(sc.visible)
	}
	return true
}

// Play drives Step from a clock until the context ends. A nil clock uses
// the scene's configured clock, or a real-time ticker at
// transition.DefaultFPS as a last resort (stopped when Play returns).
//
// Play blocks; it is meant for hosts without a frame loop of their own.
// All other scene calls must happen on the same goroutine, between ticks.
func (sc *Scene) Play(ctx context.Context, clock transition.Clock) error {
	if clock == nil {
		clock = sc.clock
	}
	if clock == nil {
		tc := transition.NewTickerClock(transition.DefaultFPS)
		defer tc.Stop()
		clock = tc
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-clock.Tick():
			sc.Step(now)
		}
	}
}
