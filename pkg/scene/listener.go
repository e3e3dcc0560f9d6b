package scene

import (
	"github.com/econic-ai/graphs/pkg/projection"
	"github.com/econic-ai/graphs/pkg/transition"
)

// Listener receives scene lifecycle events. Dispatch is synchronous and in
// registration order; a listener must not mutate the scene from inside a
// callback.
//
// Embed BaseListener to implement only the events you care about.
type Listener interface {
	// OnStructuralChange fires after a structural mutation is applied to
	// the store. op names the operation ("add-node", "reparent", ...); id
	// is the primary node involved, or empty for bulk operations.
	OnStructuralChange(op, id string)

	// OnBeforeExpand and OnAfterExpand bracket the expansion-set commit of
	// an Expand call. The after event fires before any animation starts.
	OnBeforeExpand(id string)
	OnAfterExpand(id string)

	// OnBeforeCollapse and OnAfterCollapse are the collapse counterparts.
	OnBeforeCollapse(id string)
	OnAfterCollapse(id string)

	// OnTransitionStart fires when an animated operation begins, and
	// OnTransitionEnd when its transition resolves, completed or
	// superseded. Instant transitions fire both back to back.
	OnTransitionStart(id string)
	OnTransitionEnd(id string, outcome transition.Outcome)

	// OnVisibleGraphChange fires whenever a new projection is committed:
	// after every snap and after every transition settles. It is always
	// the last event of an operation.
	OnVisibleGraphChange(g *projection.VisibleGraph)
}

// BaseListener is a no-op implementation of Listener for embedding.
type BaseListener struct{}

func (BaseListener) OnStructuralChange(string, string)             {}
func (BaseListener) OnBeforeExpand(string)                         {}
func (BaseListener) OnAfterExpand(string)                          {}
func (BaseListener) OnBeforeCollapse(string)                       {}
func (BaseListener) OnAfterCollapse(string)                        {}
func (BaseListener) OnTransitionStart(string)                      {}
func (BaseListener) OnTransitionEnd(string, transition.Outcome)    {}
func (BaseListener) OnVisibleGraphChange(*projection.VisibleGraph) {}

// AddListener registers a listener. Listeners are notified in registration
// order.
func (sc *Scene) AddListener(l Listener) {
	if l == nil {
		return
	}
	sc.listeners = append(sc.listeners, l)
}

// RemoveListener unregisters a previously added listener.
func (sc *Scene) RemoveListener(l Listener) {
	for i, cur := range sc.listeners {
		if cur == l {
			sc.listeners = append(sc.listeners[:i], sc.listeners[i+1:]...)
			return
		}
	}
}

func (sc *Scene) fireStructuralChange(op, id string) {
	for _, l := range sc.listeners {
		l.OnStructuralChange(op, id)
	}
}

func (sc *Scene) fireBeforeExpand(id string) {
	for _, l := range sc.listeners {
		l.OnBeforeExpand(id)
	}
}

func (sc *Scene) fireAfterExpand(id string) {
	for _, l := range sc.listeners {
		l.OnAfterExpand(id)
	}
}

func (sc *Scene) fireBeforeCollapse(id string) {
	for _, l := range sc.listeners {
		l.OnBeforeCollapse(id)
	}
}

func (sc *Scene) fireAfterCollapse(id string) {
	for _, l := range sc.listeners {
		l.OnAfterCollapse(id)
	}
}

func (sc *Scene) fireTransitionStart(id string) {
	for _, l := range sc.listeners {
		l.OnTransitionStart(id)
	}
}

func (sc *Scene) fireTransitionEnd(id string, o transition.Outcome) {
	for _, l := range sc.listeners {
		l.OnTransitionEnd(id, o)
	}
}

func (sc *Scene) fireVisibleGraphChange(g *projection.VisibleGraph) {
	for _, l := range sc.listeners {
		l.OnVisibleGraphChange(g)
	}
}
