package projection

import (
	"maps"
	"slices"
)

// Expansion is the set of group IDs currently expanded. It is plain state
// with no knowledge of the store: IDs that are unknown or name leaf nodes
// may sit in the set harmlessly and are ignored by [Project]. This keeps
// expansion state stable across structural mutations - collapsing a group,
// removing it, and re-adding it later does not resurrect stale visibility.
//
// The zero value is not usable for writes - use NewExpansion.
type Expansion map[string]struct{}

// NewExpansion creates an expansion set holding the given IDs.
func NewExpansion(ids ...string) Expansion {
	e := make(Expansion, len(ids))
	for _, id := range ids {
		e[id] = struct{}{}
	}
	return e
}

// Has reports whether id is in the set. Safe on a nil set.
func (e Expansion) Has(id string) bool {
	_, ok := e[id]
	return ok
}

// Add inserts the given IDs.
func (e Expansion) Add(ids ...string) {
	for _, id := range ids {
		e[id] = struct{}{}
	}
}

// Remove deletes the given IDs. Absent IDs are ignored.
func (e Expansion) Remove(ids ...string) {
	for _, id := range ids {
		delete(e, id)
	}
}

// Toggle flips id's membership and reports the new state
// (true when id is now in the set).
func (e Expansion) Toggle(id string) bool {
	if e.Has(id) {
		delete(e, id)
		return false
	}
	e[id] = struct{}{}
	return true
}

// Clone returns an independent copy of the set.
func (e Expansion) Clone() Expansion {
	c := make(Expansion, len(e))
	maps.Copy(c, e)
	return c
}

// IDs returns the members in sorted order.
func (e Expansion) IDs() []string {
	return slices.Sorted(maps.Keys(e))
}

// Len returns the number of members.
func (e Expansion) Len() int { return len(e) }
