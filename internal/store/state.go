package store

import (
	"slices"

	"github.com/benbjohnson/immutable"

	"github.com/inamate/annotate/internal/annotation"
)

// State is an immutable snapshot of every canonical record. Snapshots
// share structure, so keeping hundreds of them in history is cheap.
type State struct {
	features *immutable.Map[string, *annotation.Feature]
	order    []string
}

func emptyState() State {
	return State{features: immutable.NewMap[string, *annotation.Feature](nil)}
}

func (s State) Len() int { return s.features.Len() }

func (s State) Get(id string) (*annotation.Feature, bool) {
	return s.features.Get(id)
}

// Features returns the records in insertion order.
func (s State) Features() []*annotation.Feature {
	out := make([]*annotation.Feature, 0, len(s.order))
	for _, id := range s.order {
		if f, ok := s.features.Get(id); ok {
			out = append(out, f)
		}
	}
	return out
}

// IDs returns the ids in insertion order.
func (s State) IDs() []string { return slices.Clone(s.order) }

func (s State) with(f *annotation.Feature) State {
	_, exists := s.features.Get(f.ID)
	next := State{features: s.features.Set(f.ID, f), order: s.order}
	if !exists {
		next.order = append(slices.Clip(s.order), f.ID)
	}
	return next
}

func (s State) without(ids map[string]bool) State {
	next := State{features: s.features, order: make([]string, 0, len(s.order))}
	for _, id := range s.order {
		if ids[id] {
			next.features = next.features.Delete(id)
			continue
		}
		next.order = append(next.order, id)
	}
	return next
}

// sameRecord compares by reference: records are never mutated, so
// identical geometry and properties pointers mean nothing changed.
func sameRecord(a, b *annotation.Feature) bool {
	if a == b {
		return true
	}
	return a.Kind == b.Kind &&
		a.Geometry == b.Geometry &&
		a.Properties == b.Properties
}

// StatesEqual reports whether a and b hold the same ids mapped to
// reference-equal records.
func StatesEqual(a, b State) bool {
	if a.features == b.features {
		return true
	}
	if a.features.Len() != b.features.Len() {
		return false
	}
	itr := a.features.Iterator()
	for !itr.Done() {
		id, fa, _ := itr.Next()
		fb, ok := b.features.Get(id)
		if !ok || !sameRecord(fa, fb) {
			return false
		}
	}
	return true
}

// Change lists the ids touched by one store command.
type Change struct {
	Added   []string
	Updated []string
	Removed []string
	// Live is set when only the live overlay moved.
	Live bool
}

func (c Change) Empty() bool {
	return len(c.Added) == 0 && len(c.Updated) == 0 && len(c.Removed) == 0
}

// IDs returns every touched id.
func (c Change) IDs() []string {
	out := make([]string, 0, len(c.Added)+len(c.Updated)+len(c.Removed))
	out = append(out, c.Added...)
	out = append(out, c.Updated...)
	return append(out, c.Removed...)
}

func (c *Change) merge(other Change) {
	c.Added = append(c.Added, other.Added...)
	c.Updated = append(c.Updated, other.Updated...)
	c.Removed = append(c.Removed, other.Removed...)
	c.Live = c.Live && other.Live
}

// diff computes the change that turns a into b.
func diff(a, b State) Change {
	var ch Change
	for _, id := range b.order {
		fb, _ := b.Get(id)
		fa, ok := a.Get(id)
		switch {
		case !ok:
			ch.Added = append(ch.Added, id)
		case !sameRecord(fa, fb):
			ch.Updated = append(ch.Updated, id)
		}
	}
	for _, id := range a.order {
		if _, ok := b.Get(id); !ok {
			ch.Removed = append(ch.Removed, id)
		}
	}
	return ch
}
