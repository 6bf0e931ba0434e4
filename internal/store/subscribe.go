package store

import "slices"

type subscriber struct {
	check func()
}

// Subscribe calls fn with the selector's result whenever it changes
// according to equal. Subscribers run synchronously after each command,
// or once at the end of a batch. The returned func unsubscribes.
func Subscribe[T any](s *Store, selector func(*Store) T, equal func(a, b T) bool, fn func(T)) func() {
	prev := selector(s)
	sub := &subscriber{}
	sub.check = func() {
		next := selector(s)
		if equal(prev, next) {
			return
		}
		prev = next
		fn(next)
	}
	s.subs = append(s.subs, sub)
	return func() {
		s.subs = slices.DeleteFunc(s.subs, func(other *subscriber) bool { return other == sub })
	}
}

// Equal compares comparable values.
func Equal[T comparable](a, b T) bool { return a == b }

// ShallowEqual compares slices element by element.
func ShallowEqual[T comparable](a, b []T) bool { return slices.Equal(a, b) }

func (s *Store) notify() {
	if s.batchDepth > 0 {
		s.dirty = true
		return
	}
	s.dirty = false
	for _, sub := range slices.Clone(s.subs) {
		sub.check()
	}
}
