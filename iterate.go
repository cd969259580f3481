package strmap

import "iter"

// Action is returned by an Iterate callback to continue or end the
// traversal. It is deliberately separate from the errors the table returns.
type Action int

const (
	Continue Action = iota
	Stop
)

func (a Action) String() string {
	if a == Stop {
		return "stop"
	}
	return "continue"
}

// Iterate calls fn for every key in slot order, which is unrelated to
// insertion order. It returns Stop if fn stopped the traversal and Continue
// once every entry was visited. fn must not modify the table.
func (t *Table[V]) Iterate(fn func(key string, value V) Action) Action {
	for i := range t.slots {
		s := &t.slots[i]
		if s.state != slotOccupied {
			continue
		}
		if fn(s.key, s.value) == Stop {
			return Stop
		}
	}
	return Continue
}

// All returns an iterator over the table's entries in the same order as
// Iterate.
func (t *Table[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		t.Iterate(func(key string, value V) Action {
			if !yield(key, value) {
				return Stop
			}
			return Continue
		})
	}
}
