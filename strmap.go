package strmap

import (
	"fmt"
	"math"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
)

type slotState uint8

const (
	slotEmpty slotState = iota
	slotOccupied
	slotTombstone
)

type slot[V any] struct {
	state slotState
	key   string
	value V
}

// Table is an open-addressing hash table from string keys to caller-owned
// values of type V. A Table is not safe for concurrent use.
type Table[V any] struct {
	slots      []slot[V]
	count      int
	tombstones int
	rebuilds   int
	opts       Options
	destroyed  bool
}

// Stats is a snapshot of a table's occupancy.
type Stats struct {
	Len        int
	Capacity   int
	Tombstones int
	Rebuilds   int
}

// New creates an empty table with DefaultOptions.
func New[V any]() *Table[V] {
	opts := DefaultOptions()
	return &Table[V]{
		slots: make([]slot[V], opts.InitialCapacity),
		opts:  opts,
	}
}

// NewWithOptions creates an empty table. Zero option fields take their
// defaults; invalid values are reported as an error.
func NewWithOptions[V any](opts Options) (*Table[V], error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	slots, err := allocSlots[V](opts.InitialCapacity)
	if err != nil {
		return nil, &OpError{Op: "create", Err: err}
	}

	return &Table[V]{slots: slots, opts: opts}, nil
}

// Put stores value under key, overwriting the value of an existing key in
// place. The table keeps its own copy of key.
//
// Inserting a new key may rebuild the slot array first, which costs O(n) for
// that call. If the rebuild cannot allocate, Put returns ErrOutOfMemory and
// the table is left exactly as it was.
func (t *Table[V]) Put(key string, value V) error {
	if err := t.checkKey("put", key); err != nil {
		return err
	}

	idx, found, free := t.probe(key)
	if found {
		t.slots[idx].value = value
		return nil
	}

	if t.slots[free].state == slotTombstone {
		t.tombstones--
	} else if t.overloaded() {
		if err := t.rebuild(); err != nil {
			return &OpError{Op: "put", Key: key, Err: err}
		}
		free = freeIndex(t.slots, t.opts.Hasher(key))
	}

	t.slots[free] = slot[V]{state: slotOccupied, key: strings.Clone(key), value: value}
	t.count++
	return nil
}

// Get returns the value stored under key, or ErrMissing.
func (t *Table[V]) Get(key string) (V, error) {
	var zero V
	if err := t.checkKey("get", key); err != nil {
		return zero, err
	}

	idx, found, _ := t.probe(key)
	if !found {
		return zero, ErrMissing
	}
	return t.slots[idx].value, nil
}

// Remove deletes key, or returns ErrMissing. The removed value is dropped
// from the table but otherwise untouched.
func (t *Table[V]) Remove(key string) error {
	if err := t.checkKey("remove", key); err != nil {
		return err
	}

	idx, found, _ := t.probe(key)
	if !found {
		return ErrMissing
	}

	// The slot must stay distinguishable from Empty so that keys probed
	// past it remain reachable.
	t.slots[idx] = slot[V]{state: slotTombstone}
	t.count--
	t.tombstones++
	return nil
}

// Len returns the number of keys in the table.
func (t *Table[V]) Len() int {
	return t.count
}

// Capacity returns the number of slots.
func (t *Table[V]) Capacity() int {
	return len(t.slots)
}

func (t *Table[V]) Stats() Stats {
	return Stats{
		Len:        t.count,
		Capacity:   len(t.slots),
		Tombstones: t.tombstones,
		Rebuilds:   t.rebuilds,
	}
}

// Destroy releases the slot array and the table's key copies. Values are
// not touched. Every later Put, Get or Remove returns ErrDestroyed.
func (t *Table[V]) Destroy() {
	t.slots = nil
	t.count = 0
	t.tombstones = 0
	t.destroyed = true
}

func (t *Table[V]) checkKey(op, key string) error {
	if t.destroyed {
		return &OpError{Op: op, Key: key, Err: ErrDestroyed}
	}
	if key == "" {
		return &OpError{Op: op, Err: fmt.Errorf("%w: empty", ErrInvalidKey)}
	}
	if len(key) > t.opts.MaxKeyLength {
		return &OpError{Op: op, Err: fmt.Errorf("%w: length %d exceeds %d",
			ErrInvalidKey, len(key), t.opts.MaxKeyLength)}
	}
	return nil
}

// probe walks the probe sequence of key. It reports the slot holding key if
// present, and free, the first tombstone or empty slot met on the way.
func (t *Table[V]) probe(key string) (idx int, found bool, free int) {
	n := len(t.slots)
	i := int(t.opts.Hasher(key) % uint64(n))
	free = -1

	for range n {
		s := &t.slots[i]
		switch s.state {
		case slotEmpty:
			if free < 0 {
				free = i
			}
			return i, false, free
		case slotTombstone:
			if free < 0 {
				free = i
			}
		case slotOccupied:
			if s.key == key {
				return i, true, free
			}
		}

		i++
		if i == n {
			i = 0
		}
	}

	return -1, false, free
}

func (t *Table[V]) overloaded() bool {
	return float64(t.count+t.tombstones+1) > t.opts.LoadFactor*float64(len(t.slots))
}

// nextCapacity sizes the array a rebuild allocates. The capacity stays put
// when tombstones alone pushed the table over its load factor and make up at
// least an eighth of it; otherwise it grows by GrowthFactor until one more
// live entry fits.
func (t *Table[V]) nextCapacity() (int, error) {
	c := len(t.slots)
	need := float64(t.count + 1)
	grow := t.tombstones < c/8 || need > t.opts.LoadFactor*float64(c)

	for grow || need > t.opts.LoadFactor*float64(c) {
		if c > math.MaxInt/t.opts.GrowthFactor {
			return 0, fmt.Errorf("capacity %d overflows on growth: %w", c, ErrOutOfMemory)
		}
		c *= t.opts.GrowthFactor
		grow = false
	}

	if limit := t.opts.MaxCapacity; limit > 0 && c > limit {
		// At the limit a purge of whatever tombstones exist is the last resort.
		c = max(limit, len(t.slots))
		if need > t.opts.LoadFactor*float64(c) || (c == len(t.slots) && t.tombstones == 0) {
			return 0, fmt.Errorf("capacity limit %d reached with %d entries: %w", limit, t.count, ErrOutOfMemory)
		}
	}
	return c, nil
}

// rebuild rehashes every live entry into a freshly allocated array and drops
// all tombstones. The old array is only replaced once the new one is full.
func (t *Table[V]) rebuild() error {
	start := time.Now()
	oldCap := len(t.slots)

	newCap, err := t.nextCapacity()
	if err != nil {
		return err
	}

	slots, err := allocSlots[V](newCap)
	if err != nil {
		return err
	}

	for i := range t.slots {
		s := &t.slots[i]
		if s.state != slotOccupied {
			continue
		}
		slots[freeIndex(slots, t.opts.Hasher(s.key))] = *s
	}

	dropped := t.tombstones
	t.slots = slots
	t.tombstones = 0
	t.rebuilds++

	t.opts.Logger.Debug("rebuilt table",
		zap.Int("old_capacity", oldCap),
		zap.Int("new_capacity", newCap),
		zap.Int("live", t.count),
		zap.Int("tombstones_dropped", dropped),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// freeIndex returns the first non-occupied slot on the probe sequence
// starting at hash. The caller guarantees one exists.
func freeIndex[V any](slots []slot[V], hash uint64) int {
	n := len(slots)
	i := int(hash % uint64(n))
	for slots[i].state == slotOccupied {
		i++
		if i == n {
			i = 0
		}
	}
	return i
}

// allocSlots turns the runtime's recoverable allocation panics (such as a
// length out of range) into ErrOutOfMemory.
func allocSlots[V any](n int) (slots []slot[V], err error) {
	defer func() {
		if r := recover(); r != nil {
			re, ok := r.(runtime.Error)
			if !ok {
				panic(r)
			}
			slots, err = nil, fmt.Errorf("allocate %d slots: %v: %w", n, re, ErrOutOfMemory)
		}
	}()
	return make([]slot[V], n), nil
}
