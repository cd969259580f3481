/*
Package strmap provides an in-process hash table from string keys to
caller-owned values.

Table is a general-purpose dictionary meant to be embedded in a host program.
It copies keys on insertion and never inspects, copies or frees values: the
caller owns them before, during and after their time in the table.

Basic usage:

	import "github.com/theflywheel/strmap"

	m := strmap.New[*Record]()
	defer m.Destroy()

	if err := m.Put("somekey42", rec); err != nil {
		log.Fatal(err)
	}

	rec, err := m.Get("somekey42")
	if errors.Is(err, strmap.ErrMissing) {
		// not present
	}

	m.Iterate(func(key string, r *Record) strmap.Action {
		if r.Number == 100 {
			return strmap.Stop
		}
		return strmap.Continue
	})

Features:

  - Open addressing with linear probing and tombstones for deletion
  - Automatic growth once (live + deleted) / capacity would exceed the load
    factor (0.7 by default), by a configurable growth factor (2 by default)
  - Growth is all-or-nothing: a failed allocation leaves the table intact
  - xxHash by default; FNV-1a and colorhash are available through Options
  - Rebuilds are logged at debug level through a zap.Logger

Implementation Details:

Each slot is Empty, Occupied or a Tombstone. Lookups start at
hash(key) mod capacity and walk forward, wrapping at the end of the array,
until they find the key or an Empty slot; tombstones are walked over so that
keys inserted past a deleted entry stay reachable. Insertion reuses the first
tombstone on the key's probe sequence.

Because the load factor is below one, every probe sequence ends at an Empty
slot. A rebuild rehashes all live entries into a new array and drops every
tombstone; the single Put that triggers it pays O(n), which shows up as a
latency spike rather than a steady cost.

A Table is not safe for concurrent use. Callers that share one between
goroutines must serialise access themselves.
*/
package strmap
