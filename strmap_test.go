package strmap_test

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"
	"unsafe"

	"github.com/theflywheel/strmap"
)

const (
	keyPrefix = "somekey"
	keyCount  = 1024 * 1024
)

type record struct {
	key    string
	number int
}

func TestBasicOperations(t *testing.T) {
	m := strmap.New[*record]()
	defer m.Destroy()

	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("%s%d", keyPrefix, i)
		if err := m.Put(key, &record{key: key, number: i * 100}); err != nil {
			t.Fatalf("Failed to put key %s: %v", key, err)
		}
	}

	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("%s%d", keyPrefix, i)
		r, err := m.Get(key)
		if err != nil {
			t.Fatalf("Key %s not found: %v", key, err)
		}
		if r.number != i*100 {
			t.Errorf("Value mismatch for key %s: expected %d, got %d", key, i*100, r.number)
		}
	}

	if m.Len() != 10 {
		t.Errorf("Expected length 10, got %d", m.Len())
	}
}

// TestOverwrite tests overwriting existing keys
func TestOverwrite(t *testing.T) {
	m := strmap.New[int]()

	if err := m.Put("answer", 41); err != nil {
		t.Fatalf("Failed to put initial value: %v", err)
	}
	if err := m.Put("answer", 42); err != nil {
		t.Fatalf("Failed to overwrite value: %v", err)
	}

	v, err := m.Get("answer")
	if err != nil {
		t.Fatalf("Key not found after overwrite: %v", err)
	}
	if v != 42 {
		t.Fatalf("Expected updated value 42, got %d", v)
	}
	if m.Len() != 1 {
		t.Errorf("Expected length 1 after overwrite, got %d", m.Len())
	}
}

func TestMissing(t *testing.T) {
	m := strmap.New[int]()

	if _, err := m.Get("never"); !errors.Is(err, strmap.ErrMissing) {
		t.Errorf("Expected ErrMissing for absent key, got %v", err)
	}

	if err := m.Put("gone", 1); err != nil {
		t.Fatalf("Failed to put: %v", err)
	}
	if err := m.Remove("gone"); err != nil {
		t.Fatalf("Failed to remove: %v", err)
	}

	v, err := m.Get("gone")
	if !errors.Is(err, strmap.ErrMissing) {
		t.Errorf("Expected ErrMissing for removed key, got %v", err)
	}
	if v != 0 {
		t.Errorf("Expected zero value for missing key, got %d", v)
	}
	if s := strmap.StatusOf(err); s != strmap.Missing {
		t.Errorf("Expected status %v, got %v", strmap.Missing, s)
	}
}

func TestRemove(t *testing.T) {
	m := strmap.New[string]()
	m.Put("field1", "value1")
	m.Put("field2", "value2")

	if err := m.Remove("field1"); err != nil {
		t.Fatalf("Expected field1 to be removed, got %v", err)
	}
	if m.Len() != 1 {
		t.Errorf("Expected length 1, got %d", m.Len())
	}

	if err := m.Remove("nonexistent"); !errors.Is(err, strmap.ErrMissing) {
		t.Errorf("Expected ErrMissing removing absent key, got %v", err)
	}
	if err := m.Remove("field1"); !errors.Is(err, strmap.ErrMissing) {
		t.Errorf("Expected ErrMissing removing field1 twice, got %v", err)
	}
	if m.Len() != 1 {
		t.Errorf("Length changed by failed removes: got %d", m.Len())
	}

	if v, err := m.Get("field2"); err != nil || v != "value2" {
		t.Errorf("Expected field2 to survive, got %q, %v", v, err)
	}
}

func TestInvalidKeys(t *testing.T) {
	m, err := strmap.NewWithOptions[int](strmap.Options{MaxKeyLength: 8})
	if err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	testCases := []struct {
		name string
		key  string
	}{
		{"Empty", ""},
		{"Too_Long", "123456789"},
		{"Way_Too_Long", strings.Repeat("k", 1024)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := m.Put(tc.key, 1); !errors.Is(err, strmap.ErrInvalidKey) {
				t.Errorf("Put: expected ErrInvalidKey, got %v", err)
			}
			if _, err := m.Get(tc.key); !errors.Is(err, strmap.ErrInvalidKey) {
				t.Errorf("Get: expected ErrInvalidKey, got %v", err)
			}
			if err := m.Remove(tc.key); !errors.Is(err, strmap.ErrInvalidKey) {
				t.Errorf("Remove: expected ErrInvalidKey, got %v", err)
			}
		})
	}

	if err := m.Put("12345678", 1); err != nil {
		t.Errorf("Key of exactly MaxKeyLength rejected: %v", err)
	}
	if m.Len() != 1 {
		t.Errorf("Expected only the valid key to be stored, got length %d", m.Len())
	}
}

// TestNilValue tests that nil values are stored as given
func TestNilValue(t *testing.T) {
	m := strmap.New[*record]()

	if err := m.Put("nil", nil); err != nil {
		t.Fatalf("Failed to store nil value: %v", err)
	}

	r, err := m.Get("nil")
	if err != nil {
		t.Fatalf("Key with nil value not found: %v", err)
	}
	if r != nil {
		t.Errorf("Expected nil value, got %+v", r)
	}
}

// TestKeyIsCopied reuses the caller's key buffer after Put and checks the
// stored key is unaffected.
func TestKeyIsCopied(t *testing.T) {
	m := strmap.New[int]()

	buf := []byte("alpha")
	if err := m.Put(unsafe.String(&buf[0], len(buf)), 1); err != nil {
		t.Fatalf("Failed to put: %v", err)
	}
	copy(buf, "omega")

	if v, err := m.Get("alpha"); err != nil || v != 1 {
		t.Fatalf("Expected alpha => 1 after buffer reuse, got %d, %v", v, err)
	}
	if _, err := m.Get("omega"); !errors.Is(err, strmap.ErrMissing) {
		t.Errorf("Expected omega to be missing, got %v", err)
	}

	m.Iterate(func(key string, _ int) strmap.Action {
		if key != "alpha" {
			t.Errorf("Iterate saw key %q, want alpha", key)
		}
		return strmap.Continue
	})
}

func TestValuesAreNotOwned(t *testing.T) {
	m := strmap.New[*record]()
	r := &record{key: "owned", number: 7}

	m.Put("owned", r)
	m.Put("owned", r)
	if err := m.Remove("owned"); err != nil {
		t.Fatalf("Failed to remove: %v", err)
	}
	m.Destroy()

	if r.key != "owned" || r.number != 7 {
		t.Errorf("Value modified by the table: %+v", r)
	}
}

// TestCountInvariant runs a random mix of operations against a Go map and
// checks Len and every lookup agree with it.
func TestCountInvariant(t *testing.T) {
	m := strmap.New[int]()
	want := make(map[string]int)
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 50_000; i++ {
		key := fmt.Sprintf("k%d", rng.IntN(2_000))
		switch rng.IntN(3) {
		case 0, 1:
			if err := m.Put(key, i); err != nil {
				t.Fatalf("Failed to put %s: %v", key, err)
			}
			want[key] = i
		case 2:
			err := m.Remove(key)
			if _, ok := want[key]; ok {
				if err != nil {
					t.Fatalf("Failed to remove present key %s: %v", key, err)
				}
				delete(want, key)
			} else if !errors.Is(err, strmap.ErrMissing) {
				t.Fatalf("Expected ErrMissing removing %s, got %v", key, err)
			}
		}

		if m.Len() != len(want) {
			t.Fatalf("Step %d: length %d, reference %d", i, m.Len(), len(want))
		}
	}

	for key, v := range want {
		got, err := m.Get(key)
		if err != nil || got != v {
			t.Errorf("Key %s: expected %d, got %d, %v", key, v, got, err)
		}
	}

	present := 0
	for i := 0; i < 2_000; i++ {
		if _, err := m.Get(fmt.Sprintf("k%d", i)); err == nil {
			present++
		}
	}
	if present != m.Len() {
		t.Errorf("Found %d keys by lookup, length is %d", present, m.Len())
	}

	st := m.Stats()
	if float64(st.Len+st.Tombstones) > strmap.DefaultLoadFactor*float64(st.Capacity) {
		t.Errorf("Load factor exceeded: %+v", st)
	}
}

// TestMillionKeys walks the full somekey0..somekey1048575 scenario:
// populate, verify, probe a key that was never inserted, iterate for a
// sentinel, check the length and remove everything.
func TestMillionKeys(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping million key scenario in short mode")
	}

	m := strmap.New[*record]()
	defer m.Destroy()

	for i := 0; i < keyCount; i++ {
		r := &record{key: fmt.Sprintf("%s%d", keyPrefix, i), number: i}
		if err := m.Put(r.key, r); err != nil {
			t.Fatalf("Failed to put key %d: %v", i, err)
		}
	}

	for i := 0; i < keyCount; i++ {
		r, err := m.Get(fmt.Sprintf("%s%d", keyPrefix, i))
		if err != nil {
			t.Fatalf("Key %d not found: %v", i, err)
		}
		if r.number != i {
			t.Fatalf("Value mismatch for key %d: got %d", i, r.number)
		}
	}

	if _, err := m.Get(fmt.Sprintf("%s%d", keyPrefix, keyCount)); !errors.Is(err, strmap.ErrMissing) {
		t.Fatalf("Expected ErrMissing for never inserted key, got %v", err)
	}

	sentinel := record{key: keyPrefix + "100", number: 100}
	found := 0
	action := m.Iterate(func(_ string, r *record) strmap.Action {
		if *r == sentinel {
			found++
			return strmap.Stop
		}
		return strmap.Continue
	})
	if action != strmap.Stop || found != 1 {
		t.Fatalf("Expected sentinel found once with Stop, got %d and %v", found, action)
	}

	if m.Len() != keyCount {
		t.Fatalf("Expected length %d, got %d", keyCount, m.Len())
	}
	if st := m.Stats(); st.Rebuilds < 2 {
		t.Errorf("Expected several growths, got %+v", st)
	}

	for i := 0; i < keyCount; i++ {
		key := fmt.Sprintf("%s%d", keyPrefix, i)
		if _, err := m.Get(key); err != nil {
			t.Fatalf("Key %d not found before removal: %v", i, err)
		}
		if err := m.Remove(key); err != nil {
			t.Fatalf("Failed to remove key %d: %v", i, err)
		}
		if _, err := m.Get(key); !errors.Is(err, strmap.ErrMissing) {
			t.Fatalf("Key %d still present after removal: %v", i, err)
		}
	}

	if m.Len() != 0 {
		t.Errorf("Expected empty table, got length %d", m.Len())
	}
}

func TestDestroy(t *testing.T) {
	m := strmap.New[int]()
	m.Put("a", 1)
	m.Put("b", 2)

	m.Destroy()
	m.Destroy()

	if m.Len() != 0 {
		t.Errorf("Expected length 0 after destroy, got %d", m.Len())
	}
	if m.Capacity() != 0 {
		t.Errorf("Expected capacity 0 after destroy, got %d", m.Capacity())
	}
	if err := m.Put("c", 3); !errors.Is(err, strmap.ErrDestroyed) {
		t.Errorf("Put: expected ErrDestroyed, got %v", err)
	}
	if _, err := m.Get("a"); !errors.Is(err, strmap.ErrDestroyed) {
		t.Errorf("Get: expected ErrDestroyed, got %v", err)
	}
	if err := m.Remove("a"); !errors.Is(err, strmap.ErrDestroyed) {
		t.Errorf("Remove: expected ErrDestroyed, got %v", err)
	}

	visited := 0
	if a := m.Iterate(func(string, int) strmap.Action { visited++; return strmap.Continue }); a != strmap.Continue {
		t.Errorf("Expected Continue from destroyed table, got %v", a)
	}
	if visited != 0 {
		t.Errorf("Visited %d entries of a destroyed table", visited)
	}
}
