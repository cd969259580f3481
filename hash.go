package strmap

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/taigrr/colorhash"
)

// Hasher maps a key to its home slot before reduction modulo the capacity.
// It must be deterministic for the lifetime of a table.
type Hasher func(key string) uint64

// XXHash is the default hasher.
func XXHash(key string) uint64 {
	return xxhash.Sum64String(key)
}

const (
	offset64 = 14695981039346656037
	prime64  = 1099511628211
)

// FNV1a computes a 64-bit FNV-1a hash of the key
func FNV1a(key string) uint64 {
	hash := uint64(offset64)
	for i := 0; i < len(key); i++ {
		hash ^= uint64(key[i])
		hash *= prime64
	}
	return hash
}

// ColorHash hashes with github.com/taigrr/colorhash.
func ColorHash(key string) uint64 {
	return uint64(colorhash.HashString(key))
}

var hashers = map[string]Hasher{
	"xxhash":    XXHash,
	"fnv1a":     FNV1a,
	"colorhash": ColorHash,
}

// HasherNames lists the names accepted by HasherByName.
func HasherNames() []string {
	return []string{"xxhash", "fnv1a", "colorhash"}
}

// HasherByName returns the built-in hasher registered under name.
func HasherByName(name string) (Hasher, error) {
	h, ok := hashers[name]
	if !ok {
		return nil, fmt.Errorf("unknown hasher %q (want one of %v)", name, HasherNames())
	}
	return h, nil
}
