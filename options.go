package strmap

import (
	"fmt"

	"go.uber.org/zap"
)

const (
	DefaultInitialCapacity = 16
	DefaultLoadFactor      = 0.7
	DefaultGrowthFactor    = 2
	DefaultMaxKeyLength    = 256
)

// Options configures a Table. Zero fields take the defaults above.
type Options struct {
	// InitialCapacity is the number of slots allocated by NewWithOptions.
	InitialCapacity int

	// LoadFactor bounds (live + tombstones) / capacity. Must be in (0, 1)
	// so that every probe sequence meets an empty slot.
	LoadFactor float64

	// GrowthFactor multiplies the capacity on each growth step.
	GrowthFactor int

	// MaxCapacity caps growth; reaching it makes Put fail with
	// ErrOutOfMemory. Zero means no cap beyond what the runtime can allocate.
	MaxCapacity int

	// MaxKeyLength is the longest key accepted, in bytes.
	MaxKeyLength int

	Hasher Hasher
	Logger *zap.Logger
}

// DefaultOptions returns the options used by New.
func DefaultOptions() Options {
	return Options{
		InitialCapacity: DefaultInitialCapacity,
		LoadFactor:      DefaultLoadFactor,
		GrowthFactor:    DefaultGrowthFactor,
		MaxKeyLength:    DefaultMaxKeyLength,
		Hasher:          XXHash,
		Logger:          zap.NewNop(),
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.InitialCapacity == 0 {
		o.InitialCapacity = def.InitialCapacity
	}
	if o.LoadFactor == 0 {
		o.LoadFactor = def.LoadFactor
	}
	if o.GrowthFactor == 0 {
		o.GrowthFactor = def.GrowthFactor
	}
	if o.MaxKeyLength == 0 {
		o.MaxKeyLength = def.MaxKeyLength
	}
	if o.Hasher == nil {
		o.Hasher = def.Hasher
	}
	if o.Logger == nil {
		o.Logger = def.Logger
	}
	return o
}

func (o Options) validate() error {
	if o.InitialCapacity < 1 {
		return fmt.Errorf("invalid InitialCapacity %d: must be at least 1", o.InitialCapacity)
	}
	if !(o.LoadFactor > 0 && o.LoadFactor < 1) {
		return fmt.Errorf("invalid LoadFactor %v: must be in (0, 1)", o.LoadFactor)
	}
	if o.GrowthFactor < 2 {
		return fmt.Errorf("invalid GrowthFactor %d: must be at least 2", o.GrowthFactor)
	}
	if o.MaxCapacity < 0 || (o.MaxCapacity > 0 && o.MaxCapacity < o.InitialCapacity) {
		return fmt.Errorf("invalid MaxCapacity %d: must be 0 or at least InitialCapacity (%d)",
			o.MaxCapacity, o.InitialCapacity)
	}
	if o.MaxKeyLength < 1 {
		return fmt.Errorf("invalid MaxKeyLength %d: must be at least 1", o.MaxKeyLength)
	}
	return nil
}
