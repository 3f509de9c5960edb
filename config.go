package g7z

import (
	"fmt"
	"io"
	"log"

	"github.com/nguyengg/g7z/internal/lzma2"
)

const (
	// DefaultPreset is the LZMA2 preset used when no preset has been set.
	DefaultPreset = 6

	// minBlockSize is the smallest block size this core will accept, per
	// the archive's invariant that block size must be at least 1 MiB.
	minBlockSize = 1 << 20
)

// Config carries the compression and worker-pool settings applied to
// entries enqueued from the moment it takes effect until Finish runs the
// pipeline over everything collected so far.
//
// The zero value is not directly usable; construct one via New's optFns or
// via SetCompression/SetWorkers on a *Writer.
type Config struct {
	// Preset selects the default dictionary size, 0-9, matching the
	// conventional 7-Zip compression levels. The encoder's other
	// parameters are the same for every preset.
	Preset int

	// DictSize overrides the preset's default dictionary size, if
	// nonzero. It is clamped upward to the nearest representable LZMA2
	// dictionary byte.
	DictSize uint32

	// BlockSize overrides the default intra-file block size, if
	// nonzero. The default is max(1 MiB, 2 x dict size).
	BlockSize uint32

	// Workers is the worker pool size used during Finish. 0 means
	// logical CPU count; negative counts are rejected.
	Workers int

	// Logger receives diagnostic messages about worker pool
	// construction, per-file completion, and errors. Defaults to a
	// logger writing to io.Discard so library use is silent unless the
	// caller wires one in.
	Logger *log.Logger
}

// newDefaultConfig returns the Config a fresh Writer starts with.
func newDefaultConfig() *Config {
	return &Config{
		Preset: DefaultPreset,
		Logger: log.New(io.Discard, "", 0),
	}
}

// effectiveDictSize returns DictSize if set, clamped upward to the nearest
// representable LZMA2 dictionary size, otherwise the preset default.
func (c *Config) effectiveDictSize() uint32 {
	if c.DictSize > 0 {
		return lzma2.DecodeDictSize(lzma2.EncodePropertiesByte(c.DictSize))
	}
	return lzma2.PresetDictSize(c.Preset)
}

// effectiveBlockSize returns BlockSize if set, otherwise
// max(1 MiB, 2 x dict size).
func (c *Config) effectiveBlockSize() int64 {
	if c.BlockSize > 0 {
		return int64(c.BlockSize)
	}
	if n := int64(c.effectiveDictSize()) * 2; n > minBlockSize {
		return n
	}
	return minBlockSize
}

// validate rejects a negative worker count and an explicit BlockSize that
// violates the archive's invariant that block size must be at least 1 MiB
// and at least the effective dictionary size. A BlockSize of 0 (meaning
// "use the default") always passes, since effectiveBlockSize's default
// already satisfies the invariant.
func (c *Config) validate() error {
	if c.Workers < 0 {
		return newError(Threading, fmt.Sprintf(
			"invalid worker count %d; want a positive count or 0 for the logical CPU count", c.Workers), nil)
	}

	if c.BlockSize == 0 {
		return nil
	}

	floor := c.effectiveDictSize()
	if floor < minBlockSize {
		floor = minBlockSize
	}

	if c.BlockSize < floor {
		return newError(Format, fmt.Sprintf(
			"block size %d is below the required minimum of %d (max of 1 MiB and the dictionary size)",
			c.BlockSize, floor), nil)
	}
	return nil
}

// effectivePropertiesByte returns the LZMA2 properties byte for the
// effective dictionary size.
func (c *Config) effectivePropertiesByte() byte {
	return lzma2.EncodePropertiesByte(c.effectiveDictSize())
}

// WithPreset sets the LZMA2 preset, 0-9.
func WithPreset(preset int) func(*Config) {
	return func(c *Config) {
		c.Preset = preset
	}
}

// WithDictSize overrides the preset's default dictionary size.
func WithDictSize(n uint32) func(*Config) {
	return func(c *Config) {
		c.DictSize = n
	}
}

// WithBlockSize overrides the default intra-file block size.
func WithBlockSize(n uint32) func(*Config) {
	return func(c *Config) {
		c.BlockSize = n
	}
}

// WithWorkers overrides the worker pool size used during Finish. 0 means
// logical CPU count.
func WithWorkers(n int) func(*Config) {
	return func(c *Config) {
		c.Workers = n
	}
}

// WithLogger attaches a logger to receive diagnostic messages during
// Finish.
func WithLogger(logger *log.Logger) func(*Config) {
	return func(c *Config) {
		c.Logger = logger
	}
}
