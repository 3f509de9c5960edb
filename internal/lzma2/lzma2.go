// Package lzma2 wraps github.com/ulikunitz/xz/lzma's raw LZMA2 stream
// writer into the one-block-per-call contract the scheduler needs, and
// carries the dictionary-size/properties-byte conversions the 7z folder
// metadata requires.
package lzma2

import (
	"bytes"
	"fmt"

	"github.com/ulikunitz/xz/lzma"
)

// EndMarker is the single byte that terminates every self-contained LZMA2
// stream.
const EndMarker = 0x00

// presetDictSize gives the conventional 7-Zip/xz dictionary size for each
// compression preset, matching the dictionary sizes the reference xz
// tooling selects for the same preset numbers.
var presetDictSize = [10]uint32{
	0: 256 << 10,
	1: 1 << 20,
	2: 2 << 20,
	3: 4 << 20,
	4: 4 << 20,
	5: 8 << 20,
	6: 8 << 20,
	7: 16 << 20,
	8: 32 << 20,
	9: 64 << 20,
}

// PresetDictSize returns the default dictionary size for preset, clamping
// out-of-range presets to the nearest valid one.
func PresetDictSize(preset int) uint32 {
	switch {
	case preset < 0:
		preset = 0
	case preset > 9:
		preset = 9
	}
	return presetDictSize[preset]
}

// DecodeDictSize decodes an LZMA2 properties byte into the dictionary size
// it represents, per the LZMA2 specification's 1-bit-mantissa/5-bit-exponent
// scheme: dict_size = (2 | (b & 1)) << (b>>1 + 11) for b < 40, else the
// maximum representable size.
func DecodeDictSize(b byte) uint32 {
	if b > 40 {
		return 0xFFFFFFFF
	}
	mantissa := uint64(2 | (b & 1))
	exponent := uint64(b)/2 + 11
	size := mantissa << exponent
	if size > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	return uint32(size)
}

// EncodePropertiesByte returns the smallest properties byte whose decoded
// dictionary size is greater than or equal to dictSize.
func EncodePropertiesByte(dictSize uint32) byte {
	if dictSize <= 4096 {
		return 0
	}
	for b := 1; b <= 40; b++ {
		if DecodeDictSize(byte(b)) >= dictSize {
			return byte(b)
		}
	}
	return 40
}

// EncodeBlock compresses data into one self-contained LZMA2 stream using a
// freshly constructed encoder, so no dictionary state survives across
// calls. dictSize is the dictionary capacity to configure the encoder with;
// it is the caller's responsibility to keep it consistent across all blocks
// of the same folder.
func EncodeBlock(data []byte, dictSize uint32) ([]byte, error) {
	var buf bytes.Buffer

	cfg := lzma.Writer2Config{
		DictCap: int(dictSize),
	}
	if err := cfg.Verify(); err != nil {
		return nil, fmt.Errorf("lzma2: invalid writer config: %w", err)
	}

	w, err := cfg.NewWriter2(&buf)
	if err != nil {
		return nil, fmt.Errorf("lzma2: create writer: %w", err)
	}

	if _, err = w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("lzma2: write block: %w", err)
	}

	if err = w.Close(); err != nil {
		return nil, fmt.Errorf("lzma2: close stream: %w", err)
	}

	return buf.Bytes(), nil
}
