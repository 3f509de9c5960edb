// Package planner splits a logical entry (an in-memory buffer or a disk
// file) into an ordered sequence of block descriptors that tile its
// content with no gaps or overlaps.
package planner

import (
	"fmt"
	"os"
)

// Source distinguishes where a Block's bytes come from.
type Source int

const (
	// SourceMemory means Block.Data already holds the block's bytes.
	SourceMemory Source = iota
	// SourceDisk means the block must be read from Path at Offset for
	// Length bytes.
	SourceDisk
)

// Block is one input-block descriptor: an index into the entry list, the
// byte range it covers, and how to obtain its bytes.
type Block struct {
	EntryIndex int
	Offset     int64
	Length     int64

	Source Source
	Path   string // valid when Source == SourceDisk
	Data   []byte // valid when Source == SourceMemory
}

// Read returns the bytes for this block, opening and positionally reading
// the backing file when Source is SourceDisk.
func (b Block) Read() ([]byte, error) {
	if b.Source == SourceMemory {
		return b.Data, nil
	}

	f, err := os.Open(b.Path)
	if err != nil {
		return nil, fmt.Errorf("planner: open %s: %w", b.Path, err)
	}
	defer f.Close()

	buf := make([]byte, b.Length)
	if _, err = f.ReadAt(buf, b.Offset); err != nil {
		return nil, fmt.Errorf("planner: read %s at %d: %w", b.Path, b.Offset, err)
	}
	return buf, nil
}

// PlanMemory yields the block descriptors tiling an in-memory buffer.
// Empty buffers yield no blocks.
func PlanMemory(entryIndex int, data []byte, blockSize int64) []Block {
	if len(data) == 0 {
		return nil
	}

	var blocks []Block
	var off int64
	total := int64(len(data))
	for off < total {
		n := blockSize
		if remaining := total - off; n > remaining {
			n = remaining
		}
		blocks = append(blocks, Block{
			EntryIndex: entryIndex,
			Offset:     off,
			Length:     n,
			Source:     SourceMemory,
			Data:       data[off : off+n],
		})
		off += n
	}
	return blocks
}

// PlanDisk yields the block descriptors tiling a disk file of the given
// size, without reading any bytes. Empty files yield no blocks.
func PlanDisk(entryIndex int, path string, size int64, blockSize int64) []Block {
	if size == 0 {
		return nil
	}

	var blocks []Block
	var off int64
	for off < size {
		n := blockSize
		if remaining := size - off; n > remaining {
			n = remaining
		}
		blocks = append(blocks, Block{
			EntryIndex: entryIndex,
			Offset:     off,
			Length:     n,
			Source:     SourceDisk,
			Path:       path,
		})
		off += n
	}
	return blocks
}
