// Package assembler concatenates the compressed blocks of a single file
// into one LZMA2 folder payload, stripping the interior end-of-stream
// markers that only the final block may keep.
package assembler

import (
	"fmt"

	"github.com/nguyengg/g7z/internal/lzma2"
)

// Assembler accumulates one file's compressed blocks in submission order.
type Assembler struct {
	buf []byte
}

// New returns an empty Assembler.
func New() *Assembler {
	return &Assembler{}
}

// Add appends one compressed block's bytes. block must be a complete,
// self-contained LZMA2 stream ending with lzma2.EndMarker; if another
// block follows, Add strips its trailing marker before appending, since
// only the final block of a folder may keep the terminator.
func (a *Assembler) Add(block []byte) error {
	if len(block) == 0 || block[len(block)-1] != lzma2.EndMarker {
		return fmt.Errorf("assembler: block does not end with LZMA2 end marker")
	}

	if len(a.buf) > 0 && a.buf[len(a.buf)-1] == lzma2.EndMarker {
		a.buf = a.buf[:len(a.buf)-1]
	}
	a.buf = append(a.buf, block...)
	return nil
}

// Bytes returns the assembled folder payload. The caller must have added
// at least one block.
func (a *Assembler) Bytes() []byte {
	return a.buf
}

// Len returns the number of bytes assembled so far.
func (a *Assembler) Len() int {
	return len(a.buf)
}
