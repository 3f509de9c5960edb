package g7z

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/nguyengg/g7z/internal/crc32x"
)

// signatureHeaderSize is the fixed size of the 7z start header.
const signatureHeaderSize = 32

var signature = [6]byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}

// outputSink wraps the caller's seekable sink, reserving the 32-byte start
// header placeholder on construction and tracking the absolute write
// offset so the writer core can record each pack stream's position
// relative to the pack base (always 32).
type outputSink struct {
	w      io.WriteSeeker
	offset int64
}

// newOutputSink reserves the 32-byte start header placeholder, advancing
// the sink to the pack base.
func newOutputSink(w io.WriteSeeker) (*outputSink, error) {
	if _, err := w.Write(make([]byte, signatureHeaderSize)); err != nil {
		return nil, fmt.Errorf("write start header placeholder: %w", err)
	}
	return &outputSink{w: w, offset: signatureHeaderSize}, nil
}

// Write appends p and advances the tracked offset.
func (s *outputSink) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	s.offset += int64(n)
	return n, err
}

// Offset returns the current absolute write offset.
func (s *outputSink) Offset() int64 {
	return s.offset
}

// PatchStartHeader rewinds to offset 0 and writes the final 32-byte start
// header. This is the only seek-backward the writer core performs, and
// must be the last write issued to the sink.
func (s *outputSink) PatchStartHeader(nextHeaderOffset, nextHeaderSize uint64, nextHeaderCRC uint32) error {
	var trailer [20]byte
	binary.LittleEndian.PutUint64(trailer[0:8], nextHeaderOffset)
	binary.LittleEndian.PutUint64(trailer[8:16], nextHeaderSize)
	binary.LittleEndian.PutUint32(trailer[16:20], nextHeaderCRC)

	startHeaderCRC := crc32x.Checksum(trailer[:])

	var header [signatureHeaderSize]byte
	copy(header[0:6], signature[:])
	header[6] = 0 // version major
	header[7] = 4 // version minor
	binary.LittleEndian.PutUint32(header[8:12], startHeaderCRC)
	copy(header[12:32], trailer[:])

	if _, err := s.w.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek to start header: %w", err)
	}
	if _, err := s.w.Write(header[:]); err != nil {
		return fmt.Errorf("write start header: %w", err)
	}
	return nil
}
