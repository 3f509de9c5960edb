// Package header builds the 7z end header: the nested property-ID driven
// structure describing pack streams, folders, coders, substreams, and file
// metadata, pointed to by the start header's next_header_offset.
package header

import (
	"github.com/nguyengg/g7z/internal/binenc"
)

// Property IDs, per the 7z format.
const (
	KEnd              = 0x00
	KHeader           = 0x01
	KMainStreamsInfo  = 0x04
	KFilesInfo        = 0x05
	KPackInfo         = 0x06
	KUnpackInfo       = 0x07
	KSubStreamsInfo   = 0x08
	KSize             = 0x09
	KCRC              = 0x0A
	KFolder           = 0x0B
	KCodersUnpackSize = 0x0C
	KNumUnpackStream  = 0x0D
	KEmptyStream      = 0x0E
	KEmptyFile        = 0x0F
	KName             = 0x11
	KMTime            = 0x14
	KAttributes       = 0x15
)

// LZMA2CoderID is the 7z codec identifier for LZMA2.
const LZMA2CoderID = 0x21

// unixToFiletimeEpochOffsetSecs is the number of seconds between the
// Windows FILETIME epoch (1601-01-01) and the Unix epoch (1970-01-01).
const unixToFiletimeEpochOffsetSecs = 11_644_473_600

// UnixToFILETIME converts a Unix timestamp (seconds since epoch) to a
// Windows FILETIME (100-nanosecond intervals since 1601-01-01).
func UnixToFILETIME(unixSecs int64) uint64 {
	return uint64(unixSecs+unixToFiletimeEpochOffsetSecs) * 10_000_000
}

// Folder describes one coder chain: this core always emits exactly one
// LZMA2 coder per folder, one folder per non-empty file.
type Folder struct {
	PackedSize          uint64
	UnpackedSize        uint64
	UnpackedCRC         uint32
	LZMA2PropertiesByte byte
}

// File describes one file-table entry.
type File struct {
	Name         string
	HasStream    bool   // false for zero-byte entries
	ModifiedTime *int64 // Unix seconds, nil if unknown
}

// Header collects everything needed to serialize the end header.
type Header struct {
	Folders []Folder
	Files   []File
}

// Serialize encodes the full end header: kHeader, an optional
// MainStreamsInfo when there are folders, FilesInfo when there are files,
// and a terminating kEnd.
func (h *Header) Serialize() []byte {
	w := binenc.NewWriter()
	w.PutByte(KHeader)

	if len(h.Folders) > 0 {
		h.writeMainStreamsInfo(w)
	}
	if len(h.Files) > 0 {
		h.writeFilesInfo(w)
	}

	w.PutByte(KEnd)
	return w.Bytes()
}

func (h *Header) writeMainStreamsInfo(w *binenc.Writer) {
	w.PutByte(KMainStreamsInfo)
	h.writePackInfo(w)
	h.writeCodersInfo(w)
	h.writeSubStreamsInfo(w)
	w.PutByte(KEnd)
}

func (h *Header) writePackInfo(w *binenc.Writer) {
	w.PutByte(KPackInfo)

	// PackPos, relative to the end of the 32-byte start header.
	w.PutNumber(0)
	w.PutNumber(uint64(len(h.Folders)))

	w.PutByte(KSize)
	for _, f := range h.Folders {
		w.PutNumber(f.PackedSize)
	}

	w.PutByte(KEnd)
}

func (h *Header) writeCodersInfo(w *binenc.Writer) {
	w.PutByte(KUnpackInfo)

	w.PutByte(KFolder)
	w.PutNumber(uint64(len(h.Folders)))
	w.PutByte(0x00) // External = 0

	for _, f := range h.Folders {
		w.PutNumber(1) // NumCoders

		// Flag byte: CodecIdSize=1 (bits 0-3), not complex (bit 4), has
		// attributes (bit 5).
		w.PutByte((1 & 0x0F) | (1 << 5))
		w.PutByte(LZMA2CoderID)
		w.PutNumber(1) // PropertiesSize
		w.PutByte(f.LZMA2PropertiesByte)
	}

	w.PutByte(KCodersUnpackSize)
	for _, f := range h.Folders {
		w.PutNumber(f.UnpackedSize)
	}

	w.PutByte(KEnd)
}

func (h *Header) writeSubStreamsInfo(w *binenc.Writer) {
	w.PutByte(KSubStreamsInfo)

	// NumUnPackStream per folder is omitted: the default of one substream
	// per folder holds throughout this core.

	w.PutByte(KCRC)
	w.PutByte(0x01) // AllAreDefined
	for _, f := range h.Folders {
		w.PutUint32(f.UnpackedCRC)
	}

	w.PutByte(KEnd)
}

func (h *Header) writeFilesInfo(w *binenc.Writer) {
	w.PutByte(KFilesInfo)
	w.PutNumber(uint64(len(h.Files)))

	var emptyStream []bool
	anyEmpty := false
	for _, f := range h.Files {
		e := !f.HasStream
		emptyStream = append(emptyStream, e)
		anyEmpty = anyEmpty || e
	}
	if anyEmpty {
		writeBoolProperty(w, KEmptyStream, emptyStream)

		emptyFile := make([]bool, 0, len(emptyStream))
		for _, e := range emptyStream {
			if e {
				emptyFile = append(emptyFile, true)
			}
		}
		writeBoolProperty(w, KEmptyFile, emptyFile)
	}

	h.writeNamesProperty(w)

	anyMTime := false
	for _, f := range h.Files {
		if f.ModifiedTime != nil {
			anyMTime = true
			break
		}
	}
	if anyMTime {
		h.writeMTimeProperty(w)
	}

	w.PutByte(KEnd)
}

func (h *Header) writeNamesProperty(w *binenc.Writer) {
	names := binenc.NewWriter()
	names.PutByte(0x00) // External = 0
	for _, f := range h.Files {
		names.WriteUTF16LE(f.Name)
	}

	w.PutByte(KName)
	w.PutNumber(uint64(names.Len()))
	w.PutBytes(names.Bytes())
}

func writeBoolProperty(w *binenc.Writer, propertyID byte, bits []bool) {
	data := binenc.AppendBoolVector(nil, bits)
	w.PutByte(propertyID)
	w.PutNumber(uint64(len(data)))
	w.PutBytes(data)
}

func (h *Header) writeMTimeProperty(w *binenc.Writer) {
	data := binenc.NewWriter()

	defined := make([]bool, len(h.Files))
	allDefined := true
	for i, f := range h.Files {
		defined[i] = f.ModifiedTime != nil
		if !defined[i] {
			allDefined = false
		}
	}

	if allDefined {
		data.PutByte(0x01)
	} else {
		data.PutByte(0x00)
		data.WriteBoolVector(defined)
	}

	data.PutByte(0x00) // External = 0

	for _, f := range h.Files {
		if f.ModifiedTime != nil {
			data.PutUint64(UnixToFILETIME(*f.ModifiedTime))
		}
	}

	w.PutByte(KMTime)
	w.PutNumber(uint64(data.Len()))
	w.PutBytes(data.Bytes())
}
