// Package g7z is a write-only builder for 7z archives using LZMA2
// compression. It does not read or extract archives; it only produces
// them, byte-exact with the container layout the reference 7-Zip tool
// expects.
package g7z

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/nguyengg/g7z/internal/assembler"
	"github.com/nguyengg/g7z/internal/crc32x"
	"github.com/nguyengg/g7z/internal/header"
	"github.com/nguyengg/g7z/internal/lzma2"
	"github.com/nguyengg/g7z/internal/planner"
	"github.com/nguyengg/g7z/internal/scheduler"
)

// Writer builds one 7z archive onto a seekable sink. The zero value is not
// usable; construct one with New.
//
// A Writer moves through the states OPEN, FINISHING, DONE, and POISONED
// described by the archive state machine: EnqueueFile/EnqueueBytes are only
// accepted in OPEN, and Finish consumes the Writer exactly once.
type Writer struct {
	sink *outputSink
	cfg  Config

	entries []entry
	names   map[string]struct{}

	state state
}

// New reserves the 32-byte start header placeholder on sink and returns a
// Writer ready to accept entries. optFns are applied to the default
// Config (preset 6, a discard Logger) before the first entry is enqueued.
func New(sink io.WriteSeeker, optFns ...func(*Config)) (*Writer, error) {
	cfg := newDefaultConfig()
	for _, fn := range optFns {
		fn(cfg)
	}
	if verr := cfg.validate(); verr != nil {
		return nil, verr
	}

	s, err := newOutputSink(sink)
	if err != nil {
		return nil, newError(Io, "construct writer", err)
	}

	return &Writer{
		sink:  s,
		cfg:   *cfg,
		names: make(map[string]struct{}),
		state: stateOpen,
	}, nil
}

// SetCompression updates the compression config applied to entries
// enqueued after this call. Entries already enqueued keep the config that
// was active when they were added, since the core compresses everything
// in one pass during Finish rather than at enqueue time. On a validation
// error the Writer keeps its previous config.
func (w *Writer) SetCompression(optFns ...func(*Config)) error {
	if w.state != stateOpen {
		return newError(State, fmt.Sprintf("cannot set compression config while %s", w.state), nil)
	}

	cfg := w.cfg
	for _, fn := range optFns {
		fn(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	w.cfg = cfg
	return nil
}

// SetWorkers overrides the worker pool size used during Finish: a
// positive n sets the pool size, 0 restores the default of the logical
// CPU count.
func (w *Writer) SetWorkers(n int) error {
	if w.state != stateOpen {
		return newError(State, fmt.Sprintf("cannot set worker count while %s", w.state), nil)
	}
	if n < 0 {
		return newError(Threading, fmt.Sprintf("invalid worker count %d; want a positive count or 0 for the logical CPU count", n), nil)
	}
	w.cfg.Workers = n
	return nil
}

// EnqueueFile records a disk file to be read and compressed during Finish.
// The file's size and modification time are captured now; its contents
// are read later, block by block, by the scheduler's workers.
func (w *Writer) EnqueueFile(diskPath, archiveName string) error {
	if w.state != stateOpen {
		return newError(State, fmt.Sprintf("cannot enqueue file while %s", w.state), nil)
	}
	if err := w.reserveName(archiveName); err != nil {
		return err
	}

	fi, err := os.Stat(diskPath)
	if err != nil {
		return newError(Io, fmt.Sprintf("stat %s", diskPath), err)
	}
	if fi.IsDir() {
		return newError(Format, fmt.Sprintf("%s is a directory; only regular files can be enqueued", diskPath), nil)
	}

	mt := fi.ModTime()
	w.entries = append(w.entries, entry{
		name:     archiveName,
		isDisk:   true,
		diskPath: diskPath,
		size:     fi.Size(),
		modTime:  &mt,
		config:   w.cfg,
	})
	return nil
}

// EnqueueBytes records an in-memory buffer to be compressed during Finish.
// data is retained; the caller must not mutate it afterward. The CRC-32
// of data is computed immediately, since the whole buffer is already in
// hand.
func (w *Writer) EnqueueBytes(archiveName string, data []byte) error {
	if w.state != stateOpen {
		return newError(State, fmt.Sprintf("cannot enqueue bytes while %s", w.state), nil)
	}
	if err := w.reserveName(archiveName); err != nil {
		return err
	}

	w.entries = append(w.entries, entry{
		name:   archiveName,
		isDisk: false,
		data:   data,
		size:   int64(len(data)),
		crc:    crc32x.Checksum(data),
		config: w.cfg,
	})
	return nil
}

func (w *Writer) reserveName(archiveName string) error {
	if _, ok := w.names[archiveName]; ok {
		return newError(Format, fmt.Sprintf("duplicate archive name %q", archiveName), nil)
	}
	w.names[archiveName] = struct{}{}
	return nil
}

// folderState tracks the in-progress folder for the entry currently being
// assembled from consecutive blocks.
type folderState struct {
	entryIndex int
	asm        *assembler.Assembler
	digest     *crc32x.Digest
}

// Finish runs the full pipeline: it plans blocks for every enqueued entry,
// compresses them in parallel, assembles and appends each entry's folder
// payload, builds the end header, appends it, and patches the start
// header to point at it. It consumes the Writer: on success the Writer
// moves to DONE, on any error it moves to POISONED and the sink's
// contents must be discarded by the caller.
func (w *Writer) Finish() (err error) {
	if w.state != stateOpen {
		return newError(State, fmt.Sprintf("cannot finish while %s", w.state), nil)
	}
	w.state = stateFinishing
	defer func() {
		if err != nil {
			w.state = statePoisoned
			w.cfg.Logger.Printf("finish failed: %v", err)
		}
	}()

	blocks := w.planBlocks()

	files := make([]header.File, len(w.entries))
	for i := range w.entries {
		files[i] = w.fileRecord(i, w.entries[i].size > 0)
	}

	folders := make([]header.Folder, 0, len(w.entries))

	var cur *folderState

	closeCurrent := func() error {
		if cur == nil {
			return nil
		}
		e := w.entries[cur.entryIndex]
		payload := cur.asm.Bytes()
		if _, werr := w.sink.Write(payload); werr != nil {
			return newError(Io, fmt.Sprintf("write folder for %q", e.name), werr)
		}
		folders = append(folders, header.Folder{
			PackedSize:          uint64(len(payload)),
			UnpackedSize:        uint64(e.size),
			UnpackedCRC:         cur.digest.Sum32(),
			LZMA2PropertiesByte: e.config.effectivePropertiesByte(),
		})
		w.cfg.Logger.Printf("compressed %q: %s -> %s",
			e.name, humanize.Bytes(uint64(e.size)), humanize.Bytes(uint64(len(payload))))
		cur = nil
		return nil
	}

	sched := scheduler.New(w.cfg.Workers)
	w.cfg.Logger.Printf("compressing %d blocks across %d folders (%s total) with %d workers",
		len(blocks), countNonEmpty(w.entries), humanize.Bytes(uint64(totalSize(w.entries))), sched.Workers())

	// Disk blocks are read once by compress; their raw bytes are
	// stashed here for consume to fold into the running per-file CRC
	// without a second read. Entries are removed as soon as consume is
	// done with them, so memory stays bounded by the in-flight worker
	// count, same as the compressed buffers the scheduler itself holds.
	var rawMu sync.Mutex
	rawByIndex := make(map[int][]byte, w.cfg.Workers)

	compress := func(i int) ([]byte, error) {
		b := blocks[i]
		raw, rerr := b.Read()
		if rerr != nil {
			return nil, newError(Io, "read block", rerr)
		}
		out, cerr := lzma2.EncodeBlock(raw, w.entries[b.EntryIndex].config.effectiveDictSize())
		if cerr != nil {
			return nil, newError(Codec, "encode block", cerr)
		}
		if w.entries[b.EntryIndex].isDisk {
			rawMu.Lock()
			rawByIndex[i] = raw
			rawMu.Unlock()
		}
		return out, nil
	}

	consume := func(i int, data []byte) error {
		b := blocks[i]
		if cur == nil || cur.entryIndex != b.EntryIndex {
			if err := closeCurrent(); err != nil {
				return err
			}
			cur = &folderState{entryIndex: b.EntryIndex, asm: assembler.New(), digest: crc32x.NewDigest()}
		}

		if err := cur.asm.Add(data); err != nil {
			return newError(Format, fmt.Sprintf("assemble block for %q", w.entries[b.EntryIndex].name), err)
		}

		if w.entries[b.EntryIndex].isDisk {
			rawMu.Lock()
			raw := rawByIndex[i]
			delete(rawByIndex, i)
			rawMu.Unlock()
			_, _ = cur.digest.Write(raw)
		}

		return nil
	}

	if serr := sched.Run(context.Background(), len(blocks), compress, consume); serr != nil {
		var gerr *Error
		if errors.As(serr, &gerr) {
			return serr
		}
		// The pool itself failed (ended without consuming every block)
		// rather than a compress or consume call.
		return newError(Threading, "compression pipeline", serr)
	}
	if err := closeCurrent(); err != nil {
		return err
	}

	// In-memory entries' CRCs were precomputed at enqueue time; fold
	// them into the folders slice in entry order now that every disk
	// folder's digest has been finalized above. Folders were appended
	// in entry order (files are encoded in enqueue order per §5), so we
	// can walk both lists together.
	fi := 0
	for _, e := range w.entries {
		if e.size == 0 {
			continue
		}
		if !e.isDisk {
			folders[fi].UnpackedCRC = e.crc
		}
		fi++
	}

	h := &header.Header{Folders: folders, Files: files}
	payload := h.Serialize()
	nextHeaderSize := uint64(len(payload))
	nextHeaderCRC := crc32x.Checksum(payload)
	nextHeaderOffset := uint64(w.sink.Offset() - signatureHeaderSize)

	if _, werr := w.sink.Write(payload); werr != nil {
		return newError(Io, "write end header", werr)
	}

	if perr := w.sink.PatchStartHeader(nextHeaderOffset, nextHeaderSize, nextHeaderCRC); perr != nil {
		return newError(Io, "patch start header", perr)
	}

	w.state = stateDone
	w.cfg.Logger.Printf("wrote archive: %d files, %d folders, end header at %d (%d bytes)",
		len(w.entries), len(folders), nextHeaderOffset, nextHeaderSize)
	return nil
}

// fileRecord builds the FilesInfo record for entry i.
func (w *Writer) fileRecord(i int, hasStream bool) header.File {
	e := w.entries[i]
	f := header.File{Name: e.name, HasStream: hasStream}
	if e.modTime != nil {
		s := e.modTime.Unix()
		f.ModifiedTime = &s
	}
	return f
}

func (w *Writer) planBlocks() []planner.Block {
	var blocks []planner.Block
	for i, e := range w.entries {
		blockSize := e.config.effectiveBlockSize()
		if e.isDisk {
			blocks = append(blocks, planner.PlanDisk(i, e.diskPath, e.size, blockSize)...)
		} else {
			blocks = append(blocks, planner.PlanMemory(i, e.data, blockSize)...)
		}
	}
	return blocks
}

func countNonEmpty(entries []entry) int {
	n := 0
	for _, e := range entries {
		if e.size > 0 {
			n++
		}
	}
	return n
}

func totalSize(entries []entry) int64 {
	var n int64
	for _, e := range entries {
		n += e.size
	}
	return n
}
