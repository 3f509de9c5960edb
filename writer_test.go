package g7z

import (
	"bytes"
	"crypto/sha256"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/bodgit/sevenzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nguyengg/g7z/internal/crc32x"
)

// extractAll opens path with the independent bodgit/sevenzip decoder and
// returns every regular file's contents keyed by name. Using a decoder this module did not write is the
// strongest local proxy for "decodes with the reference tool".
func extractAll(t *testing.T, path string) map[string][]byte {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	fi, err := f.Stat()
	require.NoError(t, err)

	zr, err := sevenzip.NewReader(f, fi.Size())
	require.NoError(t, err)

	got := make(map[string][]byte, len(zr.File))
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		rc, err := zf.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		got[zf.Name] = data
	}
	return got
}

func newTempArchive(t *testing.T) (*os.File, string) {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "g7z-*.7z")
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f, f.Name()
}

func TestSingleSmallFile(t *testing.T) {
	f, path := newTempArchive(t)

	w, err := New(f, WithPreset(6), WithWorkers(1))
	require.NoError(t, err)

	require.NoError(t, w.EnqueueBytes("hello.txt", []byte("Hello, world!")))
	require.NoError(t, w.Finish())

	got := extractAll(t, path)
	if assert.Contains(t, got, "hello.txt") {
		assert.Equal(t, []byte("Hello, world!"), got["hello.txt"])
		assert.Equal(t, sha256.Sum256([]byte("Hello, world!")), sha256.Sum256(got["hello.txt"]))
	}
}

func TestMultiBlockFile(t *testing.T) {
	f, path := newTempArchive(t)

	const size = 16 << 20
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}

	w, err := New(f, WithPreset(1), WithBlockSize(4<<20), WithWorkers(4))
	require.NoError(t, err)
	require.NoError(t, w.EnqueueBytes("pattern.bin", data))
	require.NoError(t, w.Finish())

	got := extractAll(t, path)
	assert.Equal(t, data, got["pattern.bin"])
}

func TestMixedEntriesWithEmptyFile(t *testing.T) {
	f, path := newTempArchive(t)

	zeros := make([]byte, 1<<20)

	w, err := New(f, WithPreset(6))
	require.NoError(t, err)
	require.NoError(t, w.EnqueueBytes("a", zeros))
	require.NoError(t, w.EnqueueBytes("b", []byte("readme contents")))
	require.NoError(t, w.EnqueueBytes("c", nil))
	require.NoError(t, w.Finish())

	got := extractAll(t, path)
	assert.Equal(t, zeros, got["a"])
	assert.Equal(t, []byte("readme contents"), got["b"])
	assert.Equal(t, []byte{}, got["c"])
}

func TestLargeBlockSizeSingleBlock(t *testing.T) {
	f, path := newTempArchive(t)

	data := make([]byte, 100<<10)
	for i := range data {
		data[i] = byte(i)
	}

	w, err := New(f, WithBlockSize(64<<20))
	require.NoError(t, err)
	require.NoError(t, w.EnqueueBytes("small.bin", data))
	require.NoError(t, w.Finish())

	got := extractAll(t, path)
	assert.Equal(t, data, got["small.bin"])
}

func TestPresetZeroRandomBytes(t *testing.T) {
	f, path := newTempArchive(t)

	data := make([]byte, 4<<20)
	_, err := rand.New(rand.NewSource(42)).Read(data)
	require.NoError(t, err)

	w, err := New(f, WithPreset(0))
	require.NoError(t, err)
	require.NoError(t, w.EnqueueBytes("random.bin", data))
	require.NoError(t, w.Finish())

	got := extractAll(t, path)
	assert.Equal(t, data, got["random.bin"])
}

func TestEnqueueFileRoundTrip(t *testing.T) {
	src := filepath.Join(t.TempDir(), "input.bin")
	data := bytes.Repeat([]byte("0123456789"), 100_000)
	require.NoError(t, os.WriteFile(src, data, 0644))

	f, path := newTempArchive(t)

	w, err := New(f, WithWorkers(2))
	require.NoError(t, err)
	require.NoError(t, w.EnqueueFile(src, "dir/input.bin"))
	require.NoError(t, w.Finish())

	got := extractAll(t, path)
	assert.Equal(t, data, got["dir/input.bin"])
}

func TestEnqueueFileRejectsDirectory(t *testing.T) {
	f, _ := newTempArchive(t)

	w, err := New(f)
	require.NoError(t, err)

	err = w.EnqueueFile(t.TempDir(), "dir")
	var gerr *Error
	if assert.ErrorAs(t, err, &gerr) {
		assert.Equal(t, Format, gerr.Kind)
	}
}

func TestDuplicateNameRejected(t *testing.T) {
	f, _ := newTempArchive(t)

	w, err := New(f)
	require.NoError(t, err)

	require.NoError(t, w.EnqueueBytes("dup", []byte("x")))
	err = w.EnqueueBytes("dup", []byte("y"))

	var gerr *Error
	if assert.ErrorAs(t, err, &gerr) {
		assert.Equal(t, Format, gerr.Kind)
	}
}

func TestEnqueueAfterFinishRejected(t *testing.T) {
	f, _ := newTempArchive(t)

	w, err := New(f)
	require.NoError(t, err)
	require.NoError(t, w.EnqueueBytes("a", []byte("x")))
	require.NoError(t, w.Finish())

	err = w.EnqueueBytes("b", []byte("y"))
	var gerr *Error
	if assert.ErrorAs(t, err, &gerr) {
		assert.Equal(t, State, gerr.Kind)
	}
}

func TestOrderPreservedAcrossWorkerCounts(t *testing.T) {
	names := []string{"a", "b", "c"}
	contents := [][]byte{[]byte("aaa"), []byte("bbb"), []byte("ccc")}

	for _, workers := range []int{1, 4} {
		f, path := newTempArchive(t)

		w, err := New(f, WithWorkers(workers))
		require.NoError(t, err)
		for i, n := range names {
			require.NoError(t, w.EnqueueBytes(n, contents[i]))
		}
		require.NoError(t, w.Finish())

		got := extractAll(t, path)
		for i, n := range names {
			assert.Equal(t, contents[i], got[n])
		}
	}
}

// TestEndHeaderDeterministicAcrossWorkerCounts checks that the metadata
// tables are bytewise identical regardless of how many workers compressed
// the payload: block boundaries, folder order, and per-file digests depend
// only on the inputs and the config, never on scheduling.
func TestEndHeaderDeterministicAcrossWorkerCounts(t *testing.T) {
	big := make([]byte, 3<<20)
	for i := range big {
		big[i] = byte(i % 7)
	}

	var endHeaders [][]byte
	for _, workers := range []int{1, 4} {
		f, path := newTempArchive(t)

		w, err := New(f, WithWorkers(workers), WithBlockSize(1<<20), WithDictSize(1<<20))
		require.NoError(t, err)
		require.NoError(t, w.EnqueueBytes("big.bin", big))
		require.NoError(t, w.EnqueueBytes("small.txt", []byte("tiny")))
		require.NoError(t, w.Finish())

		raw, err := os.ReadFile(path)
		require.NoError(t, err)

		off := leU64(raw[12:20])
		size := leU64(raw[20:28])
		endHeaders = append(endHeaders, raw[signatureHeaderSize+off:signatureHeaderSize+off+size])
	}

	assert.Equal(t, endHeaders[0], endHeaders[1])
}

func TestStartAndEndHeaderInvariants(t *testing.T) {
	f, path := newTempArchive(t)

	w, err := New(f, WithPreset(3))
	require.NoError(t, err)
	require.NoError(t, w.EnqueueBytes("x", []byte("some data to compress")))
	require.NoError(t, w.Finish())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(raw), signatureHeaderSize)

	nextHeaderOffset := leU64(raw[12:20])
	nextHeaderSize := leU64(raw[20:28])
	nextHeaderCRC := leU32(raw[28:32])

	assert.Equal(t, int64(len(raw)), signatureHeaderSize+int64(nextHeaderOffset)+int64(nextHeaderSize))

	end := raw[signatureHeaderSize+nextHeaderOffset : signatureHeaderSize+nextHeaderOffset+nextHeaderSize]
	assert.EqualValues(t, nextHeaderCRC, crc32x.Checksum(end))
}

func leU64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func leU32(b []byte) uint32 {
	var v uint32
	for i := 3; i >= 0; i-- {
		v = v<<8 | uint32(b[i])
	}
	return v
}
