package planner

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanMemoryTilesExactly(t *testing.T) {
	data := make([]byte, 10)
	for i := range data {
		data[i] = byte(i)
	}

	blocks := PlanMemory(0, data, 4)
	if assert.Len(t, blocks, 3) {
		assert.Equal(t, int64(0), blocks[0].Offset)
		assert.Equal(t, int64(4), blocks[0].Length)
		assert.Equal(t, int64(4), blocks[1].Offset)
		assert.Equal(t, int64(4), blocks[1].Length)
		assert.Equal(t, int64(8), blocks[2].Offset)
		assert.Equal(t, int64(2), blocks[2].Length)
	}
}

func TestPlanMemoryEmpty(t *testing.T) {
	assert.Empty(t, PlanMemory(0, nil, 4))
}

func TestPlanDiskEmpty(t *testing.T) {
	assert.Empty(t, PlanDisk(0, "irrelevant", 0, 4))
}

func TestPlanDiskExactMultiple(t *testing.T) {
	blocks := PlanDisk(1, "file.bin", 8, 4)
	if assert.Len(t, blocks, 2) {
		assert.Equal(t, int64(0), blocks[0].Offset)
		assert.Equal(t, int64(4), blocks[1].Offset)
		for _, b := range blocks {
			assert.Equal(t, SourceDisk, b.Source)
			assert.Equal(t, 1, b.EntryIndex)
		}
	}
}

func TestBlockReadDisk(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "planner-*")
	assert.NoError(t, err)
	_, err = f.Write([]byte("hello world"))
	assert.NoError(t, err)
	assert.NoError(t, f.Close())

	b := Block{Offset: 6, Length: 5, Source: SourceDisk, Path: f.Name()}
	got, err := b.Read()
	assert.NoError(t, err)
	assert.Equal(t, []byte("world"), got)
}
