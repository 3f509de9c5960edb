package g7z

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nguyengg/g7z/internal/lzma2"
)

func TestConfigValidateAcceptsDefaultBlockSize(t *testing.T) {
	c := newDefaultConfig()
	assert.NoError(t, c.validate())
}

func TestConfigValidateRejectsBlockSizeBelowOneMiB(t *testing.T) {
	c := newDefaultConfig()
	c.BlockSize = 1 << 10 // 1 KiB, well under the 1 MiB floor

	err := c.validate()
	var gerr *Error
	if assert.ErrorAs(t, err, &gerr) {
		assert.Equal(t, Format, gerr.Kind)
	}
}

func TestConfigValidateRejectsBlockSizeBelowDictSize(t *testing.T) {
	c := newDefaultConfig()
	c.Preset = 9
	c.BlockSize = uint32(lzma2.PresetDictSize(9) / 2)

	err := c.validate()
	var gerr *Error
	if assert.ErrorAs(t, err, &gerr) {
		assert.Equal(t, Format, gerr.Kind)
	}
}

func TestConfigValidateAcceptsBlockSizeAtFloor(t *testing.T) {
	c := newDefaultConfig()
	c.DictSize = 2 << 20
	c.BlockSize = 2 << 20 // exactly the dictionary size, which exceeds 1 MiB here

	assert.NoError(t, c.validate())
}

func TestNewRejectsInvalidBlockSize(t *testing.T) {
	f, _ := newTempArchive(t)

	_, err := New(f, WithBlockSize(1<<10))
	var gerr *Error
	if assert.ErrorAs(t, err, &gerr) {
		assert.Equal(t, Format, gerr.Kind)
	}
}

func TestSetCompressionRejectsInvalidBlockSize(t *testing.T) {
	f, _ := newTempArchive(t)

	w, err := New(f)
	require.NoError(t, err)

	err = w.SetCompression(WithBlockSize(1 << 10))
	var gerr *Error
	if assert.ErrorAs(t, err, &gerr) {
		assert.Equal(t, Format, gerr.Kind)
	}

	// The rejected options must not have stuck.
	assert.EqualValues(t, 0, w.cfg.BlockSize)
}

func TestNewRejectsNegativeWorkerCount(t *testing.T) {
	f, _ := newTempArchive(t)

	_, err := New(f, WithWorkers(-1))
	var gerr *Error
	if assert.ErrorAs(t, err, &gerr) {
		assert.Equal(t, Threading, gerr.Kind)
	}
}

func TestSetWorkersRejectsNegativeCount(t *testing.T) {
	f, _ := newTempArchive(t)

	w, err := New(f)
	require.NoError(t, err)

	err = w.SetWorkers(-3)
	var gerr *Error
	if assert.ErrorAs(t, err, &gerr) {
		assert.Equal(t, Threading, gerr.Kind)
	}

	assert.NoError(t, w.SetWorkers(0))
	assert.NoError(t, w.SetWorkers(4))
}
