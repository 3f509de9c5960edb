package binenc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppendNumber(t *testing.T) {
	cases := []struct {
		name string
		v    uint64
		want []byte
	}{
		{"zero", 0, []byte{0x00}},
		{"one", 1, []byte{0x01}},
		{"max one byte", 0x7F, []byte{0x7F}},
		{"min two bytes", 128, []byte{0x80, 0x80}},
		{"max two bytes", 0x3FFF, []byte{0xBF, 0xFF}},
		{"min three bytes", 0x4000, []byte{0xC0, 0x00, 0x40}},
		{"two to the thirty-two", uint64(1) << 32, []byte{0xF1, 0, 0, 0, 0}},
		{"two to the fifty-six minus one", uint64(1)<<56 - 1, append([]byte{0xFE}, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)},
		{"two to the sixty-three", uint64(1) << 63, append([]byte{0xFF}, leU64(uint64(1)<<63)...)},
		{"max uint64", ^uint64(0), append([]byte{0xFF}, leU64(^uint64(0))...)},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := AppendNumber(nil, c.v)
			assert.Equal(t, c.want, got)
		})
	}
}

func leU64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

func TestWriteUTF16LE(t *testing.T) {
	w := NewWriter()
	w.WriteUTF16LE("a")
	assert.Equal(t, []byte{0x61, 0x00, 0x00, 0x00}, w.Bytes())
}

func TestWriteBoolVector(t *testing.T) {
	assert.Equal(t, []byte{0b10100000}, AppendBoolVector(nil, []bool{true, false, true, false, false, false, false, false}))
	assert.Equal(t, []byte{0b11000000}, AppendBoolVector(nil, []bool{true, true}))
}

func TestWriterPutUint(t *testing.T) {
	w := NewWriter()
	w.PutUint32(0xDEADBEEF)
	w.PutUint64(0x0102030405060708)
	assert.Equal(t, []byte{0xEF, 0xBE, 0xAD, 0xDE, 0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}, w.Bytes())
}
