package codec

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackedSize(t *testing.T) {
	assert.Equal(t, 40, PackedSize(160, 2))
	assert.Equal(t, 60, PackedSize(160, 3))
	assert.Equal(t, 80, PackedSize(160, 4))
	assert.Equal(t, 100, PackedSize(160, 5))
	assert.Equal(t, 2, PackedSize(3, 3), "последний байт дополняется")
	assert.Equal(t, 0, PackedSize(0, 4))
}

func TestPackLayout(t *testing.T) {
	tests := []struct {
		name  string
		words []uint8
		bits  int
		want  []byte
	}{
		{"2 бита", []uint8{3, 0, 1, 2}, 2, []byte{0x93}},
		{"3 бита через границу байта", []uint8{1, 2, 3}, 3, []byte{0xD1, 0x00}},
		{"4 бита", []uint8{0xA, 0x5, 0xF}, 4, []byte{0x5A, 0x0F}},
		{"5 бит", []uint8{31, 1}, 5, []byte{0x3F, 0x00}},
		{"лишние старшие биты отбрасываются", []uint8{0xFF}, 4, []byte{0x0F}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Pack(tt.words, tt.bits))
		})
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))

	for bits := 1; bits < 8; bits++ {
		for _, count := range []int{0, 1, 7, 8, 9, 160, 161} {
			words := make([]uint8, count)
			for i := range words {
				words[i] = uint8(rnd.Intn(1 << bits))
			}

			packed := Pack(words, bits)
			require.Len(t, packed, PackedSize(count, bits))
			assert.Equal(t, words, Unpack(packed, count, bits), "bits=%d count=%d", bits, count)
		}
	}
}

func TestPackIntoReturnsWritten(t *testing.T) {
	dst := make([]byte, 8)
	n := PackInto(dst, []uint8{1, 2, 3, 4}, 3)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{0xD1, 0x08, 0, 0, 0, 0, 0, 0}, dst)
}

func TestPackPanicsOnProgrammerError(t *testing.T) {
	assert.Panics(t, func() { Pack([]uint8{1}, 0) }, "ширина 0")
	assert.Panics(t, func() { Pack([]uint8{1}, 8) }, "ширина 8")
	assert.Panics(t, func() { PackInto(make([]byte, 1), []uint8{1, 2, 3}, 4) }, "мало места")
	assert.Panics(t, func() { Unpack([]byte{0}, 3, 4) }, "мало данных")
}
