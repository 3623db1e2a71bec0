package packet

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildStampsClock(t *testing.T) {
	clock := NewManualClock(1.5)
	payload := []byte{1, 2, 3}

	p := Build(clock, 7, 42, payload)
	assert.Equal(t, uint32(7), p.SenderID)
	assert.Equal(t, uint32(42), p.Index)
	assert.Equal(t, 1.5, p.SentTime)

	payload[0] = 99
	assert.Equal(t, byte(1), p.Payload[0], "пакет не должен разделять буфер с вызывающим")
}

func TestMarshalLayout(t *testing.T) {
	p := &VoicePacket{SenderID: 3, Index: 0x01020304, SentTime: 0.25, Payload: []byte{0xAA, 0xBB}}

	data := p.Marshal()
	require.Len(t, data, HeaderSize+2)
	assert.Equal(t, []byte{3, 0, 0, 0}, data[0:4])
	assert.Equal(t, []byte{4, 3, 2, 1}, data[4:8])
	assert.Equal(t, math.Float64bits(0.25), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, []byte{0xAA, 0xBB}, data[16:])
}

func TestMarshalUnmarshal(t *testing.T) {
	p := &VoicePacket{SenderID: 1, Index: 500, SentTime: 10.02, Payload: make([]byte, 160)}
	p.Payload[159] = 0x7F

	got, err := Unmarshal(p.Marshal(), 160)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestUnmarshalSizeMismatch(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{"пустой буфер", 0},
		{"короче заголовка", 10},
		{"на байт короче", HeaderSize + 79},
		{"на байт длиннее", HeaderSize + 81},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(make([]byte, tt.size), 80)
			require.Error(t, err)
			assert.True(t, HasErrorCode(err, ErrorCodeSizeMismatch))
			assert.ErrorIs(t, err, &Error{Code: ErrorCodeSizeMismatch})
		})
	}
}

func TestMarshalToShortBuffer(t *testing.T) {
	p := &VoicePacket{Payload: make([]byte, 40)}

	_, err := p.MarshalTo(make([]byte, 20))
	assert.True(t, HasErrorCode(err, ErrorCodeBuffer))

	n, err := p.MarshalTo(make([]byte, 100))
	require.NoError(t, err)
	assert.Equal(t, 56, n)
}

func TestManualClock(t *testing.T) {
	c := NewManualClock(0)
	assert.Equal(t, 0.02, c.Advance(0.02))
	c.Set(5)
	assert.Equal(t, 5.0, c.Now())
}

func TestSystemClockMonotonic(t *testing.T) {
	c := NewSystemClock()
	a := c.Now()
	b := c.Now()
	assert.GreaterOrEqual(t, b, a)
	assert.GreaterOrEqual(t, a, 0.0)
}
