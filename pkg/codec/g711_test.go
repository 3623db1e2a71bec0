package codec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestULawKnownValues(t *testing.T) {
	tests := []struct {
		name    string
		sample  int16
		code    uint8
		decoded int16
	}{
		{"ноль", 0, 0xFF, 0},
		{"малый положительный", 100, 0xF2, 104},
		{"положительный", 1000, 0xCE, 988},
		{"отрицательный", -1000, 0x4E, -988},
		{"максимум насыщается", 32767, 0x80, 32124},
		{"минимум насыщается", -32768, 0x00, -32124},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := LinearToULaw(tt.sample)
			assert.Equal(t, tt.code, code, "код для %d", tt.sample)
			assert.Equal(t, tt.decoded, ULawToLinear(code))
		})
	}
}

func TestULawErrorBound(t *testing.T) {
	for x := math.MinInt16; x <= math.MaxInt16; x++ {
		code := LinearToULaw(int16(x))
		got := int(ULawToLinear(code))
		diff := got - x
		if diff < 0 {
			diff = -diff
		}
		if diff >= ulawStep(code) {
			t.Fatalf("отсчет %d: декодировано %d, ошибка %d >= %d", x, got, diff, ulawStep(code))
		}
	}
}

func TestULawSymmetry(t *testing.T) {
	for _, x := range []int16{4, 100, 1000, 5000, 20000} {
		assert.Equal(t, -ULawToLinear(LinearToULaw(x)), ULawToLinear(LinearToULaw(-x)), "x=%d", x)
	}
}

func TestG711Frame(t *testing.T) {
	c, err := New(KindG711, 0)
	require.NoError(t, err)
	assert.Equal(t, 160, c.FrameSize())
	assert.Equal(t, PayloadTypePCMU, c.PayloadType())
	assert.Equal(t, "PCMU", c.Name())

	frame := sineFrame(440, 8000, 0)
	payload, err := c.EncodeFrame(frame)
	require.NoError(t, err)
	require.Len(t, payload, 160)

	decoded, err := c.DecodeFrame(payload)
	require.NoError(t, err)
	require.Len(t, decoded, 160)
	for i := range frame {
		assert.InDelta(t, frame[i], decoded[i], float64(ulawStep(payload[i])))
	}
}

func TestG711FrameSizeMismatch(t *testing.T) {
	c, err := New(KindG711, 0)
	require.NoError(t, err)

	_, err = c.EncodeFrame(make([]int16, 159))
	require.Error(t, err)
	assert.True(t, HasErrorCode(err, ErrorCodeFrameSize))

	_, err = c.DecodeFrame(make([]byte, 161))
	require.Error(t, err)
	assert.True(t, HasErrorCode(err, ErrorCodeFrameSize))
}

// sineFrame кадр синусоиды с частотой freq и амплитудой amp начиная с отсчета start
func sineFrame(freq, amp float64, start int) []int16 {
	frame := make([]int16, SamplesPerFrame)
	for i := range frame {
		n := float64(start + i)
		frame[i] = int16(math.Sin(2*math.Pi*freq*n/SampleRate) * amp)
	}
	return frame
}
