package codec

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"g711", KindG711, false},
		{"PCMU", KindG711, false},
		{" G.726 ", KindG726, false},
		{"g726", KindG726, false},
		{"opus", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, HasErrorCode(err, ErrorCodeUnsupportedCodec))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewUnknownKind(t *testing.T) {
	c, err := New(Kind(7), Rate32)
	assert.Nil(t, c)
	require.Error(t, err)

	var codecErr *Error
	require.ErrorAs(t, err, &codecErr)
	assert.Equal(t, ErrorCodeUnsupportedCodec, codecErr.Code)
	assert.Contains(t, codecErr.Error(), "UnsupportedCodec")
}

func TestCodecsHaveIndependentState(t *testing.T) {
	a, err := New(KindG726, Rate32)
	require.NoError(t, err)
	b, err := New(KindG726, Rate32)
	require.NoError(t, err)

	frame := sineFrame(440, 8000, 0)
	first, err := a.EncodeFrame(frame)
	require.NoError(t, err)

	// второй кадр того же кодека кодируется уже с адаптированным состоянием
	_, err = a.EncodeFrame(frame)
	require.NoError(t, err)

	fresh, err := b.EncodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, first, fresh)
}

func TestErrorIs(t *testing.T) {
	err := ValidateRate(Rate(8))
	assert.ErrorIs(t, err, &Error{Code: ErrorCodeUnsupportedRate})
	assert.NotErrorIs(t, err, &Error{Code: ErrorCodeFrameSize})
}

func TestFrameDumper(t *testing.T) {
	var buf bytes.Buffer
	d := NewFrameDumper(&buf)

	require.NoError(t, d.Dump([]int16{0, -5, 1000}, []byte{0xFF, 0x7E}, []int16{0, -8}))

	r := csv.NewReader(&buf)
	r.FieldsPerRecord = -1 // строки кадра разной длины
	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"0", "-5", "1000"}, rows[0])
	assert.Equal(t, []string{"255", "126"}, rows[1])
	assert.Equal(t, []string{"0", "-8"}, rows[2])
}

func TestParseName(t *testing.T) {
	kind, rate, err := ParseName("pcmu")
	require.NoError(t, err)
	assert.Equal(t, KindG711, kind)
	assert.Equal(t, Rate(64), rate)

	kind, rate, err = ParseName("G726-24")
	require.NoError(t, err)
	assert.Equal(t, KindG726, kind)
	assert.Equal(t, Rate24, rate)

	_, _, err = ParseName("G726-48")
	assert.True(t, HasErrorCode(err, ErrorCodeUnsupportedRate))

	_, _, err = ParseName("G726-x")
	assert.True(t, HasErrorCode(err, ErrorCodeUnsupportedRate))

	_, _, err = ParseName("PCMA")
	assert.True(t, HasErrorCode(err, ErrorCodeUnsupportedCodec))
}
