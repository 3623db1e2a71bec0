package media_sdp

import (
	"testing"

	"github.com/arzzra/voip_sim/pkg/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const offerWithSeveralCodecs = "v=0\r\n" +
	"o=- 1 1 IN IP4 10.0.0.1\r\n" +
	"s=call\r\n" +
	"c=IN IP4 10.0.0.1\r\n" +
	"t=0 0\r\n" +
	"m=audio 7000 RTP/AVP 8 99 97 0\r\n" +
	"a=rtpmap:8 PCMA/8000\r\n" +
	"a=rtpmap:99 G726-40/8000\r\n" +
	"a=rtpmap:97 G726-24/8000\r\n" +
	"a=ptime:20\r\n" +
	"a=sendonly\r\n"

func TestParseCodecPicksFirstKnownFormat(t *testing.T) {
	offer, err := Unmarshal([]byte(offerWithSeveralCodecs))
	require.NoError(t, err)

	sel, err := ParseCodec(offer)
	require.NoError(t, err)
	assert.Equal(t, codec.KindG726, sel.Kind)
	assert.Equal(t, codec.Rate40, sel.Rate)
	assert.Equal(t, uint8(99), sel.PayloadType)
	assert.Equal(t, "10.0.0.1", sel.Address)
	assert.Equal(t, 7000, sel.Port)
}

func TestBuildAnswerHonorsSupportedCodecs(t *testing.T) {
	offer, err := Unmarshal([]byte(offerWithSeveralCodecs))
	require.NoError(t, err)

	cfg := DefaultOfferConfig()
	cfg.SupportedCodecs = []CodecInfo{{Kind: codec.KindG726, Rate: codec.Rate24}, {Kind: codec.KindG711}}

	answer, sel, err := BuildAnswer(offer, cfg)
	require.NoError(t, err)
	assert.Equal(t, codec.Rate24, sel.Rate)

	media := answer.MediaDescriptions[0]
	assert.Equal(t, []string{"97"}, media.MediaName.Formats)
	_, ok := media.Attribute("recvonly")
	assert.True(t, ok, "ответ на sendonly должен быть recvonly")
}

func TestBuildAnswerStaticPCMU(t *testing.T) {
	offer, err := Unmarshal([]byte(offerWithSeveralCodecs))
	require.NoError(t, err)

	cfg := DefaultOfferConfig()
	cfg.SupportedCodecs = []CodecInfo{{Kind: codec.KindG711}}

	_, sel, err := BuildAnswer(offer, cfg)
	require.NoError(t, err)
	assert.Equal(t, codec.KindG711, sel.Kind)
	assert.Equal(t, uint8(0), sel.PayloadType)
}

func TestParseCodecErrors(t *testing.T) {
	_, err := ParseCodec(nil)
	assert.True(t, IsSDPError(err, ErrorCodeSDPParsing))

	offer, err := Unmarshal([]byte("v=0\r\no=- 1 1 IN IP4 10.0.0.1\r\ns=x\r\nt=0 0\r\nm=audio 7000 RTP/AVP 8\r\na=rtpmap:8 PCMA/8000\r\n"))
	require.NoError(t, err)
	_, err = ParseCodec(offer)
	assert.True(t, IsSDPError(err, ErrorCodeIncompatibleCodec))

	_, err = Unmarshal([]byte("garbage"))
	assert.True(t, IsSDPError(err, ErrorCodeSDPParsing))
}
