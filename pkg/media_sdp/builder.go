package media_sdp

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/arzzra/voip_sim/pkg/codec"
	"github.com/pion/sdp/v3"
)

// BuildOffer создает SDP offer с одним m=audio потоком для кодека cfg.Codec.
// Кодек передается вне пакетов, поэтому offer является единственным
// источником выбора кодека для приемной стороны.
func BuildOffer(cfg OfferConfig) (*sdp.SessionDescription, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c, err := codec.New(cfg.Codec, cfg.Rate)
	if err != nil {
		return nil, WrapSDPError(ErrorCodeSDPGeneration, cfg.SessionID, err, "не удалось создать кодек")
	}

	desc := newSession(cfg)
	desc.MediaDescriptions = []*sdp.MediaDescription{buildAudioMedia(cfg, c, cfg.Direction)}
	return desc, nil
}

// newSession создает базовую SDP структуру
func newSession(cfg OfferConfig) *sdp.SessionDescription {
	now := uint64(time.Now().Unix())

	desc := &sdp.SessionDescription{
		Version: 0,
		Origin: sdp.Origin{
			Username:       "-",
			SessionID:      now,
			SessionVersion: now,
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: cfg.Address,
		},
		SessionName: sdp.SessionName(cfg.SessionName),
		ConnectionInformation: &sdp.ConnectionInformation{
			NetworkType: "IN",
			AddressType: "IP4",
			Address:     &sdp.Address{Address: cfg.Address},
		},
		TimeDescriptions: []sdp.TimeDescription{
			{
				Timing: sdp.Timing{
					StartTime: 0,
					StopTime:  0,
				},
			},
		},
	}

	if cfg.UserAgent != "" {
		desc.Attributes = append(desc.Attributes, sdp.NewAttribute("tool", cfg.UserAgent))
	}
	return desc
}

// buildAudioMedia создает медиа описание для кодека c
func buildAudioMedia(cfg OfferConfig, c codec.Codec, dir Direction) *sdp.MediaDescription {
	pt := strconv.Itoa(int(c.PayloadType()))

	media := &sdp.MediaDescription{
		MediaName: sdp.MediaName{
			Media:   "audio",
			Port:    sdp.RangedPort{Value: cfg.Port},
			Protos:  []string{"RTP", "AVP"},
			Formats: []string{pt},
		},
	}

	// Направление медиа потока
	media.Attributes = append(media.Attributes, sdp.NewPropertyAttribute(dir.String()))

	// Ptime атрибут
	if cfg.Ptime > 0 {
		media.Attributes = append(media.Attributes,
			sdp.NewAttribute("ptime", strconv.Itoa(int(cfg.Ptime.Milliseconds()))))
	}

	// rtpmap, для G.726 обязателен так как payload type динамический
	rtpmap := fmt.Sprintf("%s %s/%d", pt, c.Name(), codec.SampleRate)
	media.Attributes = append(media.Attributes, sdp.NewAttribute("rtpmap", rtpmap))

	// Дополнительные атрибуты из конфигурации, в стабильном порядке
	keys := make([]string, 0, len(cfg.CustomAttributes))
	for k := range cfg.CustomAttributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		media.Attributes = append(media.Attributes, sdp.NewAttribute(k, cfg.CustomAttributes[k]))
	}

	return media
}

// Marshal сериализует описание сессии
func Marshal(desc *sdp.SessionDescription) ([]byte, error) {
	data, err := desc.Marshal()
	if err != nil {
		return nil, WrapSDPError(ErrorCodeSDPGeneration, "", err, "не удалось сериализовать SDP")
	}
	return data, nil
}
