package media_sdp

import (
	"strconv"
	"strings"

	"github.com/arzzra/voip_sim/pkg/codec"
	"github.com/pion/sdp/v3"
)

// Selection кодек и параметры, выбранные из описания сессии
type Selection struct {
	Kind        codec.Kind
	Rate        codec.Rate
	PayloadType uint8
	Ptime       int // миллисекунды, 0 если не указано
	Direction   Direction
	Address     string
	Port        int
}

// Unmarshal разбирает SDP
func Unmarshal(data []byte) (*sdp.SessionDescription, error) {
	var desc sdp.SessionDescription
	if err := desc.Unmarshal(data); err != nil {
		return nil, WrapSDPError(ErrorCodeSDPParsing, "", err, "не удалось разобрать SDP")
	}
	return &desc, nil
}

// ParseCodec выбирает кодек по первому поддерживаемому формату
// первого m=audio потока
func ParseCodec(desc *sdp.SessionDescription) (Selection, error) {
	media, err := findAudio(desc)
	if err != nil {
		return Selection{}, err
	}

	rtpmaps := extractRtpmaps(media)
	for _, format := range media.MediaName.Formats {
		if sel, ok := selectFormat(format, rtpmaps); ok {
			fillSelection(&sel, desc, media)
			return sel, nil
		}
	}

	return Selection{}, NewSDPError(ErrorCodeIncompatibleCodec,
		"не найден поддерживаемый кодек среди предложенных: %v", media.MediaName.Formats)
}

// BuildAnswer отвечает на offer первым предложенным кодеком, который
// есть в cfg.SupportedCodecs
func BuildAnswer(offer *sdp.SessionDescription, cfg OfferConfig) (*sdp.SessionDescription, Selection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, Selection{}, err
	}

	media, err := findAudio(offer)
	if err != nil {
		return nil, Selection{}, err
	}

	rtpmaps := extractRtpmaps(media)
	for _, format := range media.MediaName.Formats {
		sel, ok := selectFormat(format, rtpmaps)
		if !ok || !supports(cfg.SupportedCodecs, sel) {
			continue
		}
		fillSelection(&sel, offer, media)

		c, err := codec.New(sel.Kind, sel.Rate)
		if err != nil {
			return nil, Selection{}, WrapSDPError(ErrorCodeSDPGeneration, cfg.SessionID, err, "не удалось создать кодек")
		}

		answer := newSession(cfg)
		answer.MediaDescriptions = []*sdp.MediaDescription{
			buildAudioMedia(cfg, c, answerDirection(sel.Direction)),
		}
		return answer, sel, nil
	}

	return nil, Selection{}, NewSDPError(ErrorCodeIncompatibleCodec,
		"не найден совместимый кодек среди предложенных: %v", media.MediaName.Formats)
}

func findAudio(desc *sdp.SessionDescription) (*sdp.MediaDescription, error) {
	if desc == nil {
		return nil, NewSDPError(ErrorCodeSDPParsing, "описание сессии не может быть nil")
	}
	for _, m := range desc.MediaDescriptions {
		if m.MediaName.Media == "audio" {
			return m, nil
		}
	}
	return nil, NewSDPError(ErrorCodeSDPParsing, "аудио медиа описание не найдено")
}

// extractRtpmaps payload type -> "имя/частота"
func extractRtpmaps(media *sdp.MediaDescription) map[string]string {
	rtpmaps := make(map[string]string)
	for _, attr := range media.Attributes {
		if attr.Key == "rtpmap" {
			parts := strings.SplitN(attr.Value, " ", 2)
			if len(parts) == 2 {
				rtpmaps[parts[0]] = parts[1]
			}
		}
	}
	return rtpmaps
}

// selectFormat сопоставляет формат m= строки с кодеком
func selectFormat(format string, rtpmaps map[string]string) (Selection, bool) {
	pt, err := strconv.Atoi(format)
	if err != nil || pt < 0 || pt > 127 {
		return Selection{}, false
	}

	rtpmap, exists := rtpmaps[format]
	if !exists {
		// статический payload type без rtpmap
		if pt == int(codec.PayloadTypePCMU) {
			return Selection{Kind: codec.KindG711, Rate: 64, PayloadType: uint8(pt)}, true
		}
		return Selection{}, false
	}

	parts := strings.Split(rtpmap, "/")
	if len(parts) < 2 {
		return Selection{}, false
	}
	if clock, err := strconv.Atoi(parts[1]); err != nil || clock != codec.SampleRate {
		return Selection{}, false
	}

	kind, rate, err := codec.ParseName(parts[0])
	if err != nil {
		return Selection{}, false
	}
	return Selection{Kind: kind, Rate: rate, PayloadType: uint8(pt)}, true
}

func fillSelection(sel *Selection, desc *sdp.SessionDescription, media *sdp.MediaDescription) {
	sel.Port = media.MediaName.Port.Value

	keys := make([]string, 0, len(media.Attributes))
	for _, attr := range media.Attributes {
		keys = append(keys, attr.Key)
		if attr.Key == "ptime" {
			if v, err := strconv.Atoi(attr.Value); err == nil {
				sel.Ptime = v
			}
		}
	}
	sel.Direction = parseDirection(keys)

	// connection на уровне медиа приоритетнее уровня сессии
	switch {
	case media.ConnectionInformation != nil && media.ConnectionInformation.Address != nil:
		sel.Address = media.ConnectionInformation.Address.Address
	case desc.ConnectionInformation != nil && desc.ConnectionInformation.Address != nil:
		sel.Address = desc.ConnectionInformation.Address.Address
	}
}

func supports(list []CodecInfo, sel Selection) bool {
	for _, c := range list {
		if c.Kind != sel.Kind {
			continue
		}
		if c.Kind == codec.KindG711 || c.Rate == sel.Rate {
			return true
		}
	}
	return false
}

// answerDirection зеркальное направление для ответа
func answerDirection(offered Direction) Direction {
	switch offered {
	case DirectionSendOnly:
		return DirectionRecvOnly
	case DirectionRecvOnly:
		return DirectionSendOnly
	default:
		return offered
	}
}
