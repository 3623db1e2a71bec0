package media_sdp

import (
	"net"
	"time"

	"github.com/arzzra/voip_sim/pkg/codec"
)

// Direction направление медиа потока (атрибут a=sendrecv и т.д.)
type Direction int

const (
	DirectionSendRecv Direction = iota
	DirectionSendOnly
	DirectionRecvOnly
	DirectionInactive
)

// String возвращает имя SDP атрибута направления
func (d Direction) String() string {
	switch d {
	case DirectionSendOnly:
		return "sendonly"
	case DirectionRecvOnly:
		return "recvonly"
	case DirectionInactive:
		return "inactive"
	default:
		return "sendrecv"
	}
}

// parseDirection ищет направление среди атрибутов, по умолчанию sendrecv
func parseDirection(keys []string) Direction {
	for _, k := range keys {
		switch k {
		case "sendonly":
			return DirectionSendOnly
		case "recvonly":
			return DirectionRecvOnly
		case "inactive":
			return DirectionInactive
		case "sendrecv":
			return DirectionSendRecv
		}
	}
	return DirectionSendRecv
}

// CodecInfo кодек, который сторона готова принимать
type CodecInfo struct {
	Kind codec.Kind
	Rate codec.Rate
}

// OfferConfig содержит конфигурацию для создания SDP offer или answer
type OfferConfig struct {
	// Основные параметры сессии
	SessionID   string
	SessionName string
	UserAgent   string

	// Адрес приема RTP
	Address string
	Port    int

	// Кодек offer
	Codec codec.Kind
	Rate  codec.Rate

	Ptime     time.Duration
	Direction Direction

	// SupportedCodecs кодеки для ответа на offer (приоритет по порядку)
	SupportedCodecs []CodecInfo

	// Дополнительные SDP атрибуты
	CustomAttributes map[string]string
}

// DefaultOfferConfig возвращает конфигурацию по умолчанию
func DefaultOfferConfig() OfferConfig {
	return OfferConfig{
		SessionID:   "voipsim",
		SessionName: "VoIP Simulation",
		UserAgent:   "voipsim/1.0",
		Address:     "127.0.0.1",
		Port:        5004,
		Codec:       codec.KindG711,
		Ptime:       20 * time.Millisecond,
		Direction:   DirectionSendRecv,
		SupportedCodecs: []CodecInfo{
			{Kind: codec.KindG711},
			{Kind: codec.KindG726, Rate: codec.Rate32},
			{Kind: codec.KindG726, Rate: codec.Rate24},
			{Kind: codec.KindG726, Rate: codec.Rate40},
			{Kind: codec.KindG726, Rate: codec.Rate16},
		},
		CustomAttributes: make(map[string]string),
	}
}

// Validate проверяет корректность конфигурации
func (c *OfferConfig) Validate() error {
	if c.SessionID == "" {
		return NewSDPError(ErrorCodeInvalidConfig, "SessionID не может быть пустым")
	}
	if net.ParseIP(c.Address) == nil {
		return NewSDPError(ErrorCodeInvalidConfig, "некорректный адрес %q", c.Address)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return NewSDPError(ErrorCodeInvalidConfig, "порт вне диапазона: %d", c.Port)
	}
	if c.Ptime <= 0 {
		return NewSDPError(ErrorCodeInvalidConfig, "Ptime должен быть больше 0")
	}
	if c.Codec == codec.KindG726 {
		if err := codec.ValidateRate(c.Rate); err != nil {
			return WrapSDPError(ErrorCodeInvalidConfig, c.SessionID, err, "кодек offer")
		}
	}
	return nil
}
