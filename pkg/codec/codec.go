package codec

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

const (
	// SampleRate частота дискретизации обоих кодеков
	SampleRate = 8000
	// SamplesPerFrame количество отсчетов в кадре (20 мс при 8 кГц)
	SamplesPerFrame = 160
)

// RTP payload types. G.711 µ-law имеет статический номер,
// для G.726 используются динамические номера.
const (
	PayloadTypePCMU    uint8 = 0
	PayloadTypeG726_16 uint8 = 96
	PayloadTypeG726_24 uint8 = 97
	PayloadTypeG726_32 uint8 = 98
	PayloadTypeG726_40 uint8 = 99
)

// Kind выбор кодека
type Kind int

const (
	KindG711 Kind = iota
	KindG726
)

func (k Kind) String() string {
	switch k {
	case KindG711:
		return "g711"
	case KindG726:
		return "g726"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind разбирает имя кодека ("g711", "pcmu", "g726")
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "g711", "g.711", "pcmu", "ulaw":
		return KindG711, nil
	case "g726", "g.726":
		return KindG726, nil
	}
	return 0, &Error{
		Code:    ErrorCodeUnsupportedCodec,
		Message: fmt.Sprintf("неизвестный кодек %q", s),
	}
}

// Rate скорость кодека в кбит/с
type Rate int

const (
	Rate16 Rate = 16
	Rate24 Rate = 24
	Rate32 Rate = 32
	Rate40 Rate = 40
)

func (r Rate) String() string {
	return strconv.Itoa(int(r))
}

// Bits ширина кодового слова G.726 для скорости, 0 если скорость не поддерживается
func (r Rate) Bits() int {
	if t := tableFor(r); t != nil {
		return t.bits
	}
	return 0
}

// ValidateRate возвращает ошибку конфигурации для скорости,
// которую G.726 не поддерживает
func ValidateRate(r Rate) error {
	if tableFor(r) != nil {
		return nil
	}
	return &Error{
		Code:    ErrorCodeUnsupportedRate,
		Message: fmt.Sprintf("скорость %d кбит/с не поддерживается, допустимы 16, 24, 32, 40", int(r)),
		Codec:   "G726",
		Context: map[string]interface{}{"rate": int(r)},
	}
}

// Codec кодирует и декодирует кадры по SamplesPerFrame отсчетов.
//
// Каждое значение Codec владеет независимыми состояниями кодера и
// декодера и не предназначено для одновременного использования из
// нескольких горутин.
type Codec interface {
	Kind() Kind
	Rate() Rate
	Name() string
	// FrameSize размер полезной нагрузки кадра в байтах
	FrameSize() int
	PayloadType() uint8
	// Supported false для G.726 с неподдерживаемой скоростью (no-op кодек)
	Supported() bool
	EncodeFrame(samples []int16) ([]byte, error)
	DecodeFrame(payload []byte) ([]int16, error)
}

// New создает кодек. Для G.711 скорость игнорируется. Для G.726 с
// неподдерживаемой скоростью возвращается no-op кодек и пишется
// предупреждение в лог.
func New(kind Kind, rate Rate) (Codec, error) {
	switch kind {
	case KindG711:
		return g711Codec{}, nil
	case KindG726:
		c := newG726(rate)
		if !c.Supported() {
			slog.Default().With(slog.String("component", "codec")).Warn("неподдерживаемая скорость G.726, кодек отключен",
				slog.Int("rate", int(rate)))
		}
		return c, nil
	}
	return nil, &Error{
		Code:    ErrorCodeUnsupportedCodec,
		Message: fmt.Sprintf("неизвестный кодек %s", kind),
	}
}

// ParseName разбирает имя кодека из rtpmap ("PCMU", "G726-32")
func ParseName(name string) (Kind, Rate, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if upper == "PCMU" {
		return KindG711, 64, nil
	}
	if rest, ok := strings.CutPrefix(upper, "G726-"); ok {
		r, err := strconv.Atoi(rest)
		if err != nil {
			return 0, 0, &Error{Code: ErrorCodeUnsupportedRate, Message: fmt.Sprintf("некорректная скорость в %q", name), Wrapped: err}
		}
		if err := ValidateRate(Rate(r)); err != nil {
			return 0, 0, err
		}
		return KindG726, Rate(r), nil
	}
	return 0, 0, &Error{
		Code:    ErrorCodeUnsupportedCodec,
		Message: fmt.Sprintf("неизвестный кодек %q", name),
	}
}
