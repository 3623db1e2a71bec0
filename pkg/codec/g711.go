package codec

// Константы G.711 μ-law (14-битная версия Sun)
const (
	ulawBias  = 0x84 // смещение линейного кода
	ulawClip  = 8159 // максимальная амплитуда после сдвига на 2 бита
	signBit   = 0x80 // бит знака μ-law байта
	quantMask = 0x0F // маска поля квантования
	segShift  = 4    // сдвиг номера сегмента
	segMask   = 0x70 // маска поля сегмента
)

// segUEnd верхние границы сегментов μ-law
var segUEnd = [8]int16{0x3F, 0x7F, 0xFF, 0x1FF, 0x3FF, 0x7FF, 0xFFF, 0x1FFF}

// searchSegment возвращает индекс первого сегмента, граница которого >= val,
// либо len(segUEnd) если значение выше всех сегментов.
func searchSegment(val int16) int {
	for i, end := range segUEnd {
		if val <= end {
			return i
		}
	}
	return len(segUEnd)
}

// LinearToULaw сжимает 16-битный линейный отсчет в μ-law байт.
func LinearToULaw(sample int16) uint8 {
	pcm := sample >> 2 // 14-битный динамический диапазон
	var mask uint8
	if pcm < 0 {
		pcm = -pcm
		mask = 0x7F
	} else {
		mask = 0xFF
	}
	if pcm > ulawClip {
		pcm = ulawClip
	}
	pcm += ulawBias >> 2

	seg := searchSegment(pcm)
	if seg >= len(segUEnd) {
		// вне диапазона, код насыщения
		return 0x7F ^ mask
	}

	uval := uint8(seg<<4) | uint8((pcm>>(seg+1))&0xF)
	return uval ^ mask
}

// ULawToLinear восстанавливает 16-битный линейный отсчет из μ-law байта.
func ULawToLinear(code uint8) int16 {
	u := ^code

	t := (int16(u&quantMask) << 3) + ulawBias
	t <<= (u & segMask) >> segShift

	if u&signBit != 0 {
		return ulawBias - t
	}
	return t - ulawBias
}

// ulawSegment возвращает номер сегмента μ-law кода
func ulawSegment(code uint8) int {
	return int((^code & segMask) >> segShift)
}

// ulawStep возвращает шаг квантования (в единицах 16-битного отсчета)
// для сегмента, в который попал код.
func ulawStep(code uint8) int {
	return 8 << ulawSegment(code)
}

// g711Codec реализует Codec для G.711 μ-law. Кодек не имеет состояния.
type g711Codec struct{}

func (g711Codec) Kind() Kind         { return KindG711 }
func (g711Codec) Rate() Rate         { return 64 }
func (g711Codec) Name() string       { return "PCMU" }
func (g711Codec) FrameSize() int     { return SamplesPerFrame }
func (g711Codec) PayloadType() uint8 { return PayloadTypePCMU }
func (g711Codec) Supported() bool    { return true }

// EncodeFrame кодирует кадр из SamplesPerFrame отсчетов
func (c g711Codec) EncodeFrame(samples []int16) ([]byte, error) {
	if len(samples) != SamplesPerFrame {
		return nil, newFrameSizeError(c.Name(), "samples", SamplesPerFrame, len(samples))
	}
	out := make([]byte, SamplesPerFrame)
	for i, s := range samples {
		out[i] = LinearToULaw(s)
	}
	return out, nil
}

// DecodeFrame декодирует кадр μ-law в линейные отсчеты
func (c g711Codec) DecodeFrame(payload []byte) ([]int16, error) {
	if len(payload) != SamplesPerFrame {
		return nil, newFrameSizeError(c.Name(), "payload", SamplesPerFrame, len(payload))
	}
	out := make([]int16, SamplesPerFrame)
	for i, b := range payload {
		out[i] = ULawToLinear(b)
	}
	return out, nil
}
