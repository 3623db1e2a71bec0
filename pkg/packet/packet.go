package packet

import (
	"encoding/binary"
	"math"
)

// HeaderSize размер заголовка голосового пакета:
// id (4) + index (4) + sentTime (8), little-endian.
const HeaderSize = 16

// VoicePacket голосовой пакет одного кадра.
// После сборки пакет не изменяется.
type VoicePacket struct {
	SenderID uint32  // идентификатор абонента-отправителя
	Index    uint32  // порядковый номер пакета у отправителя
	SentTime float64 // время отправки в секундах
	Payload  []byte  // закодированный кадр
}

// Size возвращает размер пакета на проводе для кадра frameSize байт
func Size(frameSize int) int {
	return HeaderSize + frameSize
}

// Build собирает пакет, отмечая время отправки по clock.
// Полезная нагрузка копируется.
func Build(clock Clock, senderID, index uint32, payload []byte) *VoicePacket {
	return &VoicePacket{
		SenderID: senderID,
		Index:    index,
		SentTime: clock.Now(),
		Payload:  append([]byte(nil), payload...),
	}
}

// Size возвращает размер сериализованного пакета
func (p *VoicePacket) Size() int {
	return Size(len(p.Payload))
}

// Marshal сериализует пакет: заголовок и полезная нагрузка без
// дополнительного обрамления.
func (p *VoicePacket) Marshal() []byte {
	buf := make([]byte, p.Size())
	p.marshalTo(buf)
	return buf
}

// MarshalTo сериализует пакет в buf и возвращает число записанных байт
func (p *VoicePacket) MarshalTo(buf []byte) (int, error) {
	if len(buf) < p.Size() {
		return 0, newSizeError(ErrorCodeBuffer, p.Size(), len(buf))
	}
	return p.marshalTo(buf), nil
}

func (p *VoicePacket) marshalTo(buf []byte) int {
	binary.LittleEndian.PutUint32(buf[0:4], p.SenderID)
	binary.LittleEndian.PutUint32(buf[4:8], p.Index)
	binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(p.SentTime))
	return HeaderSize + copy(buf[HeaderSize:], p.Payload)
}

// Unmarshal разбирает пакет с кадром frameSize байт. Буфер другой длины
// отклоняется до чтения каких-либо полей.
func Unmarshal(data []byte, frameSize int) (*VoicePacket, error) {
	if len(data) != Size(frameSize) {
		return nil, newSizeError(ErrorCodeSizeMismatch, Size(frameSize), len(data))
	}

	return &VoicePacket{
		SenderID: binary.LittleEndian.Uint32(data[0:4]),
		Index:    binary.LittleEndian.Uint32(data[4:8]),
		SentTime: math.Float64frombits(binary.LittleEndian.Uint64(data[8:16])),
		Payload:  append([]byte(nil), data[HeaderSize:]...),
	}, nil
}
