package packet

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pion/rtp"
)

const (
	// ExtensionID идентификатор одно-байтового расширения RTP (RFC 8285),
	// в котором передаются полный индекс пакета и время отправки
	ExtensionID = 1
	// extensionSize index (4) + sentTime (8), network byte order
	extensionSize = 12
	// samplesPerPacket приращение RTP timestamp на пакет (160 отсчетов по 8 кГц)
	samplesPerPacket = 160
)

// ToRTP упаковывает голосовой пакет в RTP: SSRC равен идентификатору
// абонента, sequence number младшие 16 бит индекса, timestamp индекс * 160.
func (p *VoicePacket) ToRTP(payloadType uint8) (*rtp.Packet, error) {
	ext := make([]byte, extensionSize)
	binary.BigEndian.PutUint32(ext[0:4], p.Index)
	binary.BigEndian.PutUint64(ext[4:12], math.Float64bits(p.SentTime))

	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    payloadType,
			SequenceNumber: uint16(p.Index),
			Timestamp:      p.Index * samplesPerPacket,
			SSRC:           p.SenderID,
		},
		Payload: p.Payload,
	}
	if err := pkt.Header.SetExtension(ExtensionID, ext); err != nil {
		return nil, &Error{
			Code:     ErrorCodeBadExtension,
			Message:  "не удалось установить расширение заголовка",
			SenderID: p.SenderID,
			Wrapped:  err,
		}
	}
	return pkt, nil
}

// MarshalRTP сериализует пакет в RTP
func (p *VoicePacket) MarshalRTP(payloadType uint8) ([]byte, error) {
	pkt, err := p.ToRTP(payloadType)
	if err != nil {
		return nil, err
	}
	return pkt.Marshal()
}

// FromRTP восстанавливает голосовой пакет из RTP пакета.
// Полезная нагрузка должна иметь ровно frameSize байт.
func FromRTP(pkt *rtp.Packet, frameSize int) (*VoicePacket, error) {
	if len(pkt.Payload) != frameSize {
		err := newSizeError(ErrorCodeSizeMismatch, frameSize, len(pkt.Payload))
		err.SenderID = pkt.SSRC
		return nil, err
	}

	ext := pkt.GetExtension(ExtensionID)
	if len(ext) != extensionSize {
		return nil, &Error{
			Code:     ErrorCodeBadExtension,
			Message:  fmt.Sprintf("расширение %d: ожидается %d байт, получено %d", ExtensionID, extensionSize, len(ext)),
			SenderID: pkt.SSRC,
		}
	}

	return &VoicePacket{
		SenderID: pkt.SSRC,
		Index:    binary.BigEndian.Uint32(ext[0:4]),
		SentTime: math.Float64frombits(binary.BigEndian.Uint64(ext[4:12])),
		Payload:  append([]byte(nil), pkt.Payload...),
	}, nil
}

// UnmarshalRTP разбирает RTP пакет с кадром frameSize байт
func UnmarshalRTP(data []byte, frameSize int) (*VoicePacket, error) {
	var pkt rtp.Packet
	if err := pkt.Unmarshal(data); err != nil {
		return nil, &Error{
			Code:    ErrorCodeSizeMismatch,
			Message: "некорректный RTP пакет",
			Wrapped: err,
		}
	}
	return FromRTP(&pkt, frameSize)
}

// RTPSize размер RTP пакета с кадром frameSize байт и расширением
// заголовка
func RTPSize(frameSize int) int {
	p := &VoicePacket{Payload: make([]byte, frameSize)}
	pkt, err := p.ToRTP(0)
	if err != nil {
		return 0
	}
	return pkt.MarshalSize()
}
