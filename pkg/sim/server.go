package sim

import (
	"log/slog"
	"sync/atomic"

	"github.com/arzzra/voip_sim/pkg/codec"
	"github.com/arzzra/voip_sim/pkg/packet"
	"github.com/arzzra/voip_sim/pkg/stats"
	"github.com/arzzra/voip_sim/pkg/transport"
)

// FrameSink получает декодированные отсчеты кадра index абонента user
type FrameSink func(user, index uint32, samples []int16)

// Server принимает пакеты всех абонентов звонка, декодирует кадры и
// передает метаданные трекеру статистики
type Server struct {
	mode        transport.Mode
	frameSize   int
	payloadType uint8
	decoders    []codec.Codec
	newCodec    func() (codec.Codec, error)
	sink        FrameSink
	tracker     *stats.Tracker
	logger      *slog.Logger

	decoded atomic.Uint64
}

// NewServer создает сервер. newCodec вызывается по разу на абонента,
// у каждого свое состояние декодера.
func NewServer(tracker *stats.Tracker, mode transport.Mode, newCodec func() (codec.Codec, error), logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		mode:     mode,
		newCodec: newCodec,
		tracker:  tracker,
		decoders: make([]codec.Codec, tracker.Users()),
		logger:   logger.With(slog.String("component", "server")),
	}
	for i := range s.decoders {
		c, err := newCodec()
		if err != nil {
			return nil, err
		}
		s.decoders[i] = c
	}
	s.frameSize = s.decoders[0].FrameSize()
	s.payloadType = s.decoders[0].PayloadType()
	return s, nil
}

// FrameSize ожидаемый размер кадра
func (s *Server) FrameSize() int {
	return s.frameSize
}

// SetSink задает получателя декодированных кадров. Вызывать до начала приема.
func (s *Server) SetSink(sink FrameSink) {
	s.sink = sink
}

// Decoded количество декодированных кадров
func (s *Server) Decoded() uint64 {
	return s.decoded.Load()
}

// HandleDatagram проверяет размер, разбирает и обрабатывает датаграмму,
// принятую в момент received
func (s *Server) HandleDatagram(data []byte, received float64) error {
	var (
		p   *packet.VoicePacket
		err error
	)
	switch s.mode {
	case transport.ModeRTP:
		p, err = packet.UnmarshalRTP(data, s.frameSize)
	default:
		p, err = packet.Unmarshal(data, s.frameSize)
	}
	if err != nil {
		s.logger.Warn("датаграмма отброшена", slog.String("error", err.Error()))
		return err
	}
	return s.HandlePacket(p, received)
}

// HandlePacket обновляет статистику и декодирует кадр пакета p.
//
// Состояние декодера G.726 меняется строго в порядке отсчетов, поэтому
// опоздавшие и дублированные кадры только учитываются в статистике.
// После пропуска декодер абонента пересоздается.
func (s *Server) HandlePacket(p *packet.VoicePacket, received float64) error {
	arrival, err := s.tracker.Accept(p.SenderID, p.Index, p.SentTime, received)
	if err != nil {
		return err
	}
	switch arrival {
	case stats.ArrivalLate:
		return nil
	case stats.ArrivalGap:
		dec, err := s.newCodec()
		if err != nil {
			return err
		}
		s.decoders[p.SenderID] = dec
	}

	samples, err := s.decoders[p.SenderID].DecodeFrame(p.Payload)
	if err != nil {
		s.logger.Warn("ошибка декодирования",
			slog.Uint64("user", uint64(p.SenderID)),
			slog.String("error", err.Error()))
		return err
	}
	s.decoded.Add(1)
	if s.sink != nil {
		s.sink(p.SenderID, p.Index, samples)
	}
	return nil
}
