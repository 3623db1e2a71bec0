package sim

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/arzzra/voip_sim/pkg/codec"
	"github.com/arzzra/voip_sim/pkg/packet"
)

const (
	// ToneFrequency частота тестового сигнала, Гц
	ToneFrequency = 440
	// ToneAmplitude амплитуда тестового сигнала
	ToneAmplitude = 30000
)

// Tone значение тестового сигнала в момент t секунд
func Tone(t float64) int16 {
	return int16(math.Sin(2*math.Pi*ToneFrequency*t) * ToneAmplitude)
}

// Client абонент, генерирующий голосовые пакеты.
// Владеет собственным кодером, не для конкурентного использования.
type Client struct {
	id     uint32
	next   uint32
	codec  codec.Codec
	clock  packet.Clock
	dump   *codec.FrameDumper
	logger *slog.Logger
}

// NewClient создает абонента id с кодеком c
func NewClient(id uint32, c codec.Codec, clock packet.Clock, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		id:     id,
		codec:  c,
		clock:  clock,
		logger: logger.With(slog.String("component", "client"), slog.Uint64("user", uint64(id))),
	}
}

// SetDumper включает запись первого кадра в CSV
func (c *Client) SetDumper(d *codec.FrameDumper) {
	c.dump = d
}

// ID идентификатор абонента
func (c *Client) ID() uint32 {
	return c.id
}

// Sent количество созданных пакетов
func (c *Client) Sent() uint32 {
	return c.next
}

// NextPacket кодирует кадр тестового сигнала с текущего момента часов
// и возвращает очередной пакет
func (c *Client) NextPacket() (*packet.VoicePacket, error) {
	now := c.clock.Now()
	samples := make([]int16, codec.SamplesPerFrame)
	for i := range samples {
		samples[i] = Tone(now + float64(i)/codec.SampleRate)
	}

	payload, err := c.codec.EncodeFrame(samples)
	if err != nil {
		return nil, err
	}

	if c.dump != nil && c.id == 0 && c.next == 0 {
		if err := c.dumpFrame(samples, payload); err != nil {
			c.logger.Warn("не удалось записать кадр", slog.String("error", err.Error()))
		}
	}

	p := packet.Build(c.clock, c.id, c.next, payload)
	c.next++

	c.logger.Debug("пакет отправлен",
		slog.Uint64("index", uint64(p.Index)),
		slog.Float64("time", p.SentTime))
	return p, nil
}

// dumpFrame декодирует кадр отдельным экземпляром кодека, чтобы не
// трогать состояние основного
func (c *Client) dumpFrame(samples []int16, payload []byte) error {
	dec, err := codec.New(c.codec.Kind(), c.codec.Rate())
	if err != nil {
		return err
	}
	decoded, err := dec.DecodeFrame(payload)
	if err != nil {
		return fmt.Errorf("декодирование кадра: %w", err)
	}
	return c.dump.Dump(samples, payload, decoded)
}
