// Package sim моделирует голосовой звонок: абоненты кодируют тестовый
// сигнал, канал теряет и задерживает пакеты, сервер собирает статистику.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"time"

	"github.com/arzzra/voip_sim/pkg/capture"
	"github.com/arzzra/voip_sim/pkg/codec"
	"github.com/arzzra/voip_sim/pkg/packet"
	"github.com/arzzra/voip_sim/pkg/stats"
	"github.com/arzzra/voip_sim/pkg/transport"
	"github.com/pion/rtcp"
)

// event доставка одной датаграммы серверу
type event struct {
	arrival float64
	seq     int // порядок создания, для стабильной сортировки
	user    uint32
	data    []byte
}

// captureEpoch начало отсчета модельного времени в pcap
var captureEpoch = time.Unix(0, 0).UTC()

// Run выполняет симуляцию в модельном времени и возвращает итоговый отчет.
// Пакеты доставляются серверу в порядке времени прибытия.
func Run(ctx context.Context, cfg Config) (stats.Report, error) {
	if err := cfg.Validate(); err != nil {
		return stats.Report{}, err
	}
	base := cfg.Logger
	if base == nil {
		base = slog.Default()
	}
	logger := base.With(slog.String("component", "sim"))

	newCodec := func() (codec.Codec, error) { return codec.New(cfg.Codec, cfg.Rate) }

	tracker, err := newTracker(cfg, base)
	if err != nil {
		return stats.Report{}, err
	}
	server, err := NewServer(tracker, cfg.Mode, newCodec, base)
	if err != nil {
		return stats.Report{}, err
	}

	clock := packet.NewManualClock(0)
	link := NewLink(cfg.Link, cfg.Seed)
	times := cfg.sendTimes()

	logger.Info("симуляция запущена",
		slog.String("codec", server.decoders[0].Name()),
		slog.Int("users", cfg.Users),
		slog.Int("packets_per_user", len(times)))

	var events []event
	for id := 0; id < cfg.Users; id++ {
		enc, err := newCodec()
		if err != nil {
			return stats.Report{}, err
		}
		client := NewClient(uint32(id), enc, clock, base)
		if cfg.Dump != nil && id == 0 {
			client.SetDumper(codec.NewFrameDumper(cfg.Dump))
		}

		for _, t := range times {
			if err := ctx.Err(); err != nil {
				return stats.Report{}, err
			}
			clock.Set(t)
			p, err := client.NextPacket()
			if err != nil {
				return stats.Report{}, err
			}
			data, err := encodeWire(p, cfg.Mode, enc.PayloadType())
			if err != nil {
				return stats.Report{}, err
			}
			for _, arrival := range link.Transmit(t) {
				events = append(events, event{arrival: arrival, seq: len(events), user: p.SenderID, data: data})
			}
		}
	}

	slices.SortFunc(events, func(a, b event) int {
		switch {
		case a.arrival < b.arrival:
			return -1
		case a.arrival > b.arrival:
			return 1
		}
		return a.seq - b.seq
	})

	serverAddr := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 9}
	for i, ev := range events {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return stats.Report{}, err
			}
		}
		if cfg.Capture != nil {
			ts := captureEpoch.Add(time.Duration(ev.arrival * float64(time.Second)))
			if err := cfg.Capture.WritePacket(ts, userAddr(ev.user), serverAddr, ev.data); err != nil {
				return stats.Report{}, fmt.Errorf("запись pcap: %w", err)
			}
		}
		// ошибки уже учтены трекером и записаны в лог
		_ = server.HandleDatagram(ev.data, ev.arrival)
	}

	report := tracker.Finalize()
	if cfg.Capture != nil && len(events) > 0 {
		ts := captureEpoch.Add(time.Duration(events[len(events)-1].arrival * float64(time.Second)))
		if err := captureFeedback(cfg.Capture, ts, serverAddr, report); err != nil {
			return stats.Report{}, err
		}
	}
	logger.Info("симуляция завершена",
		slog.Int("delivered", len(events)),
		slog.Uint64("decoded", server.Decoded()))
	return report, nil
}

// captureFeedback пишет в pcap RTCP Receiver Report каждому абоненту
func captureFeedback(w *capture.Writer, ts time.Time, server *net.UDPAddr, report stats.Report) error {
	src := &net.UDPAddr{IP: server.IP, Port: server.Port + 1}
	for _, u := range report.Users {
		data, err := rtcp.Marshal([]rtcp.Packet{&rtcp.ReceiverReport{
			SSRC:    stats.ServerSSRC,
			Reports: []rtcp.ReceptionReport{u.ReceptionReport()},
		}})
		if err != nil {
			return err
		}
		dst := userAddr(u.UserID)
		dst.Port++
		if err := w.WritePacket(ts, src, dst, data); err != nil {
			return fmt.Errorf("запись RTCP в pcap: %w", err)
		}
	}
	return nil
}

func newTracker(cfg Config, logger *slog.Logger) (*stats.Tracker, error) {
	c, err := codec.New(cfg.Codec, cfg.Rate)
	if err != nil {
		return nil, err
	}
	tcfg := stats.DefaultConfig()
	tcfg.SessionID = cfg.SessionID
	tcfg.Users = cfg.Users
	tcfg.PacketSize = wireSize(c, cfg.Mode)
	tcfg.MaxSamples = cfg.MaxSamples
	tcfg.Registerer = cfg.Registerer
	tcfg.Logger = logger
	return stats.NewTracker(tcfg)
}

// wireSize размер пакета на проводе
func wireSize(c codec.Codec, mode transport.Mode) int {
	if mode == transport.ModeRTP {
		return packet.RTPSize(c.FrameSize())
	}
	return packet.Size(c.FrameSize())
}

func encodeWire(p *packet.VoicePacket, mode transport.Mode, pt uint8) ([]byte, error) {
	if mode == transport.ModeRTP {
		return p.MarshalRTP(pt)
	}
	return p.Marshal(), nil
}

// userAddr модельный адрес абонента id
func userAddr(id uint32) *net.UDPAddr {
	return &net.UDPAddr{
		IP:   net.IPv4(10, 1, byte(id>>8), byte(id)),
		Port: 4000,
	}
}
