package sim

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/arzzra/voip_sim/pkg/codec"
	"github.com/arzzra/voip_sim/pkg/packet"
	"github.com/arzzra/voip_sim/pkg/stats"
	"github.com/arzzra/voip_sim/pkg/transport"
	"golang.org/x/sync/errgroup"
)

// RunLive выполняет звонок в реальном времени через UDP на loopback.
// Каждый абонент отправляет пакеты из своей горутины и своего сокета,
// сервер принимает их одним транспортом. Потери и задержки канала
// применяются на стороне отправителя. Start, Period и StopTime не
// используются.
func RunLive(ctx context.Context, cfg Config) (stats.Report, error) {
	if err := cfg.Validate(); err != nil {
		return stats.Report{}, err
	}
	base := cfg.Logger
	if base == nil {
		base = slog.Default()
	}
	logger := base.With(slog.String("component", "sim"), slog.String("mode", "live"))

	newCodec := func() (codec.Codec, error) { return codec.New(cfg.Codec, cfg.Rate) }

	tracker, err := newTracker(cfg, base)
	if err != nil {
		return stats.Report{}, err
	}
	server, err := NewServer(tracker, cfg.Mode, newCodec, base)
	if err != nil {
		return stats.Report{}, err
	}

	tcfg := transport.DefaultConfig()
	tcfg.FrameSize = server.FrameSize()
	tcfg.Mode = cfg.Mode
	tcfg.PayloadType = server.payloadType
	tcfg.Logger = base

	srv, err := transport.NewUDPTransport(ctx, tcfg)
	if err != nil {
		return stats.Report{}, fmt.Errorf("запуск сервера: %w", err)
	}
	defer srv.Close()

	clock := packet.NewSystemClock()
	serverAddr := srv.LocalAddr().(*net.UDPAddr)

	var captureMu sync.Mutex
	serveCtx, stopServe := context.WithCancel(ctx)
	defer stopServe()
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- srv.Serve(serveCtx, func(p *packet.VoicePacket, from net.Addr, at time.Time) {
			received := clock.Now()
			if cfg.Capture != nil {
				if src, ok := from.(*net.UDPAddr); ok {
					data, err := encodeWire(p, cfg.Mode, tcfg.PayloadType)
					if err == nil {
						captureMu.Lock()
						err = cfg.Capture.WritePacket(at, src, serverAddr, data)
						captureMu.Unlock()
					}
					if err != nil {
						logger.Warn("запись pcap", slog.String("error", err.Error()))
					}
				}
			}
			_ = server.HandlePacket(p, received)
		})
	}()

	logger.Info("звонок запущен",
		slog.String("server", serverAddr.String()),
		slog.Int("users", cfg.Users),
		slog.Float64("duration", cfg.Duration))

	link := NewLink(cfg.Link, cfg.Seed)
	g, gctx := errgroup.WithContext(ctx)
	for id := 0; id < cfg.Users; id++ {
		userID := uint32(id)
		g.Go(func() error {
			return runLiveClient(gctx, cfg, userID, serverAddr, clock, link, newCodec, base)
		})
	}
	if err := g.Wait(); err != nil {
		return stats.Report{}, err
	}

	// ждем пакеты, задержанные каналом
	grace := time.Duration((cfg.Link.Delay+cfg.Link.Jitter)*float64(time.Second)) + 100*time.Millisecond
	select {
	case <-ctx.Done():
		return stats.Report{}, ctx.Err()
	case <-time.After(grace):
	}

	stopServe()
	if err := <-serveDone; err != nil {
		return stats.Report{}, err
	}

	report := tracker.Finalize()
	logger.Info("звонок завершен", slog.Uint64("decoded", server.Decoded()))
	return report, nil
}

func runLiveClient(ctx context.Context, cfg Config, id uint32, server *net.UDPAddr, clock packet.Clock,
	link *Link, newCodec func() (codec.Codec, error), logger *slog.Logger) error {
	enc, err := newCodec()
	if err != nil {
		return err
	}

	tcfg := transport.DefaultConfig()
	tcfg.RemoteAddr = server.String()
	tcfg.FrameSize = enc.FrameSize()
	tcfg.Mode = cfg.Mode
	tcfg.PayloadType = enc.PayloadType()
	tcfg.Logger = logger
	tr, err := transport.NewUDPTransport(ctx, tcfg)
	if err != nil {
		return fmt.Errorf("транспорт абонента %d: %w", id, err)
	}
	defer tr.Close()

	client := NewClient(id, enc, clock, logger)
	if cfg.Dump != nil && id == 0 {
		client.SetDumper(codec.NewFrameDumper(cfg.Dump))
	}

	var pending sync.WaitGroup
	defer pending.Wait()

	ticker := time.NewTicker(time.Duration(PacketInterval * float64(time.Second)))
	defer ticker.Stop()

	packets := int(cfg.Duration*PacketRate + 1e-9)
	for i := 0; i < packets; i++ {
		p, err := client.NextPacket()
		if err != nil {
			return err
		}
		for _, arrival := range link.Transmit(p.SentTime) {
			delay := time.Duration((arrival - p.SentTime) * float64(time.Second))
			pending.Add(1)
			time.AfterFunc(delay, func() {
				defer pending.Done()
				if err := tr.Send(ctx, p); err != nil {
					logger.Debug("пакет не отправлен",
						slog.Uint64("user", uint64(id)),
						slog.String("error", err.Error()))
				}
			})
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
