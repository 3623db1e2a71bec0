package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arzzra/voip_sim/pkg/capture"
	"github.com/arzzra/voip_sim/pkg/codec"
	"github.com/arzzra/voip_sim/pkg/media_sdp"
	"github.com/arzzra/voip_sim/pkg/report"
	"github.com/arzzra/voip_sim/pkg/sim"
	"github.com/arzzra/voip_sim/pkg/stats"
	"github.com/arzzra/voip_sim/pkg/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func (a *app) runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Запустить симуляцию звонка",
		Long: `Абоненты передают тестовый сигнал 440 Гц кадрами по 20 мс через модель
канала с потерями и задержкой. По завершении печатается статистика по
каждому абоненту и средние значения.`,
		Example: `  voipsim run --codec g711 --users 10 --duration 20
  voipsim run --codec g726 --rate 24 --loss 0.05 --jitter 0.03 --csv stats.csv
  voipsim run --sdp offer.sdp --live --pcap call.pcap`,
		RunE: a.runSimulation,
	}

	f := cmd.Flags()
	f.String("codec", "g711", "кодек: g711, g726")
	f.Int("rate", 32, "скорость G.726, кбит/с: 16, 24, 32, 40")
	f.Bool("strict", false, "ошибка вместо no-op кодека для неподдерживаемой скорости")
	f.String("sdp", "", "SDP offer, из которого выбирается кодек")
	f.String("session-id", "", "идентификатор сессии")
	f.Int("users", 1, "количество абонентов")
	f.Float64("start", 1.0, "начало звонка, секунды")
	f.Float64("duration", 10.0, "длительность разговора, секунды")
	f.Float64("period", 0, "повтор звонка каждые N секунд, 0 один звонок")
	f.Float64("stop", 0, "конец симуляции, секунды")
	f.Float64("loss", 0, "вероятность потери пакета")
	f.Float64("delay", 0.010, "задержка канала, секунды")
	f.Float64("jitter", 0, "джиттер канала, секунды")
	f.Float64("duplicate", 0, "вероятность дублирования пакета")
	f.Int64("seed", 1, "seed модели канала")
	f.String("mode", "raw", "формат пакета: raw, rtp")
	f.Int("max-samples", 0, "ограничение журнала времен пакетов абонента")
	f.Bool("live", false, "реальное время через UDP на loopback")
	f.String("pcap", "", "записать доставленные пакеты в pcap файл")
	f.String("dump", "", "записать первый кадр абонента 0 в CSV")
	f.String("csv", "", "записать статистику в CSV файл")
	f.Bool("json", false, "вывести отчет в JSON вместо таблицы")
	f.String("metrics-addr", "", "после симуляции отдавать отчет и метрики по HTTP на этом адресе")

	return cmd
}

func (a *app) runSimulation(cmd *cobra.Command, args []string) error {
	v := a.v

	cfg, err := a.simConfig()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	cfg.Registerer = reg
	cfg.Logger = a.logger

	if path := v.GetString("pcap"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w, err := capture.NewWriter(f)
		if err != nil {
			return err
		}
		cfg.Capture = w
	}

	if path := v.GetString("dump"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		cfg.Dump = f
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run := sim.Run
	if v.GetBool("live") {
		run = sim.RunLive
	}
	rep, err := run(ctx, cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if v.GetBool("json") {
		err = report.WriteJSON(out, rep)
	} else {
		err = report.WriteSummary(out, rep)
	}
	if err != nil {
		return err
	}

	if path := v.GetString("csv"); path != "" {
		if err := writeCSVFile(path, rep); err != nil {
			return err
		}
	}

	if addr := v.GetString("metrics-addr"); addr != "" {
		return a.serveReport(ctx, addr, rep, reg)
	}
	return nil
}

// simConfig собирает конфигурацию симуляции из флагов, окружения и файла
func (a *app) simConfig() (sim.Config, error) {
	v := a.v
	cfg := sim.DefaultConfig()

	kind, err := codec.ParseKind(v.GetString("codec"))
	if err != nil {
		return cfg, err
	}
	rate := codec.Rate(v.GetInt("rate"))

	if path := v.GetString("sdp"); path != "" {
		sel, err := selectFromOffer(path)
		if err != nil {
			return cfg, err
		}
		kind, rate = sel.Kind, sel.Rate
		a.logger.Info("кодек выбран из SDP",
			slog.String("codec", kind.String()),
			slog.Int("rate", int(rate)),
			slog.Int("payload_type", int(sel.PayloadType)))
	}

	if kind == codec.KindG726 && v.GetBool("strict") {
		if err := codec.ValidateRate(rate); err != nil {
			return cfg, err
		}
	}

	mode, err := transport.ParseMode(v.GetString("mode"))
	if err != nil {
		return cfg, err
	}

	cfg.SessionID = v.GetString("session-id")
	cfg.Codec = kind
	cfg.Rate = rate
	cfg.Users = v.GetInt("users")
	cfg.Start = v.GetFloat64("start")
	cfg.Duration = v.GetFloat64("duration")
	cfg.Period = v.GetFloat64("period")
	cfg.StopTime = v.GetFloat64("stop")
	cfg.Link = sim.LinkConfig{
		Loss:      v.GetFloat64("loss"),
		Delay:     v.GetFloat64("delay"),
		Jitter:    v.GetFloat64("jitter"),
		Duplicate: v.GetFloat64("duplicate"),
	}
	cfg.Seed = v.GetInt64("seed")
	cfg.Mode = mode
	cfg.MaxSamples = v.GetInt("max-samples")

	return cfg, cfg.Validate()
}

func selectFromOffer(path string) (media_sdp.Selection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return media_sdp.Selection{}, err
	}
	desc, err := media_sdp.Unmarshal(data)
	if err != nil {
		return media_sdp.Selection{}, err
	}
	return media_sdp.ParseCodec(desc)
}

func writeCSVFile(path string, rep stats.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteCSV(f, rep); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// serveReport отдает итоговый отчет и метрики до отмены контекста
func (a *app) serveReport(ctx context.Context, addr string, rep stats.Report, reg *prometheus.Registry) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           report.NewHandler(report.Static(rep), reg, a.logger).SetupRoutes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP сервер отчета запущен", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP сервер: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
