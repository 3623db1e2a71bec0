package sim

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/arzzra/voip_sim/pkg/capture"
	"github.com/arzzra/voip_sim/pkg/codec"
	"github.com/arzzra/voip_sim/pkg/transport"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// PacketRate пакетов в секунду от каждого абонента
	PacketRate = 50
	// PacketInterval интервал между пакетами в секундах
	PacketInterval = 1.0 / PacketRate
)

// LinkConfig параметры модели канала
type LinkConfig struct {
	Loss      float64 // вероятность потери пакета [0,1)
	Delay     float64 // базовая задержка в секундах
	Jitter    float64 // максимальное отклонение задержки в секундах
	Duplicate float64 // вероятность дублирования пакета [0,1)
}

// Config конфигурация симуляции звонка
type Config struct {
	SessionID string

	Codec codec.Kind
	Rate  codec.Rate

	// Users количество абонентов, все звонят на один сервер
	Users int

	// Start время начала первого звонка, секунды
	Start float64
	// Duration длительность разговора, секунды
	Duration float64
	// Period повтор звонка каждые Period секунд. 0 означает один звонок.
	Period float64
	// StopTime конец симуляции. 0 означает Start+Duration.
	StopTime float64

	Link LinkConfig
	Seed int64

	// Mode формат пакета на проводе
	Mode transport.Mode

	// MaxSamples ограничение журнала времен пакетов трекера
	MaxSamples int

	// Capture получает каждый доставленный пакет, nil отключает
	Capture *capture.Writer
	// Dump получает CSV первого кадра абонента 0, nil отключает
	Dump io.Writer

	Registerer prometheus.Registerer
	Logger     *slog.Logger
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		Codec:    codec.KindG711,
		Rate:     codec.Rate32,
		Users:    1,
		Start:    1.0,
		Duration: 10.0,
		Link: LinkConfig{
			Delay: 0.010,
		},
		Seed: 1,
		Mode: transport.ModeRaw,
	}
}

// Validate проверяет корректность конфигурации
func (c Config) Validate() error {
	if c.Users <= 0 {
		return fmt.Errorf("Users должен быть больше 0, получено %d", c.Users)
	}
	if c.Start < 0 {
		return fmt.Errorf("Start не может быть отрицательным: %v", c.Start)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("Duration должен быть больше 0, получено %v", c.Duration)
	}
	if c.Period != 0 && c.Period < c.Duration {
		return fmt.Errorf("Period (%v) должен быть не меньше Duration (%v)", c.Period, c.Duration)
	}
	if c.StopTime != 0 && c.StopTime < c.Start {
		return fmt.Errorf("StopTime (%v) раньше Start (%v)", c.StopTime, c.Start)
	}
	if c.MaxSamples < 0 {
		return fmt.Errorf("MaxSamples не может быть отрицательным: %d", c.MaxSamples)
	}
	return c.Link.Validate()
}

// Validate проверяет параметры канала
func (l LinkConfig) Validate() error {
	if l.Loss < 0 || l.Loss >= 1 {
		return fmt.Errorf("Loss должен быть в диапазоне [0,1), получено %v", l.Loss)
	}
	if l.Duplicate < 0 || l.Duplicate >= 1 {
		return fmt.Errorf("Duplicate должен быть в диапазоне [0,1), получено %v", l.Duplicate)
	}
	if l.Delay < 0 {
		return fmt.Errorf("Delay не может быть отрицательным: %v", l.Delay)
	}
	if l.Jitter < 0 {
		return fmt.Errorf("Jitter не может быть отрицательным: %v", l.Jitter)
	}
	return nil
}

// stopTime фактический конец симуляции
func (c Config) stopTime() float64 {
	if c.StopTime != 0 {
		return c.StopTime
	}
	return c.Start + c.Duration
}

// sendTimes моменты отправки пакетов одного абонента
func (c Config) sendTimes() []float64 {
	var times []float64
	stop := c.stopTime()
	for callStart := c.Start; callStart < stop; callStart += c.Period {
		// целочисленный счетчик вместо накопления, чтобы не копить ошибку округления
		n := int(c.Duration*PacketRate + 1e-9)
		for i := 0; i < n; i++ {
			t := callStart + float64(i)*PacketInterval
			if t >= stop {
				break
			}
			times = append(times, t)
		}
		if c.Period == 0 {
			break
		}
	}
	return times
}
