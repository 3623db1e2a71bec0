package sim

import (
	"math/rand"
	"sync"
)

// Link модель канала: потери, задержка, джиттер и дублирование.
// Детерминирована при одинаковом seed.
type Link struct {
	mu  sync.Mutex
	cfg LinkConfig
	rng *rand.Rand
}

// NewLink создает канал с генератором, инициализированным seed
func NewLink(cfg LinkConfig, seed int64) *Link {
	return &Link{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Transmit возвращает моменты доставки пакета, отправленного в sent.
// Пустой результат означает потерю, два значения дубликат.
func (l *Link) Transmit(sent float64) []float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cfg.Loss > 0 && l.rng.Float64() < l.cfg.Loss {
		return nil
	}
	arrivals := []float64{sent + l.delay()}
	if l.cfg.Duplicate > 0 && l.rng.Float64() < l.cfg.Duplicate {
		arrivals = append(arrivals, sent+l.delay())
	}
	return arrivals
}

// delay задержка с равномерным джиттером, не меньше нуля
func (l *Link) delay() float64 {
	d := l.cfg.Delay
	if l.cfg.Jitter > 0 {
		d += (l.rng.Float64()*2 - 1) * l.cfg.Jitter
	}
	if d < 0 {
		d = 0
	}
	return d
}
