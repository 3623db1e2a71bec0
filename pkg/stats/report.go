package stats

import (
	"math"

	"github.com/gammazero/deque"
)

// Metrics метрики качества одного абонента или средние по звонку
type Metrics struct {
	// Delay средняя задержка в секундах, округленная до 4 знаков
	Delay float64 `json:"delay"`
	// Jitter средний модуль изменения задержки между соседними пакетами, секунды
	Jitter float64 `json:"jitter"`
	// LossPercent доля потерянных пакетов в процентах
	LossPercent float64 `json:"loss_percent"`
	// Throughput эвристика: размер пакета в битах / задержка / ThroughputScale
	Throughput float64 `json:"throughput"`
	// IntervalThroughput принятые биты за интервал от первого до последнего приема / ThroughputScale
	IntervalThroughput float64 `json:"interval_throughput"`
}

// UserReport итоговая статистика абонента
type UserReport struct {
	UserID            uint32 `json:"user_id"`
	Received          uint32 `json:"received"`
	Missed            uint32 `json:"missed"`
	Late              uint32 `json:"late"`
	NextExpectedIndex uint32 `json:"next_expected_index"`
	Metrics
}

// Report итог сессии: метрики по абонентам и средние значения
type Report struct {
	SessionID        string       `json:"session_id,omitempty"`
	Users            []UserReport `json:"users"`
	Aggregate        Metrics      `json:"aggregate"`
	TotalReceived    uint64       `json:"total_received"`
	AddressingErrors uint64       `json:"addressing_errors"`
	Final            bool         `json:"final"`
}

// User возвращает отчет абонента id
func (r Report) User(id uint32) (UserReport, bool) {
	if int(id) >= len(r.Users) {
		return UserReport{}, false
	}
	return r.Users[id], true
}

// clone копия отчета, не разделяющая срез абонентов
func (r *Report) clone() Report {
	c := *r
	c.Users = append([]UserReport(nil), r.Users...)
	return c
}

// roundTo округляет v до places знаков после запятой
func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// meanDelay средняя задержка по журналу
func meanDelay(times *deque.Deque[TimePair]) float64 {
	n := times.Len()
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += times.At(i).Delay()
	}
	return sum / float64(n)
}

// meanJitter средний модуль разности задержек соседних записей журнала
func meanJitter(times *deque.Deque[TimePair]) float64 {
	n := times.Len()
	if n < 2 {
		return 0
	}
	var sum float64
	prev := times.At(0).Delay()
	for i := 1; i < n; i++ {
		d := times.At(i).Delay()
		sum += math.Abs(d - prev)
		prev = d
	}
	return sum / float64(n-1)
}

// lossPercent процент потерь по собственному числу принятых пакетов абонента
func lossPercent(missed, received uint32) float64 {
	total := float64(missed) + float64(received)
	if total == 0 {
		return 0
	}
	return float64(missed) / total * 100
}

// userMetrics вычисляет метрики абонента
func (t *Tracker) userMetrics(u *userStat) Metrics {
	delay := meanDelay(&u.times)
	m := Metrics{
		Delay:       roundTo(delay, 4),
		Jitter:      meanJitter(&u.times),
		LossPercent: lossPercent(u.missed, u.received),
	}

	bits := float64(t.cfg.PacketSize * 8)
	if delay > 0 {
		m.Throughput = bits / delay / t.cfg.ThroughputScale
	}
	if interval := u.lastRecv - u.firstRecv; u.received > 1 && interval > 0 {
		m.IntervalThroughput = float64(u.received) * bits / interval / t.cfg.ThroughputScale
	}
	return m
}

// aggregate среднее арифметическое каждой метрики по всем абонентам
func aggregate(users []UserReport) Metrics {
	var a Metrics
	if len(users) == 0 {
		return a
	}
	for _, u := range users {
		a.Delay += u.Delay
		a.Jitter += u.Jitter
		a.LossPercent += u.LossPercent
		a.Throughput += u.Throughput
		a.IntervalThroughput += u.IntervalThroughput
	}
	n := float64(len(users))
	a.Delay /= n
	a.Jitter /= n
	a.LossPercent /= n
	a.Throughput /= n
	a.IntervalThroughput /= n
	return a
}
