package stats

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/gammazero/deque"
	"github.com/looplab/fsm"
)

// Состояния жизненного цикла трекера
const (
	StateIdle      = "idle"
	StateActive    = "active"
	StateFinalized = "finalized"
)

// Arrival классификация принятого пакета относительно ожидаемого индекса
type Arrival int

const (
	// ArrivalInOrder пакет с ожидаемым индексом
	ArrivalInOrder Arrival = iota
	// ArrivalGap пакет после пропуска одного или нескольких индексов
	ArrivalGap
	// ArrivalLate опоздавший или дублированный пакет
	ArrivalLate
)

func (a Arrival) String() string {
	switch a {
	case ArrivalInOrder:
		return "in_order"
	case ArrivalGap:
		return "gap"
	case ArrivalLate:
		return "late"
	default:
		return fmt.Sprintf("arrival(%d)", int(a))
	}
}

// TimePair время отправки и приема одного пакета, секунды
type TimePair struct {
	Sent     float64
	Received float64
}

// Delay задержка доставки пакета
func (p TimePair) Delay() float64 {
	return p.Received - p.Sent
}

// userStat изменяемое состояние абонента
type userStat struct {
	nextIndex uint32
	// exhausted принят пакет с индексом math.MaxUint32, nextIndex дальше не растет
	exhausted bool
	missed    uint32
	received  uint32
	late      uint32
	times     deque.Deque[TimePair]
	firstRecv float64
	lastRecv  float64
}

// Tracker собирает статистику качества звонка по принятым пакетам.
//
// Tracker безопасен для использования из нескольких горутин: все
// изменения состояния абонентов выполняются под одним мьютексом.
type Tracker struct {
	mu sync.Mutex

	cfg     Config
	users   []userStat
	state   *fsm.FSM
	metrics *metrics
	logger  *slog.Logger

	// totalReceived принятые пакеты по всем абонентам
	totalReceived    uint64
	addressingErrors uint64

	final *Report
}

// NewTracker создает трекер для cfg.Users абонентов
func NewTracker(cfg Config) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "stats"))
	if cfg.SessionID != "" {
		logger = logger.With(slog.String("session_id", cfg.SessionID))
	}

	t := &Tracker{
		cfg:     cfg,
		users:   make([]userStat, cfg.Users),
		metrics: newMetrics(cfg.Registerer, cfg.Namespace),
		logger:  logger,
	}
	t.initStateMachine()
	return t, nil
}

// initStateMachine инициализирует автомат жизненного цикла
func (t *Tracker) initStateMachine() {
	t.state = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			// Первый принятый пакет
			{Name: "start", Src: []string{StateIdle}, Dst: StateActive},
			// Завершение сессии
			{Name: "finalize", Src: []string{StateIdle, StateActive}, Dst: StateFinalized},
		},
		fsm.Callbacks{
			"enter_state": func(ctx context.Context, e *fsm.Event) {
				t.logger.Debug("смена состояния трекера",
					slog.String("from", e.Src),
					slog.String("to", e.Dst))
			},
		},
	)
}

// State возвращает текущее состояние жизненного цикла
func (t *Tracker) State() string {
	return t.state.Current()
}

// Users количество абонентов сессии
func (t *Tracker) Users() int {
	return t.cfg.Users
}

// OnPacketReceived учитывает пакет index абонента id, отправленный в sent
// и принятый в received (секунды).
//
// Пакет с id вне диапазона абонентов исключается из статистики и
// возвращает ошибку адресации. После Finalize все пакеты отбрасываются.
// Опоздавшие и дублированные пакеты ошибкой не являются.
func (t *Tracker) OnPacketReceived(id, index uint32, sent, received float64) error {
	_, err := t.Accept(id, index, sent, received)
	return err
}

// Accept то же, что OnPacketReceived, но дополнительно возвращает
// классификацию пакета. При ошибке классификация не определена.
func (t *Tracker) Accept(id, index uint32, sent, received float64) (Arrival, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Is(StateFinalized) {
		t.metrics.dropped.Inc()
		return ArrivalLate, &Error{
			Code:      ErrorCodeSessionFinalized,
			Message:   fmt.Sprintf("пакет %d абонента %d после завершения сессии", index, id),
			SessionID: t.cfg.SessionID,
		}
	}

	if int64(id) >= int64(len(t.users)) {
		t.addressingErrors++
		t.metrics.addressingErrors.Inc()
		t.logger.Error("идентификатор абонента вне диапазона",
			slog.Uint64("user_id", uint64(id)),
			slog.Int("users", len(t.users)),
			slog.Uint64("index", uint64(index)))
		return ArrivalLate, &Error{
			Code:      ErrorCodeAddressing,
			Message:   fmt.Sprintf("абонент %d вне диапазона [0, %d)", id, len(t.users)),
			SessionID: t.cfg.SessionID,
			Context: map[string]interface{}{
				"user_id": id,
				"index":   index,
			},
		}
	}

	if t.state.Is(StateIdle) {
		if err := t.state.Event(context.Background(), "start"); err != nil {
			return ArrivalLate, err
		}
	}

	u := &t.users[id]
	var arrival Arrival
	switch {
	case u.exhausted:
		arrival = ArrivalLate
	case index == u.nextIndex:
		arrival = ArrivalInOrder
		u.advance(index)
	case index > u.nextIndex:
		arrival = ArrivalGap
		gap := index - u.nextIndex
		u.missed += gap
		u.advance(index)
		t.metrics.lost.Add(float64(gap))
	default:
		arrival = ArrivalLate
	}
	if arrival == ArrivalLate {
		u.late++
		t.metrics.late.Inc()
		t.logger.Debug("опоздавший или дублированный пакет",
			slog.Uint64("user_id", uint64(id)),
			slog.Uint64("index", uint64(index)),
			slog.Uint64("next_expected", uint64(u.nextIndex)))
	}

	u.times.PushBack(TimePair{Sent: sent, Received: received})
	if t.cfg.MaxSamples > 0 && u.times.Len() > t.cfg.MaxSamples {
		u.times.PopFront()
	}
	if u.received == 0 {
		u.firstRecv = received
	}
	u.lastRecv = received
	u.received++
	t.totalReceived++

	t.metrics.received.Inc()
	t.metrics.delay.Observe(received - sent)
	return arrival, nil
}

// advance сдвигает ожидаемый индекс за index. Индекс не переполняется:
// после math.MaxUint32 все последующие пакеты считаются опоздавшими.
func (u *userStat) advance(index uint32) {
	if index == math.MaxUint32 {
		u.nextIndex = math.MaxUint32
		u.exhausted = true
		return
	}
	u.nextIndex = index + 1
}

// Snapshot вычисляет отчет по текущему состоянию, не завершая сессию
func (t *Tracker) Snapshot() Report {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.final != nil {
		return t.final.clone()
	}
	return t.buildReport()
}

// Finalize завершает сессию и возвращает итоговый отчет.
// Повторные вызовы возвращают тот же отчет.
func (t *Tracker) Finalize() Report {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.final != nil {
		return t.final.clone()
	}

	r := t.buildReport()
	r.Final = true
	t.final = &r

	if err := t.state.Event(context.Background(), "finalize"); err != nil {
		t.logger.Warn("не удалось сменить состояние трекера", slog.String("error", err.Error()))
	}
	t.metrics.publish(t.final)

	t.logger.Info("сессия завершена",
		slog.Int("users", len(r.Users)),
		slog.Uint64("total_received", r.TotalReceived),
		slog.Float64("loss_percent", r.Aggregate.LossPercent),
		slog.Float64("delay", r.Aggregate.Delay),
		slog.Float64("jitter", r.Aggregate.Jitter),
		slog.Float64("throughput", r.Aggregate.Throughput))

	return t.final.clone()
}

// buildReport вызывается под мьютексом
func (t *Tracker) buildReport() Report {
	users := make([]UserReport, len(t.users))
	for i := range t.users {
		u := &t.users[i]
		users[i] = UserReport{
			UserID:            uint32(i),
			Received:          u.received,
			Missed:            u.missed,
			Late:              u.late,
			NextExpectedIndex: u.nextIndex,
			Metrics:           t.userMetrics(u),
		}
	}

	return Report{
		SessionID:        t.cfg.SessionID,
		Users:            users,
		Aggregate:        aggregate(users),
		TotalReceived:    t.totalReceived,
		AddressingErrors: t.addressingErrors,
	}
}
