package stats

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// aggregateLabel значение метки user для средних по всем абонентам
const aggregateLabel = "all"

// metrics Prometheus метрики трекера
type metrics struct {
	received         prometheus.Counter
	lost             prometheus.Counter
	late             prometheus.Counter
	addressingErrors prometheus.Counter
	dropped          prometheus.Counter
	delay            prometheus.Histogram

	lossPercent *prometheus.GaugeVec
	meanDelay   *prometheus.GaugeVec
	jitter      *prometheus.GaugeVec
	throughput  *prometheus.GaugeVec
}

func newMetrics(reg prometheus.Registerer, namespace string) *metrics {
	f := promauto.With(reg)
	const subsystem = "call"

	return &metrics{
		received: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "packets_received_total",
			Help:      "Принятые пакеты с допустимым идентификатором абонента",
		}),
		lost: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "packets_lost_total",
			Help:      "Пакеты, пропущенные в последовательности индексов",
		}),
		late: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "packets_late_total",
			Help:      "Опоздавшие и дублированные пакеты",
		}),
		addressingErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "addressing_errors_total",
			Help:      "Пакеты с идентификатором отправителя вне диапазона",
		}),
		dropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "packets_after_finalize_total",
			Help:      "Пакеты, пришедшие после завершения сессии",
		}),
		delay: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "one_way_delay_seconds",
			Help:      "Задержка доставки пакета от отправки до приема",
			Buckets:   []float64{.005, .01, .02, .04, .08, .15, .3, .6, 1.2},
		}),
		lossPercent: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "loss_percent",
			Help:      "Итоговый процент потерь",
		}, []string{"user"}),
		meanDelay: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "delay_seconds",
			Help:      "Итоговая средняя задержка",
		}, []string{"user"}),
		jitter: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "jitter_seconds",
			Help:      "Итоговый джиттер",
		}, []string{"user"}),
		throughput: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "throughput",
			Help:      "Итоговая оценка пропускной способности",
		}, []string{"user"}),
	}
}

// publish выставляет итоговые метрики отчета
func (m *metrics) publish(r *Report) {
	for _, u := range r.Users {
		m.set(strconv.FormatUint(uint64(u.UserID), 10), u.Metrics)
	}
	m.set(aggregateLabel, r.Aggregate)
}

func (m *metrics) set(user string, v Metrics) {
	m.lossPercent.WithLabelValues(user).Set(v.LossPercent)
	m.meanDelay.WithLabelValues(user).Set(v.Delay)
	m.jitter.WithLabelValues(user).Set(v.Jitter)
	m.throughput.WithLabelValues(user).Set(v.Throughput)
}
