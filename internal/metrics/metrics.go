// Package metrics — счётчики Prometheus для доставки событий в причинный движок.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "discuss"

// Исходы доставки события голоса, метка outcome у DeliveriesTotal.
const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
	OutcomeMalformed = "malformed"
	OutcomeDropped   = "dropped"
)

// Causal собирает счётчики доставки и аномалий ответа движка.
type Causal struct {
	// DeliveriesTotal — события по исходу: delivered, failed, malformed, dropped.
	DeliveriesTotal *prometheus.CounterVec
	// RetriesTotal — повторные попытки вызова движка.
	RetriesTotal prometheus.Counter
	// RecordsTotal — вставленные записи по виду (score, effect).
	RecordsTotal *prometheus.CounterVec
	// DuplicatesTotal — записи, уже присутствовавшие в базе (повторная доставка).
	DuplicatesTotal prometheus.Counter
	// MissingScoreTotal — ответы движка без Score для исходного поста.
	MissingScoreTotal prometheus.Counter
	// SweptTotal — события, повторно отправленные фоновым обходом.
	SweptTotal prometheus.Counter
}

// NewCausal регистрирует счётчики в reg. nil — реестр по умолчанию.
func NewCausal(reg prometheus.Registerer) *Causal {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Causal{
		DeliveriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "causal",
			Name:      "deliveries_total",
			Help:      "Vote events handed to the causal engine by outcome",
		}, []string{"outcome"}),
		RetriesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "causal",
			Name:      "retries_total",
			Help:      "Causal engine calls retried after a transient failure",
		}),
		RecordsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "causal",
			Name:      "records_total",
			Help:      "Score and effect rows inserted from engine output",
		}, []string{"kind"}),
		DuplicatesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "causal",
			Name:      "duplicate_records_total",
			Help:      "Engine output rows ignored because they were already stored",
		}),
		MissingScoreTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "causal",
			Name:      "missing_score_total",
			Help:      "Engine batches without a score for the originating post",
		}),
		SweptTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "causal",
			Name:      "swept_events_total",
			Help:      "Vote events resubmitted by the backlog sweeper",
		}),
	}
}

// Delivered, Failed, Malformed и Dropped учитывают исход одного события.
func (m *Causal) Delivered() { m.DeliveriesTotal.WithLabelValues(OutcomeDelivered).Inc() }
func (m *Causal) Failed()    { m.DeliveriesTotal.WithLabelValues(OutcomeFailed).Inc() }
func (m *Causal) Malformed() { m.DeliveriesTotal.WithLabelValues(OutcomeMalformed).Inc() }
func (m *Causal) Dropped()   { m.DeliveriesTotal.WithLabelValues(OutcomeDropped).Inc() }
