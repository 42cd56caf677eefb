package ledger

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"smmwallet/internal/domain"
	"smmwallet/pkg/errors"
)

var (
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smm_ledger_mutations_total",
		Help: "Ledger credits and debits, labeled by operation, entry kind and outcome",
	}, []string{"op", "kind", "outcome"})

	mutationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "smm_ledger_mutation_duration_seconds",
		Help:    "Latency distribution of ledger mutations",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
	}, []string{"op"})
)

func observe(op string, kind domain.EntryKind, err error, start time.Time) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, errors.ErrInsufficientFunds):
		outcome = "insufficient_funds"
	case errors.Is(err, errors.ErrInvalidAmount):
		outcome = "invalid_amount"
	default:
		outcome = "error"
	}
	mutationsTotal.WithLabelValues(op, string(kind), outcome).Inc()
	mutationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
