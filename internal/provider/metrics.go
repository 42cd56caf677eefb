package provider

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	callsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smm_provider_calls_total",
		Help: "Provider API calls, labeled by action and result",
	}, []string{"action", "result"})

	callDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "smm_provider_call_duration_seconds",
		Help:    "Latency distribution of provider API calls",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"action"})
)

func observeCall(action string, kind Kind, start time.Time) {
	result := "ok"
	if kind != "" {
		result = string(kind)
	}
	callsTotal.WithLabelValues(action, result).Inc()
	callDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())
}
