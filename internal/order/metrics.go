package order

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"smmwallet/internal/domain"
)

var (
	ordersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smm_orders_total",
		Help: "Orders that reached a terminal state, labeled by state",
	}, []string{"state"})

	placeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "smm_order_place_duration_seconds",
		Help:    "Time from request to terminal state",
		Buckets: prometheus.DefBuckets,
	}, []string{"state"})
)

func observeOrder(state domain.OrderState, start time.Time) {
	ordersTotal.WithLabelValues(string(state)).Inc()
	placeDuration.WithLabelValues(string(state)).Observe(time.Since(start).Seconds())
}
