package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "qftally_service"

var (
	payoutsSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "payouts_sent_total",
		Help:      "Payouts settled",
	})
	payoutsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "payouts_failed_total",
		Help:      "Payouts that failed to settle, by whether they can be retried",
	}, []string{"retryable"})
	pendingPayouts = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "pending_payouts",
		Help:      "Payouts waiting to be settled",
	})
	roundsVerified = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "rounds_verified_total",
		Help:      "Rounds whose tally results were fully verified by the runner",
	})
	runnerRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "runner_cursor_retries_total",
		Help:      "Batches retried by the runner after losing a cursor race",
	})
)
