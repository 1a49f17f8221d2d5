package funding

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchesVerified = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qftally_funding",
		Name:      "batches_verified_total",
		Help:      "number of tally batches verified",
	})
	batchesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qftally_funding",
		Name:      "batches_rejected_total",
		Help:      "number of tally batches rejected, by reason",
	}, []string{"reason"})
	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "qftally_funding",
		Name:      "batch_verification_seconds",
		Help:      "time spent verifying a tally batch",
		Buckets:   prometheus.DefBuckets,
	})
	roundsFinalized = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qftally_funding",
		Name:      "rounds_finalized_total",
		Help:      "number of rounds finalized",
	})
	claimsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qftally_funding",
		Name:      "claims_total",
		Help:      "number of allocations claimed",
	})
	claimedAmount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qftally_funding",
		Name:      "claimed_amount_total",
		Help:      "sum of the claimed allocations, in base units",
	})
)
