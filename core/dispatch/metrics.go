package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	offersPublished *prometheus.CounterVec
	publishFailures prometheus.Counter
	acceptAttempts  *prometheus.CounterVec
	shortlistSize   prometheus.Histogram
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, prometheus.Counter, *prometheus.CounterVec, prometheus.Histogram) {
	offers := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_offers_published_total",
			Help: "Number of booking offers pushed to provider channels",
		},
		[]string{"category"},
	)
	failures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bus_publish_failure_total",
			Help: "Number of failed real-time bus publish operations",
		},
	)
	accepts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_accept_attempts_total",
			Help: "Number of accept attempts by outcome",
		},
		[]string{"outcome"},
	)
	shortlist := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "booking_shortlist_size",
			Help:    "Number of providers notified per dispatched booking",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 8, 10},
		},
	)
	return offers, failures, accepts, shortlist
}

func init() {
	offersPublished, publishFailures, acceptAttempts, shortlistSize = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(offersPublished, publishFailures, acceptAttempts, shortlistSize)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	offersPublished, publishFailures, acceptAttempts, shortlistSize = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
