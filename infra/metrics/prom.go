package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/taskhive/dispatch/core/metrics"
)

// PromSink records dispatch activity in Prometheus metrics.
type PromSink struct {
	offers    *prometheus.CounterVec
	accepts   *prometheus.CounterVec
	distance  prometheus.Histogram
	reminders prometheus.Counter
}

// NewPromSink registers dispatch metrics on the default Prometheus registerer.
// The metrics endpoint is served separately on cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	offers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_offers_total",
		Help: "Total number of booking offers pushed to providers",
	}, []string{"category", "published"})
	accepts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_accepts_total",
		Help: "Total number of accept attempts",
	}, []string{"won"})
	distance := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "booking_offer_distance_km",
		Help:    "Distance between customer and a notified provider",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
	})
	reminders := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booking_reminder_sweeps_sent_total",
		Help: "Reminders recorded by scheduler sweeps",
	})

	if err := reg.Register(offers); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			offers = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(accepts); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			accepts = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(distance); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			distance = are.ExistingCollector.(prometheus.Histogram)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(reminders); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			reminders = are.ExistingCollector.(prometheus.Counter)
		} else {
			return nil, err
		}
	}

	return &PromSink{offers: offers, accepts: accepts, distance: distance, reminders: reminders}, nil
}

// RecordOfferResults increments the offer counter per result.
func (s *PromSink) RecordOfferResults(results []coremetrics.OfferResult) error {
	for _, r := range results {
		s.offers.WithLabelValues(r.Category, strconv.FormatBool(r.Published)).Inc()
		s.distance.Observe(r.DistanceKm)
	}
	return nil
}

// RecordAcceptResult counts the attempt under its outcome label.
func (s *PromSink) RecordAcceptResult(r coremetrics.AcceptResult) error {
	s.accepts.WithLabelValues(strconv.FormatBool(r.Won)).Inc()
	return nil
}

// RecordReminders adds the sweep total to the reminder counter.
func (s *PromSink) RecordReminders(sent int, _ time.Time) error {
	s.reminders.Add(float64(sent))
	return nil
}
