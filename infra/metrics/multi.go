package metrics

import (
	"time"

	coremetrics "github.com/taskhive/dispatch/core/metrics"
)

// MultiSink fans out records to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordOfferResults forwards to all sinks, returning the first error encountered.
func (m *MultiSink) RecordOfferResults(results []coremetrics.OfferResult) error {
	for _, s := range m.Sinks {
		if err := s.RecordOfferResults(results); err != nil {
			return err
		}
	}
	return nil
}

// RecordAcceptResult forwards to all sinks.
func (m *MultiSink) RecordAcceptResult(r coremetrics.AcceptResult) error {
	for _, s := range m.Sinks {
		if err := s.RecordAcceptResult(r); err != nil {
			return err
		}
	}
	return nil
}

// RecordReminders forwards sweep totals to sinks that track them.
func (m *MultiSink) RecordReminders(sent int, at time.Time) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.ReminderRecorder); ok {
			if err := rec.RecordReminders(sent, at); err != nil {
				return err
			}
		}
	}
	return nil
}
