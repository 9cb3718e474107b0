package metrics

import "time"

// OfferResult represents a per-provider offer push to be recorded.
type OfferResult struct {
	BookingID    string
	ProviderID   string
	Category     string
	DistanceKm   float64
	Rating       float64
	Published    bool
	DispatchTime time.Time
}

// AcceptResult represents the outcome of one accept attempt.
type AcceptResult struct {
	BookingID  string
	ProviderID string
	Won        bool
	Time       time.Time
}

// Sink records dispatch activity for observability purposes.
type Sink interface {
	RecordOfferResults(results []OfferResult) error
	RecordAcceptResult(result AcceptResult) error
}

// ReminderRecorder is implemented by sinks that also track reminder sweeps.
type ReminderRecorder interface {
	RecordReminders(sent int, at time.Time) error
}

// NopSink discards all records.
type NopSink struct{}

func (NopSink) RecordOfferResults([]OfferResult) error { return nil }
func (NopSink) RecordAcceptResult(AcceptResult) error  { return nil }

var _ Sink = NopSink{}
