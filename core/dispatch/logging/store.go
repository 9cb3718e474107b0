// Package logging persists a durable record of every dispatch decision: the
// shortlist offered a booking and the per-provider publish outcomes.
package logging

import (
	"context"
	"time"
)

// OfferRecord captures one dispatch decision and its fan-out result.
type OfferRecord struct {
	Timestamp         time.Time         `json:"timestamp"`
	BookingID         string            `json:"booking_id"`
	Category          string            `json:"category"`
	CustomerID        string            `json:"customer_id"`
	NotifiedProviders []string          `json:"notified_providers"`
	Published         map[string]bool   `json:"published"`
	Errors            map[string]string `json:"errors,omitempty"`
}

// OfferQuery defines filters for retrieving records.
type OfferQuery struct {
	Start      time.Time
	End        time.Time
	BookingID  string
	ProviderID string
	Category   string
}

// OfferStore persists OfferRecords and supports querying.
type OfferStore interface {
	Append(ctx context.Context, rec OfferRecord) error
	Query(ctx context.Context, q OfferQuery) ([]OfferRecord, error)
	Close() error
}
