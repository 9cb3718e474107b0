package model

import (
	"fmt"
	"time"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPending     BookingStatus = "pending"
	StatusConfirmed   BookingStatus = "confirmed"
	StatusCompleted   BookingStatus = "completed"
	StatusCancelled   BookingStatus = "cancelled"
	StatusRescheduled BookingStatus = "rescheduled"
)

// Valid reports whether s is a known booking status.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusRescheduled:
		return true
	default:
		return false
	}
}

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// BookingRequest describes a customer's request for a service visit.
// It is immutable once created.
type BookingRequest struct {
	Category      string    `json:"category"`
	CustomerID    string    `json:"customer_id"`
	CustomerName  string    `json:"customer_name"`
	Location      Location  `json:"location"`
	ScheduledTime time.Time `json:"scheduled_time"`
	Skills        []string  `json:"skills,omitempty"`
}

// Booking is the durable record of a service request. NotifiedProviders is
// fixed at dispatch time and frozen once the status leaves pending.
type Booking struct {
	ID                string        `json:"id"`
	Category          string        `json:"category"`
	CustomerID        string        `json:"customer_id"`
	CustomerName      string        `json:"customer_name"`
	Location          Location      `json:"location"`
	ScheduledTime     time.Time     `json:"scheduled_time"`
	Status            BookingStatus `json:"status"`
	ProviderID        string        `json:"provider_id,omitempty"`
	NotifiedProviders []string      `json:"notified_providers"`
	Rating            float64       `json:"rating,omitempty"`
	Feedback          string        `json:"feedback,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
}

// Validate checks the booking invariants: the status must be known and a
// provider is assigned if and only if the booking is confirmed or completed.
func (b Booking) Validate() error {
	if !b.Status.Valid() {
		return fmt.Errorf("unknown booking status %q", b.Status)
	}
	assigned := b.Status == StatusConfirmed || b.Status == StatusCompleted
	if assigned && b.ProviderID == "" {
		return fmt.Errorf("booking %s is %s but has no provider", b.ID, b.Status)
	}
	if !assigned && b.ProviderID != "" && b.Status == StatusPending {
		return fmt.Errorf("pending booking %s has provider %s", b.ID, b.ProviderID)
	}
	return nil
}

// WasNotified reports whether the provider was part of the offer shortlist.
func (b Booking) WasNotified(providerID string) bool {
	for _, id := range b.NotifiedProviders {
		if id == providerID {
			return true
		}
	}
	return false
}
