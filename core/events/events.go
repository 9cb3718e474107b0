package events

import (
	"time"

	"github.com/taskhive/dispatch/core/model"
)

// RequestEvent is published when a booking request has been dispatched.
type RequestEvent struct {
	BookingID     string
	Category      string
	ShortlistSize int
}

// OfferEvent is published for each provider offer push attempt.
type OfferEvent struct {
	BookingID  string
	ProviderID string
	Published  bool
	Err        error
	Latency    time.Duration
}

// AcceptEvent is published for each accept attempt that reached the store.
type AcceptEvent struct {
	BookingID  string
	ProviderID string
	Won        bool
}

// StatusEvent is published when a booking status transition was committed.
type StatusEvent struct {
	BookingID string
	Status    model.BookingStatus
}

// ReminderEvent is published when a reminder notification was recorded.
type ReminderEvent struct {
	BookingID  string
	CustomerID string
}
