// Package store defines the durable collaborator contracts of the dispatch
// core: the provider directory, the booking store and the notification
// store. Implementations live under infra/store.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/taskhive/dispatch/core/model"
)

var (
	// ErrNotFound is returned when the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable is returned when the store could not execute the
	// operation. Callers may retry with the same idempotent request.
	ErrUnavailable = errors.New("store unavailable")
)

// CandidateQuery narrows the provider directory to dispatchable providers.
type CandidateQuery struct {
	Category      string
	AvailableOnly bool
	ApprovedOnly  bool
	MinRating     float64
}

// ProviderDirectory queries the provider pool.
type ProviderDirectory interface {
	FindCandidates(ctx context.Context, q CandidateQuery) ([]model.Provider, error)
}

// BookingStore owns the durable booking record. CompareAndSetConfirmed is
// the only mutual-exclusion point of the whole engine and must execute as a
// single atomic conditional update, never as a read-branch-write sequence.
type BookingStore interface {
	// CreatePending creates a booking with status pending and the offer
	// shortlist frozen into NotifiedProviders.
	CreatePending(ctx context.Context, req model.BookingRequest, notified []string) (model.Booking, error)

	Get(ctx context.Context, id string) (model.Booking, error)

	// CompareAndSetConfirmed transitions pending -> confirmed and assigns
	// the provider in one atomic step. It returns false when the booking
	// was no longer pending at commit time.
	CompareAndSetConfirmed(ctx context.Context, id, providerID string) (bool, error)

	// SetStatus applies an out-of-scope transition (completed, cancelled,
	// rescheduled) and returns the updated booking.
	SetStatus(ctx context.Context, id string, status model.BookingStatus) (model.Booking, error)

	// AssignProvider updates the provider field independently of status.
	AssignProvider(ctx context.Context, id, providerID string) (model.Booking, error)

	ListByStatus(ctx context.Context, status model.BookingStatus) ([]model.Booking, error)

	// ConfirmedBetween lists confirmed bookings scheduled within [from, to].
	ConfirmedBetween(ctx context.Context, from, to time.Time) ([]model.Booking, error)

	CountByStatus(ctx context.Context) (map[model.BookingStatus]int, error)
}

// NotificationStore persists notifications. Persistence is authoritative;
// the real-time push that may follow is best effort.
type NotificationStore interface {
	Create(ctx context.Context, n model.Notification) (model.Notification, error)

	// CreateUnique inserts n unless a notification with the same
	// (recipient, type, related entity) already exists. The second return
	// value reports whether a row was created. The uniqueness guarantee
	// holds under concurrent callers.
	CreateUnique(ctx context.Context, n model.Notification) (model.Notification, bool, error)

	Exists(ctx context.Context, recipientID string, typ model.NotificationType, relatedType, relatedID string) (bool, error)

	ListByRecipient(ctx context.Context, recipientID string) ([]model.Notification, error)
}
