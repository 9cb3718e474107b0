package model

import "time"

// NotificationType tags the reason a notification was created.
type NotificationType string

const (
	NotifBookingConfirmed   NotificationType = "booking_confirmed"
	NotifBookingCancelled   NotificationType = "booking_cancelled"
	NotifBookingCompleted   NotificationType = "booking_completed"
	NotifBookingRescheduled NotificationType = "booking_rescheduled"
	NotifBookingReminder    NotificationType = "booking_reminder"
	NotifProviderAssigned   NotificationType = "provider_assigned"
	NotifReviewPrompt       NotificationType = "review_prompt"
)

// Dedupable reports whether at most one notification of this type may exist
// per (recipient, related entity). The store enforces this with a uniqueness
// constraint.
func (t NotificationType) Dedupable() bool {
	return t == NotifReviewPrompt || t == NotifBookingReminder
}

// Audience identifies the channel family a notification targets. It is set
// by the component creating the notification, never re-derived downstream.
type Audience string

const (
	AudienceProvider Audience = "provider"
	AudienceCustomer Audience = "customer"
	AudienceAdmin    Audience = "admin"
)

// Notification is a durable message for a single recipient. Persistence is
// authoritative; delivery over the real-time bus is best effort.
type Notification struct {
	ID          string           `json:"id"`
	RecipientID string           `json:"recipient_id"`
	Audience    Audience         `json:"audience"`
	Type        NotificationType `json:"type"`
	Message     string           `json:"message"`
	RelatedType string           `json:"related_type,omitempty"`
	RelatedID   string           `json:"related_id,omitempty"`
	Read        bool             `json:"read"`
	CreatedAt   time.Time        `json:"created_at"`
}
