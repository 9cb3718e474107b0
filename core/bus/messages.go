package bus

import "time"

// Event type tags carried in the "type" field of every bus message.
const (
	TypeBookingRequest   = "booking_request"
	TypeBookingConfirmed = "booking_confirmed"
	TypeBookingClosed    = "booking_closed"
	TypeNotification     = "notification"
)

// OfferMessage invites a specific provider to accept a specific booking.
type OfferMessage struct {
	Type          string    `json:"type"`
	BookingID     string    `json:"booking_id"`
	Category      string    `json:"category"`
	Customer      string    `json:"customer"`
	ScheduledTime time.Time `json:"scheduled_time"`
}

// NewOffer builds an OfferMessage with the correct type tag.
func NewOffer(bookingID, category, customer string, scheduled time.Time) OfferMessage {
	return OfferMessage{
		Type:          TypeBookingRequest,
		BookingID:     bookingID,
		Category:      category,
		Customer:      customer,
		ScheduledTime: scheduled,
	}
}

// ConfirmedMessage tells the winning provider the booking is theirs.
type ConfirmedMessage struct {
	Type      string `json:"type"`
	BookingID string `json:"booking_id"`
}

// NewConfirmed builds a ConfirmedMessage.
func NewConfirmed(bookingID string) ConfirmedMessage {
	return ConfirmedMessage{Type: TypeBookingConfirmed, BookingID: bookingID}
}

// ClosedMessage tells a losing provider to withdraw its pending-offer UI.
type ClosedMessage struct {
	Type      string `json:"type"`
	BookingID string `json:"booking_id"`
}

// NewClosed builds a ClosedMessage.
func NewClosed(bookingID string) ClosedMessage {
	return ClosedMessage{Type: TypeBookingClosed, BookingID: bookingID}
}

// NotificationMessage mirrors a persisted notification pushed to its
// recipient in real time.
type NotificationMessage struct {
	Type         string    `json:"type"`
	NotifType    string    `json:"notif_type"`
	Message      string    `json:"message"`
	RelatedType  string    `json:"related_type,omitempty"`
	RelatedID    string    `json:"related_id,omitempty"`
	CreatedAtUTC time.Time `json:"created_at"`
}
