package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskhive/dispatch/core/bus"
	"github.com/taskhive/dispatch/core/logger"
	"github.com/taskhive/dispatch/core/model"
	"github.com/taskhive/dispatch/core/store"
)

type nowFunc func() time.Time

func defaultNow() time.Time { return time.Now().UTC() }

// LifecycleNotifier emits the customer-facing notifications that follow
// booking status transitions. Notification rows are authoritative and their
// creation is a hard error; the real-time push that mirrors each row is best
// effort.
type LifecycleNotifier struct {
	notifications store.NotificationStore
	rtBus         bus.Bus
	logger        logger.Logger
	now           nowFunc
}

// NewLifecycleNotifier creates a LifecycleNotifier.
func NewLifecycleNotifier(notifications store.NotificationStore, rtBus bus.Bus, log logger.Logger) (*LifecycleNotifier, error) {
	if notifications == nil || rtBus == nil || log == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewLifecycleNotifier")
	}
	return &LifecycleNotifier{notifications: notifications, rtBus: rtBus, logger: log, now: defaultNow}, nil
}

// StatusChanged notifies the customer about the booking's new status. A
// completed booking additionally receives a one-time review prompt,
// deduplicated on (recipient, review_prompt, booking) so retries never send
// it twice.
func (n *LifecycleNotifier) StatusChanged(ctx context.Context, b model.Booking) error {
	switch b.Status {
	case model.StatusConfirmed:
		return n.notify(ctx, b, model.NotifBookingConfirmed,
			fmt.Sprintf("Your booking #%s is confirmed.", b.ID))
	case model.StatusCancelled:
		return n.notify(ctx, b, model.NotifBookingCancelled,
			fmt.Sprintf("Your booking #%s was cancelled.", b.ID))
	case model.StatusCompleted:
		if err := n.notify(ctx, b, model.NotifBookingCompleted,
			fmt.Sprintf("Your booking #%s is completed.", b.ID)); err != nil {
			return err
		}
		return n.notifyOnce(ctx, b, model.NotifReviewPrompt,
			fmt.Sprintf("Please leave a review for your completed booking #%s.", b.ID))
	case model.StatusRescheduled:
		return n.notify(ctx, b, model.NotifBookingRescheduled,
			fmt.Sprintf("Your booking #%s was rescheduled.", b.ID))
	default:
		return nil
	}
}

// ProviderAssigned notifies the customer that a provider was assigned or
// changed independently of a status transition.
func (n *LifecycleNotifier) ProviderAssigned(ctx context.Context, b model.Booking) error {
	return n.notify(ctx, b, model.NotifProviderAssigned,
		fmt.Sprintf("A provider was assigned to your booking #%s.", b.ID))
}

func (n *LifecycleNotifier) notify(ctx context.Context, b model.Booking, typ model.NotificationType, msg string) error {
	rec, err := n.notifications.Create(ctx, n.build(b, typ, msg))
	if err != nil {
		return fmt.Errorf("create %s notification: %w", typ, err)
	}
	n.push(rec)
	return nil
}

func (n *LifecycleNotifier) notifyOnce(ctx context.Context, b model.Booking, typ model.NotificationType, msg string) error {
	rec, created, err := n.notifications.CreateUnique(ctx, n.build(b, typ, msg))
	if err != nil {
		return fmt.Errorf("create %s notification: %w", typ, err)
	}
	if !created {
		n.logger.Debugf("%s for booking %s already sent", typ, b.ID)
		return nil
	}
	n.push(rec)
	return nil
}

func (n *LifecycleNotifier) build(b model.Booking, typ model.NotificationType, msg string) model.Notification {
	return model.Notification{
		ID:          uuid.NewString(),
		RecipientID: b.CustomerID,
		Audience:    model.AudienceCustomer,
		Type:        typ,
		Message:     msg,
		RelatedType: "Booking",
		RelatedID:   b.ID,
		CreatedAt:   n.now(),
	}
}

// push mirrors the persisted notification onto the recipient's channel.
func (n *LifecycleNotifier) push(rec model.Notification) {
	msg := bus.NotificationMessage{
		Type:         bus.TypeNotification,
		NotifType:    string(rec.Type),
		Message:      rec.Message,
		RelatedType:  rec.RelatedType,
		RelatedID:    rec.RelatedID,
		CreatedAtUTC: rec.CreatedAt,
	}
	if err := n.rtBus.Publish(bus.Customer(rec.RecipientID), msg); err != nil {
		publishFailures.Inc()
		n.logger.Warnf("notification push to customer %s failed: %v", rec.RecipientID, err)
	}
}
