package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/taskhive/dispatch/core/events"
	"github.com/taskhive/dispatch/core/logger"
	"github.com/taskhive/dispatch/core/model"
	"github.com/taskhive/dispatch/core/store"
	"github.com/taskhive/dispatch/internal/eventbus"
)

// ErrInvalidTransition is returned for transitions the updater refuses to
// apply.
var ErrInvalidTransition = errors.New("invalid booking transition")

// BookingUpdater applies the booking transitions the arbiter does not own
// (completed, cancelled, rescheduled, provider reassignment) and emits the
// customer notifications tied to them.
type BookingUpdater struct {
	bookings store.BookingStore
	notifier *LifecycleNotifier
	bus      eventbus.EventBus
	logger   logger.Logger
}

// NewBookingUpdater creates a BookingUpdater. The event bus may be nil.
func NewBookingUpdater(bookings store.BookingStore, notifier *LifecycleNotifier, evBus eventbus.EventBus, log logger.Logger) (*BookingUpdater, error) {
	if bookings == nil || notifier == nil || log == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewBookingUpdater")
	}
	return &BookingUpdater{bookings: bookings, notifier: notifier, bus: evBus, logger: log}, nil
}

// UpdateStatus commits the transition and then notifies the customer.
// Confirmation is owned by the arbiter and is rejected here.
func (u *BookingUpdater) UpdateStatus(ctx context.Context, id string, status model.BookingStatus) (model.Booking, error) {
	if !status.Valid() {
		return model.Booking{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}
	if status == model.StatusConfirmed {
		return model.Booking{}, fmt.Errorf("%w: confirmation must go through Accept", ErrInvalidTransition)
	}
	b, err := u.bookings.SetStatus(ctx, id, status)
	if err != nil {
		return model.Booking{}, fmt.Errorf("set status: %w", err)
	}
	u.logger.Infof("booking %s transitioned to %s", id, status)
	if u.bus != nil {
		u.bus.Publish(events.StatusEvent{BookingID: id, Status: status})
	}
	if err := u.notifier.StatusChanged(ctx, b); err != nil {
		return b, err
	}
	return b, nil
}

// AssignProvider changes the assigned provider and notifies the customer.
func (u *BookingUpdater) AssignProvider(ctx context.Context, id, providerID string) (model.Booking, error) {
	b, err := u.bookings.AssignProvider(ctx, id, providerID)
	if err != nil {
		return model.Booking{}, fmt.Errorf("assign provider: %w", err)
	}
	u.logger.Infof("booking %s assigned to provider %s", id, providerID)
	if err := u.notifier.ProviderAssigned(ctx, b); err != nil {
		return b, err
	}
	return b, nil
}
