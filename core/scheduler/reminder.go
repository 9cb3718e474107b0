// Package scheduler runs the periodic reminder sweep over upcoming
// confirmed bookings.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskhive/dispatch/core/bus"
	"github.com/taskhive/dispatch/core/events"
	"github.com/taskhive/dispatch/core/logger"
	"github.com/taskhive/dispatch/core/metrics"
	"github.com/taskhive/dispatch/core/model"
	"github.com/taskhive/dispatch/core/store"
	"github.com/taskhive/dispatch/internal/eventbus"
)

// Reminder sweeps confirmed bookings scheduled inside the lookahead window
// and records exactly one reminder notification per booking. The sweep is
// idempotent and safe to run concurrently from multiple instances: the
// notification store's uniqueness constraint on (recipient, type, related
// booking) is the authoritative dedup, the existence check only avoids
// useless writes.
type Reminder struct {
	bookings      store.BookingStore
	notifications store.NotificationStore
	rtBus         bus.Bus
	bus           eventbus.EventBus
	metrics       metrics.ReminderRecorder
	logger        logger.Logger
	window        time.Duration
	now           func() time.Time
}

// NewReminder creates a Reminder. The metrics recorder and event bus may be
// nil.
func NewReminder(bookings store.BookingStore, notifications store.NotificationStore, rtBus bus.Bus, sink metrics.ReminderRecorder, evBus eventbus.EventBus, log logger.Logger, cfg Config) (*Reminder, error) {
	if bookings == nil || notifications == nil || rtBus == nil || log == nil {
		return nil, fmt.Errorf("scheduler: nil parameter provided to NewReminder")
	}
	cfg.SetDefaults()
	return &Reminder{
		bookings:      bookings,
		notifications: notifications,
		rtBus:         rtBus,
		bus:           evBus,
		metrics:       sink,
		logger:        log,
		window:        time.Duration(cfg.WindowMinutes) * time.Minute,
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

// Run sweeps at the given interval until the context is canceled.
func (r *Reminder) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	r.logger.Infof("reminder scheduler started, interval %s", interval)
	for {
		select {
		case <-ctx.Done():
			r.logger.Infof("reminder scheduler stopped")
			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil {
				r.logger.Errorf("reminder sweep failed: %v", err)
			}
		}
	}
}

// Sweep performs one pass and returns the number of reminders sent.
func (r *Reminder) Sweep(ctx context.Context) (int, error) {
	now := r.now()
	upcoming, err := r.bookings.ConfirmedBetween(ctx, now, now.Add(r.window))
	if err != nil {
		return 0, fmt.Errorf("list upcoming bookings: %w", err)
	}
	sent := 0
	for _, b := range upcoming {
		ok, err := r.remind(ctx, b)
		if err != nil {
			r.logger.Errorf("reminder for booking %s failed: %v", b.ID, err)
			continue
		}
		if ok {
			sent++
		}
	}
	if sent > 0 {
		r.logger.Infof("sent %d booking reminders", sent)
	}
	remindersSent.Add(float64(sent))
	if r.metrics != nil {
		if serr := r.metrics.RecordReminders(sent, now); serr != nil {
			r.logger.Warnf("recording reminder sweep failed: %v", serr)
		}
	}
	return sent, nil
}

func (r *Reminder) remind(ctx context.Context, b model.Booking) (bool, error) {
	exists, err := r.notifications.Exists(ctx, b.CustomerID, model.NotifBookingReminder, "Booking", b.ID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	rec, created, err := r.notifications.CreateUnique(ctx, model.Notification{
		ID:          uuid.NewString(),
		RecipientID: b.CustomerID,
		Audience:    model.AudienceCustomer,
		Type:        model.NotifBookingReminder,
		Message:     fmt.Sprintf("Reminder: Your booking #%s is scheduled at %s.", b.ID, b.ScheduledTime.Format("2006-01-02 15:04")),
		RelatedType: "Booking",
		RelatedID:   b.ID,
		CreatedAt:   r.now(),
	})
	if err != nil {
		return false, err
	}
	if !created {
		// Another scheduler instance won the race.
		return false, nil
	}
	if r.bus != nil {
		r.bus.Publish(events.ReminderEvent{BookingID: b.ID, CustomerID: b.CustomerID})
	}
	msg := bus.NotificationMessage{
		Type:         bus.TypeNotification,
		NotifType:    string(rec.Type),
		Message:      rec.Message,
		RelatedType:  rec.RelatedType,
		RelatedID:    rec.RelatedID,
		CreatedAtUTC: rec.CreatedAt,
	}
	if perr := r.rtBus.Publish(bus.Customer(b.CustomerID), msg); perr != nil {
		r.logger.Warnf("reminder push to customer %s failed: %v", b.CustomerID, perr)
	}
	return true, nil
}
