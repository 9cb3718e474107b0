package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/taskhive/dispatch/core/bus"
	"github.com/taskhive/dispatch/core/events"
	"github.com/taskhive/dispatch/core/logger"
	"github.com/taskhive/dispatch/core/metrics"
	"github.com/taskhive/dispatch/core/model"
	"github.com/taskhive/dispatch/core/store"
	"github.com/taskhive/dispatch/internal/eventbus"
)

// ErrNotNotified is returned when membership enforcement is enabled and the
// accepting provider was not part of the offer shortlist.
var ErrNotNotified = errors.New("provider was not offered this booking")

// AcceptOutcome is the result of an accept attempt.
type AcceptOutcome int

const (
	// AcceptLost means the booking was already taken by another provider.
	AcceptLost AcceptOutcome = iota
	// AcceptWon means this provider's accept committed the confirmation.
	AcceptWon
)

func (o AcceptOutcome) String() string {
	if o == AcceptWon {
		return "won"
	}
	return "lost"
}

// Arbiter enforces at-most-one-winner semantics on booking acceptance. The
// mutual exclusion lives entirely in the booking store's compare-and-set;
// the arbiter holds no lock, so accept requests may land on any number of
// service instances.
type Arbiter struct {
	bookings        store.BookingStore
	notifier        *LifecycleNotifier
	rtBus           bus.Bus
	metrics         metrics.Sink
	bus             eventbus.EventBus
	logger          logger.Logger
	requireNotified bool
	now             nowFunc
}

// NewArbiter creates an Arbiter. The metrics sink and event bus may be nil.
func NewArbiter(bookings store.BookingStore, notifier *LifecycleNotifier, rtBus bus.Bus, sink metrics.Sink, evBus eventbus.EventBus, log logger.Logger, cfg Config) (*Arbiter, error) {
	if bookings == nil || notifier == nil || rtBus == nil || log == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewArbiter")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Arbiter{
		bookings:        bookings,
		notifier:        notifier,
		rtBus:           rtBus,
		metrics:         sink,
		bus:             evBus,
		logger:          log,
		requireNotified: cfg.RequireNotified,
		now:             defaultNow,
	}, nil
}

// Accept attempts to confirm the booking for the given provider. At most one
// call per booking observes AcceptWon; every other call observes AcceptLost
// with no state change. On a win the provider is told "confirmed", every
// other notified provider is told "closed" and the customer receives a
// confirmation notification. All pushes happen after the commit and publish
// failures never fail the accept.
func (a *Arbiter) Accept(ctx context.Context, bookingID, providerID string) (AcceptOutcome, error) {
	if a.requireNotified {
		b, err := a.bookings.Get(ctx, bookingID)
		if err != nil {
			return AcceptLost, fmt.Errorf("load booking: %w", err)
		}
		if !b.WasNotified(providerID) {
			return AcceptLost, ErrNotNotified
		}
	}

	won, err := a.bookings.CompareAndSetConfirmed(ctx, bookingID, providerID)
	if err != nil {
		return AcceptLost, fmt.Errorf("confirm booking %s: %w", bookingID, err)
	}
	outcome := AcceptLost
	if won {
		outcome = AcceptWon
	}
	acceptAttempts.WithLabelValues(outcome.String()).Inc()
	if a.bus != nil {
		a.bus.Publish(events.AcceptEvent{BookingID: bookingID, ProviderID: providerID, Won: won})
	}
	if serr := a.metrics.RecordAcceptResult(metrics.AcceptResult{
		BookingID:  bookingID,
		ProviderID: providerID,
		Won:        won,
		Time:       a.now(),
	}); serr != nil {
		a.logger.Errorf("metrics error: %v", serr)
	}
	if !won {
		a.logger.Debugf("booking %s already resolved, provider %s lost", bookingID, providerID)
		return AcceptLost, nil
	}
	a.logger.Infof("booking %s confirmed by provider %s", bookingID, providerID)

	booking, err := a.bookings.Get(ctx, bookingID)
	if err != nil {
		// The win is committed; notifications cannot be derived without
		// the record, so surface the store error alongside the outcome.
		return AcceptWon, fmt.Errorf("load confirmed booking %s: %w", bookingID, err)
	}
	a.publishResolution(booking, providerID)
	if err := a.notifier.StatusChanged(ctx, booking); err != nil {
		return AcceptWon, err
	}
	return AcceptWon, nil
}

// publishResolution pushes the win to the winner and closure to every other
// notified provider.
func (a *Arbiter) publishResolution(booking model.Booking, winnerID string) {
	if err := a.rtBus.Publish(bus.Provider(winnerID), bus.NewConfirmed(booking.ID)); err != nil {
		publishFailures.Inc()
		a.logger.Warnf("confirmed push to provider %s failed: %v", winnerID, err)
	}
	closed := bus.NewClosed(booking.ID)
	for _, pid := range booking.NotifiedProviders {
		if pid == winnerID {
			continue
		}
		if err := a.rtBus.Publish(bus.Provider(pid), closed); err != nil {
			publishFailures.Inc()
			a.logger.Warnf("closed push to provider %s failed: %v", pid, err)
		}
	}
}
