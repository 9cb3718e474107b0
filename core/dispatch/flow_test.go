package dispatch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/dispatch/core/bus"
	"github.com/taskhive/dispatch/core/model"
	"github.com/taskhive/dispatch/infra/logger"
	"github.com/taskhive/dispatch/infra/store"
)

// Full dispatch round trip: seven qualifying providers, five get offers, one
// accepts, the other four are told the booking is closed.
func TestDispatchAcceptRoundTrip(t *testing.T) {
	now := time.Now().UTC()
	var providers []model.Provider
	for i := 0; i < 7; i++ {
		providers = append(providers, provider(
			fmt.Sprintf("p%d", i), 12.90+float64(i+1)*0.01, 77.58, 4.0, now))
	}

	mb := newMockBus()
	bookings := store.NewMemoryBookingStore()
	notifications := store.NewMemoryNotificationStore()
	selector, err := NewSelector(store.NewMemoryProviderDirectory(providers...), Config{})
	require.NoError(t, err)
	manager, err := NewDispatchManager(selector, bookings, mb, nil, nil, logger.NopLogger{})
	require.NoError(t, err)
	notifier, err := NewLifecycleNotifier(notifications, mb, logger.NopLogger{})
	require.NoError(t, err)
	arbiter, err := NewArbiter(bookings, notifier, mb, nil, nil, logger.NopLogger{}, Config{})
	require.NoError(t, err)

	ctx := context.Background()
	res, err := manager.Dispatch(ctx, request())
	require.NoError(t, err)
	require.Len(t, res.Shortlist, 5)

	// Only the five closest providers got the offer.
	for i := 0; i < 5; i++ {
		assert.Len(t, mb.sent(bus.Provider(fmt.Sprintf("p%d", i))), 1)
	}
	for i := 5; i < 7; i++ {
		assert.Empty(t, mb.sent(bus.Provider(fmt.Sprintf("p%d", i))))
	}

	// The third-ranked provider accepts first.
	outcome, err := arbiter.Accept(ctx, res.Booking.ID, "p2")
	require.NoError(t, err)
	require.Equal(t, AcceptWon, outcome)

	// Winner holds the booking; every later accept loses.
	for _, late := range []string{"p0", "p1", "p3", "p4"} {
		outcome, err := arbiter.Accept(ctx, res.Booking.ID, late)
		require.NoError(t, err)
		assert.Equal(t, AcceptLost, outcome, "provider %s", late)
	}

	final, err := bookings.Get(ctx, res.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, final.Status)
	assert.Equal(t, "p2", final.ProviderID)

	// Winner channel: offer then confirmed. Losers: offer then closed.
	winnerMsgs := mb.sent(bus.Provider("p2"))
	require.Len(t, winnerMsgs, 2)
	_, ok := winnerMsgs[1].(bus.ConfirmedMessage)
	assert.True(t, ok)
	for _, loser := range []string{"p0", "p1", "p3", "p4"} {
		msgs := mb.sent(bus.Provider(loser))
		require.Len(t, msgs, 2, "provider %s", loser)
		_, ok := msgs[1].(bus.ClosedMessage)
		assert.True(t, ok, "provider %s", loser)
	}

	// The customer got exactly one confirmation.
	recs, err := notifications.ListByRecipient(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, model.NotifBookingConfirmed, recs[0].Type)
}
