package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/dispatch/core/bus"
	"github.com/taskhive/dispatch/core/model"
	"github.com/taskhive/dispatch/infra/logger"
	"github.com/taskhive/dispatch/infra/store"
)

type recordingBus struct {
	mu     sync.Mutex
	events map[bus.Channel][]any
}

func newRecordingBus() *recordingBus {
	return &recordingBus{events: map[bus.Channel][]any{}}
}

func (b *recordingBus) Publish(ch bus.Channel, event any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[ch] = append(b.events[ch], event)
	return nil
}

func (b *recordingBus) sent(ch bus.Channel) []any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]any(nil), b.events[ch]...)
}

func (b *recordingBus) Close() {}

type fixture struct {
	reminder      *Reminder
	bookings      *store.MemoryBookingStore
	notifications *store.MemoryNotificationStore
	bus           *recordingBus
	base          time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rb := newRecordingBus()
	bookings := store.NewMemoryBookingStore()
	notifications := store.NewMemoryNotificationStore()
	r, err := NewReminder(bookings, notifications, rb, nil, nil, logger.NopLogger{}, Config{WindowMinutes: 60})
	require.NoError(t, err)
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }
	return &fixture{reminder: r, bookings: bookings, notifications: notifications, bus: rb, base: base}
}

func (f *fixture) confirmed(t *testing.T, customerID string, scheduled time.Time) model.Booking {
	t.Helper()
	b, err := f.bookings.CreatePending(context.Background(), model.BookingRequest{
		Category:      "plumbing",
		CustomerID:    customerID,
		ScheduledTime: scheduled,
	}, []string{"p1"})
	require.NoError(t, err)
	won, err := f.bookings.CompareAndSetConfirmed(context.Background(), b.ID, "p1")
	require.NoError(t, err)
	require.True(t, won)
	return b
}

func TestSweepRemindsUpcomingConfirmed(t *testing.T) {
	f := newFixture(t)
	b := f.confirmed(t, "cust-1", f.base.Add(30*time.Minute))

	sent, err := f.reminder.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	recs := f.notifications.ByType("cust-1", model.NotifBookingReminder)
	require.Len(t, recs, 1)
	assert.Equal(t, "Reminder: Your booking #"+b.ID+" is scheduled at 2026-03-14 09:30.", recs[0].Message)
	assert.Equal(t, "Booking", recs[0].RelatedType)
	assert.Equal(t, b.ID, recs[0].RelatedID)

	pushed := f.bus.sent(bus.Customer("cust-1"))
	require.Len(t, pushed, 1)
	msg, ok := pushed[0].(bus.NotificationMessage)
	require.True(t, ok)
	assert.Equal(t, bus.TypeNotification, msg.Type)
	assert.Equal(t, string(model.NotifBookingReminder), msg.NotifType)
}

type reminderSweepRecorder struct {
	mu     sync.Mutex
	sweeps []int
}

func (r *reminderSweepRecorder) RecordReminders(sent int, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweeps = append(r.sweeps, sent)
	return nil
}

func TestSweepRecordsMetrics(t *testing.T) {
	f := newFixture(t)
	rec := &reminderSweepRecorder{}
	f.reminder.metrics = rec
	f.confirmed(t, "cust-1", f.base.Add(30*time.Minute))
	f.confirmed(t, "cust-2", f.base.Add(45*time.Minute))

	sent, err := f.reminder.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	sent, err = f.reminder.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	assert.Equal(t, []int{2, 0}, rec.sweeps)
}

func TestSweepIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.confirmed(t, "cust-1", f.base.Add(30*time.Minute))

	sent, err := f.reminder.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	sent, err = f.reminder.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	recs := f.notifications.ByType("cust-1", model.NotifBookingReminder)
	assert.Len(t, recs, 1)
	assert.Len(t, f.bus.sent(bus.Customer("cust-1")), 1)
}

func TestSweepSkipsOutsideWindow(t *testing.T) {
	f := newFixture(t)
	f.confirmed(t, "cust-later", f.base.Add(3*time.Hour))
	f.confirmed(t, "cust-past", f.base.Add(-time.Hour))

	sent, err := f.reminder.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}

func TestSweepSkipsPending(t *testing.T) {
	f := newFixture(t)
	_, err := f.bookings.CreatePending(context.Background(), model.BookingRequest{
		Category:      "plumbing",
		CustomerID:    "cust-1",
		ScheduledTime: f.base.Add(30 * time.Minute),
	}, nil)
	require.NoError(t, err)

	sent, err := f.reminder.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		f.reminder.Run(ctx, 10*time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
