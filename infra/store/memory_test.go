package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/dispatch/core/model"
	corestore "github.com/taskhive/dispatch/core/store"
)

func TestMemoryBookingLifecycle(t *testing.T) {
	s := NewMemoryBookingStore()
	ctx := context.Background()

	b, err := s.CreatePending(ctx, testRequest(), []string{"p1", "p2"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, b.Status)

	won, err := s.CompareAndSetConfirmed(ctx, b.ID, "p2")
	require.NoError(t, err)
	assert.True(t, won)

	won, err = s.CompareAndSetConfirmed(ctx, b.ID, "p1")
	require.NoError(t, err)
	assert.False(t, won)

	got, err := s.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "p2", got.ProviderID)
	assert.Equal(t, model.StatusConfirmed, got.Status)

	_, err = s.CompareAndSetConfirmed(ctx, "missing", "p1")
	assert.ErrorIs(t, err, corestore.ErrNotFound)
}

// Many providers racing to accept the same booking must yield exactly one
// winner.
func TestMemoryCompareAndSetConfirmedConcurrent(t *testing.T) {
	s := NewMemoryBookingStore()
	ctx := context.Background()

	b, err := s.CreatePending(ctx, testRequest(), nil)
	require.NoError(t, err)

	const racers = 64
	var wg sync.WaitGroup
	wins := make(chan string, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			providerID := string(rune('a' + id%26))
			won, err := s.CompareAndSetConfirmed(ctx, b.ID, providerID)
			assert.NoError(t, err)
			if won {
				wins <- providerID
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	var winners []string
	for w := range wins {
		winners = append(winners, w)
	}
	require.Len(t, winners, 1)

	got, err := s.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, winners[0], got.ProviderID)
}

func TestMemoryConfirmedBetween(t *testing.T) {
	s := NewMemoryBookingStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	req := testRequest()
	req.ScheduledTime = base.Add(20 * time.Minute)
	in, err := s.CreatePending(ctx, req, []string{"p1"})
	require.NoError(t, err)
	_, err = s.CompareAndSetConfirmed(ctx, in.ID, "p1")
	require.NoError(t, err)

	req.ScheduledTime = base.Add(3 * time.Hour)
	out, err := s.CreatePending(ctx, req, []string{"p1"})
	require.NoError(t, err)
	_, err = s.CompareAndSetConfirmed(ctx, out.ID, "p1")
	require.NoError(t, err)

	got, err := s.ConfirmedBetween(ctx, base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, in.ID, got[0].ID)
}

func TestMemoryProviderDirectoryFilters(t *testing.T) {
	now := time.Now().UTC()
	d := NewMemoryProviderDirectory(
		model.Provider{ID: "p1", Category: "plumbing", Rating: 4.5, LastActiveAt: now, Available: true, Approved: true},
		model.Provider{ID: "p2", Category: "plumbing", Rating: 2.5, LastActiveAt: now, Available: true, Approved: true},
		model.Provider{ID: "p3", Category: "plumbing", Rating: 4.0, LastActiveAt: now, Available: false, Approved: true},
		model.Provider{ID: "p4", Category: "cleaning", Rating: 4.0, LastActiveAt: now, Available: true, Approved: true},
	)

	got, err := d.FindCandidates(context.Background(), corestore.CandidateQuery{
		Category:      "plumbing",
		AvailableOnly: true,
		ApprovedOnly:  true,
		MinRating:     3.0,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID)
}

func TestMemoryNotificationDedup(t *testing.T) {
	s := NewMemoryNotificationStore()
	ctx := context.Background()

	n := model.Notification{
		RecipientID: "prov-1",
		Audience:    model.AudienceProvider,
		Type:        model.NotifBookingReminder,
		RelatedType: "Booking",
		RelatedID:   "b1",
	}

	_, created, err := s.CreateUnique(ctx, n)
	require.NoError(t, err)
	assert.True(t, created)

	_, created, err = s.CreateUnique(ctx, n)
	require.NoError(t, err)
	assert.False(t, created)

	// A different booking is a separate reminder.
	n.RelatedID = "b2"
	_, created, err = s.CreateUnique(ctx, n)
	require.NoError(t, err)
	assert.True(t, created)

	list, err := s.ListByRecipient(ctx, "prov-1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
