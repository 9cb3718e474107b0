package dispatch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/dispatch/core/geo"
	"github.com/taskhive/dispatch/core/model"
	"github.com/taskhive/dispatch/infra/store"
)

func newSelector(t *testing.T, cfg Config, providers ...model.Provider) *Selector {
	t.Helper()
	s, err := NewSelector(store.NewMemoryProviderDirectory(providers...), cfg)
	require.NoError(t, err)
	return s
}

func TestSelectOrdersByDistanceRatingActivity(t *testing.T) {
	now := time.Now().UTC()
	// far is roughly twice as distant as near; sameSpot pair differs only
	// in rating, the last pair only in activity.
	near := provider("near", 12.91, 77.59, 3.5, now)
	far := provider("far", 12.95, 77.65, 5.0, now)
	sameSpotHigh := provider("same-high", 12.92, 77.60, 4.8, now.Add(-2*time.Hour))
	sameSpotLow := provider("same-low", 12.92, 77.60, 4.2, now)
	tieRecent := provider("tie-recent", 12.93, 77.61, 4.0, now)
	tieStale := provider("tie-stale", 12.93, 77.61, 4.0, now.Add(-24*time.Hour))

	s := newSelector(t, Config{}, far, tieStale, sameSpotLow, near, tieRecent, sameSpotHigh)

	got, err := s.Select(context.Background(), request())
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, c := range got {
		ids = append(ids, c.ProviderID)
	}
	assert.Equal(t, []string{"near", "same-high", "same-low", "tie-recent", "tie-stale"}, ids)
}

func TestSelectIsDeterministic(t *testing.T) {
	now := time.Now().UTC()
	providers := []model.Provider{
		provider("a", 12.91, 77.59, 4.0, now),
		provider("b", 12.92, 77.60, 4.0, now),
		provider("c", 12.93, 77.61, 4.0, now),
	}
	s := newSelector(t, Config{}, providers...)

	first, err := s.Select(context.Background(), request())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := s.Select(context.Background(), request())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSelectTruncatesToShortlistSize(t *testing.T) {
	now := time.Now().UTC()
	var providers []model.Provider
	for i := 0; i < 7; i++ {
		providers = append(providers, provider(
			fmt.Sprintf("p%d", i), 12.90+float64(i)*0.01, 77.58, 4.0, now))
	}
	s := newSelector(t, Config{}, providers...)

	got, err := s.Select(context.Background(), request())
	require.NoError(t, err)
	require.Len(t, got, 5)
	// The five closest survive.
	for i, c := range got {
		assert.Equal(t, fmt.Sprintf("p%d", i), c.ProviderID)
	}
}

func TestSelectFiltersByRatingAndEligibility(t *testing.T) {
	now := time.Now().UTC()
	lowRated := provider("low", 12.91, 77.59, 2.5, now)
	unavailable := provider("off", 12.91, 77.59, 4.5, now)
	unavailable.Available = false
	unapproved := provider("pending-approval", 12.91, 77.59, 4.5, now)
	unapproved.Approved = false
	wrongCategory := provider("electrician", 12.91, 77.59, 4.5, now)
	wrongCategory.Category = "electrical"
	ok := provider("ok", 12.91, 77.59, 4.5, now)

	s := newSelector(t, Config{}, lowRated, unavailable, unapproved, wrongCategory, ok)

	got, err := s.Select(context.Background(), request())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].ProviderID)
}

func TestSelectFiltersBySkills(t *testing.T) {
	now := time.Now().UTC()
	skilled := provider("skilled", 12.91, 77.59, 4.0, now)
	skilled.Skills = []string{"Leak Repair", "Pipe Fitting"}
	unskilled := provider("unskilled", 12.91, 77.59, 4.8, now)

	s := newSelector(t, Config{}, skilled, unskilled)

	req := request()
	req.Skills = []string{"leak repair"}
	got, err := s.Select(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "skilled", got[0].ProviderID)
}

func TestSelectInvalidLocation(t *testing.T) {
	s := newSelector(t, Config{})

	req := request()
	req.Location = model.Location{Lat: -91, Lng: 0}
	_, err := s.Select(context.Background(), req)
	assert.ErrorIs(t, err, geo.ErrInvalidLocation)
}

func TestSelectEmptyPool(t *testing.T) {
	s := newSelector(t, Config{})

	got, err := s.Select(context.Background(), request())
	require.NoError(t, err)
	assert.Empty(t, got)
}
