package logging

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords(base time.Time) []OfferRecord {
	return []OfferRecord{
		{
			Timestamp:         base,
			BookingID:         "b1",
			Category:          "plumbing",
			CustomerID:        "c1",
			NotifiedProviders: []string{"p1", "p2"},
			Published:         map[string]bool{"p1": true, "p2": false},
			Errors:            map[string]string{"p2": "broker down"},
		},
		{
			Timestamp:         base.Add(time.Hour),
			BookingID:         "b2",
			Category:          "cleaning",
			CustomerID:        "c2",
			NotifiedProviders: []string{"p3"},
			Published:         map[string]bool{"p3": true},
		},
	}
}

func runStoreTests(t *testing.T, s OfferStore) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	for _, rec := range sampleRecords(base) {
		require.NoError(t, s.Append(ctx, rec))
	}

	all, err := s.Query(ctx, OfferQuery{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	byBooking, err := s.Query(ctx, OfferQuery{BookingID: "b1"})
	require.NoError(t, err)
	require.Len(t, byBooking, 1)
	assert.Equal(t, []string{"p1", "p2"}, byBooking[0].NotifiedProviders)
	assert.False(t, byBooking[0].Published["p2"])
	assert.Equal(t, "broker down", byBooking[0].Errors["p2"])

	byCategory, err := s.Query(ctx, OfferQuery{Category: "cleaning"})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "b2", byCategory[0].BookingID)

	byProvider, err := s.Query(ctx, OfferQuery{ProviderID: "p2"})
	require.NoError(t, err)
	require.Len(t, byProvider, 1)
	assert.Equal(t, "b1", byProvider[0].BookingID)

	windowed, err := s.Query(ctx, OfferQuery{Start: base.Add(30 * time.Minute), End: base.Add(2 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, windowed, 1)
	assert.Equal(t, "b2", windowed[0].BookingID)

	none, err := s.Query(ctx, OfferQuery{BookingID: "missing"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestJSONLStore(t *testing.T) {
	s, err := NewJSONLStore(filepath.Join(t.TempDir(), "offers.log"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	runStoreTests(t, s)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "offers.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	runStoreTests(t, s)
}
