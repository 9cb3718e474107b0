package offers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/taskhive/dispatch/core/dispatch/logging"
)

type memStore struct{ recs []logging.OfferRecord }

func (m *memStore) Append(ctx context.Context, r logging.OfferRecord) error {
	m.recs = append(m.recs, r)
	return nil
}

func (m *memStore) Query(ctx context.Context, q logging.OfferQuery) ([]logging.OfferRecord, error) {
	var res []logging.OfferRecord
	for _, r := range m.recs {
		if q.BookingID != "" && r.BookingID != q.BookingID {
			continue
		}
		if q.Category != "" && r.Category != q.Category {
			continue
		}
		res = append(res, r)
	}
	return res, nil
}

func (m *memStore) Close() error { return nil }

func TestLogHandler_AuthAndFilters(t *testing.T) {
	store := &memStore{}
	if err := store.Append(context.Background(), logging.OfferRecord{
		Timestamp:         time.Now(),
		BookingID:         "b1",
		Category:          "plumbing",
		CustomerID:        "c1",
		NotifiedProviders: []string{"p1", "p2"},
		Published:         map[string]bool{"p1": true, "p2": false},
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
	h := NewLogHandler(store, "tok")

	req := httptest.NewRequest("GET", "/api/offers/log?booking_id=b1", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out []logging.OfferRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 record")
	}
	// unauthorized
	req = httptest.NewRequest("GET", "/api/offers/log", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}

func TestLogHandler_NoFilterReturnsAll(t *testing.T) {
	store := &memStore{}
	for _, id := range []string{"b1", "b2"} {
		if err := store.Append(context.Background(), logging.OfferRecord{BookingID: id}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	h := NewLogHandler(store, "")

	req := httptest.NewRequest("GET", "/api/offers/log", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out []logging.OfferRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out))
	}
}
