// Package providerstatus tracks per-provider dispatch activity for
// operational visibility. It is not consulted by the dispatch path.
package providerstatus

import (
	"sort"
	"sync"
	"time"
)

// LastOffer summarizes the most recent offer sent to a provider.
type LastOffer struct {
	BookingID string    `json:"booking_id"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
}

// Status captures the current known state of a provider.
type Status struct {
	ProviderID    string    `json:"provider_id"`
	Category      string    `json:"category,omitempty"`
	CurrentStatus string    `json:"current_status"`
	LastOffer     LastOffer `json:"last_offer"`
}

// Filter narrows a List call.
type Filter struct {
	Category string
}

// Store records and lists provider statuses.
type Store interface {
	Set(Status)
	List(Filter) []Status
	RecordOffer(id string, offer LastOffer)
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Status
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]Status{}}
}

func (s *MemoryStore) Set(st Status) {
	s.mu.Lock()
	s.data[st.ProviderID] = st
	s.mu.Unlock()
}

func (s *MemoryStore) RecordOffer(id string, offer LastOffer) {
	s.mu.Lock()
	st := s.data[id]
	if st.ProviderID == "" {
		st.ProviderID = id
	}
	if st.Category == "" {
		st.Category = offer.Category
	}
	st.LastOffer = offer
	st.CurrentStatus = "offered"
	s.data[id] = st
	s.mu.Unlock()
}

func (s *MemoryStore) List(f Filter) []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Status, 0, len(s.data))
	for _, st := range s.data {
		if f.Category != "" && st.Category != f.Category {
			continue
		}
		res = append(res, st)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ProviderID < res[j].ProviderID })
	return res
}
