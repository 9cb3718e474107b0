// Package store provides the durable store implementations: an in-memory
// variant used in tests and single-process setups, and a SQLite variant for
// persistent deployments.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskhive/dispatch/core/model"
	corestore "github.com/taskhive/dispatch/core/store"
)

// MemoryBookingStore is an in-memory BookingStore. The compare-and-set is
// serialized by the store mutex, which plays the role of the row lock a
// database would take.
type MemoryBookingStore struct {
	mu   sync.Mutex
	data map[string]model.Booking
}

// NewMemoryBookingStore creates an empty MemoryBookingStore.
func NewMemoryBookingStore() *MemoryBookingStore {
	return &MemoryBookingStore{data: make(map[string]model.Booking)}
}

func (s *MemoryBookingStore) CreatePending(_ context.Context, req model.BookingRequest, notified []string) (model.Booking, error) {
	b := model.Booking{
		ID:                uuid.NewString(),
		Category:          req.Category,
		CustomerID:        req.CustomerID,
		CustomerName:      req.CustomerName,
		Location:          req.Location,
		ScheduledTime:     req.ScheduledTime,
		Status:            model.StatusPending,
		NotifiedProviders: append([]string(nil), notified...),
		CreatedAt:         time.Now().UTC(),
	}
	s.mu.Lock()
	s.data[b.ID] = b
	s.mu.Unlock()
	return b, nil
}

func (s *MemoryBookingStore) Get(_ context.Context, id string) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data[id]
	if !ok {
		return model.Booking{}, corestore.ErrNotFound
	}
	return b, nil
}

func (s *MemoryBookingStore) CompareAndSetConfirmed(_ context.Context, id, providerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data[id]
	if !ok {
		return false, corestore.ErrNotFound
	}
	if b.Status != model.StatusPending {
		return false, nil
	}
	b.Status = model.StatusConfirmed
	b.ProviderID = providerID
	s.data[id] = b
	return true, nil
}

func (s *MemoryBookingStore) SetStatus(_ context.Context, id string, status model.BookingStatus) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data[id]
	if !ok {
		return model.Booking{}, corestore.ErrNotFound
	}
	b.Status = status
	s.data[id] = b
	return b, nil
}

func (s *MemoryBookingStore) AssignProvider(_ context.Context, id, providerID string) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data[id]
	if !ok {
		return model.Booking{}, corestore.ErrNotFound
	}
	b.ProviderID = providerID
	s.data[id] = b
	return b, nil
}

func (s *MemoryBookingStore) ListByStatus(_ context.Context, status model.BookingStatus) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []model.Booking
	for _, b := range s.data {
		if b.Status == status {
			res = append(res, b)
		}
	}
	return res, nil
}

func (s *MemoryBookingStore) ConfirmedBetween(_ context.Context, from, to time.Time) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []model.Booking
	for _, b := range s.data {
		if b.Status != model.StatusConfirmed {
			continue
		}
		if b.ScheduledTime.Before(from) || b.ScheduledTime.After(to) {
			continue
		}
		res = append(res, b)
	}
	return res, nil
}

func (s *MemoryBookingStore) CountByStatus(_ context.Context) (map[model.BookingStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make(map[model.BookingStatus]int)
	for _, b := range s.data {
		res[b.Status]++
	}
	return res, nil
}

var _ corestore.BookingStore = (*MemoryBookingStore)(nil)

// MemoryProviderDirectory is an in-memory ProviderDirectory.
type MemoryProviderDirectory struct {
	mu   sync.RWMutex
	data map[string]model.Provider
}

// NewMemoryProviderDirectory creates a directory seeded with the given
// providers.
func NewMemoryProviderDirectory(providers ...model.Provider) *MemoryProviderDirectory {
	d := &MemoryProviderDirectory{data: make(map[string]model.Provider, len(providers))}
	for _, p := range providers {
		d.data[p.ID] = p
	}
	return d
}

// Upsert adds or replaces a provider.
func (d *MemoryProviderDirectory) Upsert(p model.Provider) {
	d.mu.Lock()
	d.data[p.ID] = p
	d.mu.Unlock()
}

func (d *MemoryProviderDirectory) FindCandidates(_ context.Context, q corestore.CandidateQuery) ([]model.Provider, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var res []model.Provider
	for _, p := range d.data {
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if q.AvailableOnly && !p.Available {
			continue
		}
		if q.ApprovedOnly && !p.Approved {
			continue
		}
		if p.Rating < q.MinRating {
			continue
		}
		res = append(res, p)
	}
	return res, nil
}

var _ corestore.ProviderDirectory = (*MemoryProviderDirectory)(nil)

// MemoryNotificationStore is an in-memory NotificationStore.
type MemoryNotificationStore struct {
	mu    sync.Mutex
	data  []model.Notification
	index map[string]bool
}

// NewMemoryNotificationStore creates an empty MemoryNotificationStore.
func NewMemoryNotificationStore() *MemoryNotificationStore {
	return &MemoryNotificationStore{index: make(map[string]bool)}
}

func dedupKey(recipientID string, typ model.NotificationType, relatedType, relatedID string) string {
	return recipientID + "|" + string(typ) + "|" + relatedType + "|" + relatedID
}

func (s *MemoryNotificationStore) Create(_ context.Context, n model.Notification) (model.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	s.mu.Lock()
	s.data = append(s.data, n)
	s.index[dedupKey(n.RecipientID, n.Type, n.RelatedType, n.RelatedID)] = true
	s.mu.Unlock()
	return n, nil
}

func (s *MemoryNotificationStore) CreateUnique(_ context.Context, n model.Notification) (model.Notification, bool, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	key := dedupKey(n.RecipientID, n.Type, n.RelatedType, n.RelatedID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index[key] {
		return model.Notification{}, false, nil
	}
	s.data = append(s.data, n)
	s.index[key] = true
	return n, true, nil
}

func (s *MemoryNotificationStore) Exists(_ context.Context, recipientID string, typ model.NotificationType, relatedType, relatedID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index[dedupKey(recipientID, typ, relatedType, relatedID)], nil
}

func (s *MemoryNotificationStore) ListByRecipient(_ context.Context, recipientID string) ([]model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []model.Notification
	for _, n := range s.data {
		if n.RecipientID == recipientID {
			res = append(res, n)
		}
	}
	return res, nil
}

// ByType returns the recipient's notifications of the given type. Test
// helper.
func (s *MemoryNotificationStore) ByType(recipientID string, typ model.NotificationType) []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []model.Notification
	for _, n := range s.data {
		if n.RecipientID == recipientID && n.Type == typ {
			res = append(res, n)
		}
	}
	return res
}

var _ corestore.NotificationStore = (*MemoryNotificationStore)(nil)
