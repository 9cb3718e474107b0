package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/taskhive/dispatch/core/bus"
	"github.com/taskhive/dispatch/core/dispatch/logging"
	"github.com/taskhive/dispatch/core/events"
	"github.com/taskhive/dispatch/core/logger"
	"github.com/taskhive/dispatch/core/metrics"
	"github.com/taskhive/dispatch/core/model"
	"github.com/taskhive/dispatch/core/providerstatus"
	"github.com/taskhive/dispatch/core/store"
	"github.com/taskhive/dispatch/internal/eventbus"
)

// DispatchResult reports the outcome of one booking dispatch.
type DispatchResult struct {
	Booking   model.Booking
	Shortlist []model.Candidate
	// Published records, per provider, whether the live offer push
	// succeeded. A false value is not a failed dispatch: the durable
	// booking row is the source of truth and providers can discover
	// pending offers through it.
	Published map[string]bool
	Errors    map[string]error
}

// DispatchManager orchestrates booking dispatch: it selects candidates,
// freezes them into the booking record and fans the offer out to each
// candidate's channel.
type DispatchManager struct {
	selector *Selector
	bookings store.BookingStore
	rtBus    bus.Bus
	metrics  metrics.Sink
	bus      eventbus.EventBus
	logger   logger.Logger

	mu       sync.Mutex
	offerLog logging.OfferStore
	status   providerstatus.Store
}

// NewDispatchManager creates a new manager. The metrics sink and event bus
// may be nil.
func NewDispatchManager(selector *Selector, bookings store.BookingStore, rtBus bus.Bus, sink metrics.Sink, evBus eventbus.EventBus, log logger.Logger) (*DispatchManager, error) {
	if selector == nil || bookings == nil || rtBus == nil || log == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewDispatchManager")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &DispatchManager{
		selector: selector,
		bookings: bookings,
		rtBus:    rtBus,
		metrics:  sink,
		bus:      evBus,
		logger:   log,
	}, nil
}

// SetOfferStore configures the store used to persist offer records.
func (m *DispatchManager) SetOfferStore(s logging.OfferStore) {
	m.mu.Lock()
	m.offerLog = s
	m.mu.Unlock()
}

// SetStatusStore configures the store tracking per-provider offer activity.
func (m *DispatchManager) SetStatusStore(s providerstatus.Store) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}

// Close releases resources held by the manager.
func (m *DispatchManager) Close() error {
	if m.bus != nil {
		m.bus.Close()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offerLog != nil {
		return m.offerLog.Close()
	}
	return nil
}

// Dispatch creates a pending booking for the request and publishes an offer
// to every shortlisted provider. The shortlist is frozen into the booking at
// creation time; later availability changes do not retract offers already
// sent. An empty shortlist still creates the booking and is surfaced to the
// caller as a zero-length candidate list.
func (m *DispatchManager) Dispatch(ctx context.Context, req model.BookingRequest) (DispatchResult, error) {
	shortlist, err := m.selector.Select(ctx, req)
	if err != nil {
		return DispatchResult{}, err
	}
	notified := make([]string, 0, len(shortlist))
	for _, c := range shortlist {
		notified = append(notified, c.ProviderID)
	}

	booking, err := m.bookings.CreatePending(ctx, req, notified)
	if err != nil {
		return DispatchResult{}, fmt.Errorf("create booking: %w", err)
	}
	shortlistSize.Observe(float64(len(shortlist)))
	if m.bus != nil {
		m.bus.Publish(events.RequestEvent{BookingID: booking.ID, Category: booking.Category, ShortlistSize: len(shortlist)})
	}
	if len(shortlist) == 0 {
		m.logger.Warnf("no providers available for booking %s (%s)", booking.ID, booking.Category)
		return DispatchResult{Booking: booking, Shortlist: shortlist, Published: map[string]bool{}, Errors: map[string]error{}}, nil
	}
	m.logger.Infof("dispatching booking %s to %d providers", booking.ID, len(shortlist))

	result := DispatchResult{
		Booking:   booking,
		Shortlist: shortlist,
		Published: make(map[string]bool, len(shortlist)),
		Errors:    make(map[string]error),
	}
	m.publishOffers(&result)
	m.record(result)
	return result, nil
}

// publishOffers pushes the offer to every candidate concurrently. Publish
// failures are recorded and logged, never propagated: durable state is
// already committed.
func (m *DispatchManager) publishOffers(res *DispatchResult) {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	offer := bus.NewOffer(res.Booking.ID, res.Booking.Category, res.Booking.CustomerName, res.Booking.ScheduledTime)
	for _, c := range res.Shortlist {
		wg.Add(1)
		go func(providerID string) {
			defer wg.Done()
			start := time.Now()
			err := m.rtBus.Publish(bus.Provider(providerID), offer)
			mu.Lock()
			defer mu.Unlock()
			res.Published[providerID] = err == nil
			if err != nil {
				res.Errors[providerID] = err
				publishFailures.Inc()
				m.logger.Warnf("offer push to provider %s failed: %v", providerID, err)
			} else {
				offersPublished.WithLabelValues(res.Booking.Category).Inc()
			}
			if m.bus != nil {
				m.bus.Publish(events.OfferEvent{
					BookingID:  res.Booking.ID,
					ProviderID: providerID,
					Published:  err == nil,
					Err:        err,
					Latency:    time.Since(start),
				})
			}
		}(c.ProviderID)
	}
	wg.Wait()
}

// record persists observability data for the dispatch. All sinks here are
// best effort.
func (m *DispatchManager) record(res DispatchResult) {
	recs := make([]metrics.OfferResult, 0, len(res.Shortlist))
	now := time.Now().UTC()
	for _, c := range res.Shortlist {
		recs = append(recs, metrics.OfferResult{
			BookingID:    res.Booking.ID,
			ProviderID:   c.ProviderID,
			Category:     res.Booking.Category,
			DistanceKm:   c.DistanceKm,
			Rating:       c.Rating,
			Published:    res.Published[c.ProviderID],
			DispatchTime: now,
		})
	}
	if err := m.metrics.RecordOfferResults(recs); err != nil {
		m.logger.Errorf("metrics error: %v", err)
	}

	m.mu.Lock()
	offerLog := m.offerLog
	status := m.status
	m.mu.Unlock()

	if offerLog != nil {
		rec := logging.OfferRecord{
			Timestamp:         now,
			BookingID:         res.Booking.ID,
			Category:          res.Booking.Category,
			CustomerID:        res.Booking.CustomerID,
			NotifiedProviders: res.Booking.NotifiedProviders,
			Published:         res.Published,
			Errors:            map[string]string{},
		}
		for id, err := range res.Errors {
			rec.Errors[id] = err.Error()
		}
		if err := offerLog.Append(context.Background(), rec); err != nil {
			m.logger.Errorf("offer log error: %v", err)
		}
	}
	if status != nil {
		dec := providerstatus.LastOffer{
			BookingID: res.Booking.ID,
			Category:  res.Booking.Category,
			Timestamp: now,
		}
		for _, c := range res.Shortlist {
			status.RecordOffer(c.ProviderID, dec)
		}
	}
}
