package dispatch

import (
	"context"
	"fmt"
	"sort"

	"github.com/taskhive/dispatch/core/geo"
	"github.com/taskhive/dispatch/core/model"
	"github.com/taskhive/dispatch/core/store"
)

// Selector builds the ranked shortlist of candidate providers for a booking
// request. It is stateless; candidates are computed fresh per request.
type Selector struct {
	directory store.ProviderDirectory
	cfg       Config
}

// NewSelector creates a Selector backed by the given provider directory.
func NewSelector(directory store.ProviderDirectory, cfg Config) (*Selector, error) {
	if directory == nil {
		return nil, fmt.Errorf("dispatch: nil directory provided to NewSelector")
	}
	cfg.SetDefaults()
	return &Selector{directory: directory, cfg: cfg}, nil
}

// Select returns up to cfg.ShortlistSize candidates matching the request,
// ordered by ascending distance, then descending rating, then most recent
// activity. This exact tie-break order determines fairness of offer order.
// An empty result is valid and means no providers are available.
func (s *Selector) Select(ctx context.Context, req model.BookingRequest) ([]model.Candidate, error) {
	if err := geo.Validate(req.Location); err != nil {
		return nil, err
	}
	pool, err := s.directory.FindCandidates(ctx, store.CandidateQuery{
		Category:      req.Category,
		AvailableOnly: true,
		ApprovedOnly:  true,
		MinRating:     s.cfg.MinRating,
	})
	if err != nil {
		return nil, fmt.Errorf("find candidates: %w", err)
	}

	candidates := make([]model.Candidate, 0, len(pool))
	for _, p := range pool {
		if !p.HasSkills(req.Skills) {
			continue
		}
		d, err := geo.Distance(req.Location, p.Location)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", p.ID, err)
		}
		candidates = append(candidates, model.Candidate{
			ProviderID:   p.ID,
			DistanceKm:   d,
			Rating:       p.Rating,
			LastActiveAt: p.LastActiveAt,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].DistanceKm != candidates[j].DistanceKm {
			return candidates[i].DistanceKm < candidates[j].DistanceKm
		}
		if candidates[i].Rating != candidates[j].Rating {
			return candidates[i].Rating > candidates[j].Rating
		}
		return candidates[i].LastActiveAt.After(candidates[j].LastActiveAt)
	})

	if len(candidates) > s.cfg.ShortlistSize {
		candidates = candidates[:s.cfg.ShortlistSize]
	}
	return candidates, nil
}
