package model

import (
	"strings"
	"time"
)

// Provider is a directory entry for an approved service provider.
type Provider struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Location     Location  `json:"location"`
	Rating       float64   `json:"rating"`
	LastActiveAt time.Time `json:"last_active_at"`
	Available    bool      `json:"available"`
	Approved     bool      `json:"approved"`
	Skills       []string  `json:"skills,omitempty"`
}

// HasSkills reports whether the provider covers every required skill.
// Matching is a case-insensitive substring match, so a request for "pipe"
// is satisfied by a provider listing "pipefitting".
func (p Provider) HasSkills(required []string) bool {
	for _, want := range required {
		found := false
		lw := strings.ToLower(want)
		for _, have := range p.Skills {
			if strings.Contains(strings.ToLower(have), lw) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Candidate is a ranking-time value produced fresh for each request. It is
// never persisted or cached across requests.
type Candidate struct {
	ProviderID   string    `json:"provider_id"`
	DistanceKm   float64   `json:"distance_km"`
	Rating       float64   `json:"rating"`
	LastActiveAt time.Time `json:"last_active_at"`
}
