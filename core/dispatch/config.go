package dispatch

// Config defines dispatch-related settings.
type Config struct {
	// ShortlistSize bounds the number of providers offered a booking.
	ShortlistSize int `json:"shortlist_size"`
	// MinRating filters out providers below this rating.
	MinRating float64 `json:"min_rating"`
	// RequireNotified makes Accept reject providers that were not part of
	// the offer shortlist. Off by default.
	RequireNotified bool `json:"require_notified"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ShortlistSize <= 0 {
		c.ShortlistSize = 5
	}
	if c.MinRating == 0 {
		c.MinRating = 3.0
	}
}
