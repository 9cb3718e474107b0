package scheduler

// Config defines reminder sweep parameters loaded from configuration.
type Config struct {
	// IntervalSeconds is the sweep cadence.
	IntervalSeconds int `json:"interval_seconds"`
	// WindowMinutes is the lookahead window for upcoming bookings.
	WindowMinutes int `json:"window_minutes"`
}

// SetDefaults applies sane defaults: sweep every five minutes, remind one
// hour ahead.
func (c *Config) SetDefaults() {
	if c.IntervalSeconds <= 0 {
		c.IntervalSeconds = 300
	}
	if c.WindowMinutes <= 0 {
		c.WindowMinutes = 60
	}
}
