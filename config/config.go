// Package config loads the service configuration from YAML or JSON files
// with optional environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/taskhive/dispatch/core/dispatch"
	"github.com/taskhive/dispatch/core/metrics"
	"github.com/taskhive/dispatch/core/scheduler"
	"github.com/taskhive/dispatch/infra/mqtt"
	"github.com/taskhive/dispatch/infra/redisbus"
)

// StoreConfig selects the durable booking store.
type StoreConfig struct {
	// Path is the SQLite database location. Empty selects the in-memory
	// store, which does not survive restarts.
	Path string `json:"path"`
}

// BusConfig selects the real-time push backend.
type BusConfig struct {
	// Backend is "mqtt", "redis" or "none".
	Backend string          `json:"backend"`
	MQTT    mqtt.Config     `json:"mqtt"`
	Redis   redisbus.Config `json:"redis"`
}

// SetDefaults applies sane defaults.
func (c *BusConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "none"
	}
}

// Validate checks the backend selection.
func (c BusConfig) Validate() error {
	switch c.Backend {
	case "mqtt", "redis", "none":
		return nil
	default:
		return fmt.Errorf("unknown bus backend %s", c.Backend)
	}
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr string `json:"addr"`
	// OfferLogToken protects the offer log endpoint when non-empty.
	OfferLogToken string `json:"offer_log_token"`
}

// SetDefaults applies sane defaults.
func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

// Config is the root configuration of the dispatch service.
type Config struct {
	Store     StoreConfig      `json:"store"`
	Bus       BusConfig        `json:"bus"`
	Dispatch  dispatch.Config  `json:"dispatch"`
	Scheduler scheduler.Config `json:"scheduler"`
	Metrics   metrics.Config   `json:"metrics"`
	OfferLog  OfferLogConfig   `json:"offer_log"`
	HTTP      HTTPConfig       `json:"http"`
}

// Load reads the configuration file at path. Environment variables prefixed
// with TH_ override file values, with "__" as the section separator.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("TH_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "th_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Bus.SetDefaults()
	cfg.Dispatch.SetDefaults()
	cfg.Scheduler.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.OfferLog.SetDefaults()
	cfg.HTTP.SetDefaults()
	if err := cfg.Bus.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.OfferLog.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
