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
)

type Config struct {
	Server  ServerConfig  `json:"server"`
	Engine  EngineConfig  `json:"engine"`
	Booking BookingConfig `json:"booking"`
}

type ServerConfig struct {
	Port string `json:"port"`
}

// EngineConfig tunes the demand/pricing/availability recompute cycle.
type EngineConfig struct {
	RecomputeIntervalMinutes int     `json:"recompute_interval_minutes"`
	SurgeCeiling             float64 `json:"surge_ceiling"`
	HighDemandThreshold      float64 `json:"high_demand_threshold"`
	HistoryDays              int     `json:"history_days"`
	MinSamples               int     `json:"min_samples"`
	VarianceThreshold        float64 `json:"variance_threshold"`
}

// BookingConfig tunes the booking lifecycle policies.
type BookingConfig struct {
	GracePeriodMinutes        int     `json:"grace_period_minutes"`
	CancellationWindowMinutes int     `json:"cancellation_window_minutes"`
	LateCancelPenaltyFraction float64 `json:"late_cancel_penalty_fraction"`
	PendingTTLMinutes         int     `json:"pending_ttl_minutes"`
}

// Load reads configuration from a JSON or YAML file with optional
// PP_-prefixed environment overrides (PP_ENGINE__SURGE_CEILING=2.5).
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
	if err := k.Load(env.Provider("PP_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "pp_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

func (c *Config) SetDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Engine.RecomputeIntervalMinutes == 0 {
		c.Engine.RecomputeIntervalMinutes = 5
	}
	if c.Engine.SurgeCeiling == 0 {
		c.Engine.SurgeCeiling = 3.0
	}
	if c.Engine.HighDemandThreshold == 0 {
		c.Engine.HighDemandThreshold = 0.75
	}
	if c.Engine.HistoryDays == 0 {
		c.Engine.HistoryDays = 14
	}
	if c.Engine.MinSamples == 0 {
		c.Engine.MinSamples = 10
	}
	if c.Engine.VarianceThreshold == 0 {
		c.Engine.VarianceThreshold = 0.05
	}
	if c.Booking.GracePeriodMinutes == 0 {
		c.Booking.GracePeriodMinutes = 15
	}
	if c.Booking.CancellationWindowMinutes == 0 {
		c.Booking.CancellationWindowMinutes = 30
	}
	if c.Booking.LateCancelPenaltyFraction == 0 {
		c.Booking.LateCancelPenaltyFraction = 0.5
	}
	if c.Booking.PendingTTLMinutes == 0 {
		c.Booking.PendingTTLMinutes = 30
	}
}

func (c *Config) Validate() error {
	if c.Engine.SurgeCeiling < 1 {
		return fmt.Errorf("engine.surge_ceiling must be >= 1, got %v", c.Engine.SurgeCeiling)
	}
	if c.Engine.HighDemandThreshold <= 0 || c.Engine.HighDemandThreshold > 1 {
		return fmt.Errorf("engine.high_demand_threshold must be in (0,1], got %v", c.Engine.HighDemandThreshold)
	}
	if c.Engine.RecomputeIntervalMinutes < 1 {
		return fmt.Errorf("engine.recompute_interval_minutes must be positive")
	}
	if c.Booking.LateCancelPenaltyFraction < 0 || c.Booking.LateCancelPenaltyFraction > 1 {
		return fmt.Errorf("booking.late_cancel_penalty_fraction must be in [0,1]")
	}
	return nil
}
