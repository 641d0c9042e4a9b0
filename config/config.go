package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/hems/core/boost"
	"github.com/kilianp07/hems/core/buffer"
	"github.com/kilianp07/hems/core/departure"
	"github.com/kilianp07/hems/core/engine"
	"github.com/kilianp07/hems/core/factory"
	"github.com/kilianp07/hems/core/metrics"
	"github.com/kilianp07/hems/core/model"
	"github.com/kilianp07/hems/core/modecontrol"
	"github.com/kilianp07/hems/core/planner"
	"github.com/kilianp07/hems/core/sequencer"
	"github.com/kilianp07/hems/infra/mqtt"
)

type Config struct {
	MQTT        mqtt.Config          `json:"mqtt"`
	Vehicles    []model.Vehicle      `json:"vehicles"`
	Planner     planner.Config       `json:"planner"`
	Sequencer   sequencer.Config     `json:"sequencer"`
	Buffer      buffer.Config        `json:"buffer"`
	BufferStore factory.ModuleConfig `json:"buffer_store"`
	ModeControl modecontrol.Config   `json:"mode_control"`
	Boost       boost.Config         `json:"boost"`
	Departure   departure.Config     `json:"departure"`
	Cycle       engine.Config        `json:"cycle"`
	Forecast    ForecastConfig       `json:"forecast"`
	Metrics     metrics.Config       `json:"metrics"`
	Logging     LoggingConfig        `json:"logging"`
	API         APIConfig            `json:"api"`
	Sentry      SentryConfig         `json:"sentry"`
}

// Load reads a yaml or json file and applies K_ prefixed environment
// overrides, K_MQTT__BROKER for mqtt.broker.
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
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
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

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.MQTT.SetDefaults()
	c.Planner.SetDefaults()
	c.Sequencer.SetDefaults()
	c.Buffer.SetDefaults()
	c.ModeControl.SetDefaults()
	c.Boost.SetDefaults()
	c.Departure.SetDefaults()
	c.Cycle.SetDefaults()
	c.Forecast.Baseline.SetDefaults()
	c.Logging.SetDefaults()
	c.API.SetDefaults()
	c.Sentry.SetDefaults()
}

// Validate reports every invalid section at once.
func (c Config) Validate() error {
	var errs []error
	if len(c.Vehicles) == 0 {
		errs = append(errs, fmt.Errorf("vehicles: at least one vehicle is required"))
	}
	seen := map[string]bool{}
	for _, v := range c.Vehicles {
		if err := v.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("vehicles: %w", err))
		}
		if seen[v.ID] {
			errs = append(errs, fmt.Errorf("vehicles: duplicate id %q", v.ID))
		}
		seen[v.ID] = true
	}
	sections := []struct {
		name string
		v    interface{ Validate() error }
	}{
		{"mqtt", c.MQTT},
		{"planner", c.Planner},
		{"sequencer", c.Sequencer},
		{"buffer", c.Buffer},
		{"mode_control", c.ModeControl},
		{"departure", c.Departure},
		{"cycle", c.Cycle},
		{"forecast", c.Forecast},
		{"logging", c.Logging},
		{"api", c.API},
		{"metrics", c.Metrics},
		{"sentry", c.Sentry},
	}
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// VehicleIDs returns the configured vehicle ids in order.
func (c Config) VehicleIDs() []string {
	ids := make([]string, 0, len(c.Vehicles))
	for _, v := range c.Vehicles {
		ids = append(ids, v.ID)
	}
	return ids
}
