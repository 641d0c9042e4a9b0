// Package boost manages driver requested immediate charging.
package boost

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/hems/core/model"
)

var (
	ErrQuietHours       = errors.New("boost is not available during quiet hours")
	ErrUnknownVehicle   = errors.New("unknown vehicle")
	ErrAmbiguousVehicle = errors.New("vehicle id required when more than one vehicle is configured")
)

// Config bounds boost durations.
type Config struct {
	DefaultDuration time.Duration `json:"default_duration"`
	MaxDuration     time.Duration `json:"max_duration"`
}

func (c *Config) SetDefaults() {
	if c.DefaultDuration <= 0 {
		c.DefaultDuration = 2 * time.Hour
	}
	if c.MaxDuration <= 0 {
		c.MaxDuration = 6 * time.Hour
	}
}

// Manager holds at most one active boost.
type Manager struct {
	cfg      Config
	vehicles []string
	quiet    func(time.Time) bool

	mu     sync.Mutex
	active *model.Boost
}

// New returns a manager for the configured vehicles. quiet reports whether
// a time falls in quiet hours and may be nil.
func New(cfg Config, vehicles []string, quiet func(time.Time) bool) *Manager {
	cfg.SetDefaults()
	if quiet == nil {
		quiet = func(time.Time) bool { return false }
	}
	return &Manager{cfg: cfg, vehicles: append([]string(nil), vehicles...), quiet: quiet}
}

// Start begins a boost for vehicleID, or for the only vehicle when empty.
// A zero d uses the default duration; longer requests are capped.
func (m *Manager) Start(vehicleID string, d time.Duration, now time.Time) (model.Boost, error) {
	if m.quiet(now) {
		return model.Boost{}, ErrQuietHours
	}
	id, err := m.resolve(vehicleID)
	if err != nil {
		return model.Boost{}, err
	}
	if d <= 0 {
		d = m.cfg.DefaultDuration
	}
	if d > m.cfg.MaxDuration {
		d = m.cfg.MaxDuration
	}
	b := model.Boost{VehicleID: id, StartedAt: now, Until: now.Add(d)}
	m.mu.Lock()
	m.active = &b
	m.mu.Unlock()
	return b, nil
}

func (m *Manager) resolve(vehicleID string) (string, error) {
	if vehicleID == "" {
		if len(m.vehicles) != 1 {
			return "", ErrAmbiguousVehicle
		}
		return m.vehicles[0], nil
	}
	for _, v := range m.vehicles {
		if v == vehicleID {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownVehicle, vehicleID)
}

// Cancel clears the active boost. Cancelling without a boost is a no-op.
func (m *Manager) Cancel() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	had := m.active != nil
	m.active = nil
	return had
}

// Current returns the boost active at now. An expired boost is cleared and
// reported through expired.
func (m *Manager) Current(now time.Time) (b model.Boost, ok bool, expired bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return model.Boost{}, false, false
	}
	if !now.Before(m.active.Until) {
		m.active = nil
		return model.Boost{}, false, true
	}
	return *m.active, true, false
}
