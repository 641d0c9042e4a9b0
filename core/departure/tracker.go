package departure

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Config sets the prompt fallback.
type Config struct {
	PromptWindow time.Duration `json:"prompt_window"`
	Default      string        `json:"default"`
}

func (c *Config) SetDefaults() {
	if c.PromptWindow <= 0 {
		c.PromptWindow = 30 * time.Minute
	}
	if c.Default == "" {
		c.Default = "07:00"
	}
}

func (c Config) Validate() error {
	if _, err := NextClock(c.Default, time.Now()); err != nil {
		return fmt.Errorf("departure default: %w", err)
	}
	return nil
}

// Tracker keeps per vehicle departures and the prompts waiting for an
// answer.
type Tracker struct {
	cfg Config

	mu         sync.Mutex
	prompts    map[string]time.Time
	departures map[string]time.Time
}

func NewTracker(cfg Config) *Tracker {
	cfg.SetDefaults()
	return &Tracker{cfg: cfg, prompts: map[string]time.Time{}, departures: map[string]time.Time{}}
}

// Prompt opens a departure prompt for vehicleID, typically on plug-in. An
// already open prompt keeps its original time.
func (t *Tracker) Prompt(vehicleID string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.prompts[vehicleID]; !ok {
		t.prompts[vehicleID] = now
	}
}

// Answer applies driver input. On failure the prompt stays open and the
// error wraps ErrInvalidInput.
func (t *Tracker) Answer(vehicleID, value string, now time.Time) (time.Time, error) {
	dep, err := Parse(value, now)
	if err != nil {
		return time.Time{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.prompts, vehicleID)
	t.departures[vehicleID] = dep
	return dep, nil
}

// Resolve applies the default departure to every prompt older than the
// prompt window and returns the affected vehicles in order.
func (t *Tracker) Resolve(now time.Time) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var applied []string
	for id, opened := range t.prompts {
		if now.Sub(opened) < t.cfg.PromptWindow {
			continue
		}
		if dep, err := NextClock(t.cfg.Default, now); err == nil {
			t.departures[id] = dep
		}
		delete(t.prompts, id)
		applied = append(applied, id)
	}
	sort.Strings(applied)
	return applied
}

// Departure returns the departure of vehicleID, if any.
func (t *Tracker) Departure(vehicleID string) *time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	dep, ok := t.departures[vehicleID]
	if !ok {
		return nil
	}
	return &dep
}

// Pending reports whether vehicleID has an unanswered prompt.
func (t *Tracker) Pending(vehicleID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.prompts[vehicleID]
	return ok
}

// Clear forgets prompt and departure, typically on unplug.
func (t *Tracker) Clear(vehicleID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.prompts, vehicleID)
	delete(t.departures, vehicleID)
}
