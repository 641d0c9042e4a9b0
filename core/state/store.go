// Package state holds the snapshot published at the end of every decision
// cycle.
package state

import (
	"sync"
	"time"

	"github.com/kilianp07/hems/core/model"
	"github.com/kilianp07/hems/internal/eventbus"
)

// Selection is the sequencer outcome stored in the snapshot.
type Selection struct {
	VehicleID    string `json:"vehicle_id,omitempty"`
	SwapRequired bool   `json:"swap_required"`
	Reason       string `json:"reason"`
}

// Snapshot is one consistent view of every decision. A published snapshot
// is never mutated.
type Snapshot struct {
	Version   uint64                `json:"version"`
	CreatedAt time.Time             `json:"created_at"`
	Plan      model.PlanHorizon     `json:"plan"`
	Requests  model.RequestsSummary `json:"requests"`
	Selection Selection             `json:"selection"`
	Mode      model.ModeStatus      `json:"mode"`
	Buffer    model.BufferStatus    `json:"buffer"`
	Boost     *model.Boost          `json:"boost,omitempty"`
	Banners   []string              `json:"banners,omitempty"`
	Degraded  bool                  `json:"degraded"`
}

// Store is the lock protected container of the current snapshot.
type Store struct {
	mu      sync.RWMutex
	current *Snapshot
	bus     *eventbus.TypedBus[*Snapshot]
}

func NewStore() *Store {
	return &Store{current: &Snapshot{Requests: model.RequestsSummary{}}, bus: eventbus.NewTyped[*Snapshot]()}
}

// Load returns the current snapshot. It is never nil.
func (s *Store) Load() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Publish replaces the current snapshot and notifies subscribers once the
// lock is released. The caller must not modify snap afterwards.
func (s *Store) Publish(snap *Snapshot) {
	if snap.Requests == nil {
		snap.Requests = model.RequestsSummary{}
	}
	s.mu.Lock()
	snap.Version = s.current.Version + 1
	s.current = snap
	s.mu.Unlock()
	s.bus.Publish(snap)
}

// Subscribe returns a channel receiving every published snapshot. Slow
// readers miss intermediate snapshots.
func (s *Store) Subscribe() <-chan *Snapshot { return s.bus.Subscribe() }

func (s *Store) Unsubscribe(ch <-chan *Snapshot) { s.bus.Unsubscribe(ch) }

// Close releases every subscriber.
func (s *Store) Close() { s.bus.Close() }
