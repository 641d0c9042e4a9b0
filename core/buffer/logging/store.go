// Package logging persists buffer recalculation events and the buffer mode
// state.
package logging

import (
	"context"
	"sort"
	"time"

	"github.com/kilianp07/hems/core/model"
)

// LogQuery defines filters for retrieving buffer events.
type LogQuery struct {
	Start time.Time
	End   time.Time
	// AppliedOnly skips simulated observation events.
	AppliedOnly bool
	// Limit keeps only the most recent events when positive.
	Limit int
}

// LogStore persists BufferEvents and supports querying. Events are
// append-only.
type LogStore interface {
	Append(ctx context.Context, ev model.BufferEvent) error
	Query(ctx context.Context, q LogQuery) ([]model.BufferEvent, error)
	Close() error
}

// StateStore persists the buffer mode across restarts.
type StateStore interface {
	Load(ctx context.Context) (model.BufferModeState, bool, error)
	Save(ctx context.Context, st model.BufferModeState) error
}

func (q LogQuery) match(ev model.BufferEvent) bool {
	if !q.Start.IsZero() && ev.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && ev.Timestamp.After(q.End) {
		return false
	}
	if q.AppliedOnly && !ev.Applied {
		return false
	}
	return true
}

// finish orders events by time and applies the limit.
func (q LogQuery) finish(evs []model.BufferEvent) []model.BufferEvent {
	sort.SliceStable(evs, func(i, j int) bool { return evs[i].Timestamp.Before(evs[j].Timestamp) })
	if q.Limit > 0 && len(evs) > q.Limit {
		evs = evs[len(evs)-q.Limit:]
	}
	return evs
}
