package logging

import (
	"context"
	"sync"

	"github.com/kilianp07/hems/core/model"
)

// MemoryStore keeps events and state in memory. It is used when no
// persistent backend is configured and in tests.
type MemoryStore struct {
	mu     sync.Mutex
	events []model.BufferEvent
	state  *model.BufferModeState
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Append(_ context.Context, ev model.BufferEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *MemoryStore) Query(_ context.Context, q LogQuery) ([]model.BufferEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []model.BufferEvent
	for _, ev := range s.events {
		if q.match(ev) {
			res = append(res, ev)
		}
	}
	return q.finish(res), nil
}

func (s *MemoryStore) Load(_ context.Context) (model.BufferModeState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return model.BufferModeState{}, false, nil
	}
	return *s.state, true, nil
}

func (s *MemoryStore) Save(_ context.Context, st model.BufferModeState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = &st
	return nil
}

func (s *MemoryStore) Close() error { return nil }
