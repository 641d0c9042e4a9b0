package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/hems/core/model"
)

func TestLoadBeforePublish(t *testing.T) {
	s := NewStore()
	snap := s.Load()
	require.NotNil(t, snap)
	assert.NotNil(t, snap.Requests)
	assert.Zero(t, snap.Version)
}

func TestPublishSwapsAndNotifies(t *testing.T) {
	s := NewStore()
	ch := s.Subscribe()
	defer s.Unsubscribe(ch)

	s.Publish(&Snapshot{CreatedAt: time.Unix(10, 0)})
	s.Publish(&Snapshot{CreatedAt: time.Unix(20, 0)})

	first := <-ch
	second := <-ch
	assert.Equal(t, uint64(1), first.Version)
	assert.Equal(t, uint64(2), second.Version)
	assert.Same(t, second, s.Load())
}

func TestReadersSeeCompleteSnapshots(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := s.Load()
			if len(snap.Plan.Slots) != len(snap.Requests) {
				t.Errorf("torn snapshot: %d slots, %d requests", len(snap.Plan.Slots), len(snap.Requests))
				return
			}
		}
	}()
	for i := 0; i < 200; i++ {
		slots := make([]model.DispatchSlot, i%5)
		reqs := make(model.RequestsSummary, i%5)
		s.Publish(&Snapshot{Plan: model.PlanHorizon{Slots: slots}, Requests: reqs})
	}
	close(stop)
	wg.Wait()
}
