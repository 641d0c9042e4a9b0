package metrics

import (
	"errors"
	"testing"

	"github.com/kilianp07/hems/core/model"
)

type recordSink struct {
	count int
	err   error
}

func (r *recordSink) RecordCycle(CycleRecord) error {
	r.count++
	return r.err
}

func (r *recordSink) RecordBuffer(model.BufferEvent) error {
	r.count++
	return nil
}

type cycleOnly struct{ count int }

func (c *cycleOnly) RecordCycle(CycleRecord) error {
	c.count++
	return nil
}

// TestMultiSink ensures records reach every sink implementing the recorder.
func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &cycleOnly{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordCycle(CycleRecord{}); err != nil {
		t.Fatalf("record cycle: %v", err)
	}
	if err := m.RecordBuffer(model.BufferEvent{}); err != nil {
		t.Fatalf("record buffer: %v", err)
	}
	if err := m.RecordMode(ModeRecord{}); err != nil {
		t.Fatalf("record mode: %v", err)
	}
	if s1.count != 2 || s2.count != 1 {
		t.Fatalf("records not forwarded: %d %d", s1.count, s2.count)
	}
}

func TestMultiSinkJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	ok := &cycleOnly{}
	m := NewMultiSink(&recordSink{err: boom}, ok)
	if err := m.RecordCycle(CycleRecord{}); !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if ok.count != 1 {
		t.Fatalf("later sinks must still receive the record")
	}
}
