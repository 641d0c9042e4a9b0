package buffer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	corebuffer "github.com/kilianp07/hems/core/buffer"
	"github.com/kilianp07/hems/core/buffer/logging"
	"github.com/kilianp07/hems/core/model"
)

type fakeController struct {
	mode   model.BufferMode
	events []model.BufferEvent
	query  logging.LogQuery
}

func (f *fakeController) BufferStatus() model.BufferStatus {
	return model.BufferStatus{Mode: f.mode, ActiveFloor: 30}
}

func (f *fakeController) BufferEvents(_ context.Context, q logging.LogQuery) ([]model.BufferEvent, error) {
	f.query = q
	return f.events, nil
}

func (f *fakeController) BufferGoLive(context.Context) error {
	f.mode = model.BufferLive
	return nil
}

func (f *fakeController) BufferExtend(context.Context) error {
	if f.mode == model.BufferLive {
		return corebuffer.ErrAlreadyLive
	}
	return nil
}

func (f *fakeController) BufferReset(context.Context) error {
	f.mode = model.BufferObservation
	return nil
}

func TestStatusHandler(t *testing.T) {
	c := &fakeController{mode: model.BufferObservation, events: []model.BufferEvent{{ID: "e1", NewFloor: 25}}}
	h := NewStatusHandler(c, 20)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/buffer?start=2026-03-01T00:00:00Z&limit=5&applied=true", nil)
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out Response
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status.Mode != model.BufferObservation || len(out.Events) != 1 || out.Events[0].ID != "e1" {
		t.Fatalf("unexpected output %#v", out)
	}
	want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if !c.query.Start.Equal(want) || c.query.Limit != 5 || !c.query.AppliedOnly {
		t.Fatalf("unexpected query %#v", c.query)
	}
}

func TestStatusHandlerEmptyEvents(t *testing.T) {
	h := NewStatusHandler(&fakeController{}, 20)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/buffer", nil))
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rr.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(raw["events"]) != "[]" {
		t.Fatalf("events should be an empty array, got %s", raw["events"])
	}
}

func TestGoLiveThenExtendConflicts(t *testing.T) {
	c := &fakeController{mode: model.BufferObservation}
	rr := httptest.NewRecorder()
	NewExtendHandler(c).ServeHTTP(rr, httptest.NewRequest("POST", "/api/buffer/extend", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("extend status %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	NewGoLiveHandler(c).ServeHTTP(rr, httptest.NewRequest("POST", "/api/buffer/golive", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("golive status %d", rr.Code)
	}
	var st model.BufferStatus
	if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil || st.Mode != model.BufferLive {
		t.Fatalf("unexpected status %#v (%v)", st, err)
	}

	rr = httptest.NewRecorder()
	NewExtendHandler(c).ServeHTTP(rr, httptest.NewRequest("POST", "/api/buffer/extend", nil))
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestResetReturnsToObservation(t *testing.T) {
	c := &fakeController{mode: model.BufferLive}
	rr := httptest.NewRecorder()
	NewResetHandler(c).ServeHTTP(rr, httptest.NewRequest("POST", "/api/buffer/reset", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("reset status %d", rr.Code)
	}
	var st model.BufferStatus
	if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil || st.Mode != model.BufferObservation {
		t.Fatalf("unexpected status %#v (%v)", st, err)
	}
}
