package vehicles

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kilianp07/hems/core/boost"
	"github.com/kilianp07/hems/core/departure"
	"github.com/kilianp07/hems/core/model"
	"github.com/kilianp07/hems/core/state"
)

var now = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

type fakeBackend struct {
	snap      *state.Snapshot
	quiet     bool
	boost     *model.Boost
	cancelled int
}

func (f *fakeBackend) Snapshot() *state.Snapshot { return f.snap }

func (f *fakeBackend) StartBoost(id string, d time.Duration) (model.Boost, error) {
	if f.quiet {
		return model.Boost{}, boost.ErrQuietHours
	}
	if id != "" && id != "zoe" {
		return model.Boost{}, fmt.Errorf("%w: %s", boost.ErrUnknownVehicle, id)
	}
	if d == 0 {
		d = 2 * time.Hour
	}
	b := model.Boost{VehicleID: "zoe", StartedAt: now, Until: now.Add(d)}
	f.boost = &b
	return b, nil
}

func (f *fakeBackend) CancelBoost() { f.cancelled++ }

func (f *fakeBackend) SetDeparture(id, value string) (time.Time, error) {
	return departure.Parse(value, now)
}

func TestRequestsHandlerReturnsArray(t *testing.T) {
	f := &fakeBackend{snap: &state.Snapshot{}}
	rr := httptest.NewRecorder()
	NewRequestsHandler(f).ServeHTTP(rr, httptest.NewRequest("GET", "/api/requests", nil))
	if got := strings.TrimSpace(rr.Body.String()); got != "[]" {
		t.Fatalf("expected empty array, got %s", got)
	}

	f.snap = &state.Snapshot{Requests: model.RequestsSummary{
		{VehicleID: "ioniq", Score: 15, Connected: true},
		{VehicleID: "zoe", Score: 3.33},
	}}
	rr = httptest.NewRecorder()
	NewRequestsHandler(f).ServeHTTP(rr, httptest.NewRequest("GET", "/api/requests", nil))
	var out []model.RequestSummary
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 || out[0].VehicleID != "ioniq" || out[0].Score < out[1].Score {
		t.Fatalf("unexpected order %#v", out)
	}
}

func TestBoostHandler(t *testing.T) {
	cases := []struct {
		name  string
		quiet bool
		body  string
		code  int
	}{
		{"default vehicle", false, ``, http.StatusAccepted},
		{"explicit", false, `{"vehicle_id":"zoe","duration":"90m"}`, http.StatusAccepted},
		{"quiet hours", true, `{"vehicle_id":"zoe"}`, http.StatusConflict},
		{"unknown", false, `{"vehicle_id":"tesla"}`, http.StatusBadRequest},
		{"bad duration", false, `{"duration":"soon"}`, http.StatusBadRequest},
		{"bad body", false, `{`, http.StatusBadRequest},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := &fakeBackend{quiet: c.quiet}
			rr := httptest.NewRecorder()
			NewBoostHandler(f).ServeHTTP(rr, httptest.NewRequest("POST", "/api/boost", strings.NewReader(c.body)))
			if rr.Code != c.code {
				t.Fatalf("status %d, want %d: %s", rr.Code, c.code, rr.Body.String())
			}
			if c.code == http.StatusConflict {
				var e ErrorResponse
				if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil || e.Hint == "" {
					t.Fatalf("expected an explanation, got %s", rr.Body.String())
				}
			}
		})
	}
}

func TestBoostDurationForwarded(t *testing.T) {
	f := &fakeBackend{}
	rr := httptest.NewRecorder()
	NewBoostHandler(f).ServeHTTP(rr, httptest.NewRequest("POST", "/api/boost", strings.NewReader(`{"duration":"90m"}`)))
	if f.boost == nil || f.boost.Until != now.Add(90*time.Minute) {
		t.Fatalf("unexpected boost %#v", f.boost)
	}
}

func TestBoostCancelAlwaysNoContent(t *testing.T) {
	f := &fakeBackend{}
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		NewBoostHandler(f).ServeHTTP(rr, httptest.NewRequest("DELETE", "/api/boost", nil))
		if rr.Code != http.StatusNoContent {
			t.Fatalf("status %d", rr.Code)
		}
	}
	if f.cancelled != 2 {
		t.Fatalf("expected 2 cancels, got %d", f.cancelled)
	}
}

func TestDepartureHandler(t *testing.T) {
	f := &fakeBackend{}
	rr := httptest.NewRecorder()
	NewDepartureHandler(f).ServeHTTP(rr, httptest.NewRequest("POST", "/api/departure", strings.NewReader(`{"vehicle_id":"zoe","value":"07:30"}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	var out DepartureResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := time.Date(2026, 3, 3, 7, 30, 0, 0, time.UTC)
	if !out.Departure.Equal(want) || out.VehicleID != "zoe" {
		t.Fatalf("unexpected departure %#v", out)
	}
}

func TestDepartureHandlerRetryHint(t *testing.T) {
	f := &fakeBackend{}
	rr := httptest.NewRecorder()
	NewDepartureHandler(f).ServeHTTP(rr, httptest.NewRequest("POST", "/api/departure", strings.NewReader(`{"value":"after lunch"}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rr.Code)
	}
	var e ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.Hint != departure.RetryHint {
		t.Fatalf("missing retry hint: %#v", e)
	}
}
