package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/hems/core/buffer/logging"
	"github.com/kilianp07/hems/core/model"
	"github.com/kilianp07/hems/core/state"
)

var noon = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

type fakeBackend struct {
	store *state.Store
}

func newFake() *fakeBackend {
	f := &fakeBackend{store: state.NewStore()}
	slots := make([]model.DispatchSlot, model.SlotsPerDay)
	for i := range slots {
		slots[i] = model.DispatchSlot{
			Index:       i,
			Start:       noon.Add(time.Duration(i) * model.SlotDuration),
			Price:       0.25,
			PriceZone:   model.ZoneModerate,
			Battery:     model.BatteryHold,
			Explanation: "hold battery, price moderate",
		}
	}
	f.store.Publish(&state.Snapshot{
		CreatedAt: noon,
		Plan:      model.PlanHorizon{CreatedAt: noon, Slots: slots},
		Mode:      model.ModeStatus{State: model.ModeControllerState{Phase: model.PhaseActive}, ObservedMode: model.ModePV},
	})
	return f
}

func (f *fakeBackend) Snapshot() *state.Snapshot { return f.store.Load() }

func (f *fakeBackend) Subscribe() <-chan *state.Snapshot { return f.store.Subscribe() }

func (f *fakeBackend) Unsubscribe(ch <-chan *state.Snapshot) { f.store.Unsubscribe(ch) }

func (f *fakeBackend) StartBoost(id string, d time.Duration) (model.Boost, error) {
	return model.Boost{VehicleID: "zoe", StartedAt: noon, Until: noon.Add(2 * time.Hour)}, nil
}

func (f *fakeBackend) CancelBoost() {}

func (f *fakeBackend) SetDeparture(id, value string) (time.Time, error) {
	return noon.Add(time.Hour), nil
}

func (f *fakeBackend) BufferStatus() model.BufferStatus {
	return model.BufferStatus{Mode: model.BufferObservation}
}

func (f *fakeBackend) BufferEvents(context.Context, logging.LogQuery) ([]model.BufferEvent, error) {
	return nil, nil
}

func (f *fakeBackend) BufferGoLive(context.Context) error { return nil }

func (f *fakeBackend) BufferExtend(context.Context) error { return nil }

func (f *fakeBackend) BufferReset(context.Context) error { return nil }

func serve(t *testing.T, h http.Handler, method, path string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestPlanAndMode(t *testing.T) {
	h := NewRouter(newFake(), Options{})

	rr := serve(t, h, "GET", "/api/plan", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var plan model.PlanHorizon
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &plan))
	assert.Len(t, plan.Slots, model.SlotsPerDay)

	rr = serve(t, h, "GET", "/api/mode", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var mode model.ModeStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &mode))
	assert.Equal(t, model.PhaseActive, mode.State.Phase)
	assert.Equal(t, model.ModePV, mode.ObservedMode)
}

func TestResponsesAreCompressed(t *testing.T) {
	h := NewRouter(newFake(), Options{})
	rr := serve(t, h, "GET", "/api/plan", map[string]string{"Accept-Encoding": "gzip"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "gzip", rr.Header().Get("Content-Encoding"))
}

func TestMethodNotAllowed(t *testing.T) {
	h := NewRouter(newFake(), Options{})
	rr := serve(t, h, "PUT", "/api/boost", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestCommandsRequireToken(t *testing.T) {
	h := NewRouter(newFake(), Options{Token: "secret"})

	rr := serve(t, h, "DELETE", "/api/boost", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = serve(t, h, "DELETE", "/api/boost", map[string]string{"Authorization": "Bearer secret"})
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = serve(t, h, "GET", "/api/requests", nil)
	assert.Equal(t, http.StatusOK, rr.Code, "queries stay open")
	assert.Equal(t, "[]", strings.TrimSpace(rr.Body.String()))
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("hems_cycles_total 1\n"))
	})
	h := NewRouter(newFake(), Options{Metrics: metrics})
	rr := serve(t, h, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "hems_cycles_total")
}

func TestSnapshotStream(t *testing.T) {
	f := newFake()
	srv := httptest.NewServer(NewRouter(f, Options{}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/snapshot/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var first state.Snapshot
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, uint64(1), first.Version)

	// The subscription is registered before the first write, so this
	// publish is delivered.
	f.store.Publish(&state.Snapshot{CreatedAt: noon.Add(15 * time.Minute), Banners: []string{"forecast unavailable"}})
	var next state.Snapshot
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, uint64(2), next.Version)
	assert.Equal(t, []string{"forecast unavailable"}, next.Banners)
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0", http.NotFoundHandler(), time.Second, time.Second) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
