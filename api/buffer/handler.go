package buffer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	corebuffer "github.com/kilianp07/hems/core/buffer"
	"github.com/kilianp07/hems/core/buffer/logging"
	"github.com/kilianp07/hems/core/model"
)

// Controller is the buffer surface of the decision engine.
type Controller interface {
	BufferStatus() model.BufferStatus
	BufferEvents(ctx context.Context, q logging.LogQuery) ([]model.BufferEvent, error)
	BufferGoLive(ctx context.Context) error
	BufferExtend(ctx context.Context) error
	BufferReset(ctx context.Context) error
}

// Response is the payload of GET /api/buffer.
type Response struct {
	Status model.BufferStatus  `json:"status"`
	Events []model.BufferEvent `json:"events"`
}

// NewStatusHandler returns the buffer mode and the most recent events via
// GET /api/buffer. start, end, applied and limit filter the events; limit
// defaults to defaultLimit.
func NewStatusHandler(c Controller, defaultLimit int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := logging.LogQuery{Limit: defaultLimit}
		if s := r.URL.Query().Get("start"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.Start = t
			}
		}
		if s := r.URL.Query().Get("end"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.End = t
			}
		}
		if s := r.URL.Query().Get("limit"); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n > 0 {
				q.Limit = n
			}
		}
		q.AppliedOnly = r.URL.Query().Get("applied") == "true"
		events, err := c.BufferEvents(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if events == nil {
			events = []model.BufferEvent{}
		}
		writeJSON(w, http.StatusOK, Response{Status: c.BufferStatus(), Events: events})
	})
}

// NewGoLiveHandler ends the observation period via POST /api/buffer/golive.
func NewGoLiveHandler(c Controller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := c.BufferGoLive(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, c.BufferStatus())
	})
}

// NewExtendHandler keeps observation running via POST /api/buffer/extend.
// Extending a live buffer answers 409.
func NewExtendHandler(c Controller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := c.BufferExtend(r.Context())
		switch {
		case errors.Is(err, corebuffer.ErrAlreadyLive):
			http.Error(w, err.Error(), http.StatusConflict)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, c.BufferStatus())
	})
}

// NewResetHandler returns to observation via POST /api/buffer/reset.
func NewResetHandler(c Controller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := c.BufferReset(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, c.BufferStatus())
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
