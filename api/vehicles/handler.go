package vehicles

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/kilianp07/hems/core/boost"
	"github.com/kilianp07/hems/core/departure"
	"github.com/kilianp07/hems/core/model"
	"github.com/kilianp07/hems/core/state"
)

// Backend is the vehicle facing surface of the decision engine.
type Backend interface {
	Snapshot() *state.Snapshot
	StartBoost(vehicleID string, d time.Duration) (model.Boost, error)
	CancelBoost()
	SetDeparture(vehicleID, value string) (time.Time, error)
}

// ErrorResponse is the body of every rejected command.
type ErrorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// NewRequestsHandler returns the charge requests ordered by urgency via
// GET /api/requests. The body is always a JSON array.
func NewRequestsHandler(b Backend) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqs := b.Snapshot().Requests
		if reqs == nil {
			reqs = model.RequestsSummary{}
		}
		writeJSON(w, http.StatusOK, reqs)
	})
}

// BoostRequest is the body of POST /api/boost. Duration is optional, e.g.
// "90m".
type BoostRequest struct {
	VehicleID string `json:"vehicle_id"`
	Duration  string `json:"duration"`
}

// NewBoostHandler starts a boost on POST and cancels it on DELETE.
func NewBoostHandler(b Backend) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodDelete:
			b.CancelBoost()
			w.WriteHeader(http.StatusNoContent)
			return
		case http.MethodPost:
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req BoostRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid body: " + err.Error()})
				return
			}
		}
		var d time.Duration
		if req.Duration != "" {
			var err error
			if d, err = time.ParseDuration(req.Duration); err != nil || d <= 0 {
				writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid duration " + req.Duration})
				return
			}
		}
		boosted, err := b.StartBoost(req.VehicleID, d)
		switch {
		case errors.Is(err, boost.ErrQuietHours):
			writeJSON(w, http.StatusConflict, ErrorResponse{
				Error: err.Error(),
				Hint:  "charging is scheduled by urgency during quiet hours",
			})
		case errors.Is(err, boost.ErrUnknownVehicle), errors.Is(err, boost.ErrAmbiguousVehicle):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		case err != nil:
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		default:
			writeJSON(w, http.StatusAccepted, boosted)
		}
	})
}

// DepartureRequest is the body of POST /api/departure. Value is a duration
// ("2h30m") or a time of day ("07:30").
type DepartureRequest struct {
	VehicleID string `json:"vehicle_id"`
	Value     string `json:"value"`
}

// DepartureResponse confirms the applied departure.
type DepartureResponse struct {
	VehicleID string    `json:"vehicle_id,omitempty"`
	Departure time.Time `json:"departure"`
}

// NewDepartureHandler applies a driver departure answer. Unparseable
// values answer 400 with a retry hint.
func NewDepartureHandler(b Backend) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req DepartureRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid body: " + err.Error(), Hint: departure.RetryHint})
			return
		}
		dep, err := b.SetDeparture(req.VehicleID, req.Value)
		switch {
		case errors.Is(err, departure.ErrInvalidInput):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Hint: departure.RetryHint})
		case errors.Is(err, boost.ErrUnknownVehicle), errors.Is(err, boost.ErrAmbiguousVehicle):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		case err != nil:
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		default:
			writeJSON(w, http.StatusOK, DepartureResponse{VehicleID: req.VehicleID, Departure: dep})
		}
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
