package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/hems/api/buffer"
	"github.com/kilianp07/hems/api/vehicles"
	"github.com/kilianp07/hems/core/logger"
	"github.com/kilianp07/hems/core/state"
)

// Backend is everything the HTTP surface needs from the engine.
type Backend interface {
	vehicles.Backend
	buffer.Controller
	Subscribe() <-chan *state.Snapshot
	Unsubscribe(ch <-chan *state.Snapshot)
}

// Options tune the router.
type Options struct {
	// BufferEvents is the default number of events of GET /api/buffer.
	BufferEvents int
	// Token, when set, is required as a bearer token on commands.
	Token string
	// Metrics serves /metrics. Nil uses the default prometheus registry.
	Metrics http.Handler
	Log     logger.Logger
}

// NewRouter builds the handler tree. JSON endpoints are gzip compressed;
// the websocket and metrics endpoints are served as is.
func NewRouter(b Backend, opts Options) http.Handler {
	if opts.BufferEvents <= 0 {
		opts.BufferEvents = 20
	}
	if opts.Metrics == nil {
		opts.Metrics = promhttp.Handler()
	}
	log := logger.OrNop(opts.Log)

	r := mux.NewRouter()
	r.HandleFunc("/api/plan", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, b.Snapshot().Plan)
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/mode", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, b.Snapshot().Mode)
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/snapshot", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, b.Snapshot())
	}).Methods(http.MethodGet)
	r.Handle("/api/requests", vehicles.NewRequestsHandler(b)).Methods(http.MethodGet)
	r.Handle("/api/buffer", buffer.NewStatusHandler(b, opts.BufferEvents)).Methods(http.MethodGet)

	cmd := r.NewRoute().Subrouter()
	cmd.Use(bearer(opts.Token))
	cmd.Handle("/api/boost", vehicles.NewBoostHandler(b)).Methods(http.MethodPost, http.MethodDelete)
	cmd.Handle("/api/departure", vehicles.NewDepartureHandler(b)).Methods(http.MethodPost)
	cmd.Handle("/api/buffer/golive", buffer.NewGoLiveHandler(b)).Methods(http.MethodPost)
	cmd.Handle("/api/buffer/extend", buffer.NewExtendHandler(b)).Methods(http.MethodPost)
	cmd.Handle("/api/buffer/reset", buffer.NewResetHandler(b)).Methods(http.MethodPost)

	root := mux.NewRouter()
	root.Handle("/api/snapshot/ws", newSnapshotStream(b, log)).Methods(http.MethodGet)
	root.Handle("/metrics", opts.Metrics).Methods(http.MethodGet)
	root.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	root.PathPrefix("/").Handler(gziphandler.GzipHandler(r))
	return root
}

func bearer(token string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Serve runs the HTTP server until ctx is cancelled.
func Serve(ctx context.Context, addr string, h http.Handler, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: readTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		errCh <- srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-errCh
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
