// Package server exposes a running scheduler over HTTP.
//
// Routes:
//
//	GET /healthz          liveness
//	GET /metrics          Prometheus exposition
//	GET /status           latest scheduler snapshot as JSON
//	PUT /gate/{state}     enable or disable the shared gate
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/tickr/internal/scheduler"
)

// SnapshotSource publishes scheduler snapshots. Snapshot may return nil
// before the first tick.
type SnapshotSource interface {
	Snapshot() *scheduler.Snapshot
}

// Config wires the handler's dependencies. Metrics and Gate are optional.
type Config struct {
	Status  SnapshotSource
	Gate    *scheduler.Gate
	Metrics http.Handler
	Logger  *slog.Logger
}

// NewHandler builds the router.
func NewHandler(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok\n"))
	})

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		var snap *scheduler.Snapshot
		if cfg.Status != nil {
			snap = cfg.Status.Snapshot()
		}
		if snap == nil {
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "scheduler not started"})
			return
		}
		writeJSON(w, http.StatusOK, snap)
	})

	if cfg.Gate != nil {
		r.Put("/gate/{state}", func(w http.ResponseWriter, r *http.Request) {
			switch state := chi.URLParam(r, "state"); state {
			case "enable":
				cfg.Gate.Enable()
			case "disable":
				cfg.Gate.Disable()
			default:
				writeJSON(w, http.StatusBadRequest, errorBody{Error: "state must be enable or disable"})
				return
			}
			logger.Info("gate changed", "disabled", cfg.Gate.Disabled())
			writeJSON(w, http.StatusOK, gateBody{Disabled: cfg.Gate.Disabled()})
		})
	}

	return r
}

type errorBody struct {
	Error string `json:"error"`
}

type gateBody struct {
	Disabled bool `json:"disabled"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListenAndServe serves handler on addr until ctx is done, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("status server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
