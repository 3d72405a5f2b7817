// Package api exposes the coordinator's status over HTTP: run progress,
// per-round stats, the reshaped experiment history and Prometheus metrics.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rodneyosodo/fedcollab/coordinator"
	pkgerrors "github.com/rodneyosodo/fedcollab/pkg/errors"
)

const contentType = "application/json"

func MakeHandler(svc coordinator.Service, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	mux.Get("/health", health(instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	mux.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		status, err := svc.Status(r.Context())
		if err != nil {
			encodeError(w, logger, err)

			return
		}
		encodeResponse(w, logger, status)
	})

	mux.Get("/rounds/{round}/stats", func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.Atoi(chi.URLParam(r, "round"))
		if err != nil {
			http.Error(w, "round must be an integer", http.StatusBadRequest)

			return
		}
		stats, err := svc.RoundStats(r.Context(), n)
		if err != nil {
			encodeError(w, logger, err)

			return
		}
		encodeResponse(w, logger, stats)
	})

	mux.Get("/experiment", func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.ExperimentStats(r.Context())
		if err != nil {
			encodeError(w, logger, err)

			return
		}
		encodeResponse(w, logger, stats)
	})

	return mux
}

func health(instanceID string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		encodeResponse(w, nil, map[string]string{
			"status":      "pass",
			"instance_id": instanceID,
		})
	}
}

func encodeResponse(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", contentType)
	if err := json.NewEncoder(w).Encode(v); err != nil && logger != nil {
		logger.Warn("Failed to encode HTTP response", slog.Any("error", err))
	}
}

func encodeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		logger.Warn("Request failed", slog.Any("error", err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
