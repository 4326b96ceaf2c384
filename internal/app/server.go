package app

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tigerroll/eventgen/pkg/generator/core/domain/model"
	core "github.com/tigerroll/eventgen/pkg/generator/core/scheduler"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/exception"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/logger"
)

const maxRequestBody = 1 << 20

// NewRouter serves health, Prometheus metrics and batch submission. A
// submitted request is queued as a continuation, so the first slice runs on a
// worker like every later one.
func NewRouter(sched core.Scheduler, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Post("/batches", submitBatch(sched))
	return r
}

func submitBatch(sched core.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		var req model.GenerationRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := req.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if req.IsEmpty() {
			writeJSON(w, http.StatusOK, map[string]interface{}{"id": req.ID, "queued": false})
			return
		}
		payload, err := json.Marshal(&req)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if err := sched.DeferOrRunNow(r.Context(), core.OperationHandleBatch, payload); err != nil {
			status := http.StatusServiceUnavailable
			if exception.KindOf(err) == exception.KindValidation {
				status = http.StatusBadRequest
			}
			writeError(w, status, err)
			return
		}
		logger.WithFields(logger.Fields{
			"request_id": req.ID,
			"total":      req.Total(),
			"http_id":    middleware.GetReqID(r.Context()),
		}).Info("Batch request queued.")
		writeJSON(w, http.StatusAccepted, map[string]interface{}{"id": req.ID, "queued": true})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnf("Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
