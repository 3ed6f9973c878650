package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/doublewordai/arbiter/internal/engine"
	"github.com/doublewordai/arbiter/internal/observability"
)

// Handler exposes the classification API over HTTP.
type Handler struct {
	service      *ClassifyService
	metrics      *observability.Metrics
	maxBodyBytes int64
	logger       *slog.Logger
}

// NewHandler creates the HTTP handler.
func NewHandler(service *ClassifyService, metrics *observability.Metrics, maxBodyBytes int64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service:      service,
		metrics:      metrics,
		maxBodyBytes: maxBodyBytes,
		logger:       logger.With("component", "gateway"),
	}
}

// RegisterRoutes registers the API routes on the given mux. metricsHandler
// serves the Prometheus exposition format.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, metricsHandler http.Handler) {
	mux.HandleFunc("POST /classify", h.Classify)
	mux.Handle("GET /metrics", metricsHandler)
	mux.HandleFunc("GET /healthz", h.Health)
}

// Classify handles POST /classify. Malformed bodies and empty input are 400;
// any sub-request failure is 500 with no partial body.
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.metrics.ClassificationRequests.Add(ctx, 1)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	var req engine.ClassificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("malformed request body", "error", err)
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	resp, err := h.service.Classify(ctx, req)
	if err != nil {
		if errors.Is(err, engine.ErrEmptyInput) {
			writeError(w, http.StatusBadRequest, engine.ErrEmptyInput.Error())
			return
		}
		h.logger.Error("classification failed", "model", req.Model, "error", err)
		writeError(w, http.StatusInternalServerError, "classification failed")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// errorBody is the JSON shape of error responses.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
