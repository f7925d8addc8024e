// Package handler provides HTTP handlers for the notifier's ops endpoints.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ecobreak/notify/internal/config"
	"github.com/ecobreak/notify/internal/db"
	"github.com/ecobreak/notify/internal/notify"
)

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	pool     *db.Pool
	notifier *notify.Notifier
	cfg      *config.Config
}

// New creates a Handler with shared dependencies.
func New(pool *db.Pool, notifier *notify.Notifier, cfg *config.Config) *Handler {
	return &Handler{pool: pool, notifier: notifier, cfg: cfg}
}

// Root serves service info at /.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":     "EcoBreak Notification Service",
		"status":   "running",
		"timezone": h.cfg.Timezone,
	})
}

// HealthCheck reports process liveness.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// HealthCheckDB verifies database connectivity.
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.pool.HealthCheck(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unavailable", "error": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// Status returns the most recent tick result.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	result, ok := h.notifier.LastResult()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"ticked": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ticked":  true,
		"last":    result,
		"summary": result.Summary(),
	})
}

// TriggerTick runs one evaluation pass immediately. Rejected with 409 if a
// tick is already in flight.
func (h *Handler) TriggerTick(w http.ResponseWriter, r *http.Request) {
	result, ran := h.notifier.TryRunNow(r.Context())
	if !ran {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": "a tick is already running",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"result":  result,
		"summary": result.Summary(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
