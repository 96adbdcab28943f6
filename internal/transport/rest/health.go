package rest

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"
)

const serviceName = "helpdesk-management"

type healthResponse struct {
	Service   string                 `json:"service"`
	Status    string                 `json:"status"`
	CheckedAt time.Time              `json:"checked_at"`
	UptimeSec int64                  `json:"uptime_seconds"`
	Checks    map[string]healthCheck `json:"checks"`
}

type healthCheck struct {
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

type HealthHandler struct {
	db      *sql.DB
	started time.Time
}

func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db, started: time.Now()}
}

// pingHandler answers liveness: the process is up and serving.
func (h *HealthHandler) pingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "OK"})
}

// healthCheckHandler answers readiness: liveness plus a database round trip.
func (h *HealthHandler) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	start := time.Now()
	pingErr := h.db.PingContext(ctx)

	dbCheck := healthCheck{
		Status:     "healthy",
		DurationMs: time.Since(start).Milliseconds(),
	}
	overall := "healthy"
	statusCode := http.StatusOK
	if pingErr != nil {
		dbCheck.Status = "unhealthy"
		dbCheck.Error = pingErr.Error()
		overall = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	resp := healthResponse{
		Service:   serviceName,
		Status:    overall,
		CheckedAt: time.Now(),
		UptimeSec: int64(time.Since(h.started).Seconds()),
		Checks:    map[string]healthCheck{"postgres": dbCheck},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}
