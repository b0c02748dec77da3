package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"sectorwars-server/internal/shared/response"
)

// PingFunc reports whether a backing service answers.
type PingFunc func(ctx context.Context) error

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Database  string `json:"database"`
	Redis     string `json:"redis"`
}

// HealthHandler reports backing-service state. A nil ping means the service
// is not in use: in-memory storage or log-only events.
type HealthHandler struct {
	database PingFunc
	redis    PingFunc
}

func NewHealthHandler(database, redis PingFunc) *HealthHandler {
	return &HealthHandler{database: database, redis: redis}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "health")

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Database:  check(ctx, logger, "database", h.database),
		Redis:     check(ctx, logger, "redis", h.redis),
	}
	if resp.Database == "disconnected" || resp.Redis == "disconnected" {
		resp.Status = "degraded"
	}

	response.Success(w, http.StatusOK, resp)
}

func check(ctx context.Context, logger *slog.Logger, name string, ping PingFunc) string {
	if ping == nil {
		return "disabled"
	}
	if err := ping(ctx); err != nil {
		logger.Warn("Health check failed", "dependency", name, "error", err)
		return "disconnected"
	}
	return "connected"
}
