package handlers

import (
	"log/slog"
	"net/http"

	"sectorwars-server/internal/shared/response"
	"sectorwars-server/internal/universe"
)

type UniverseHandler struct {
	service *universe.Service
}

func NewUniverseHandler(service *universe.Service) *UniverseHandler {
	return &UniverseHandler{service: service}
}

func (h *UniverseHandler) Stats(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "universe_stats")

	stats, err := h.service.Stats(r.Context())
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, stats)
}
