package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"sectorwars-server/internal/middleware"
	"sectorwars-server/internal/movement"
	"sectorwars-server/internal/shared/errors"
	"sectorwars-server/internal/shared/response"
)

type MovementHandler struct {
	service *movement.Service
}

func NewMovementHandler(service *movement.Service) *MovementHandler {
	return &MovementHandler{service: service}
}

type moveRequest struct {
	DestinationSectorID int `json:"destinationSectorId"`
}

func (h *MovementHandler) Move(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "move_player")

	playerID, err := middleware.PlayerID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	var req moveRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<10)
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if req.DestinationSectorID <= 0 {
		response.Error(w, r, logger, errors.Validation("destinationSectorId must be a positive sector id"))
		return
	}

	result, err := h.service.MovePlayer(r.Context(), playerID, req.DestinationSectorID)
	if err != nil {
		response.ErrorWithBody(w, r, logger, err, movement.Failure(err))
		return
	}

	response.Success(w, http.StatusOK, result)
}

func (h *MovementHandler) AvailableMoves(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "available_moves")

	playerID, err := middleware.PlayerID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	moves, err := h.service.GetAvailableMoves(r.Context(), playerID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, moves)
}

func (h *MovementHandler) Path(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "find_path")

	from, err := strconv.Atoi(r.URL.Query().Get("from"))
	if err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid from sector", err))
		return
	}
	to, err := strconv.Atoi(r.URL.Query().Get("to"))
	if err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid to sector", err))
		return
	}

	path, err := h.service.GetPath(r.Context(), from, to)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, map[string]any{
		"path":      path,
		"reachable": len(path) > 0,
	})
}
