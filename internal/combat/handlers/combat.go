package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"sectorwars-server/internal/combat"
	"sectorwars-server/internal/middleware"
	"sectorwars-server/internal/models"
	"sectorwars-server/internal/shared/errors"
	"sectorwars-server/internal/shared/response"

	"github.com/google/uuid"
)

type CombatHandler struct {
	service *combat.Service
}

func NewCombatHandler(service *combat.Service) *CombatHandler {
	return &CombatHandler{service: service}
}

type initiateRequest struct {
	TargetType models.TargetType `json:"targetType"`
	TargetID   uuid.UUID         `json:"targetId"`
}

func (h *CombatHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "initiate_combat")

	playerID, err := middleware.PlayerID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	var req initiateRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<10)
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if req.TargetID == uuid.Nil {
		response.Error(w, r, logger, errors.Validation("targetId is required"))
		return
	}

	result, err := h.service.InitiateCombat(r.Context(), playerID, req.TargetType, req.TargetID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, result)
}

func (h *CombatHandler) Status(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "combat_status")

	combatID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid combat id", err))
		return
	}

	status, err := h.service.GetCombatStatus(r.Context(), combatID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, status)
}

func (h *CombatHandler) History(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "combat_history")

	playerID, err := middleware.PlayerID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			response.Error(w, r, logger, errors.Validationf("invalid limit: %q", raw))
			return
		}
	}

	logs, err := h.service.ListHistory(r.Context(), playerID, limit)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, logs)
}
