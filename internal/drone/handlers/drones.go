package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"sectorwars-server/internal/drone"
	"sectorwars-server/internal/middleware"
	"sectorwars-server/internal/models"
	"sectorwars-server/internal/shared/errors"
	"sectorwars-server/internal/shared/response"

	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 10

type DroneHandler struct {
	service *drone.Service
}

func NewDroneHandler(service *drone.Service) *DroneHandler {
	return &DroneHandler{service: service}
}

// playerAndDrone resolves the acting player and the {id} path value.
func playerAndDrone(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	playerID, err := middleware.PlayerID(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	droneID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, errors.WrapValidation("invalid drone id", err)
	}
	return playerID, droneID, nil
}

type createRequest struct {
	Type   models.DroneType `json:"type"`
	TeamID *uuid.UUID       `json:"teamId,omitempty"`
}

func (h *DroneHandler) Create(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "create_drone")

	playerID, err := middleware.PlayerID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	var req createRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	d, err := h.service.CreateDrone(r.Context(), playerID, req.Type, req.TeamID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, d)
}

func (h *DroneHandler) List(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "list_drones")

	playerID, err := middleware.PlayerID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	includeDestroyed, _ := strconv.ParseBool(r.URL.Query().Get("includeDestroyed"))
	drones, err := h.service.ListDrones(r.Context(), playerID, includeDestroyed)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, drones)
}

func (h *DroneHandler) Types(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, drone.Types())
}

func (h *DroneHandler) Get(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_drone")

	playerID, droneID, err := playerAndDrone(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	d, err := h.service.GetDrone(r.Context(), playerID, droneID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, d)
}

func (h *DroneHandler) Deploy(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "deploy_drone")

	playerID, droneID, err := playerAndDrone(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	var req drone.DeployRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if req.SectorID <= 0 {
		response.Error(w, r, logger, errors.Validation("sectorId must be a positive sector id"))
		return
	}

	deployment, err := h.service.DeployDrone(r.Context(), playerID, droneID, req)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, deployment)
}

func (h *DroneHandler) Recall(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "recall_drone")

	playerID, droneID, err := playerAndDrone(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	deployment, err := h.service.RecallDrone(r.Context(), playerID, droneID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, deployment)
}

type combatRequest struct {
	DefenderDroneID uuid.UUID `json:"defenderDroneId"`
}

func (h *DroneHandler) Combat(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "drone_combat")

	playerID, droneID, err := playerAndDrone(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	var req combatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	combat, err := h.service.InitiateDroneCombat(r.Context(), playerID, droneID, req.DefenderDroneID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, combat)
}

type repairRequest struct {
	Amount int `json:"amount"`
}

func (h *DroneHandler) Repair(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "repair_drone")

	playerID, droneID, err := playerAndDrone(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	var req repairRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	d, err := h.service.RepairDrone(r.Context(), playerID, droneID, req.Amount)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, d)
}

func (h *DroneHandler) Upgrade(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "upgrade_drone")

	playerID, droneID, err := playerAndDrone(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	d, err := h.service.UpgradeDrone(r.Context(), playerID, droneID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, d)
}

func (h *DroneHandler) History(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "drone_combat_history")

	playerID, droneID, err := playerAndDrone(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	combats, err := h.service.CombatHistory(r.Context(), playerID, droneID, limit)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, combats)
}

func (h *DroneHandler) Sector(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "sector_drones")

	sectorID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid sector id", err))
		return
	}

	drones, err := h.service.SectorDrones(r.Context(), sectorID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, drones)
}
