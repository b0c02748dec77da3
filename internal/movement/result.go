package movement

import (
	"fmt"

	"sectorwars-server/internal/galaxy"
	"sectorwars-server/internal/models"
)

type SectorInfo struct {
	ID             int               `json:"id"`
	Name           string            `json:"name"`
	Type           models.SectorType `json:"type"`
	HazardLevel    int               `json:"hazardLevel"`
	RadiationLevel float64           `json:"radiationLevel"`
}

func sectorInfo(s *models.Sector) *SectorInfo {
	return &SectorInfo{
		ID:             s.ID,
		Name:           s.Name,
		Type:           s.Type,
		HazardLevel:    s.HazardLevel,
		RadiationLevel: s.RadiationLevel,
	}
}

type EncounterType string

const (
	EncounterPlayers EncounterType = "players"
	EncounterHazard  EncounterType = "sector_hazard"
	EncounterDrones  EncounterType = "drones"
)

type Encounter struct {
	Type        EncounterType          `json:"type"`
	ThreatLevel string                 `json:"threatLevel"`
	Players     []models.PresenceEntry `json:"players,omitempty"`
	Hazard      models.SectorType      `json:"hazard,omitempty"`
	Count       int                    `json:"count,omitempty"`
}

type TunnelEventType string

const (
	TunnelRadiation   TunnelEventType = "radiation_exposure"
	TunnelAnomaly     TunnelEventType = "spacetime_anomaly"
	TunnelDegradation TunnelEventType = "tunnel_degradation"
	TunnelCollapse    TunnelEventType = "tunnel_collapse"
)

type TunnelEvent struct {
	Type          TunnelEventType `json:"type"`
	TunnelID      string          `json:"tunnelId"`
	Severity      string          `json:"severity,omitempty"`
	Effect        string          `json:"effect"`
	Stability     float64         `json:"stability"`
	RemainingUses *int            `json:"remainingUses,omitempty"`
}

type MoveResult struct {
	Success        bool                  `json:"success"`
	Message        string                `json:"message"`
	TurnCost       int                   `json:"turnCost"`
	ConnectionType galaxy.ConnectionType `json:"connectionType,omitempty"`
	Sector         *SectorInfo           `json:"sectorInfo,omitempty"`
	TurnsRemaining int                   `json:"turnsRemaining"`
	Encounters     []Encounter           `json:"encounters"`
	TunnelEvents   []TunnelEvent         `json:"tunnelEvents"`
}

// Failure is the result reported for a rejected move.
func Failure(err error) *MoveResult {
	return &MoveResult{Success: false, Message: err.Error(), TurnCost: 0}
}

// InsufficientTurnsError is wrapped in an insufficient_resource AppError.
type InsufficientTurnsError struct {
	Cost      int
	Available int
}

func (e *InsufficientTurnsError) Error() string {
	return fmt.Sprintf("need %d turns, have %d", e.Cost, e.Available)
}

type AvailableMoves struct {
	SectorID       int                 `json:"sectorId"`
	TurnsRemaining int                 `json:"turnsRemaining"`
	Warps          []galaxy.WarpMove   `json:"warps"`
	Tunnels        []galaxy.TunnelMove `json:"tunnels"`
}
