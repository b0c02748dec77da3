package models

import (
	"time"

	"github.com/google/uuid"
)

type Player struct {
	ID              uuid.UUID  `json:"id"`
	Username        string     `json:"username"`
	TeamID          *uuid.UUID `json:"teamId,omitempty"`
	CurrentSectorID int        `json:"currentSectorId"`
	CurrentShipID   *uuid.UUID `json:"currentShipId,omitempty"`
	Turns           int        `json:"turns"`
	Credits         int        `json:"credits"`
	IsDocked        bool       `json:"isDocked"`
	IsLanded        bool       `json:"isLanded"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// SameTeam reports whether both players belong to the same non-empty team.
func (p *Player) SameTeam(teamID *uuid.UUID) bool {
	return p.TeamID != nil && teamID != nil && *p.TeamID == *teamID
}

type ShipType string

const (
	ShipLightFreighter ShipType = "LIGHT_FREIGHTER"
	ShipCargoHauler    ShipType = "CARGO_HAULER"
	ShipFastCourier    ShipType = "FAST_COURIER"
	ShipScout          ShipType = "SCOUT_SHIP"
	ShipColony         ShipType = "COLONY_SHIP"
	ShipDefender       ShipType = "DEFENDER"
	ShipCarrier        ShipType = "CARRIER"
	ShipWarpJumper     ShipType = "WARP_JUMPER"
)

type Ship struct {
	ID           uuid.UUID  `json:"id"`
	OwnerID      uuid.UUID  `json:"ownerId"`
	Name         string     `json:"name"`
	Type         ShipType   `json:"type"`
	SectorID     int        `json:"sectorId"`
	BaseSpeed    float64    `json:"baseSpeed"`
	CurrentSpeed float64    `json:"currentSpeed"`
	Shields      int        `json:"shields"`
	Armor        int        `json:"armor"`
	Guns         int        `json:"guns"`
	Drones       int        `json:"drones"`
	WarpCapable  bool       `json:"warpCapable"`
	IsActive     bool       `json:"isActive"`
	DestroyedAt  *time.Time `json:"destroyedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Destroy soft-deletes the ship.
func (s *Ship) Destroy(at time.Time) {
	s.IsActive = false
	s.DestroyedAt = &at
}
