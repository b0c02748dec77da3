package models

import (
	"time"

	"github.com/google/uuid"
)

type SectorType string

const (
	SectorStandard      SectorType = "STANDARD"
	SectorNebula        SectorType = "NEBULA"
	SectorAsteroidField SectorType = "ASTEROID_FIELD"
	SectorBlackHole     SectorType = "BLACK_HOLE"
	SectorStarCluster   SectorType = "STAR_CLUSTER"
	SectorVoid          SectorType = "VOID"
	SectorIndustrial    SectorType = "INDUSTRIAL"
	SectorAgricultural  SectorType = "AGRICULTURAL"
	SectorForbidden     SectorType = "FORBIDDEN"
	SectorWormhole      SectorType = "WORMHOLE"
)

// Hazardous reports whether entering a sector of this type is a hazard encounter.
func (t SectorType) Hazardous() bool {
	switch t {
	case SectorBlackHole, SectorNebula, SectorAsteroidField, SectorWormhole:
		return true
	}
	return false
}

type Sector struct {
	ID             int             `json:"id"`
	Name           string          `json:"name"`
	Type           SectorType      `json:"type"`
	HazardLevel    int             `json:"hazardLevel"`
	RadiationLevel float64         `json:"radiationLevel"`
	PlayersPresent []PresenceEntry `json:"playersPresent"`
}

// PresenceEntry is the denormalized view of a player inside a sector.
type PresenceEntry struct {
	PlayerID  uuid.UUID  `json:"playerId"`
	Username  string     `json:"username"`
	ShipID    *uuid.UUID `json:"shipId,omitempty"`
	ShipName  string     `json:"shipName,omitempty"`
	ShipType  ShipType   `json:"shipType,omitempty"`
	TeamID    *uuid.UUID `json:"teamId,omitempty"`
	ArrivedAt time.Time  `json:"arrivedAt"`
}

// Without returns the presence list minus the given player.
func Without(entries []PresenceEntry, playerID uuid.UUID) []PresenceEntry {
	out := make([]PresenceEntry, 0, len(entries))
	for _, e := range entries {
		if e.PlayerID != playerID {
			out = append(out, e)
		}
	}
	return out
}

// Contains reports whether the player is listed.
func Contains(entries []PresenceEntry, playerID uuid.UUID) bool {
	for _, e := range entries {
		if e.PlayerID == playerID {
			return true
		}
	}
	return false
}

type Warp struct {
	SourceSectorID      int `json:"sourceSectorId"`
	DestinationSectorID int `json:"destinationSectorId"`
	TurnCost            int `json:"turnCost"`
}

type TunnelType string

const (
	TunnelNatural    TunnelType = "NATURAL"
	TunnelArtificial TunnelType = "ARTIFICIAL"
	TunnelStandard   TunnelType = "STANDARD"
	TunnelQuantum    TunnelType = "QUANTUM"
	TunnelAncient    TunnelType = "ANCIENT"
	TunnelUnstable   TunnelType = "UNSTABLE"
	TunnelOneWay     TunnelType = "ONE_WAY"
)

type TunnelStatus string

const (
	TunnelActive      TunnelStatus = "ACTIVE"
	TunnelDegrading   TunnelStatus = "DEGRADING"
	TunnelCollapsed   TunnelStatus = "COLLAPSED"
	TunnelMaintenance TunnelStatus = "MAINTENANCE"
	TunnelForming     TunnelStatus = "FORMING"
)

type Tunnel struct {
	ID                  uuid.UUID    `json:"id"`
	Name                string       `json:"name"`
	OriginSectorID      int          `json:"originSectorId"`
	DestinationSectorID int          `json:"destinationSectorId"`
	Type                TunnelType   `json:"type"`
	Status              TunnelStatus `json:"status"`
	IsBidirectional     bool         `json:"isBidirectional"`
	Stability           float64      `json:"stability"`
	TurnCost            int          `json:"turnCost"`
	MaxUses             *int         `json:"maxUses,omitempty"`
	CurrentUses         int          `json:"currentUses"`
	LastUsedAt          *time.Time   `json:"lastUsedAt,omitempty"`
}

// Usable reports whether the tunnel can be traversed at all.
func (t *Tunnel) Usable() bool {
	if t.Status != TunnelActive {
		return false
	}
	return t.MaxUses == nil || t.CurrentUses < *t.MaxUses
}

// Reversible reports whether the tunnel can be entered from its destination.
func (t *Tunnel) Reversible() bool {
	return t.IsBidirectional && t.Type != TunnelOneWay
}

// RequiresWarpCapability reports whether only warp-capable ships may transit.
func (t *Tunnel) RequiresWarpCapability() bool {
	return t.Type == TunnelQuantum || t.Type == TunnelUnstable
}

// UsesRemaining returns the remaining transits, false when unlimited.
func (t *Tunnel) UsesRemaining() (int, bool) {
	if t.MaxUses == nil {
		return 0, false
	}
	return *t.MaxUses - t.CurrentUses, true
}
