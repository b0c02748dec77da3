package models

import (
	"time"

	"github.com/google/uuid"
)

type DroneType string

const (
	DroneAttack  DroneType = "attack"
	DroneDefense DroneType = "defense"
	DroneScout   DroneType = "scout"
	DroneMining  DroneType = "mining"
	DroneRepair  DroneType = "repair"
)

type DroneStatus string

const (
	DroneIdle      DroneStatus = "idle"
	DroneDeployed  DroneStatus = "deployed"
	DroneReturning DroneStatus = "returning"
	DroneInCombat  DroneStatus = "combat"
	DroneDamaged   DroneStatus = "damaged"
	DroneDestroyed DroneStatus = "destroyed"
)

type Drone struct {
	ID            uuid.UUID   `json:"id"`
	PlayerID      uuid.UUID   `json:"playerId"`
	TeamID        *uuid.UUID  `json:"teamId,omitempty"`
	Type          DroneType   `json:"type"`
	Status        DroneStatus `json:"status"`
	Level         int         `json:"level"`
	Health        int         `json:"health"`
	MaxHealth     int         `json:"maxHealth"`
	Attack        int         `json:"attack"`
	Defense       int         `json:"defense"`
	Speed         float64     `json:"speed"`
	Abilities     []string    `json:"abilities"`
	SectorID      *int        `json:"sectorId,omitempty"`
	Kills         int         `json:"kills"`
	BattlesFought int         `json:"battlesFought"`
	DamageDealt   int         `json:"damageDealt"`
	DamageTaken   int         `json:"damageTaken"`
	CreatedAt     time.Time   `json:"createdAt"`
	DestroyedAt   *time.Time  `json:"destroyedAt,omitempty"`
}

func (d *Drone) Destroyed() bool {
	return d.Status == DroneDestroyed
}

// DeploymentDefense is the mission of drones guarding a sector.
const DeploymentDefense = "defense"

type DroneDeployment struct {
	ID             uuid.UUID  `json:"id"`
	DroneID        uuid.UUID  `json:"droneId"`
	PlayerID       uuid.UUID  `json:"playerId"`
	TeamID         *uuid.UUID `json:"teamId,omitempty"`
	SectorID       int        `json:"sectorId"`
	DeploymentType string     `json:"deploymentType"`
	TargetID       *uuid.UUID `json:"targetId,omitempty"`
	IsActive       bool       `json:"isActive"`
	DeployedAt     time.Time  `json:"deployedAt"`
	RecalledAt     *time.Time `json:"recalledAt,omitempty"`
}

type DroneCombat struct {
	ID              uuid.UUID          `json:"id"`
	AttackerDroneID uuid.UUID          `json:"attackerDroneId"`
	DefenderDroneID uuid.UUID          `json:"defenderDroneId"`
	SectorID        *int               `json:"sectorId,omitempty"`
	WinnerDroneID   *uuid.UUID         `json:"winnerDroneId,omitempty"`
	Rounds          []DroneCombatRound `json:"rounds"`
	AttackerDamage  int                `json:"attackerDamage"`
	DefenderDamage  int                `json:"defenderDamage"`
	CreatedAt       time.Time          `json:"createdAt"`
}

type DroneCombatRound struct {
	Round          int  `json:"round"`
	AttackerDamage int  `json:"attackerDamage"`
	DefenderDamage int  `json:"defenderDamage"`
	AttackerHealth int  `json:"attackerHealth"`
	DefenderHealth int  `json:"defenderHealth"`
	SpeedBonus     bool `json:"speedBonus"`
}
