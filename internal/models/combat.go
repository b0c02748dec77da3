package models

import (
	"time"

	"github.com/google/uuid"
)

type TargetType string

const (
	TargetShip   TargetType = "ship"
	TargetPlanet TargetType = "planet"
	TargetPort   TargetType = "port"
)

type CombatType string

const (
	CombatShipVsShip       CombatType = "ship_vs_ship"
	CombatPlanetaryAssault CombatType = "planetary_assault"
	CombatPortRaid         CombatType = "port_raid"
)

type CombatOutcome string

const (
	OutcomeOngoing     CombatOutcome = "ongoing"
	OutcomeAttackerWin CombatOutcome = "attacker_win"
	OutcomeDefenderWin CombatOutcome = "defender_win"
	OutcomeDraw        CombatOutcome = "draw"
)

func (o CombatOutcome) Terminal() bool {
	return o != OutcomeOngoing
}

type CombatLog struct {
	ID               uuid.UUID      `json:"id"`
	Type             CombatType     `json:"type"`
	SectorID         int            `json:"sectorId"`
	AttackerID       uuid.UUID      `json:"attackerId"`
	AttackerName     string         `json:"attackerName"`
	AttackerShipID   uuid.UUID      `json:"attackerShipId"`
	AttackerShipName string         `json:"attackerShipName"`
	TargetType       TargetType     `json:"targetType"`
	TargetID         uuid.UUID      `json:"targetId"`
	DefenderID       *uuid.UUID     `json:"defenderId,omitempty"`
	DefenderName     string         `json:"defenderName"`
	DefenseRating    int            `json:"defenseRating"`
	AttackerDamage   int            `json:"attackerDamageDealt"`
	DefenderDamage   int            `json:"defenderDamageDealt"`
	RoundsFought     int            `json:"roundsFought"`
	Outcome          CombatOutcome  `json:"outcome"`
	CreditsLooted    int            `json:"creditsLooted"`
	CargoLooted      map[string]int `json:"cargoLooted"`
	StartedAt        time.Time      `json:"startedAt"`
	LastRoundAt      time.Time      `json:"lastRoundAt"`
	EndedAt          *time.Time     `json:"endedAt,omitempty"`
}

// Duration is the elapsed combat time, measured to the end when finished.
func (c *CombatLog) Duration(now time.Time) time.Duration {
	if c.EndedAt != nil {
		return c.EndedAt.Sub(c.StartedAt)
	}
	return now.Sub(c.StartedAt)
}

type CombatStats struct {
	CombatID        uuid.UUID `json:"combatId"`
	RoundNumber     int       `json:"roundNumber"`
	AttackerHits    int       `json:"attackerHits"`
	DefenderHits    int       `json:"defenderHits"`
	AttackerDamage  int       `json:"attackerDamage"`
	DefenderDamage  int       `json:"defenderDamage"`
	AttackerShields int       `json:"attackerShields"`
	AttackerArmor   int       `json:"attackerArmor"`
	DefenderShields int       `json:"defenderShields"`
	DefenderArmor   int       `json:"defenderArmor"`
	CriticalHit     bool      `json:"criticalHit"`
	CreatedAt       time.Time `json:"createdAt"`
}
