package combat

import (
	"time"

	"sectorwars-server/internal/models"

	"github.com/google/uuid"
)

const (
	StatusInitiated = "initiated"
	StatusOngoing   = "ongoing"
	StatusCompleted = "completed"

	// WinnerDraw is reported as the winner of a drawn combat.
	WinnerDraw = "draw"
)

type InitiateResult struct {
	CombatID uuid.UUID `json:"combatId"`
	Status   string    `json:"status"`
	Message  string    `json:"message"`
}

// Status is the read-only view of a combat and every round fought so far.
type Status struct {
	CombatID       uuid.UUID            `json:"combatId"`
	Type           models.CombatType    `json:"combatType"`
	Status         string               `json:"status"`
	Outcome        models.CombatOutcome `json:"outcome"`
	Rounds         []models.CombatStats `json:"rounds"`
	Winner         *string              `json:"winner"`
	CombatDuration int                  `json:"combatDuration"`
	CreditsLooted  int                  `json:"creditsLooted"`
	CargoLooted    map[string]int       `json:"cargoLooted"`
}

// EndedPayload is published when a combat reaches a terminal outcome.
type EndedPayload struct {
	CombatID      uuid.UUID            `json:"combatId"`
	Outcome       models.CombatOutcome `json:"outcome"`
	RoundsFought  int                  `json:"roundsFought"`
	CreditsLooted int                  `json:"creditsLooted"`
	CargoLooted   map[string]int       `json:"cargoLooted"`
}

func newStatus(c *models.CombatLog, rounds []models.CombatStats, now time.Time) *Status {
	st := &Status{
		CombatID:       c.ID,
		Type:           c.Type,
		Status:         StatusOngoing,
		Outcome:        c.Outcome,
		Rounds:         rounds,
		CombatDuration: int(c.Duration(now).Seconds()),
		CreditsLooted:  c.CreditsLooted,
		CargoLooted:    c.CargoLooted,
	}
	if st.Rounds == nil {
		st.Rounds = []models.CombatStats{}
	}
	if st.CargoLooted == nil {
		st.CargoLooted = map[string]int{}
	}

	var winner string
	switch c.Outcome {
	case models.OutcomeOngoing:
		return st
	case models.OutcomeAttackerWin:
		winner = c.AttackerID.String()
	case models.OutcomeDefenderWin:
		winner = c.TargetID.String()
		if c.DefenderID != nil {
			winner = c.DefenderID.String()
		}
	case models.OutcomeDraw:
		winner = WinnerDraw
	}
	st.Status = StatusCompleted
	st.Winner = &winner
	return st
}
