package drone

import (
	"sectorwars-server/internal/models"
	"sectorwars-server/internal/random"
)

const (
	maxFightRounds  = 20
	damageJitter    = 3
	speedBonusRoll  = 0.3
	speedBonusRatio = 1.5
)

// FightResult is the outcome of a drone battle. Winner is nil on a draw.
type FightResult struct {
	Winner         *models.Drone
	Rounds         []models.DroneCombatRound
	AttackerDamage int
	DefenderDamage int
}

// Fight runs the battle between two drones, updating both in place. Both
// sides strike every round; the battle stops when one is destroyed or after
// 20 rounds.
func Fight(rng random.Source, attacker, defender *models.Drone) FightResult {
	var res FightResult

	for round := 1; round <= maxFightRounds && attacker.Health > 0 && defender.Health > 0; round++ {
		aDmg := strike(rng, attacker, defender)
		dDmg := strike(rng, defender, attacker)

		bonus := false
		if attacker.Speed > defender.Speed && rng.Float64() < speedBonusRoll {
			aDmg, bonus = int(float64(aDmg)*speedBonusRatio), true
		}
		if defender.Speed > attacker.Speed && rng.Float64() < speedBonusRoll {
			dDmg, bonus = int(float64(dDmg)*speedBonusRatio), true
		}

		defenderDown := takeDamage(defender, aDmg)
		attackerDown := takeDamage(attacker, dDmg)
		attacker.DamageDealt += aDmg
		defender.DamageDealt += dDmg
		res.AttackerDamage += aDmg
		res.DefenderDamage += dDmg

		res.Rounds = append(res.Rounds, models.DroneCombatRound{
			Round:          round,
			AttackerDamage: aDmg,
			DefenderDamage: dDmg,
			AttackerHealth: attacker.Health,
			DefenderHealth: defender.Health,
			SpeedBonus:     bonus,
		})

		if defenderDown || attackerDown {
			break
		}
	}

	attacker.BattlesFought++
	defender.BattlesFought++

	switch {
	case attacker.Health > 0 && defender.Health == 0:
		res.Winner = attacker
	case defender.Health > 0 && attacker.Health == 0:
		res.Winner = defender
	}
	if res.Winner != nil {
		res.Winner.Kills++
		res.Winner.Status = models.DroneDeployed
	}
	for _, d := range []*models.Drone{attacker, defender} {
		if d != res.Winner && d.Health > 0 && !belowThreshold(d) {
			d.Status = models.DroneDeployed
		}
	}
	return res
}

func strike(rng random.Source, from, to *models.Drone) int {
	jitter := random.IntRange(rng, -damageJitter, damageJitter)
	return max(1, from.Attack-to.Defense/2+jitter)
}
