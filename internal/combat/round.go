package combat

import (
	"sectorwars-server/internal/models"
	"sectorwars-server/internal/random"
)

const (
	shipAccuracy   = 0.7
	npcAccuracy    = 0.6
	criticalChance = 0.1
	damagePerGun   = 10
)

// Side is one combatant's fighting state for a single round.
type Side struct {
	Shields  int
	Armor    int
	Accuracy float64
	// HitDamage is the damage one hit deals before a critical doubling.
	HitDamage int
}

// ShipSide builds a side from a ship's current stats.
func ShipSide(s *models.Ship) Side {
	return Side{
		Shields:   s.Shields,
		Armor:     s.Armor,
		Accuracy:  shipAccuracy + s.CurrentSpeed/1000,
		HitDamage: s.Guns * damagePerGun,
	}
}

// Round is the result of one exchange of fire. Sides hold the post-round
// shields and armor, floored at 0.
type Round struct {
	Attacker       Side
	Defender       Side
	AttackerHits   int
	DefenderHits   int
	AttackerDamage int
	DefenderDamage int
	Critical       bool
}

// Outcome reports the combat state after this round.
func (r Round) Outcome() models.CombatOutcome {
	switch {
	case r.Attacker.Armor <= 0 && r.Defender.Armor <= 0:
		return models.OutcomeDraw
	case r.Defender.Armor <= 0:
		return models.OutcomeAttackerWin
	case r.Attacker.Armor <= 0:
		return models.OutcomeDefenderWin
	}
	return models.OutcomeOngoing
}

// SimulateRound resolves one exchange of fire. The attacker rolls first, then
// the defender returns fire if it entered the round with armor left. Both hits
// land together, so both sides can fall in the same round. Given the same
// sides and the same sequence of rolls the result is identical.
func SimulateRound(rng random.Source, attacker, defender Side) Round {
	r := Round{Attacker: attacker, Defender: defender}

	if damage, crit, hit := fire(rng, attacker); hit {
		r.AttackerHits = 1
		r.AttackerDamage = damage
		r.Critical = crit
	}
	if defender.Armor > 0 {
		if damage, crit, hit := fire(rng, defender); hit {
			r.DefenderHits = 1
			r.DefenderDamage = damage
			r.Critical = r.Critical || crit
		}
	}

	r.Defender = absorb(r.Defender, r.AttackerDamage)
	r.Attacker = absorb(r.Attacker, r.DefenderDamage)
	return r
}

func fire(rng random.Source, s Side) (damage int, crit, hit bool) {
	if rng.Float64() >= s.Accuracy {
		return 0, false, false
	}
	damage = s.HitDamage
	if rng.Float64() < criticalChance {
		damage *= 2
		crit = true
	}
	return damage, crit, true
}

// absorb applies damage to shields first and the rest to armor.
func absorb(s Side, damage int) Side {
	blocked := min(damage, s.Shields)
	s.Shields -= blocked
	s.Armor = max(0, s.Armor-(damage-blocked))
	return s
}
