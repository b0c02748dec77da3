package drone

import (
	"math"
	"slices"

	"sectorwars-server/internal/models"
)

const (
	upgradeFactor      = 1.1
	upgradeSpeedFactor = 1.05
	damagedThreshold   = 0.3
)

// Stats is a drone type's level 1 baseline.
type Stats struct {
	Health    int      `json:"health"`
	Attack    int      `json:"attack"`
	Defense   int      `json:"defense"`
	Speed     float64  `json:"speed"`
	Abilities []string `json:"abilities"`
}

var baseStats = map[models.DroneType]Stats{
	models.DroneAttack:  {Health: 80, Attack: 20, Defense: 5, Speed: 1.5, Abilities: []string{"precision_strike", "rapid_fire"}},
	models.DroneDefense: {Health: 150, Attack: 8, Defense: 20, Speed: 0.8, Abilities: []string{"shield_boost", "area_defense"}},
	models.DroneScout:   {Health: 60, Attack: 5, Defense: 8, Speed: 2.0, Abilities: []string{"enhanced_sensors", "stealth"}},
	models.DroneMining:  {Health: 100, Attack: 3, Defense: 10, Speed: 1.0, Abilities: []string{"resource_extraction", "cargo_boost"}},
	models.DroneRepair:  {Health: 90, Attack: 2, Defense: 12, Speed: 1.2, Abilities: []string{"repair_beam", "shield_recharge"}},
}

// BaseStats returns the baseline for a drone type.
func BaseStats(t models.DroneType) (Stats, bool) {
	s, ok := baseStats[t]
	if !ok {
		return Stats{}, false
	}
	s.Abilities = slices.Clone(s.Abilities)
	return s, true
}

// Types lists every drone type with its baseline.
func Types() map[models.DroneType]Stats {
	out := make(map[models.DroneType]Stats, len(baseStats))
	for t := range baseStats {
		out[t], _ = BaseStats(t)
	}
	return out
}

// takeDamage lowers health, marking the drone damaged below 30% and
// destroyed at 0. It reports whether the drone was destroyed.
func takeDamage(d *models.Drone, damage int) bool {
	d.Health = max(0, d.Health-damage)
	d.DamageTaken += damage
	if d.Health == 0 {
		d.Status = models.DroneDestroyed
		return true
	}
	if belowThreshold(d) {
		d.Status = models.DroneDamaged
	}
	return false
}

func belowThreshold(d *models.Drone) bool {
	return float64(d.Health) < float64(d.MaxHealth)*damagedThreshold
}

// repair restores health up to the maximum; a damaged drone back above the
// threshold returns to deployed.
func repair(d *models.Drone, amount int) {
	d.Health = min(d.MaxHealth, d.Health+amount)
	if d.Status == models.DroneDamaged && float64(d.Health) > float64(d.MaxHealth)*damagedThreshold {
		d.Status = models.DroneDeployed
	}
}

// upgrade raises the level, scales combat stats and fully heals.
func upgrade(d *models.Drone) {
	d.Level++
	d.MaxHealth = int(float64(d.MaxHealth) * upgradeFactor)
	d.Health = d.MaxHealth
	d.Attack = int(float64(d.Attack) * upgradeFactor)
	d.Defense = int(float64(d.Defense) * upgradeFactor)
	d.Speed = math.Round(d.Speed*upgradeSpeedFactor*100) / 100
	if d.Status == models.DroneDamaged {
		d.Status = models.DroneDeployed
	}
}
