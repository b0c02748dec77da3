package combat

import (
	"testing"

	"sectorwars-server/internal/models"
	"sectorwars-server/internal/random"

	"pgregory.net/rapid"
)

func TestSimulateRound(t *testing.T) {
	tests := []struct {
		name         string
		rolls        []float64
		attacker     Side
		defender     Side
		wantAttacker Side
		wantDefender Side
		wantHits     [2]int
		wantCrit     bool
		wantOutcome  models.CombatOutcome
	}{
		{
			name:         "critical hit destroys defender that still returns fire",
			rolls:        []float64{0},
			attacker:     Side{Armor: 100, Accuracy: 0.7, HitDamage: 100},
			defender:     Side{Armor: 50, Accuracy: 0.7, HitDamage: 10},
			wantAttacker: Side{Armor: 80, Accuracy: 0.7, HitDamage: 100},
			wantDefender: Side{Armor: 0, Accuracy: 0.7, HitDamage: 10},
			wantHits:     [2]int{1, 1},
			wantCrit:     true,
			wantOutcome:  models.OutcomeAttackerWin,
		},
		{
			name:         "both sides fall in the same round",
			rolls:        []float64{0.5},
			attacker:     Side{Armor: 10, Accuracy: 0.7, HitDamage: 100},
			defender:     Side{Armor: 10, Accuracy: 0.7, HitDamage: 100},
			wantAttacker: Side{Armor: 0, Accuracy: 0.7, HitDamage: 100},
			wantDefender: Side{Armor: 0, Accuracy: 0.7, HitDamage: 100},
			wantHits:     [2]int{1, 1},
			wantOutcome:  models.OutcomeDraw,
		},
		{
			name:         "both miss",
			rolls:        []float64{0.99},
			attacker:     Side{Armor: 100, Accuracy: 0.7, HitDamage: 100},
			defender:     Side{Armor: 50, Accuracy: 0.6, HitDamage: 10},
			wantAttacker: Side{Armor: 100, Accuracy: 0.7, HitDamage: 100},
			wantDefender: Side{Armor: 50, Accuracy: 0.6, HitDamage: 10},
			wantOutcome:  models.OutcomeOngoing,
		},
		{
			name:         "shields absorb first",
			rolls:        []float64{0.5},
			attacker:     Side{Shields: 20, Armor: 100, Accuracy: 0.7, HitDamage: 100},
			defender:     Side{Shields: 30, Armor: 200, Accuracy: 0.7, HitDamage: 50},
			wantAttacker: Side{Shields: 0, Armor: 70, Accuracy: 0.7, HitDamage: 100},
			wantDefender: Side{Shields: 0, Armor: 130, Accuracy: 0.7, HitDamage: 50},
			wantHits:     [2]int{1, 1},
			wantOutcome:  models.OutcomeOngoing,
		},
		{
			name:         "npc defender misses at its own accuracy",
			rolls:        []float64{0.65},
			attacker:     Side{Armor: 100, Accuracy: 0.7, HitDamage: 10},
			defender:     Side{Armor: 500, Accuracy: 0.6, HitDamage: 10},
			wantAttacker: Side{Armor: 100, Accuracy: 0.7, HitDamage: 10},
			wantDefender: Side{Armor: 490, Accuracy: 0.6, HitDamage: 10},
			wantHits:     [2]int{1, 0},
			wantOutcome:  models.OutcomeOngoing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := SimulateRound(&random.Script{Floats: tt.rolls}, tt.attacker, tt.defender)

			if r.Attacker != tt.wantAttacker {
				t.Errorf("attacker = %+v, want %+v", r.Attacker, tt.wantAttacker)
			}
			if r.Defender != tt.wantDefender {
				t.Errorf("defender = %+v, want %+v", r.Defender, tt.wantDefender)
			}
			if got := [2]int{r.AttackerHits, r.DefenderHits}; got != tt.wantHits {
				t.Errorf("hits = %v, want %v", got, tt.wantHits)
			}
			if r.Critical != tt.wantCrit {
				t.Errorf("critical = %v, want %v", r.Critical, tt.wantCrit)
			}
			if got := r.Outcome(); got != tt.wantOutcome {
				t.Errorf("outcome = %s, want %s", got, tt.wantOutcome)
			}
		})
	}
}

func TestRoundOutcome(t *testing.T) {
	tests := []struct {
		attacker, defender int
		want               models.CombatOutcome
	}{
		{10, 10, models.OutcomeOngoing},
		{10, 0, models.OutcomeAttackerWin},
		{0, 10, models.OutcomeDefenderWin},
		{0, 0, models.OutcomeDraw},
	}
	for _, tt := range tests {
		r := Round{Attacker: Side{Armor: tt.attacker}, Defender: Side{Armor: tt.defender}}
		if got := r.Outcome(); got != tt.want {
			t.Errorf("Outcome(%d, %d) = %s, want %s", tt.attacker, tt.defender, got, tt.want)
		}
	}
}

func TestPortTables(t *testing.T) {
	tests := []struct {
		class   models.PortClass
		defense int
		loot    int
	}{
		{"class_0", 0, 1000},
		{"class_1", 50, 1000},
		{"class_5", 250, 5000},
		{"class_9", 450, 9000},
		{models.PortSpecial, 500, 15000},
		{"class_12", 100, 1000},
		{"outpost", 100, 1000},
	}
	for _, tt := range tests {
		if got := portDefense(tt.class); got != tt.defense {
			t.Errorf("portDefense(%q) = %d, want %d", tt.class, got, tt.defense)
		}
		if got := portLoot(tt.class); got != tt.loot {
			t.Errorf("portLoot(%q) = %d, want %d", tt.class, got, tt.loot)
		}
	}
}

func TestShipLoot(t *testing.T) {
	for credits, want := range map[int]int{0: 0, 999: 99, 1000: 100, 100000: 10000, 5000000: 10000} {
		if got := shipLoot(credits); got != want {
			t.Errorf("shipLoot(%d) = %d, want %d", credits, got, want)
		}
	}
}

func TestSimulateRoundNeverHeals(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		side := func(label string) Side {
			return Side{
				Shields:   rapid.IntRange(0, 500).Draw(t, label+"_shields"),
				Armor:     rapid.IntRange(0, 500).Draw(t, label+"_armor"),
				Accuracy:  rapid.Float64Range(0, 1).Draw(t, label+"_accuracy"),
				HitDamage: rapid.IntRange(0, 200).Draw(t, label+"_damage"),
			}
		}
		attacker, defender := side("attacker"), side("defender")
		seed := rapid.Uint64().Draw(t, "seed")

		r := SimulateRound(random.Seeded(seed), attacker, defender)

		for _, pair := range [][2]Side{{attacker, r.Attacker}, {defender, r.Defender}} {
			before, after := pair[0], pair[1]
			if after.Shields < 0 || after.Armor < 0 {
				t.Fatalf("negative state after round: %+v", after)
			}
			if after.Shields > before.Shields || after.Armor > before.Armor {
				t.Fatalf("side healed: %+v -> %+v", before, after)
			}
		}
		if defender.Armor == 0 && r.DefenderHits != 0 {
			t.Fatalf("destroyed defender fired")
		}
	})
}
