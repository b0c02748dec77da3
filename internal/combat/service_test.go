package combat

import (
	"context"
	"testing"
	"time"

	"sectorwars-server/internal/events"
	"sectorwars-server/internal/models"
	"sectorwars-server/internal/random"
	"sectorwars-server/internal/shared/config"
	"sectorwars-server/internal/shared/errors"
	"sectorwars-server/internal/shared/logger"
	"sectorwars-server/internal/storage"
	"sectorwars-server/internal/storage/storagetest"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"pgregory.net/rapid"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newService(w *storagetest.World, rng random.Factory, c *clock) (*Service, *events.Recorder) {
	rec := &events.Recorder{}
	return NewService(w.Store, rec, rng, logger.Discard(), WithClock(c.now)), rec
}

func TestShipCombatToDestruction(t *testing.T) {
	w := storagetest.NewWorld(t)
	w.Sectors(1)
	attacker, attackerShip := w.Player("raider", 1, storagetest.PlayerOpts{
		Credits: 500,
		Ship:    models.Ship{Guns: 10, Armor: 100, BaseSpeed: 1, CurrentSpeed: 1},
	})
	defender, defenderShip := w.Player("trader", 1, storagetest.PlayerOpts{
		Credits: 1000,
		Ship:    models.Ship{Guns: 1, Armor: 50, Shields: 0},
	})

	c := &clock{t: storagetest.Epoch}
	svc, rec := newService(w, random.Fixed(&random.Script{Floats: []float64{0}}), c)

	res, err := svc.InitiateCombat(context.Background(), attacker.ID, models.TargetShip, defenderShip.ID)
	if err != nil {
		t.Fatalf("InitiateCombat() error = %v", err)
	}
	if res.Status != StatusInitiated {
		t.Errorf("status = %q, want %q", res.Status, StatusInitiated)
	}

	st, err := svc.GetCombatStatus(context.Background(), res.CombatID)
	if err != nil {
		t.Fatalf("GetCombatStatus() error = %v", err)
	}
	if st.Outcome != models.OutcomeAttackerWin || st.Status != StatusCompleted {
		t.Fatalf("outcome = %s/%s, want attacker_win/completed", st.Outcome, st.Status)
	}
	if len(st.Rounds) != 1 {
		t.Fatalf("rounds = %d, want 1", len(st.Rounds))
	}
	if st.Winner == nil || *st.Winner != attacker.ID.String() {
		t.Errorf("winner = %v, want %s", st.Winner, attacker.ID)
	}
	if st.CreditsLooted != 100 {
		t.Errorf("creditsLooted = %d, want 100", st.CreditsLooted)
	}
	if len(st.CargoLooted) != 0 {
		t.Errorf("cargoLooted = %v, want empty", st.CargoLooted)
	}

	ship := w.GetShip(defenderShip.ID)
	if ship.IsActive || ship.DestroyedAt == nil {
		t.Errorf("defender ship active=%v destroyedAt=%v, want destroyed", ship.IsActive, ship.DestroyedAt)
	}
	if !w.GetShip(attackerShip.ID).IsActive {
		t.Error("attacker ship destroyed")
	}
	if got := w.GetPlayer(attacker.ID).Credits; got != 600 {
		t.Errorf("attacker credits = %d, want 600", got)
	}
	if got := w.GetPlayer(defender.ID).Credits; got != 900 {
		t.Errorf("defender credits = %d, want 900", got)
	}

	if n := len(rec.OfType(events.TypeCombatRound)); n != 1 {
		t.Errorf("round events = %d, want 1", n)
	}
	if n := len(rec.OfType(events.TypeCombatEnded)); n != 1 {
		t.Errorf("ended events = %d, want 1", n)
	}
}

func TestPortRaidRoundsUntilLooted(t *testing.T) {
	w := storagetest.NewWorld(t)
	w.Sectors(1)
	attacker, ship := w.Player("raider", 1, storagetest.PlayerOpts{
		Credits: 0,
		Ship:    models.Ship{Guns: 10, Armor: 100},
	})
	port := w.Port(models.Port{Name: "Dock", SectorID: 1, Class: "class_2"})

	c := &clock{t: storagetest.Epoch}
	svc, _ := newService(w, random.Fixed(&random.Script{Floats: []float64{0}}), c)
	ctx := context.Background()

	res, err := svc.InitiateCombat(ctx, attacker.ID, models.TargetPort, port.ID)
	if err != nil {
		t.Fatalf("InitiateCombat() error = %v", err)
	}

	// Port class_2 has defense 100: 500 armor, hitting for 10 (20 on a critical).
	for i := 0; i < 2; i++ {
		c.t = c.t.Add(time.Second)
		if _, err := svc.AdvanceCombat(ctx, res.CombatID); err != nil {
			t.Fatalf("AdvanceCombat() round %d error = %v", i+2, err)
		}
	}

	st, err := svc.GetCombatStatus(ctx, res.CombatID)
	if err != nil {
		t.Fatalf("GetCombatStatus() error = %v", err)
	}
	if st.Outcome != models.OutcomeAttackerWin {
		t.Fatalf("outcome = %s, want attacker_win", st.Outcome)
	}
	wantArmor := []int{300, 100, 0}
	for i, r := range st.Rounds {
		if r.RoundNumber != i+1 {
			t.Errorf("round %d numbered %d", i, r.RoundNumber)
		}
		if r.DefenderArmor != wantArmor[i] {
			t.Errorf("round %d defender armor = %d, want %d", i+1, r.DefenderArmor, wantArmor[i])
		}
	}
	if st.CreditsLooted != 2000 {
		t.Errorf("creditsLooted = %d, want 2000", st.CreditsLooted)
	}
	if st.CombatDuration != 2 {
		t.Errorf("combatDuration = %d, want 2", st.CombatDuration)
	}
	if got := w.GetPlayer(attacker.ID).Credits; got != 2000 {
		t.Errorf("attacker credits = %d, want 2000", got)
	}
	// The port returns fire in all three rounds, including the one it falls in.
	if got := w.GetShip(ship.ID).Armor; got != 40 {
		t.Errorf("attacker armor = %d, want 40", got)
	}

	if _, err := svc.AdvanceCombat(ctx, res.CombatID); !errors.Is(err, errors.ErrorTypeInvalidState) {
		t.Fatalf("AdvanceCombat() after end error = %v, want invalid_state", err)
	}
	after, _ := svc.GetCombatStatus(ctx, res.CombatID)
	if len(after.Rounds) != 3 {
		t.Errorf("rounds after end = %d, want 3", len(after.Rounds))
	}
}

func TestInitiateCombatRejections(t *testing.T) {
	w := storagetest.NewWorld(t)
	w.Sectors(1, 2)
	attacker, ownShip := w.Player("raider", 1, storagetest.PlayerOpts{Ship: models.Ship{Guns: 5, Armor: 100}})
	shipless, _ := w.Player("walker", 1, storagetest.PlayerOpts{NoShip: true})
	_, farShip := w.Player("far", 2, storagetest.PlayerOpts{Ship: models.Ship{Armor: 100}})
	_, nearShip := w.Player("near", 1, storagetest.PlayerOpts{Ship: models.Ship{Armor: 100}})
	ownPlanet := w.Planet(models.Planet{Name: "Home", SectorID: 1, OwnerID: &attacker.ID})

	c := &clock{t: storagetest.Epoch}
	svc, _ := newService(w, random.Fixed(&random.Script{Floats: []float64{0.99}}), c)

	tests := []struct {
		name       string
		attackerID uuid.UUID
		targetType models.TargetType
		targetID   uuid.UUID
		want       errors.ErrorType
	}{
		{"target in another sector", attacker.ID, models.TargetShip, farShip.ID, errors.ErrorTypeInvalidState},
		{"own ship", attacker.ID, models.TargetShip, ownShip.ID, errors.ErrorTypeInvalidState},
		{"own planet", attacker.ID, models.TargetPlanet, ownPlanet.ID, errors.ErrorTypeInvalidState},
		{"attacker without ship", shipless.ID, models.TargetShip, nearShip.ID, errors.ErrorTypeInvalidState},
		{"missing port", attacker.ID, models.TargetPort, uuid.New(), errors.ErrorTypeNotFound},
		{"unknown target type", attacker.ID, "moon", uuid.New(), errors.ErrorTypeValidation},
		{"unknown attacker", uuid.New(), models.TargetShip, nearShip.ID, errors.ErrorTypeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.InitiateCombat(context.Background(), tt.attackerID, tt.targetType, tt.targetID)
			if got := errors.GetType(err); got != tt.want {
				t.Fatalf("error = %v (%s), want %s", err, got, tt.want)
			}
		})
	}

	history, err := svc.ListHistory(context.Background(), attacker.ID, 0)
	if err != nil {
		t.Fatalf("ListHistory() error = %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history = %d combats, want none after rejections", len(history))
	}
}

func TestPlanetDefense(t *testing.T) {
	w := storagetest.NewWorld(t)
	w.Sectors(1)
	team := uuid.New()
	owner, _ := w.Player("owner", 1, storagetest.PlayerOpts{TeamID: &team, Ship: models.Ship{Drones: 5}})
	mate, _ := w.Player("mate", 1, storagetest.PlayerOpts{TeamID: &team})
	enemy, _ := w.Player("enemy", 1, storagetest.PlayerOpts{})
	planet := w.Planet(models.Planet{Name: "Keep", SectorID: 1, OwnerID: &owner.ID})

	w.Deployment(models.DroneDeployment{DroneID: uuid.New(), PlayerID: owner.ID, TeamID: &team, SectorID: 1})
	w.Deployment(models.DroneDeployment{DroneID: uuid.New(), PlayerID: mate.ID, TeamID: &team, SectorID: 1})
	w.Deployment(models.DroneDeployment{DroneID: uuid.New(), PlayerID: enemy.ID, SectorID: 1})

	var got int
	w.Read(func(ctx context.Context, tx storage.Tx) error {
		var err error
		got, err = planetDefense(ctx, tx, &planet)
		return err
	})
	if got != 145 {
		t.Errorf("planetDefense() = %d, want 145", got)
	}

	unowned := models.Planet{SectorID: 1}
	w.Read(func(ctx context.Context, tx storage.Tx) error {
		var err error
		got, err = planetDefense(ctx, tx, &unowned)
		return err
	})
	if got != 100 {
		t.Errorf("planetDefense(unowned) = %d, want 100", got)
	}
}

func TestTickerPacesRounds(t *testing.T) {
	w := storagetest.NewWorld(t)
	w.Sectors(1)
	attacker, _ := w.Player("raider", 1, storagetest.PlayerOpts{Ship: models.Ship{Guns: 1, Armor: 100}})
	port := w.Port(models.Port{Name: "Fortress", SectorID: 1, Class: "class_9"})

	c := &clock{t: storagetest.Epoch}
	svc, _ := newService(w, random.Fixed(&random.Script{Floats: []float64{0.99}}), c)
	ticker := NewTicker(svc, w.Store, config.CombatConfig{TickInterval: time.Second, MaxConcurrent: 2}, logger.Discard())
	ctx := context.Background()

	res, err := svc.InitiateCombat(ctx, attacker.ID, models.TargetPort, port.ID)
	if err != nil {
		t.Fatalf("InitiateCombat() error = %v", err)
	}

	steps := []struct {
		advance time.Duration
		want    int
	}{
		{0, 0},
		{4 * time.Second, 0},
		{time.Second, 1},
		{0, 0},
		{5 * time.Second, 1},
	}
	for i, step := range steps {
		c.t = c.t.Add(step.advance)
		fought, err := ticker.Tick(ctx)
		if err != nil {
			t.Fatalf("Tick() step %d error = %v", i, err)
		}
		if fought != step.want {
			t.Errorf("Tick() step %d fought %d, want %d", i, fought, step.want)
		}
	}

	for i := 0; i < 3; i++ {
		st, err := svc.GetCombatStatus(ctx, res.CombatID)
		if err != nil {
			t.Fatalf("GetCombatStatus() error = %v", err)
		}
		if len(st.Rounds) != 3 {
			t.Fatalf("rounds = %d, want 3 (status must not fight)", len(st.Rounds))
		}
	}
}

func TestCombatRoundsAreMonotonic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		w := storagetest.NewWorld(rt)
		w.Sectors(1)
		attacker, _ := w.Player("a", 1, storagetest.PlayerOpts{
			Credits: rapid.IntRange(0, 200000).Draw(rt, "attacker_credits"),
			Ship: models.Ship{
				Guns:    rapid.IntRange(1, 20).Draw(rt, "attacker_guns"),
				Shields: rapid.IntRange(0, 200).Draw(rt, "attacker_shields"),
				Armor:   rapid.IntRange(1, 400).Draw(rt, "attacker_armor"),
			},
		})
		_, target := w.Player("d", 1, storagetest.PlayerOpts{
			Credits: rapid.IntRange(0, 200000).Draw(rt, "defender_credits"),
			Ship: models.Ship{
				Guns:    rapid.IntRange(1, 20).Draw(rt, "defender_guns"),
				Shields: rapid.IntRange(0, 200).Draw(rt, "defender_shields"),
				Armor:   rapid.IntRange(1, 400).Draw(rt, "defender_armor"),
			},
		})

		c := &clock{t: storagetest.Epoch}
		svc, rec := newService(w, random.SeededFactory(rapid.Uint64().Draw(rt, "seed")), c)
		ctx := context.Background()

		res, err := svc.InitiateCombat(ctx, attacker.ID, models.TargetShip, target.ID)
		if err != nil {
			rt.Fatalf("InitiateCombat() error = %v", err)
		}
		for i := 0; i < 500; i++ {
			if _, err := svc.AdvanceCombat(ctx, res.CombatID); err != nil {
				if !errors.Is(err, errors.ErrorTypeInvalidState) {
					rt.Fatalf("AdvanceCombat() error = %v", err)
				}
				break
			}
		}

		st, err := svc.GetCombatStatus(ctx, res.CombatID)
		if err != nil {
			rt.Fatalf("GetCombatStatus() error = %v", err)
		}
		if !st.Outcome.Terminal() {
			rt.Fatalf("combat still ongoing after %d rounds", len(st.Rounds))
		}
		for i, r := range st.Rounds {
			if r.RoundNumber != i+1 {
				rt.Fatalf("round %d numbered %d", i, r.RoundNumber)
			}
		}
		if n := len(rec.OfType(events.TypeCombatEnded)); n != 1 {
			rt.Fatalf("ended events = %d, want exactly 1", n)
		}
	})
}

func TestShipCombatDraw(t *testing.T) {
	w := storagetest.NewWorld(t)
	w.Sectors(1)
	attacker, attackerShip := w.Player("raider", 1, storagetest.PlayerOpts{
		Credits: 500,
		Ship:    models.Ship{Guns: 10, Armor: 50},
	})
	defender, defenderShip := w.Player("trader", 1, storagetest.PlayerOpts{
		Credits: 1000,
		Ship:    models.Ship{Guns: 10, Armor: 50},
	})

	c := &clock{t: storagetest.Epoch}
	svc, rec := newService(w, random.Fixed(&random.Script{Floats: []float64{0.5}}), c)

	res, err := svc.InitiateCombat(context.Background(), attacker.ID, models.TargetShip, defenderShip.ID)
	if err != nil {
		t.Fatalf("InitiateCombat() error = %v", err)
	}

	st, err := svc.GetCombatStatus(context.Background(), res.CombatID)
	if err != nil {
		t.Fatalf("GetCombatStatus() error = %v", err)
	}
	if st.Outcome != models.OutcomeDraw || st.Status != StatusCompleted {
		t.Fatalf("outcome = %s/%s, want draw/completed", st.Outcome, st.Status)
	}
	if st.Winner == nil || *st.Winner != WinnerDraw {
		t.Errorf("winner = %v, want %q", st.Winner, WinnerDraw)
	}
	r := st.Rounds[0]
	if r.AttackerHits != 1 || r.DefenderHits != 1 || r.AttackerArmor != 0 || r.DefenderArmor != 0 {
		t.Errorf("round = %+v, want both hit and both at 0 armor", r)
	}
	if st.CreditsLooted != 0 {
		t.Errorf("creditsLooted = %d, want 0", st.CreditsLooted)
	}

	for _, id := range []uuid.UUID{attackerShip.ID, defenderShip.ID} {
		if ship := w.GetShip(id); ship.IsActive || ship.DestroyedAt == nil {
			t.Errorf("ship %s active=%v, want destroyed", id, ship.IsActive)
		}
	}
	if got := w.GetPlayer(attacker.ID).Credits; got != 500 {
		t.Errorf("attacker credits = %d, want 500", got)
	}
	if got := w.GetPlayer(defender.ID).Credits; got != 1000 {
		t.Errorf("defender credits = %d, want 1000", got)
	}
	if n := len(rec.OfType(events.TypeCombatEnded)); n != 1 {
		t.Errorf("ended events = %d, want 1", n)
	}
}

func TestLostRaidKeepsShip(t *testing.T) {
	tests := []struct {
		name   string
		target func(w *storagetest.World) (models.TargetType, uuid.UUID)
	}{
		{"port raid", func(w *storagetest.World) (models.TargetType, uuid.UUID) {
			return models.TargetPort, w.Port(models.Port{Name: "Fortress", SectorID: 1, Class: "class_9"}).ID
		}},
		{"planetary assault", func(w *storagetest.World) (models.TargetType, uuid.UUID) {
			return models.TargetPlanet, w.Planet(models.Planet{Name: "Bastion", SectorID: 1}).ID
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := storagetest.NewWorld(t)
			w.Sectors(1)
			attacker, ship := w.Player("raider", 1, storagetest.PlayerOpts{
				Credits: 300,
				Ship:    models.Ship{Guns: 0, Armor: 10},
			})
			targetType, targetID := tt.target(w)

			c := &clock{t: storagetest.Epoch}
			svc, _ := newService(w, random.Fixed(&random.Script{Floats: []float64{0.5}}), c)

			res, err := svc.InitiateCombat(context.Background(), attacker.ID, targetType, targetID)
			if err != nil {
				t.Fatalf("InitiateCombat() error = %v", err)
			}
			st, err := svc.GetCombatStatus(context.Background(), res.CombatID)
			if err != nil {
				t.Fatalf("GetCombatStatus() error = %v", err)
			}
			if st.Outcome != models.OutcomeDefenderWin {
				t.Fatalf("outcome = %s, want defender_win", st.Outcome)
			}

			got := w.GetShip(ship.ID)
			if !got.IsActive || got.DestroyedAt != nil {
				t.Errorf("ship active=%v destroyedAt=%v, want still active", got.IsActive, got.DestroyedAt)
			}
			if got.Armor != 0 {
				t.Errorf("ship armor = %d, want 0", got.Armor)
			}
			if p := w.GetPlayer(attacker.ID); p.Credits != 300 || p.CurrentShipID == nil {
				t.Errorf("attacker credits=%d ship=%v, want 300 and a ship", p.Credits, p.CurrentShipID)
			}
		})
	}
}

// raid starts a class_1 port raid that, with every roll at 0.5, ends on the
// fifth round: the attacker deals 50 per round to 250 armor and takes 5.
func raid(t *testing.T) (*Service, *storagetest.World, *events.Recorder, uuid.UUID, uuid.UUID) {
	t.Helper()
	w := storagetest.NewWorld(t)
	w.Sectors(1)
	attacker, _ := w.Player("raider", 1, storagetest.PlayerOpts{Ship: models.Ship{Guns: 5, Armor: 100}})
	port := w.Port(models.Port{Name: "Dock", SectorID: 1, Class: "class_1"})

	c := &clock{t: storagetest.Epoch}
	svc, rec := newService(w, random.Fixed(&random.Script{Floats: []float64{0.5}}), c)
	res, err := svc.InitiateCombat(context.Background(), attacker.ID, models.TargetPort, port.ID)
	if err != nil {
		t.Fatalf("InitiateCombat() error = %v", err)
	}
	return svc, w, rec, attacker.ID, res.CombatID
}

func TestConcurrentAdvancesMatchSerialRun(t *testing.T) {
	ctx := context.Background()

	serial, _, _, _, serialID := raid(t)
	for {
		if _, err := serial.AdvanceCombat(ctx, serialID); err != nil {
			if !errors.Is(err, errors.ErrorTypeInvalidState) {
				t.Fatalf("AdvanceCombat() error = %v", err)
			}
			break
		}
	}
	want, err := serial.GetCombatStatus(ctx, serialID)
	if err != nil {
		t.Fatalf("GetCombatStatus() error = %v", err)
	}
	if len(want.Rounds) != 5 || want.Outcome != models.OutcomeAttackerWin {
		t.Fatalf("serial run = %d rounds %s, want 5 rounds attacker_win", len(want.Rounds), want.Outcome)
	}

	svc, w, rec, attackerID, combatID := raid(t)

	const callers = 16
	fought := make([]bool, callers)
	g, gctx := errgroup.WithContext(ctx)
	for i := range callers {
		g.Go(func() error {
			if i%2 == 0 {
				_, err := svc.AdvanceCombat(gctx, combatID)
				if errors.Is(err, errors.ErrorTypeInvalidState) {
					return nil
				}
				fought[i] = err == nil
				return err
			}
			ok, err := svc.advanceIfDue(gctx, combatID, storagetest.Epoch)
			fought[i] = ok
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent advance error = %v", err)
	}

	rounds := 0
	for _, ok := range fought {
		if ok {
			rounds++
		}
	}
	if rounds != len(want.Rounds)-1 {
		t.Errorf("callers fought %d rounds, want %d", rounds, len(want.Rounds)-1)
	}

	got, err := svc.GetCombatStatus(ctx, combatID)
	if err != nil {
		t.Fatalf("GetCombatStatus() error = %v", err)
	}
	if got.Outcome != want.Outcome || got.CreditsLooted != want.CreditsLooted {
		t.Errorf("outcome = %s looted %d, want %s looted %d", got.Outcome, got.CreditsLooted, want.Outcome, want.CreditsLooted)
	}
	if len(got.Rounds) != len(want.Rounds) {
		t.Fatalf("rounds = %d, want %d", len(got.Rounds), len(want.Rounds))
	}
	for i, r := range got.Rounds {
		exp := want.Rounds[i]
		if r.RoundNumber != i+1 || r.AttackerArmor != exp.AttackerArmor || r.DefenderArmor != exp.DefenderArmor {
			t.Errorf("round %d = #%d %d/%d, want #%d %d/%d",
				i, r.RoundNumber, r.AttackerArmor, r.DefenderArmor, exp.RoundNumber, exp.AttackerArmor, exp.DefenderArmor)
		}
	}

	if got := w.GetPlayer(attackerID).Credits; got != want.CreditsLooted {
		t.Errorf("attacker credits = %d, want %d looted once", got, want.CreditsLooted)
	}
	if n := len(rec.OfType(events.TypeCombatEnded)); n != 1 {
		t.Errorf("ended events = %d, want 1", n)
	}
}
