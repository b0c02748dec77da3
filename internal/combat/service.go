package combat

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"sectorwars-server/internal/events"
	"sectorwars-server/internal/models"
	"sectorwars-server/internal/random"
	"sectorwars-server/internal/shared/errors"
	"sectorwars-server/internal/storage"

	"github.com/google/uuid"
)

const (
	defaultRoundInterval = 5 * time.Second
	defaultHistoryLimit  = 20
)

type Service struct {
	store         storage.Store
	publisher     events.Publisher
	rand          random.Factory
	now           func() time.Time
	roundInterval time.Duration
	logger        *slog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRoundInterval sets the minimum spacing between rounds of one combat.
func WithRoundInterval(d time.Duration) Option {
	return func(s *Service) { s.roundInterval = d }
}

func NewService(store storage.Store, publisher events.Publisher, rng random.Factory, logger *slog.Logger, opts ...Option) *Service {
	logger.Debug("Initializing combat service")

	s := &Service{
		store:         store,
		publisher:     publisher,
		rand:          rng,
		now:           time.Now,
		roundInterval: defaultRoundInterval,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RoundInterval is the minimum spacing between two rounds of one combat.
func (s *Service) RoundInterval() time.Duration {
	return s.roundInterval
}

// InitiateCombat opens a combat against a ship, planet or port in the
// attacker's sector and fights the first round in the same unit of work.
func (s *Service) InitiateCombat(ctx context.Context, attackerID uuid.UUID, targetType models.TargetType, targetID uuid.UUID) (*InitiateResult, error) {
	logger := s.logger.With(
		"component", "combat_service",
		"operation", "initiate_combat",
		"attacker_id", attackerID,
		"target_type", targetType,
		"target_id", targetID,
	)

	var result *InitiateResult
	var out []events.Event

	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		result, out = nil, nil

		players := []uuid.UUID{attackerID}
		if targetType == models.TargetShip {
			peek, err := tx.GetShip(ctx, targetID)
			if err != nil {
				return err
			}
			if peek.OwnerID != attackerID {
				players = append(players, peek.OwnerID)
			}
		}
		locked, err := lockPlayers(ctx, tx, players)
		if err != nil {
			return err
		}
		attacker := locked[attackerID]

		ship, err := attackerShip(ctx, tx, attacker)
		if err != nil {
			return err
		}

		target, err := resolveTarget(ctx, tx, ship, targetType, targetID)
		if err != nil {
			return err
		}

		now := s.now()
		log := &models.CombatLog{
			ID:               uuid.New(),
			Type:             target.CombatType(),
			SectorID:         ship.SectorID,
			AttackerID:       attacker.ID,
			AttackerName:     attacker.Username,
			AttackerShipID:   ship.ID,
			AttackerShipName: ship.Name,
			TargetType:       target.Type,
			TargetID:         target.ID(),
			DefenderID:       target.OwnerID(),
			DefenderName:     target.Name(),
			DefenseRating:    target.Defense,
			Outcome:          models.OutcomeOngoing,
			CargoLooted:      map[string]int{},
			StartedAt:        now,
			LastRoundAt:      now,
		}
		if err := tx.InsertCombat(ctx, log); err != nil {
			return err
		}

		out, err = s.fight(ctx, tx, log, locked, now, logger)
		if err != nil {
			return err
		}

		result = &InitiateResult{
			CombatID: log.ID,
			Status:   StatusInitiated,
			Message:  fmt.Sprintf("Combat initiated against %s", target.Type),
		}
		logger.Info("Combat initiated", "combat_id", log.ID, "combat_type", log.Type, "defense_rating", log.DefenseRating)
		return nil
	})
	if err != nil {
		logger.Debug("Combat rejected", "error", err)
		return nil, err
	}

	events.Emit(ctx, s.publisher, logger, out...)
	return result, nil
}

// AdvanceCombat fights the next round of an ongoing combat regardless of
// pacing. It fails with invalid_state once the combat has ended.
func (s *Service) AdvanceCombat(ctx context.Context, combatID uuid.UUID) (*models.CombatStats, error) {
	logger := s.logger.With("component", "combat_service", "operation", "advance_combat", "combat_id", combatID)

	var round *models.CombatStats
	var out []events.Event

	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		round, out = nil, nil

		log, err := tx.LockCombat(ctx, combatID)
		if err != nil {
			return err
		}
		if log.Outcome.Terminal() {
			return errors.InvalidStatef("combat %s already ended as %s", log.ID, log.Outcome)
		}
		out, err = s.advance(ctx, tx, log, logger)
		if err != nil {
			return err
		}
		rounds, err := tx.ListRounds(ctx, log.ID)
		if err != nil {
			return err
		}
		round = &rounds[len(rounds)-1]
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, s.publisher, logger, out...)
	return round, nil
}

// advanceIfDue fights one round if the combat is still ongoing and its last
// round is at or before cutoff. It reports whether a round was fought; a
// combat advanced or ended by a concurrent caller is skipped.
func (s *Service) advanceIfDue(ctx context.Context, combatID uuid.UUID, cutoff time.Time) (bool, error) {
	logger := s.logger.With("component", "combat_service", "operation", "advance_due_combat", "combat_id", combatID)

	var out []events.Event
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		out = nil

		log, err := tx.LockCombat(ctx, combatID)
		if err != nil {
			return err
		}
		if log.Outcome.Terminal() || log.LastRoundAt.After(cutoff) {
			return nil
		}
		out, err = s.advance(ctx, tx, log, logger)
		return err
	})
	if err != nil {
		return false, err
	}

	events.Emit(ctx, s.publisher, logger, out...)
	return len(out) > 0, nil
}

// advance locks the participants of a locked, ongoing combat and fights one round.
func (s *Service) advance(ctx context.Context, tx storage.Tx, log *models.CombatLog, logger *slog.Logger) ([]events.Event, error) {
	players := []uuid.UUID{log.AttackerID}
	if log.Type == models.CombatShipVsShip && log.DefenderID != nil {
		players = append(players, *log.DefenderID)
	}
	locked, err := lockPlayers(ctx, tx, players)
	if err != nil {
		return nil, err
	}
	return s.fight(ctx, tx, log, locked, s.now(), logger)
}

// fight simulates the next round of log, writes the round, the ships' state
// and, when the round ends the combat, the outcome and loot. Participating
// players must already be locked.
func (s *Service) fight(ctx context.Context, tx storage.Tx, log *models.CombatLog, players map[uuid.UUID]*models.Player, now time.Time, logger *slog.Logger) ([]events.Event, error) {
	rounds, err := tx.ListRounds(ctx, log.ID)
	if err != nil {
		return nil, err
	}

	attackerShip, err := tx.LockShip(ctx, log.AttackerShipID)
	if err != nil {
		return nil, err
	}
	attacker := ShipSide(attackerShip)

	var defenderShip *models.Ship
	var defender Side
	if log.TargetType == models.TargetShip {
		if defenderShip, err = tx.LockShip(ctx, log.TargetID); err != nil {
			return nil, err
		}
		defender = ShipSide(defenderShip)
	} else {
		defender = npcSide(log.Type, log.DefenseRating)
	}

	if n := len(rounds); n > 0 {
		last := rounds[n-1]
		attacker.Shields, attacker.Armor = last.AttackerShields, last.AttackerArmor
		defender.Shields, defender.Armor = last.DefenderShields, last.DefenderArmor
	}

	r := SimulateRound(s.rand(), attacker, defender)

	stats := &models.CombatStats{
		CombatID:        log.ID,
		RoundNumber:     len(rounds) + 1,
		AttackerHits:    r.AttackerHits,
		DefenderHits:    r.DefenderHits,
		AttackerDamage:  r.AttackerDamage,
		DefenderDamage:  r.DefenderDamage,
		AttackerShields: r.Attacker.Shields,
		AttackerArmor:   r.Attacker.Armor,
		DefenderShields: r.Defender.Shields,
		DefenderArmor:   r.Defender.Armor,
		CriticalHit:     r.Critical,
		CreatedAt:       now,
	}

	log.AttackerDamage += r.AttackerDamage
	log.DefenderDamage += r.DefenderDamage
	log.RoundsFought = stats.RoundNumber
	log.LastRoundAt = now

	attackerShip.Shields, attackerShip.Armor = r.Attacker.Shields, r.Attacker.Armor
	if defenderShip != nil {
		defenderShip.Shields, defenderShip.Armor = r.Defender.Shields, r.Defender.Armor
	}

	outcome := r.Outcome()
	if outcome.Terminal() {
		log.Outcome = outcome
		log.EndedAt = &now
		// Only ship duels destroy ships; a failed raid or assault leaves the
		// attacker's hull at 0 armor.
		if log.Type == models.CombatShipVsShip {
			if attackerShip.Armor <= 0 {
				attackerShip.Destroy(now)
			}
			if defenderShip != nil && defenderShip.Armor <= 0 {
				defenderShip.Destroy(now)
			}
		}
		if outcome == models.OutcomeAttackerWin {
			if err := s.loot(ctx, tx, log, players); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.FinishRound(ctx, log, stats); err != nil {
		return nil, err
	}
	if err := tx.UpdateShip(ctx, attackerShip); err != nil {
		return nil, err
	}
	if defenderShip != nil {
		if err := tx.UpdateShip(ctx, defenderShip); err != nil {
			return nil, err
		}
	}

	sectorID := log.SectorID
	out := []events.Event{{
		Type:       events.TypeCombatRound,
		PlayerID:   &log.AttackerID,
		SectorID:   &sectorID,
		OccurredAt: now,
		Payload:    *stats,
	}}
	if outcome.Terminal() {
		out = append(out, events.Event{
			Type:       events.TypeCombatEnded,
			PlayerID:   &log.AttackerID,
			SectorID:   &sectorID,
			OccurredAt: now,
			Payload: EndedPayload{
				CombatID:      log.ID,
				Outcome:       log.Outcome,
				RoundsFought:  log.RoundsFought,
				CreditsLooted: log.CreditsLooted,
				CargoLooted:   log.CargoLooted,
			},
		})
		logger.Info("Combat ended",
			"combat_id", log.ID,
			"outcome", log.Outcome,
			"rounds", log.RoundsFought,
			"credits_looted", log.CreditsLooted)
	}
	return out, nil
}

// loot transfers credits to the attacker after a clean win.
func (s *Service) loot(ctx context.Context, tx storage.Tx, log *models.CombatLog, players map[uuid.UUID]*models.Player) error {
	attacker := players[log.AttackerID]

	switch log.Type {
	case models.CombatShipVsShip:
		if log.DefenderID == nil {
			return nil
		}
		defender, ok := players[*log.DefenderID]
		if !ok {
			return nil
		}
		log.CreditsLooted = shipLoot(defender.Credits)
		defender.Credits -= log.CreditsLooted
		if err := tx.UpdatePlayer(ctx, defender); err != nil {
			return err
		}
	case models.CombatPortRaid:
		port, err := tx.GetPort(ctx, log.TargetID)
		if err != nil {
			return err
		}
		log.CreditsLooted = portLoot(port.Class)
	default:
		return nil
	}

	attacker.Credits += log.CreditsLooted
	return tx.UpdatePlayer(ctx, attacker)
}

// lockPlayers locks the given players in ascending id order.
func lockPlayers(ctx context.Context, tx storage.Tx, ids []uuid.UUID) (map[uuid.UUID]*models.Player, error) {
	ids = slices.Clone(ids)
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	ids = slices.Compact(ids)

	locked := make(map[uuid.UUID]*models.Player, len(ids))
	for _, id := range ids {
		p, err := tx.LockPlayer(ctx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = p
	}
	return locked, nil
}

func attackerShip(ctx context.Context, tx storage.Tx, player *models.Player) (*models.Ship, error) {
	if player.CurrentShipID == nil {
		return nil, errors.InvalidStatef("player %s has no active ship", player.ID)
	}
	ship, err := tx.GetShip(ctx, *player.CurrentShipID)
	if err != nil {
		return nil, err
	}
	if !ship.IsActive {
		return nil, errors.InvalidStatef("player %s has no active ship", player.ID)
	}
	return ship, nil
}

// GetCombatStatus returns a combat and its rounds. It never fights a round.
func (s *Service) GetCombatStatus(ctx context.Context, combatID uuid.UUID) (*Status, error) {
	var status *Status
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		log, err := tx.GetCombat(ctx, combatID)
		if err != nil {
			return err
		}
		rounds, err := tx.ListRounds(ctx, combatID)
		if err != nil {
			return err
		}
		status = newStatus(log, rounds, s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

// ListHistory returns the player's most recent combats, newest first.
func (s *Service) ListHistory(ctx context.Context, playerID uuid.UUID, limit int) ([]models.CombatLog, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	var logs []models.CombatLog
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		logs, err = tx.ListCombatsForPlayer(ctx, playerID, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []models.CombatLog{}
	}
	return logs, nil
}
