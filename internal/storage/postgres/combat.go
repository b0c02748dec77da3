package postgres

import (
	"context"
	"encoding/json"
	"time"

	"sectorwars-server/internal/models"
	"sectorwars-server/internal/shared/errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const combatColumns = `id, combat_type, sector_id, attacker_id, attacker_name, attacker_ship_id,
	attacker_ship_name, target_type, target_id, defender_id, defender_name, defense_rating,
	attacker_damage_dealt, defender_damage_dealt, rounds_fought, outcome, credits_looted,
	cargo_looted, started_at, last_round_at, ended_at`

func scanCombat(row scanner) (*models.CombatLog, error) {
	var c models.CombatLog
	var cargo []byte
	err := row.Scan(&c.ID, &c.Type, &c.SectorID, &c.AttackerID, &c.AttackerName, &c.AttackerShipID,
		&c.AttackerShipName, &c.TargetType, &c.TargetID, &c.DefenderID, &c.DefenderName, &c.DefenseRating,
		&c.AttackerDamage, &c.DefenderDamage, &c.RoundsFought, &c.Outcome, &c.CreditsLooted,
		&cargo, &c.StartedAt, &c.LastRoundAt, &c.EndedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(cargo, &c.CargoLooted); err != nil {
		return nil, errors.WrapInternal("decode cargo_looted", err)
	}
	return &c, nil
}

func encodeCargo(cargo map[string]int) ([]byte, error) {
	if cargo == nil {
		cargo = map[string]int{}
	}
	b, err := json.Marshal(cargo)
	if err != nil {
		return nil, errors.WrapInternal("encode cargo_looted", err)
	}
	return b, nil
}

func (t *tx) InsertCombat(ctx context.Context, c *models.CombatLog) error {
	cargo, err := encodeCargo(c.CargoLooted)
	if err != nil {
		return err
	}
	_, err = t.exec.ExecContext(ctx, `
		INSERT INTO combat_logs (id, combat_type, sector_id, attacker_id, attacker_name, attacker_ship_id,
			attacker_ship_name, target_type, target_id, defender_id, defender_name, defense_rating,
			outcome, cargo_looted, started_at, last_round_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		c.ID, c.Type, c.SectorID, c.AttackerID, c.AttackerName, c.AttackerShipID,
		c.AttackerShipName, c.TargetType, c.TargetID, c.DefenderID, c.DefenderName, c.DefenseRating,
		c.Outcome, cargo, c.StartedAt, c.LastRoundAt)
	return internal("insert combat", err)
}

func (t *tx) GetCombat(ctx context.Context, id uuid.UUID) (*models.CombatLog, error) {
	return t.combat(ctx, id, "")
}

func (t *tx) LockCombat(ctx context.Context, id uuid.UUID) (*models.CombatLog, error) {
	return t.combat(ctx, id, forUpdate)
}

func (t *tx) combat(ctx context.Context, id uuid.UUID, lock string) (*models.CombatLog, error) {
	row := t.exec.QueryRowContext(ctx, `SELECT `+combatColumns+` FROM combat_logs WHERE id = $1`+lock, id)
	c, err := scanCombat(row)
	if err != nil {
		return nil, notFound(err, "combat not found: %s", id)
	}
	return c, nil
}

// FinishRound guards the write with outcome = 'ongoing' so only the first
// writer can move the log to a terminal outcome. The round primary key
// rejects a duplicate round number.
func (t *tx) FinishRound(ctx context.Context, c *models.CombatLog, round *models.CombatStats) error {
	_, err := t.exec.ExecContext(ctx, `
		INSERT INTO combat_stats (combat_id, round_number, attacker_hits, defender_hits, attacker_damage,
			defender_damage, attacker_shields, attacker_armor, defender_shields, defender_armor,
			critical_hit, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		round.CombatID, round.RoundNumber, round.AttackerHits, round.DefenderHits, round.AttackerDamage,
		round.DefenderDamage, round.AttackerShields, round.AttackerArmor, round.DefenderShields,
		round.DefenderArmor, round.CriticalHit, round.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if asPQ(err, &pqErr) && pqErr.Code == "23505" {
			return errors.InvalidStatef("combat %s round %d already recorded", c.ID, round.RoundNumber)
		}
		return internal("insert combat round", err)
	}

	cargo, err := encodeCargo(c.CargoLooted)
	if err != nil {
		return err
	}
	res, err := t.exec.ExecContext(ctx, `
		UPDATE combat_logs
		SET attacker_damage_dealt = $2, defender_damage_dealt = $3, rounds_fought = $4, outcome = $5,
			credits_looted = $6, cargo_looted = $7, last_round_at = $8, ended_at = $9
		WHERE id = $1 AND outcome = 'ongoing'`,
		c.ID, c.AttackerDamage, c.DefenderDamage, c.RoundsFought, c.Outcome,
		c.CreditsLooted, cargo, c.LastRoundAt, c.EndedAt)
	return expectOne(res, err, errors.InvalidStatef("combat %s is no longer ongoing", c.ID))
}

func (t *tx) ListRounds(ctx context.Context, combatID uuid.UUID) ([]models.CombatStats, error) {
	rows, err := t.exec.QueryContext(ctx, `
		SELECT combat_id, round_number, attacker_hits, defender_hits, attacker_damage, defender_damage,
			attacker_shields, attacker_armor, defender_shields, defender_armor, critical_hit, created_at
		FROM combat_stats WHERE combat_id = $1 ORDER BY round_number`, combatID)
	if err != nil {
		return nil, internal("list rounds", err)
	}
	defer rows.Close()

	var rounds []models.CombatStats
	for rows.Next() {
		var r models.CombatStats
		err := rows.Scan(&r.CombatID, &r.RoundNumber, &r.AttackerHits, &r.DefenderHits, &r.AttackerDamage,
			&r.DefenderDamage, &r.AttackerShields, &r.AttackerArmor, &r.DefenderShields, &r.DefenderArmor,
			&r.CriticalHit, &r.CreatedAt)
		if err != nil {
			return nil, internal("scan round", err)
		}
		rounds = append(rounds, r)
	}
	return rounds, internal("iterate rounds", rows.Err())
}

func (t *tx) ListDueCombats(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := t.exec.QueryContext(ctx, `
		SELECT id FROM combat_logs
		WHERE outcome = 'ongoing' AND last_round_at <= $1
		ORDER BY last_round_at
		LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, internal("list due combats", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, internal("scan combat id", err)
		}
		ids = append(ids, id)
	}
	return ids, internal("iterate due combats", rows.Err())
}

func (t *tx) ListCombatsForPlayer(ctx context.Context, playerID uuid.UUID, limit int) ([]models.CombatLog, error) {
	rows, err := t.exec.QueryContext(ctx, `
		SELECT `+combatColumns+` FROM combat_logs
		WHERE attacker_id = $1 OR defender_id = $1
		ORDER BY started_at DESC
		LIMIT $2`, playerID, limit)
	if err != nil {
		return nil, internal("list combats", err)
	}
	defer rows.Close()

	var logs []models.CombatLog
	for rows.Next() {
		c, err := scanCombat(rows)
		if err != nil {
			return nil, internal("scan combat", err)
		}
		logs = append(logs, *c)
	}
	return logs, internal("iterate combats", rows.Err())
}
