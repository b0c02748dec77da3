package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"sectorwars-server/internal/models"
	"sectorwars-server/internal/shared/errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

func asPQ(err error, target **pq.Error) bool {
	return stderrors.As(err, target)
}

const droneColumns = `id, player_id, team_id, type, status, level, health, max_health, attack, defense,
	speed, abilities, sector_id, kills, battles_fought, damage_dealt, damage_taken, created_at, destroyed_at`

func scanDrone(row scanner) (*models.Drone, error) {
	var d models.Drone
	err := row.Scan(&d.ID, &d.PlayerID, &d.TeamID, &d.Type, &d.Status, &d.Level, &d.Health, &d.MaxHealth,
		&d.Attack, &d.Defense, &d.Speed, pq.Array(&d.Abilities), &d.SectorID, &d.Kills, &d.BattlesFought,
		&d.DamageDealt, &d.DamageTaken, &d.CreatedAt, &d.DestroyedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (t *tx) InsertDrone(ctx context.Context, d *models.Drone) error {
	_, err := t.exec.ExecContext(ctx, `
		INSERT INTO drones (id, player_id, team_id, type, status, level, health, max_health, attack,
			defense, speed, abilities, sector_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		d.ID, d.PlayerID, d.TeamID, d.Type, d.Status, d.Level, d.Health, d.MaxHealth, d.Attack,
		d.Defense, d.Speed, pq.Array(d.Abilities), d.SectorID, d.CreatedAt)
	return internal("insert drone", err)
}

func (t *tx) GetDrone(ctx context.Context, id uuid.UUID) (*models.Drone, error) {
	return t.drone(ctx, id, "")
}

func (t *tx) LockDrone(ctx context.Context, id uuid.UUID) (*models.Drone, error) {
	return t.drone(ctx, id, forUpdate)
}

func (t *tx) drone(ctx context.Context, id uuid.UUID, lock string) (*models.Drone, error) {
	row := t.exec.QueryRowContext(ctx, `SELECT `+droneColumns+` FROM drones WHERE id = $1`+lock, id)
	d, err := scanDrone(row)
	if err != nil {
		return nil, notFound(err, "drone not found: %s", id)
	}
	return d, nil
}

func (t *tx) UpdateDrone(ctx context.Context, d *models.Drone) error {
	res, err := t.exec.ExecContext(ctx, `
		UPDATE drones
		SET status = $2, level = $3, health = $4, max_health = $5, attack = $6, defense = $7, speed = $8,
			sector_id = $9, kills = $10, battles_fought = $11, damage_dealt = $12, damage_taken = $13,
			destroyed_at = $14
		WHERE id = $1`,
		d.ID, d.Status, d.Level, d.Health, d.MaxHealth, d.Attack, d.Defense, d.Speed,
		d.SectorID, d.Kills, d.BattlesFought, d.DamageDealt, d.DamageTaken, d.DestroyedAt)
	return expectOne(res, err, errors.NotFoundf("drone not found: %s", d.ID))
}

func (t *tx) ListDronesForPlayer(ctx context.Context, playerID uuid.UUID) ([]models.Drone, error) {
	rows, err := t.exec.QueryContext(ctx,
		`SELECT `+droneColumns+` FROM drones WHERE player_id = $1 ORDER BY created_at`, playerID)
	if err != nil {
		return nil, internal("list drones", err)
	}
	defer rows.Close()

	var drones []models.Drone
	for rows.Next() {
		d, err := scanDrone(rows)
		if err != nil {
			return nil, internal("scan drone", err)
		}
		drones = append(drones, *d)
	}
	return drones, internal("iterate drones", rows.Err())
}

const deploymentColumns = `id, drone_id, player_id, team_id, sector_id, deployment_type, target_id,
	is_active, deployed_at, recalled_at`

func scanDeployment(row scanner) (*models.DroneDeployment, error) {
	var d models.DroneDeployment
	err := row.Scan(&d.ID, &d.DroneID, &d.PlayerID, &d.TeamID, &d.SectorID, &d.DeploymentType,
		&d.TargetID, &d.IsActive, &d.DeployedAt, &d.RecalledAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (t *tx) InsertDeployment(ctx context.Context, d *models.DroneDeployment) error {
	_, err := t.exec.ExecContext(ctx, `
		INSERT INTO drone_deployments (id, drone_id, player_id, team_id, sector_id, deployment_type,
			target_id, is_active, deployed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.DroneID, d.PlayerID, d.TeamID, d.SectorID, d.DeploymentType, d.TargetID, d.IsActive, d.DeployedAt)
	return internal("insert deployment", err)
}

func (t *tx) ActiveDeployment(ctx context.Context, droneID uuid.UUID) (*models.DroneDeployment, error) {
	row := t.exec.QueryRowContext(ctx, `
		SELECT `+deploymentColumns+` FROM drone_deployments
		WHERE drone_id = $1 AND is_active`+forUpdate, droneID)
	d, err := scanDeployment(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, internal("get active deployment", err)
	}
	return d, nil
}

func (t *tx) UpdateDeployment(ctx context.Context, d *models.DroneDeployment) error {
	res, err := t.exec.ExecContext(ctx, `
		UPDATE drone_deployments SET is_active = $2, recalled_at = $3 WHERE id = $1`,
		d.ID, d.IsActive, d.RecalledAt)
	return expectOne(res, err, errors.NotFoundf("deployment not found: %s", d.ID))
}

func (t *tx) ListSectorDeployments(ctx context.Context, sectorID int) ([]models.DroneDeployment, error) {
	rows, err := t.exec.QueryContext(ctx, `
		SELECT `+deploymentColumns+` FROM drone_deployments
		WHERE sector_id = $1 AND is_active ORDER BY deployed_at`, sectorID)
	if err != nil {
		return nil, internal("list deployments", err)
	}
	defer rows.Close()

	var out []models.DroneDeployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, internal("scan deployment", err)
		}
		out = append(out, *d)
	}
	return out, internal("iterate deployments", rows.Err())
}

func (t *tx) InsertDroneCombat(ctx context.Context, c *models.DroneCombat) error {
	rounds, err := json.Marshal(c.Rounds)
	if err != nil {
		return errors.WrapInternal("encode drone combat rounds", err)
	}
	_, err = t.exec.ExecContext(ctx, `
		INSERT INTO drone_combats (id, attacker_drone_id, defender_drone_id, sector_id, winner_drone_id,
			rounds, attacker_damage, defender_damage, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.AttackerDroneID, c.DefenderDroneID, c.SectorID, c.WinnerDroneID,
		rounds, c.AttackerDamage, c.DefenderDamage, c.CreatedAt)
	return internal("insert drone combat", err)
}

func (t *tx) ListDroneCombats(ctx context.Context, droneID uuid.UUID) ([]models.DroneCombat, error) {
	rows, err := t.exec.QueryContext(ctx, `
		SELECT id, attacker_drone_id, defender_drone_id, sector_id, winner_drone_id, rounds,
			attacker_damage, defender_damage, created_at
		FROM drone_combats
		WHERE attacker_drone_id = $1 OR defender_drone_id = $1
		ORDER BY created_at`, droneID)
	if err != nil {
		return nil, internal("list drone combats", err)
	}
	defer rows.Close()

	var out []models.DroneCombat
	for rows.Next() {
		var c models.DroneCombat
		var rounds []byte
		err := rows.Scan(&c.ID, &c.AttackerDroneID, &c.DefenderDroneID, &c.SectorID, &c.WinnerDroneID,
			&rounds, &c.AttackerDamage, &c.DefenderDamage, &c.CreatedAt)
		if err != nil {
			return nil, internal("scan drone combat", err)
		}
		if err := json.Unmarshal(rounds, &c.Rounds); err != nil {
			return nil, errors.WrapInternal("decode drone combat rounds", err)
		}
		out = append(out, c)
	}
	return out, internal("iterate drone combats", rows.Err())
}
