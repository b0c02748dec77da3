package postgres

import (
	"context"

	"sectorwars-server/internal/models"
	"sectorwars-server/internal/shared/database"
	"sectorwars-server/internal/shared/errors"

	"github.com/google/uuid"
)

const playerColumns = `id, username, team_id, current_sector_id, current_ship_id, turns, credits,
	is_docked, is_landed, created_at, updated_at`

func scanPlayer(row scanner) (*models.Player, error) {
	var p models.Player
	err := row.Scan(&p.ID, &p.Username, &p.TeamID, &p.CurrentSectorID, &p.CurrentShipID,
		&p.Turns, &p.Credits, &p.IsDocked, &p.IsLanded, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *tx) InsertPlayer(ctx context.Context, p *models.Player) error {
	_, err := t.exec.ExecContext(ctx, `
		INSERT INTO players (id, username, team_id, current_sector_id, current_ship_id, turns, credits, is_docked, is_landed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.Username, p.TeamID, p.CurrentSectorID, p.CurrentShipID, p.Turns, p.Credits, p.IsDocked, p.IsLanded)
	if database.UniqueViolation(err) {
		return errors.InvalidStatef("username %q is taken", p.Username)
	}
	return internal("insert player", err)
}

func (t *tx) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	return t.player(ctx, id, "")
}

func (t *tx) LockPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	return t.player(ctx, id, forUpdate)
}

func (t *tx) player(ctx context.Context, id uuid.UUID, lock string) (*models.Player, error) {
	row := t.exec.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`+lock, id)
	p, err := scanPlayer(row)
	if err != nil {
		return nil, notFound(err, "player not found: %s", id)
	}
	return p, nil
}

func (t *tx) UpdatePlayer(ctx context.Context, p *models.Player) error {
	res, err := t.exec.ExecContext(ctx, `
		UPDATE players
		SET team_id = $2, current_sector_id = $3, current_ship_id = $4, turns = $5, credits = $6,
			is_docked = $7, is_landed = $8, updated_at = NOW()
		WHERE id = $1`,
		p.ID, p.TeamID, p.CurrentSectorID, p.CurrentShipID, p.Turns, p.Credits, p.IsDocked, p.IsLanded)
	return expectOne(res, err, errors.NotFoundf("player not found: %s", p.ID))
}

const shipColumns = `id, owner_id, name, type, sector_id, base_speed, current_speed, shields, armor,
	guns, drones, warp_capable, is_active, destroyed_at, created_at`

func scanShip(row scanner) (*models.Ship, error) {
	var s models.Ship
	err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Type, &s.SectorID, &s.BaseSpeed, &s.CurrentSpeed,
		&s.Shields, &s.Armor, &s.Guns, &s.Drones, &s.WarpCapable, &s.IsActive, &s.DestroyedAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (t *tx) InsertShip(ctx context.Context, s *models.Ship) error {
	_, err := t.exec.ExecContext(ctx, `
		INSERT INTO ships (id, owner_id, name, type, sector_id, base_speed, current_speed, shields, armor,
			guns, drones, warp_capable, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		s.ID, s.OwnerID, s.Name, s.Type, s.SectorID, s.BaseSpeed, s.CurrentSpeed, s.Shields, s.Armor,
		s.Guns, s.Drones, s.WarpCapable, s.IsActive)
	return internal("insert ship", err)
}

func (t *tx) GetShip(ctx context.Context, id uuid.UUID) (*models.Ship, error) {
	return t.ship(ctx, id, "")
}

func (t *tx) LockShip(ctx context.Context, id uuid.UUID) (*models.Ship, error) {
	return t.ship(ctx, id, forUpdate)
}

func (t *tx) ship(ctx context.Context, id uuid.UUID, lock string) (*models.Ship, error) {
	row := t.exec.QueryRowContext(ctx, `SELECT `+shipColumns+` FROM ships WHERE id = $1`+lock, id)
	s, err := scanShip(row)
	if err != nil {
		return nil, notFound(err, "ship not found: %s", id)
	}
	return s, nil
}

func (t *tx) UpdateShip(ctx context.Context, s *models.Ship) error {
	res, err := t.exec.ExecContext(ctx, `
		UPDATE ships
		SET sector_id = $2, current_speed = $3, shields = $4, armor = $5, guns = $6, drones = $7,
			is_active = $8, destroyed_at = $9
		WHERE id = $1`,
		s.ID, s.SectorID, s.CurrentSpeed, s.Shields, s.Armor, s.Guns, s.Drones, s.IsActive, s.DestroyedAt)
	return expectOne(res, err, errors.NotFoundf("ship not found: %s", s.ID))
}

func (t *tx) ListActiveShips(ctx context.Context, ownerID uuid.UUID, sectorID int) ([]models.Ship, error) {
	rows, err := t.exec.QueryContext(ctx, `
		SELECT `+shipColumns+` FROM ships
		WHERE owner_id = $1 AND sector_id = $2 AND is_active
		ORDER BY created_at`, ownerID, sectorID)
	if err != nil {
		return nil, internal("list ships", err)
	}
	defer rows.Close()

	var ships []models.Ship
	for rows.Next() {
		s, err := scanShip(rows)
		if err != nil {
			return nil, internal("scan ship", err)
		}
		ships = append(ships, *s)
	}
	return ships, internal("iterate ships", rows.Err())
}
