package postgres

import (
	"context"
	"encoding/json"

	"sectorwars-server/internal/models"
	"sectorwars-server/internal/shared/errors"

	"github.com/google/uuid"
)

func scanSector(row scanner) (*models.Sector, error) {
	var s models.Sector
	var presence []byte
	if err := row.Scan(&s.ID, &s.Name, &s.Type, &s.HazardLevel, &s.RadiationLevel, &presence); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(presence, &s.PlayersPresent); err != nil {
		return nil, errors.WrapInternal("decode players_present", err)
	}
	return &s, nil
}

const sectorColumns = `id, name, type, hazard_level, radiation_level, players_present`

func (t *tx) InsertSector(ctx context.Context, s *models.Sector) error {
	presence, err := json.Marshal(presenceOrEmpty(s.PlayersPresent))
	if err != nil {
		return errors.WrapInternal("encode players_present", err)
	}
	_, err = t.exec.ExecContext(ctx, `
		INSERT INTO sectors (id, name, type, hazard_level, radiation_level, players_present)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.Name, s.Type, s.HazardLevel, s.RadiationLevel, presence)
	return internal("insert sector", err)
}

func (t *tx) GetSector(ctx context.Context, id int) (*models.Sector, error) {
	return t.sector(ctx, id, "")
}

func (t *tx) LockSector(ctx context.Context, id int) (*models.Sector, error) {
	return t.sector(ctx, id, forUpdate)
}

func (t *tx) sector(ctx context.Context, id int, lock string) (*models.Sector, error) {
	row := t.exec.QueryRowContext(ctx, `SELECT `+sectorColumns+` FROM sectors WHERE id = $1`+lock, id)
	s, err := scanSector(row)
	if err != nil {
		return nil, notFound(err, "sector not found: %d", id)
	}
	return s, nil
}

func (t *tx) UpdatePresence(ctx context.Context, sectorID int, entries []models.PresenceEntry) error {
	presence, err := json.Marshal(presenceOrEmpty(entries))
	if err != nil {
		return errors.WrapInternal("encode players_present", err)
	}
	res, err := t.exec.ExecContext(ctx,
		`UPDATE sectors SET players_present = $2 WHERE id = $1`, sectorID, presence)
	return expectOne(res, err, errors.NotFoundf("sector not found: %d", sectorID))
}

func presenceOrEmpty(entries []models.PresenceEntry) []models.PresenceEntry {
	if entries == nil {
		return []models.PresenceEntry{}
	}
	return entries
}

func (t *tx) ListSectors(ctx context.Context) ([]models.Sector, error) {
	rows, err := t.exec.QueryContext(ctx, `SELECT `+sectorColumns+` FROM sectors ORDER BY id`)
	if err != nil {
		return nil, internal("list sectors", err)
	}
	defer rows.Close()

	var sectors []models.Sector
	for rows.Next() {
		s, err := scanSector(rows)
		if err != nil {
			return nil, internal("scan sector", err)
		}
		sectors = append(sectors, *s)
	}
	return sectors, internal("iterate sectors", rows.Err())
}

func (t *tx) InsertWarp(ctx context.Context, w *models.Warp) error {
	_, err := t.exec.ExecContext(ctx, `
		INSERT INTO warps (source_sector_id, destination_sector_id, turn_cost)
		VALUES ($1, $2, $3)`, w.SourceSectorID, w.DestinationSectorID, w.TurnCost)
	return internal("insert warp", err)
}

func (t *tx) ListWarps(ctx context.Context) ([]models.Warp, error) {
	rows, err := t.exec.QueryContext(ctx, `
		SELECT source_sector_id, destination_sector_id, turn_cost
		FROM warps ORDER BY source_sector_id, created_at, destination_sector_id`)
	if err != nil {
		return nil, internal("list warps", err)
	}
	defer rows.Close()

	var warps []models.Warp
	for rows.Next() {
		var w models.Warp
		if err := rows.Scan(&w.SourceSectorID, &w.DestinationSectorID, &w.TurnCost); err != nil {
			return nil, internal("scan warp", err)
		}
		warps = append(warps, w)
	}
	return warps, internal("iterate warps", rows.Err())
}

const tunnelColumns = `id, name, origin_sector_id, destination_sector_id, type, status, is_bidirectional,
	stability, turn_cost, max_uses, current_uses, last_used_at`

func scanTunnel(row scanner) (*models.Tunnel, error) {
	var tn models.Tunnel
	err := row.Scan(&tn.ID, &tn.Name, &tn.OriginSectorID, &tn.DestinationSectorID, &tn.Type, &tn.Status,
		&tn.IsBidirectional, &tn.Stability, &tn.TurnCost, &tn.MaxUses, &tn.CurrentUses, &tn.LastUsedAt)
	if err != nil {
		return nil, err
	}
	return &tn, nil
}

func (t *tx) InsertTunnel(ctx context.Context, tn *models.Tunnel) error {
	_, err := t.exec.ExecContext(ctx, `
		INSERT INTO warp_tunnels (id, name, origin_sector_id, destination_sector_id, type, status,
			is_bidirectional, stability, turn_cost, max_uses, current_uses)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		tn.ID, tn.Name, tn.OriginSectorID, tn.DestinationSectorID, tn.Type, tn.Status,
		tn.IsBidirectional, tn.Stability, tn.TurnCost, tn.MaxUses, tn.CurrentUses)
	return internal("insert tunnel", err)
}

func (t *tx) LockTunnel(ctx context.Context, id uuid.UUID) (*models.Tunnel, error) {
	row := t.exec.QueryRowContext(ctx, `SELECT `+tunnelColumns+` FROM warp_tunnels WHERE id = $1`+forUpdate, id)
	tn, err := scanTunnel(row)
	if err != nil {
		return nil, notFound(err, "tunnel not found: %s", id)
	}
	return tn, nil
}

func (t *tx) UpdateTunnel(ctx context.Context, tn *models.Tunnel) error {
	res, err := t.exec.ExecContext(ctx, `
		UPDATE warp_tunnels
		SET status = $2, stability = $3, current_uses = $4, last_used_at = $5
		WHERE id = $1`,
		tn.ID, tn.Status, tn.Stability, tn.CurrentUses, tn.LastUsedAt)
	return expectOne(res, err, errors.NotFoundf("tunnel not found: %s", tn.ID))
}

func (t *tx) ListTunnels(ctx context.Context) ([]models.Tunnel, error) {
	rows, err := t.exec.QueryContext(ctx, `
		SELECT `+tunnelColumns+` FROM warp_tunnels
		WHERE status = $1 ORDER BY created_at, id`, models.TunnelActive)
	if err != nil {
		return nil, internal("list tunnels", err)
	}
	defer rows.Close()

	var tunnels []models.Tunnel
	for rows.Next() {
		tn, err := scanTunnel(rows)
		if err != nil {
			return nil, internal("scan tunnel", err)
		}
		tunnels = append(tunnels, *tn)
	}
	return tunnels, internal("iterate tunnels", rows.Err())
}

func (t *tx) InsertPlanet(ctx context.Context, p *models.Planet) error {
	_, err := t.exec.ExecContext(ctx,
		`INSERT INTO planets (id, name, sector_id, owner_id) VALUES ($1, $2, $3, $4)`,
		p.ID, p.Name, p.SectorID, p.OwnerID)
	return internal("insert planet", err)
}

func (t *tx) GetPlanet(ctx context.Context, id uuid.UUID) (*models.Planet, error) {
	var p models.Planet
	err := t.exec.QueryRowContext(ctx,
		`SELECT id, name, sector_id, owner_id FROM planets WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.SectorID, &p.OwnerID)
	if err != nil {
		return nil, notFound(err, "planet not found: %s", id)
	}
	return &p, nil
}

func (t *tx) InsertPort(ctx context.Context, p *models.Port) error {
	_, err := t.exec.ExecContext(ctx,
		`INSERT INTO ports (id, name, sector_id, class) VALUES ($1, $2, $3, $4)`,
		p.ID, p.Name, p.SectorID, p.Class)
	return internal("insert port", err)
}

func (t *tx) GetPort(ctx context.Context, id uuid.UUID) (*models.Port, error) {
	var p models.Port
	err := t.exec.QueryRowContext(ctx,
		`SELECT id, name, sector_id, class FROM ports WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.SectorID, &p.Class)
	if err != nil {
		return nil, notFound(err, "port not found: %s", id)
	}
	return &p, nil
}
