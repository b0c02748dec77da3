// Package storagetest builds small worlds in an in-memory store for tests.
package storagetest

import (
	"context"
	"fmt"
	"time"

	"sectorwars-server/internal/models"
	"sectorwars-server/internal/shared/logger"
	"sectorwars-server/internal/storage"
	"sectorwars-server/internal/storage/memory"

	"github.com/google/uuid"
)

var Epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// TB is the part of testing.TB the fixtures need; *rapid.T satisfies it too.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

type World struct {
	t     TB
	Store *memory.Store
}

func NewWorld(t TB) *World {
	t.Helper()
	return &World{t: t, Store: memory.New(logger.Discard())}
}

func (w *World) do(fn func(ctx context.Context, tx storage.Tx) error) {
	w.t.Helper()
	if err := w.Store.Atomic(context.Background(), fn); err != nil {
		w.t.Fatalf("fixture: %v", err)
	}
}

// Sectors creates standard sectors with the given ids.
func (w *World) Sectors(ids ...int) {
	w.t.Helper()
	for _, id := range ids {
		w.Sector(models.Sector{ID: id, Name: fmt.Sprintf("Sector %d", id), Type: models.SectorStandard})
	}
}

func (w *World) Sector(s models.Sector) {
	w.t.Helper()
	w.do(func(ctx context.Context, tx storage.Tx) error { return tx.InsertSector(ctx, &s) })
}

// Warp creates a one-directional warp.
func (w *World) Warp(from, to, cost int) {
	w.t.Helper()
	w.do(func(ctx context.Context, tx storage.Tx) error {
		return tx.InsertWarp(ctx, &models.Warp{SourceSectorID: from, DestinationSectorID: to, TurnCost: cost})
	})
}

func (w *World) Tunnel(t models.Tunnel) models.Tunnel {
	w.t.Helper()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = models.TunnelActive
	}
	if t.Type == "" {
		t.Type = models.TunnelStandard
	}
	w.do(func(ctx context.Context, tx storage.Tx) error { return tx.InsertTunnel(ctx, &t) })
	return t
}

// PlayerOpts tweaks a player fixture and its ship.
type PlayerOpts struct {
	Turns   int
	Credits int
	TeamID  *uuid.UUID
	Ship    models.Ship
	NoShip  bool
}

// Player creates a player in sector with an active ship and registers
// presence. The ship defaults to a light freighter with speed 1.
func (w *World) Player(name string, sector int, opts PlayerOpts) (*models.Player, *models.Ship) {
	w.t.Helper()

	p := &models.Player{
		ID:              uuid.New(),
		Username:        name,
		TeamID:          opts.TeamID,
		CurrentSectorID: sector,
		Turns:           opts.Turns,
		Credits:         opts.Credits,
		CreatedAt:       Epoch,
		UpdatedAt:       Epoch,
	}

	var ship *models.Ship
	if !opts.NoShip {
		s := opts.Ship
		s.ID = uuid.New()
		s.OwnerID = p.ID
		s.SectorID = sector
		s.IsActive = true
		s.CreatedAt = Epoch
		if s.Name == "" {
			s.Name = name + "'s ship"
		}
		if s.Type == "" {
			s.Type = models.ShipLightFreighter
		}
		if s.BaseSpeed == 0 {
			s.BaseSpeed, s.CurrentSpeed = 1, 1
		}
		ship = &s
		p.CurrentShipID = &s.ID
	}

	w.do(func(ctx context.Context, tx storage.Tx) error {
		if err := tx.InsertPlayer(ctx, p); err != nil {
			return err
		}
		entry := models.PresenceEntry{PlayerID: p.ID, Username: p.Username, TeamID: p.TeamID, ArrivedAt: Epoch}
		if ship != nil {
			if err := tx.InsertShip(ctx, ship); err != nil {
				return err
			}
			entry.ShipID, entry.ShipName, entry.ShipType = &ship.ID, ship.Name, ship.Type
		}
		sec, err := tx.GetSector(ctx, sector)
		if err != nil {
			return err
		}
		return tx.UpdatePresence(ctx, sector, append(sec.PlayersPresent, entry))
	})
	return p, ship
}

func (w *World) Planet(p models.Planet) models.Planet {
	w.t.Helper()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	w.do(func(ctx context.Context, tx storage.Tx) error { return tx.InsertPlanet(ctx, &p) })
	return p
}

func (w *World) Port(p models.Port) models.Port {
	w.t.Helper()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	w.do(func(ctx context.Context, tx storage.Tx) error { return tx.InsertPort(ctx, &p) })
	return p
}

func (w *World) Deployment(d models.DroneDeployment) {
	w.t.Helper()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.IsActive = true
	w.do(func(ctx context.Context, tx storage.Tx) error { return tx.InsertDeployment(ctx, &d) })
}

// Read runs fn against the committed state.
func (w *World) Read(fn func(ctx context.Context, tx storage.Tx) error) {
	w.t.Helper()
	w.do(fn)
}

func (w *World) GetPlayer(id uuid.UUID) *models.Player {
	w.t.Helper()
	var p *models.Player
	w.Read(func(ctx context.Context, tx storage.Tx) error {
		var err error
		p, err = tx.GetPlayer(ctx, id)
		return err
	})
	return p
}

func (w *World) GetShip(id uuid.UUID) *models.Ship {
	w.t.Helper()
	var s *models.Ship
	w.Read(func(ctx context.Context, tx storage.Tx) error {
		var err error
		s, err = tx.GetShip(ctx, id)
		return err
	})
	return s
}

func (w *World) GetSector(id int) *models.Sector {
	w.t.Helper()
	var s *models.Sector
	w.Read(func(ctx context.Context, tx storage.Tx) error {
		var err error
		s, err = tx.GetSector(ctx, id)
		return err
	})
	return s
}

func (w *World) GetTunnel(id uuid.UUID) *models.Tunnel {
	w.t.Helper()
	var tn *models.Tunnel
	w.Read(func(ctx context.Context, tx storage.Tx) error {
		var err error
		tn, err = tx.LockTunnel(ctx, id)
		return err
	})
	return tn
}

// PresenceOf returns the ids of every sector listing the player.
func (w *World) PresenceOf(playerID uuid.UUID) []int {
	w.t.Helper()
	var ids []int
	w.Read(func(ctx context.Context, tx storage.Tx) error {
		sectors, err := tx.ListSectors(ctx)
		if err != nil {
			return err
		}
		for _, s := range sectors {
			if models.Contains(s.PlayersPresent, playerID) {
				ids = append(ids, s.ID)
			}
		}
		return nil
	})
	return ids
}
