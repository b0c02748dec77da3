// Package storage defines the unit of work the game core runs inside.
//
// Every mutation of players, ships, sectors, tunnels, combat logs and drones
// happens inside Store.Atomic. Lock* methods take a row lock held until the
// unit of work ends. Callers lock in a fixed order so concurrent units of
// work never deadlock:
//
//   - moves: player, ship, sectors in ascending id order, then the tunnel
//   - combat: the combat log, players in ascending id order, then ships
//   - drone fights: drones in ascending id order
package storage

import (
	"context"
	"time"

	"sectorwars-server/internal/models"

	"github.com/google/uuid"
)

type Store interface {
	// Atomic runs fn in a single transaction. Nothing fn wrote is visible
	// to other callers unless fn returns nil.
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Tx interface {
	PlayerStore
	ShipStore
	GalaxyStore
	TargetStore
	CombatStore
	DroneStore
}

type PlayerStore interface {
	InsertPlayer(ctx context.Context, p *models.Player) error
	GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
	LockPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
	UpdatePlayer(ctx context.Context, p *models.Player) error
}

type ShipStore interface {
	InsertShip(ctx context.Context, s *models.Ship) error
	GetShip(ctx context.Context, id uuid.UUID) (*models.Ship, error)
	LockShip(ctx context.Context, id uuid.UUID) (*models.Ship, error)
	UpdateShip(ctx context.Context, s *models.Ship) error
	// ListActiveShips returns the owner's active ships parked in a sector.
	ListActiveShips(ctx context.Context, ownerID uuid.UUID, sectorID int) ([]models.Ship, error)
}

type GalaxyStore interface {
	InsertSector(ctx context.Context, s *models.Sector) error
	GetSector(ctx context.Context, id int) (*models.Sector, error)
	LockSector(ctx context.Context, id int) (*models.Sector, error)
	UpdatePresence(ctx context.Context, sectorID int, entries []models.PresenceEntry) error
	ListSectors(ctx context.Context) ([]models.Sector, error)

	InsertWarp(ctx context.Context, w *models.Warp) error
	ListWarps(ctx context.Context) ([]models.Warp, error)

	InsertTunnel(ctx context.Context, t *models.Tunnel) error
	LockTunnel(ctx context.Context, id uuid.UUID) (*models.Tunnel, error)
	UpdateTunnel(ctx context.Context, t *models.Tunnel) error
	// ListTunnels returns tunnels in ACTIVE status.
	ListTunnels(ctx context.Context) ([]models.Tunnel, error)
}

type TargetStore interface {
	InsertPlanet(ctx context.Context, p *models.Planet) error
	GetPlanet(ctx context.Context, id uuid.UUID) (*models.Planet, error)
	InsertPort(ctx context.Context, p *models.Port) error
	GetPort(ctx context.Context, id uuid.UUID) (*models.Port, error)
}

type CombatStore interface {
	InsertCombat(ctx context.Context, c *models.CombatLog) error
	GetCombat(ctx context.Context, id uuid.UUID) (*models.CombatLog, error)
	LockCombat(ctx context.Context, id uuid.UUID) (*models.CombatLog, error)
	// FinishRound appends a round and writes the log's running fields.
	// It fails with a conflict if the log already left the ongoing state
	// or the round number is taken.
	FinishRound(ctx context.Context, c *models.CombatLog, round *models.CombatStats) error
	ListRounds(ctx context.Context, combatID uuid.UUID) ([]models.CombatStats, error)
	// ListDueCombats returns ongoing combats whose last round is at or before cutoff.
	ListDueCombats(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
	ListCombatsForPlayer(ctx context.Context, playerID uuid.UUID, limit int) ([]models.CombatLog, error)
}

type DroneStore interface {
	InsertDrone(ctx context.Context, d *models.Drone) error
	GetDrone(ctx context.Context, id uuid.UUID) (*models.Drone, error)
	LockDrone(ctx context.Context, id uuid.UUID) (*models.Drone, error)
	UpdateDrone(ctx context.Context, d *models.Drone) error
	ListDronesForPlayer(ctx context.Context, playerID uuid.UUID) ([]models.Drone, error)

	InsertDeployment(ctx context.Context, d *models.DroneDeployment) error
	// ActiveDeployment returns nil without error when the drone is not deployed.
	ActiveDeployment(ctx context.Context, droneID uuid.UUID) (*models.DroneDeployment, error)
	UpdateDeployment(ctx context.Context, d *models.DroneDeployment) error
	ListSectorDeployments(ctx context.Context, sectorID int) ([]models.DroneDeployment, error)

	InsertDroneCombat(ctx context.Context, c *models.DroneCombat) error
	ListDroneCombats(ctx context.Context, droneID uuid.UUID) ([]models.DroneCombat, error)
}
