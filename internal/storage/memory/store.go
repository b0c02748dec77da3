// Package memory is an in-process storage.Store. Units of work are
// serialized by one mutex and run against a copy of the state that is
// swapped in only when the unit of work succeeds.
package memory

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"sectorwars-server/internal/models"
	"sectorwars-server/internal/storage"

	"github.com/google/uuid"
)

type Store struct {
	mu     sync.Mutex
	state  *state
	logger *slog.Logger
}

var _ storage.Store = (*Store)(nil)

func New(logger *slog.Logger) *Store {
	logger.Debug("Initializing in-memory store")
	return &Store{state: newState(), logger: logger}
}

// Atomic must not be called from inside fn.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(ctx, &tx{st: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

type state struct {
	players      map[uuid.UUID]models.Player
	ships        map[uuid.UUID]models.Ship
	sectors      map[int]models.Sector
	warps        []models.Warp
	tunnels      map[uuid.UUID]models.Tunnel
	tunnelOrder  []uuid.UUID
	planets      map[uuid.UUID]models.Planet
	ports        map[uuid.UUID]models.Port
	combats      map[uuid.UUID]models.CombatLog
	rounds       map[uuid.UUID][]models.CombatStats
	drones       map[uuid.UUID]models.Drone
	deployments  map[uuid.UUID]models.DroneDeployment
	deployOrder  []uuid.UUID
	droneCombats []models.DroneCombat
}

func newState() *state {
	return &state{
		players:     map[uuid.UUID]models.Player{},
		ships:       map[uuid.UUID]models.Ship{},
		sectors:     map[int]models.Sector{},
		tunnels:     map[uuid.UUID]models.Tunnel{},
		planets:     map[uuid.UUID]models.Planet{},
		ports:       map[uuid.UUID]models.Port{},
		combats:     map[uuid.UUID]models.CombatLog{},
		rounds:      map[uuid.UUID][]models.CombatStats{},
		drones:      map[uuid.UUID]models.Drone{},
		deployments: map[uuid.UUID]models.DroneDeployment{},
	}
}

// clone copies every container the tx may write to. Entity pointer fields
// are shared; entities are always replaced whole, never written through.
func (s *state) clone() *state {
	c := &state{
		players:      maps.Clone(s.players),
		ships:        maps.Clone(s.ships),
		sectors:      make(map[int]models.Sector, len(s.sectors)),
		warps:        slices.Clone(s.warps),
		tunnels:      maps.Clone(s.tunnels),
		tunnelOrder:  slices.Clone(s.tunnelOrder),
		planets:      maps.Clone(s.planets),
		ports:        maps.Clone(s.ports),
		combats:      make(map[uuid.UUID]models.CombatLog, len(s.combats)),
		rounds:       make(map[uuid.UUID][]models.CombatStats, len(s.rounds)),
		drones:       make(map[uuid.UUID]models.Drone, len(s.drones)),
		deployments:  maps.Clone(s.deployments),
		deployOrder:  slices.Clone(s.deployOrder),
		droneCombats: slices.Clone(s.droneCombats),
	}
	for id, sec := range s.sectors {
		c.sectors[id] = cloneSector(sec)
	}
	for id, log := range s.combats {
		c.combats[id] = cloneCombat(log)
	}
	for id, rs := range s.rounds {
		c.rounds[id] = slices.Clone(rs)
	}
	for id, d := range s.drones {
		c.drones[id] = cloneDrone(d)
	}
	return c
}

func cloneSector(s models.Sector) models.Sector {
	s.PlayersPresent = slices.Clone(s.PlayersPresent)
	return s
}

func cloneCombat(c models.CombatLog) models.CombatLog {
	c.CargoLooted = maps.Clone(c.CargoLooted)
	return c
}

func cloneDrone(d models.Drone) models.Drone {
	d.Abilities = slices.Clone(d.Abilities)
	return d
}
