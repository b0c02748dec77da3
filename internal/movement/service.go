package movement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sectorwars-server/internal/events"
	"sectorwars-server/internal/galaxy"
	"sectorwars-server/internal/models"
	"sectorwars-server/internal/random"
	"sectorwars-server/internal/shared/errors"
	"sectorwars-server/internal/storage"

	"github.com/google/uuid"
)

const defaultTunnelWarningUses = 3

type Service struct {
	store       storage.Store
	publisher   events.Publisher
	rand        random.Factory
	now         func() time.Time
	warningUses int
	logger      *slog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTunnelWarningUses sets how many remaining uses trigger a degradation warning.
func WithTunnelWarningUses(n int) Option {
	return func(s *Service) { s.warningUses = n }
}

func NewService(store storage.Store, publisher events.Publisher, rng random.Factory, logger *slog.Logger, opts ...Option) *Service {
	logger.Debug("Initializing movement service")

	s := &Service{
		store:       store,
		publisher:   publisher,
		rand:        rng,
		now:         time.Now,
		warningUses: defaultTunnelWarningUses,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MovePlayer moves a player and their active ship one hop. Every rejection
// happens before the first write, and all writes commit together.
func (s *Service) MovePlayer(ctx context.Context, playerID uuid.UUID, destination int) (*MoveResult, error) {
	logger := s.logger.With(
		"component", "movement_service",
		"operation", "move_player",
		"player_id", playerID,
		"destination", destination,
	)

	var result *MoveResult
	var out []events.Event

	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		result, out = nil, nil

		player, err := tx.LockPlayer(ctx, playerID)
		if err != nil {
			return err
		}

		if player.CurrentSectorID == destination {
			sector, err := tx.GetSector(ctx, destination)
			if err != nil {
				return err
			}
			result = &MoveResult{
				Success:        true,
				Message:        fmt.Sprintf("Already in Sector %d", destination),
				Sector:         sectorInfo(sector),
				TurnsRemaining: player.Turns,
				Encounters:     []Encounter{},
				TunnelEvents:   []TunnelEvent{},
			}
			return nil
		}

		ship, err := activeShip(ctx, tx, player, true)
		if err != nil {
			return err
		}
		if ship == nil {
			return errors.InvalidStatef("player %s has no active ship", player.ID)
		}

		graph, err := galaxy.Load(ctx, tx)
		if err != nil {
			return err
		}
		if _, ok := graph.Sector(destination); !ok {
			return errors.NotFoundf("sector not found: %d", destination)
		}

		route, err := graph.Resolve(player.CurrentSectorID, destination, ship)
		if err != nil {
			return err
		}

		if player.Turns < route.Cost {
			return errors.WrapInsufficientResource("insufficient turns",
				&InsufficientTurnsError{Cost: route.Cost, Available: player.Turns})
		}

		from := player.CurrentSectorID
		sectors, err := lockSectors(ctx, tx, from, destination)
		if err != nil {
			return err
		}

		var tunnel *models.Tunnel
		if route.Tunnel != nil {
			tunnel, err = tx.LockTunnel(ctx, route.Tunnel.ID)
			if err != nil {
				return err
			}
			if !tunnel.Usable() {
				return errors.Unreachablef("tunnel %s is no longer open", tunnel.ID)
			}
		}

		now := s.now()
		arrived, err := relocate(ctx, tx, player, ship, sectors[from], sectors[destination], now)
		if err != nil {
			return err
		}

		player.Turns -= route.Cost
		player.CurrentSectorID = destination
		player.IsDocked = false
		player.IsLanded = false
		ship.SectorID = destination

		if err := tx.UpdateShip(ctx, ship); err != nil {
			return err
		}
		if err := tx.UpdatePlayer(ctx, player); err != nil {
			return err
		}

		tunnelEvents := []TunnelEvent{}
		connection := galaxy.ConnectionWarp
		if tunnel != nil {
			connection = galaxy.ConnectionTunnel
			tunnelEvents = s.transit(tunnel, now, s.rand())
			if err := tx.UpdateTunnel(ctx, tunnel); err != nil {
				return err
			}
		}

		encounters, err := s.encounters(ctx, tx, player, arrived)
		if err != nil {
			return err
		}

		result = &MoveResult{
			Success:        true,
			Message:        fmt.Sprintf("Moved to Sector %d", destination),
			TurnCost:       route.Cost,
			ConnectionType: connection,
			Sector:         sectorInfo(arrived),
			TurnsRemaining: player.Turns,
			Encounters:     encounters,
			TunnelEvents:   tunnelEvents,
		}
		out = moveEvents(player.ID, destination, encounters, tunnelEvents, now)

		logger.Info("Player moved",
			"from", from,
			"turn_cost", route.Cost,
			"connection", connection,
			"turns_remaining", player.Turns)
		return nil
	})
	if err != nil {
		logger.Debug("Move rejected", "error", err)
		return nil, err
	}

	events.Emit(ctx, s.publisher, logger, out...)
	return result, nil
}

// lockSectors locks the origin and destination in ascending id order.
func lockSectors(ctx context.Context, tx storage.Tx, from, to int) (map[int]*models.Sector, error) {
	locked := make(map[int]*models.Sector, 2)
	for _, id := range []int{min(from, to), max(from, to)} {
		sector, err := tx.LockSector(ctx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = sector
	}
	return locked, nil
}

// relocate moves the player's presence entry from origin to dest and returns
// dest as the player finds it on arrival.
func relocate(ctx context.Context, tx storage.Tx, player *models.Player, ship *models.Ship, origin, dest *models.Sector, now time.Time) (*models.Sector, error) {
	arrived := *dest
	arrived.PlayersPresent = models.Without(dest.PlayersPresent, player.ID)

	shipID := ship.ID
	entry := models.PresenceEntry{
		PlayerID:  player.ID,
		Username:  player.Username,
		ShipID:    &shipID,
		ShipName:  ship.Name,
		ShipType:  ship.Type,
		TeamID:    player.TeamID,
		ArrivedAt: now,
	}

	if err := tx.UpdatePresence(ctx, origin.ID, models.Without(origin.PlayersPresent, player.ID)); err != nil {
		return nil, err
	}
	if err := tx.UpdatePresence(ctx, dest.ID, append(models.Without(dest.PlayersPresent, player.ID), entry)); err != nil {
		return nil, err
	}
	return &arrived, nil
}

// transit applies stability hazards and use counting to a tunnel that was
// just crossed.
func (s *Service) transit(t *models.Tunnel, now time.Time, rng random.Source) []TunnelEvent {
	out := []TunnelEvent{}
	id := t.ID.String()

	if t.Stability < 0.7 && rng.Float64() < 1-t.Stability {
		if t.Stability < 0.5 {
			severity := "medium"
			if t.Stability < 0.3 {
				severity = "high"
			}
			out = append(out, TunnelEvent{Type: TunnelRadiation, TunnelID: id, Severity: severity, Effect: "ship_damage", Stability: t.Stability})
		}
		if t.RequiresWarpCapability() || t.Stability >= 0.5 {
			severity := "low"
			if t.Stability < 0.5 {
				severity = "medium"
			}
			out = append(out, TunnelEvent{Type: TunnelAnomaly, TunnelID: id, Severity: severity, Effect: "random", Stability: t.Stability})
		}
	}

	t.CurrentUses++
	t.LastUsedAt = &now

	remaining, limited := t.UsesRemaining()
	if !limited {
		return out
	}
	if remaining <= s.warningUses {
		r := max(0, remaining)
		out = append(out, TunnelEvent{Type: TunnelDegradation, TunnelID: id, Effect: "warning", Stability: t.Stability, RemainingUses: &r})
	}
	if remaining <= 0 {
		t.Status = models.TunnelCollapsed
		out = append(out, TunnelEvent{Type: TunnelCollapse, TunnelID: id, Severity: "high", Effect: "permanent", Stability: t.Stability})
		s.logger.Info("Tunnel collapsed", "component", "movement_service", "tunnel_id", t.ID, "uses", t.CurrentUses)
	}
	return out
}

func (s *Service) encounters(ctx context.Context, tx storage.Tx, player *models.Player, sector *models.Sector) ([]Encounter, error) {
	out := []Encounter{}

	if others := models.Without(sector.PlayersPresent, player.ID); len(others) > 0 {
		out = append(out, Encounter{Type: EncounterPlayers, ThreatLevel: "varies", Players: others})
	}

	if sector.Type.Hazardous() {
		threat := "medium"
		if sector.HazardLevel >= 7 {
			threat = "high"
		}
		out = append(out, Encounter{Type: EncounterHazard, ThreatLevel: threat, Hazard: sector.Type})
	}

	deployments, err := tx.ListSectorDeployments(ctx, sector.ID)
	if err != nil {
		return nil, err
	}
	hostile := 0
	for _, d := range deployments {
		if d.DeploymentType == models.DeploymentDefense && d.PlayerID != player.ID && !player.SameTeam(d.TeamID) {
			hostile++
		}
	}
	if hostile > 0 {
		threat := "low"
		if hostile >= 10 {
			threat = "medium"
		}
		out = append(out, Encounter{Type: EncounterDrones, ThreatLevel: threat, Count: hostile})
	}
	return out, nil
}

func moveEvents(playerID uuid.UUID, sectorID int, encounters []Encounter, tunnelEvents []TunnelEvent, now time.Time) []events.Event {
	var out []events.Event
	pid, sid := playerID, sectorID
	for _, e := range encounters {
		out = append(out, events.Event{Type: events.TypeEncounter, PlayerID: &pid, SectorID: &sid, OccurredAt: now, Payload: e})
	}
	for _, te := range tunnelEvents {
		typ := events.TypeTunnelHazard
		switch te.Type {
		case TunnelDegradation:
			typ = events.TypeTunnelDegradation
		case TunnelCollapse:
			typ = events.TypeTunnelCollapse
		}
		out = append(out, events.Event{Type: typ, PlayerID: &pid, SectorID: &sid, OccurredAt: now, Payload: te})
	}
	return out
}

// activeShip returns the player's current ship if it is still active, or nil.
func activeShip(ctx context.Context, tx storage.Tx, player *models.Player, lock bool) (*models.Ship, error) {
	if player.CurrentShipID == nil {
		return nil, nil
	}
	get := tx.GetShip
	if lock {
		get = tx.LockShip
	}
	ship, err := get(ctx, *player.CurrentShipID)
	if errors.Is(err, errors.ErrorTypeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !ship.IsActive {
		return nil, nil
	}
	return ship, nil
}

// GetAvailableMoves lists one-hop moves from the player's sector with costs
// for their active ship.
func (s *Service) GetAvailableMoves(ctx context.Context, playerID uuid.UUID) (*AvailableMoves, error) {
	var moves *AvailableMoves
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		player, err := tx.GetPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		ship, err := activeShip(ctx, tx, player, false)
		if err != nil {
			return err
		}
		graph, err := galaxy.Load(ctx, tx)
		if err != nil {
			return err
		}
		n := graph.Neighbors(player.CurrentSectorID, ship, player.Turns)
		moves = &AvailableMoves{
			SectorID:       player.CurrentSectorID,
			TurnsRemaining: player.Turns,
			Warps:          n.Warps,
			Tunnels:        n.Tunnels,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moves, nil
}

// GetPath returns the fewest-hop route between two sectors, empty when none exists.
func (s *Service) GetPath(ctx context.Context, from, to int) ([]galaxy.PathHop, error) {
	var path []galaxy.PathHop
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		graph, err := galaxy.Load(ctx, tx)
		if err != nil {
			return err
		}
		for _, id := range []int{from, to} {
			if _, ok := graph.Sector(id); !ok {
				return errors.NotFoundf("sector not found: %d", id)
			}
		}
		path = graph.ShortestPath(from, to)
		return nil
	})
	return path, err
}
