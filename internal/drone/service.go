package drone

import (
	"bytes"
	"context"
	"log/slog"
	"sort"
	"time"

	"sectorwars-server/internal/events"
	"sectorwars-server/internal/models"
	"sectorwars-server/internal/random"
	"sectorwars-server/internal/shared/errors"
	"sectorwars-server/internal/storage"

	"github.com/google/uuid"
)

const (
	DefaultDeploymentType = models.DeploymentDefense
	defaultHistoryLimit   = 10
)

type Service struct {
	store     storage.Store
	publisher events.Publisher
	rand      random.Factory
	now       func() time.Time
	logger    *slog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store storage.Store, publisher events.Publisher, rng random.Factory, logger *slog.Logger, opts ...Option) *Service {
	logger.Debug("Initializing drone service")

	s := &Service{
		store:     store,
		publisher: publisher,
		rand:      rng,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateDrone builds an idle level 1 drone with its type's baseline stats.
func (s *Service) CreateDrone(ctx context.Context, playerID uuid.UUID, typ models.DroneType, teamID *uuid.UUID) (*models.Drone, error) {
	logger := s.logger.With("component", "drone_service", "operation", "create_drone", "player_id", playerID, "drone_type", typ)

	stats, ok := BaseStats(typ)
	if !ok {
		return nil, errors.Validationf("invalid drone type: %q", typ)
	}

	var drone *models.Drone
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := tx.GetPlayer(ctx, playerID); err != nil {
			return err
		}
		drone = &models.Drone{
			ID:        uuid.New(),
			PlayerID:  playerID,
			TeamID:    teamID,
			Type:      typ,
			Status:    models.DroneIdle,
			Level:     1,
			Health:    stats.Health,
			MaxHealth: stats.Health,
			Attack:    stats.Attack,
			Defense:   stats.Defense,
			Speed:     stats.Speed,
			Abilities: stats.Abilities,
			CreatedAt: s.now(),
		}
		return tx.InsertDrone(ctx, drone)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Drone created", "drone_id", drone.ID)
	return drone, nil
}

// ownedDrone locks a drone belonging to the player. Drones of other players
// are reported as not found.
func ownedDrone(ctx context.Context, tx storage.Tx, playerID, droneID uuid.UUID) (*models.Drone, error) {
	d, err := tx.LockDrone(ctx, droneID)
	if err != nil {
		return nil, err
	}
	if d.PlayerID != playerID {
		return nil, errors.NotFoundf("drone not found: %s", droneID)
	}
	return d, nil
}

// DeployRequest describes where and why a drone is deployed.
type DeployRequest struct {
	SectorID       int        `json:"sectorId"`
	DeploymentType string     `json:"deploymentType"`
	TargetID       *uuid.UUID `json:"targetId,omitempty"`
}

// DeployDrone binds a drone to a sector. Any active deployment of the drone
// is recalled first, so a drone never has two.
func (s *Service) DeployDrone(ctx context.Context, playerID, droneID uuid.UUID, req DeployRequest) (*models.DroneDeployment, error) {
	logger := s.logger.With("component", "drone_service", "operation", "deploy_drone", "drone_id", droneID, "sector_id", req.SectorID)

	if req.DeploymentType == "" {
		req.DeploymentType = DefaultDeploymentType
	}

	var deployment *models.DroneDeployment
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		player, err := tx.GetPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		drone, err := ownedDrone(ctx, tx, playerID, droneID)
		if err != nil {
			return err
		}
		if drone.Destroyed() {
			return errors.InvalidStatef("cannot deploy destroyed drone %s", drone.ID)
		}
		if _, err := tx.GetSector(ctx, req.SectorID); err != nil {
			return err
		}

		now := s.now()
		if _, err := s.recall(ctx, tx, drone, now); err != nil {
			return err
		}

		sectorID := req.SectorID
		drone.Status = models.DroneDeployed
		drone.SectorID = &sectorID
		if err := tx.UpdateDrone(ctx, drone); err != nil {
			return err
		}

		teamID := drone.TeamID
		if teamID == nil {
			teamID = player.TeamID
		}
		deployment = &models.DroneDeployment{
			ID:             uuid.New(),
			DroneID:        drone.ID,
			PlayerID:       playerID,
			TeamID:         teamID,
			SectorID:       req.SectorID,
			DeploymentType: req.DeploymentType,
			TargetID:       req.TargetID,
			IsActive:       true,
			DeployedAt:     now,
		}
		return tx.InsertDeployment(ctx, deployment)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Drone deployed", "deployment_id", deployment.ID, "deployment_type", deployment.DeploymentType)
	return deployment, nil
}

// RecallDrone ends the drone's active deployment. It fails with
// invalid_state when the drone is not deployed.
func (s *Service) RecallDrone(ctx context.Context, playerID, droneID uuid.UUID) (*models.DroneDeployment, error) {
	var deployment *models.DroneDeployment
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		drone, err := ownedDrone(ctx, tx, playerID, droneID)
		if err != nil {
			return err
		}
		deployment, err = s.recall(ctx, tx, drone, s.now())
		if err != nil {
			return err
		}
		if deployment == nil {
			return errors.InvalidStatef("drone %s is not deployed", drone.ID)
		}
		return tx.UpdateDrone(ctx, drone)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Drone recalled", "component", "drone_service", "drone_id", droneID, "sector_id", deployment.SectorID)
	return deployment, nil
}

// recall deactivates the drone's active deployment, if any, and marks a
// surviving drone as returning. The caller writes the drone.
func (s *Service) recall(ctx context.Context, tx storage.Tx, drone *models.Drone, now time.Time) (*models.DroneDeployment, error) {
	d, err := tx.ActiveDeployment(ctx, drone.ID)
	if err != nil || d == nil {
		return nil, err
	}
	d.IsActive = false
	d.RecalledAt = &now
	if err := tx.UpdateDeployment(ctx, d); err != nil {
		return nil, err
	}
	if !drone.Destroyed() {
		drone.Status = models.DroneReturning
	}
	drone.SectorID = nil
	return d, nil
}

// InitiateDroneCombat fights the player's drone against another player's
// drone deployed in the same sector, to destruction or 20 rounds.
func (s *Service) InitiateDroneCombat(ctx context.Context, playerID, attackerID, defenderID uuid.UUID) (*models.DroneCombat, error) {
	logger := s.logger.With("component", "drone_service", "operation", "drone_combat", "attacker_drone_id", attackerID, "defender_drone_id", defenderID)

	if attackerID == defenderID {
		return nil, errors.Validation("a drone cannot fight itself")
	}

	var combat *models.DroneCombat
	var out []events.Event
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		combat, out = nil, nil

		drones, err := lockDrones(ctx, tx, attackerID, defenderID)
		if err != nil {
			return err
		}
		attacker, defender := drones[0], drones[1]

		switch {
		case attacker.PlayerID != playerID:
			return errors.NotFoundf("drone not found: %s", attackerID)
		case defender.PlayerID == playerID:
			return errors.InvalidStatef("cannot attack your own drone")
		case attacker.Destroyed() || defender.Destroyed():
			return errors.InvalidStatef("destroyed drones cannot fight")
		case attacker.SectorID == nil || defender.SectorID == nil:
			return errors.InvalidStatef("both drones must be deployed")
		case *attacker.SectorID != *defender.SectorID:
			return errors.InvalidStatef("drones are not in the same sector")
		}

		now := s.now()
		sectorID := *attacker.SectorID
		attacker.Status, defender.Status = models.DroneInCombat, models.DroneInCombat

		res := Fight(s.rand(), attacker, defender)

		for _, d := range drones {
			if d.Destroyed() {
				d.DestroyedAt = &now
				if _, err := s.recall(ctx, tx, d, now); err != nil {
					return err
				}
			}
			if err := tx.UpdateDrone(ctx, d); err != nil {
				return err
			}
		}

		combat = &models.DroneCombat{
			ID:              uuid.New(),
			AttackerDroneID: attacker.ID,
			DefenderDroneID: defender.ID,
			SectorID:        &sectorID,
			Rounds:          res.Rounds,
			AttackerDamage:  res.AttackerDamage,
			DefenderDamage:  res.DefenderDamage,
			CreatedAt:       now,
		}
		if res.Winner != nil {
			id := res.Winner.ID
			combat.WinnerDroneID = &id
		}
		if err := tx.InsertDroneCombat(ctx, combat); err != nil {
			return err
		}

		pid := playerID
		out = []events.Event{{Type: events.TypeDroneCombat, PlayerID: &pid, SectorID: &sectorID, OccurredAt: now, Payload: *combat}}
		logger.Info("Drone combat resolved", "rounds", len(res.Rounds), "winner", combat.WinnerDroneID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, s.publisher, logger, out...)
	return combat, nil
}

// lockDrones locks two drones in ascending id order and returns them in
// argument order.
func lockDrones(ctx context.Context, tx storage.Tx, a, b uuid.UUID) ([2]*models.Drone, error) {
	var out [2]*models.Drone
	order := []int{0, 1}
	ids := [2]uuid.UUID{a, b}
	if bytes.Compare(a[:], b[:]) > 0 {
		order = []int{1, 0}
	}
	for _, i := range order {
		d, err := tx.LockDrone(ctx, ids[i])
		if err != nil {
			return out, err
		}
		out[i] = d
	}
	return out, nil
}

// RepairDrone restores up to amount health.
func (s *Service) RepairDrone(ctx context.Context, playerID, droneID uuid.UUID, amount int) (*models.Drone, error) {
	if amount <= 0 {
		return nil, errors.Validation("repair amount must be positive")
	}

	var drone *models.Drone
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		drone, err = ownedDrone(ctx, tx, playerID, droneID)
		if err != nil {
			return err
		}
		if drone.Destroyed() {
			return errors.InvalidStatef("cannot repair destroyed drone %s", drone.ID)
		}
		repair(drone, amount)
		return tx.UpdateDrone(ctx, drone)
	})
	if err != nil {
		return nil, err
	}
	return drone, nil
}

// UpgradeDrone raises the drone one level.
func (s *Service) UpgradeDrone(ctx context.Context, playerID, droneID uuid.UUID) (*models.Drone, error) {
	var drone *models.Drone
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		drone, err = ownedDrone(ctx, tx, playerID, droneID)
		if err != nil {
			return err
		}
		if drone.Destroyed() {
			return errors.InvalidStatef("cannot upgrade destroyed drone %s", drone.ID)
		}
		upgrade(drone)
		return tx.UpdateDrone(ctx, drone)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Drone upgraded", "component", "drone_service", "drone_id", droneID, "level", drone.Level)
	return drone, nil
}

func (s *Service) GetDrone(ctx context.Context, playerID, droneID uuid.UUID) (*models.Drone, error) {
	var drone *models.Drone
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		d, err := tx.GetDrone(ctx, droneID)
		if err != nil {
			return err
		}
		if d.PlayerID != playerID {
			return errors.NotFoundf("drone not found: %s", droneID)
		}
		drone = d
		return nil
	})
	return drone, err
}

// ListDrones returns the player's drones, oldest first.
func (s *Service) ListDrones(ctx context.Context, playerID uuid.UUID, includeDestroyed bool) ([]models.Drone, error) {
	out := []models.Drone{}
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		drones, err := tx.ListDronesForPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		for _, d := range drones {
			if includeDestroyed || !d.Destroyed() {
				out = append(out, d)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SectorDrones returns the drones actively deployed in a sector.
func (s *Service) SectorDrones(ctx context.Context, sectorID int) ([]models.Drone, error) {
	out := []models.Drone{}
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := tx.GetSector(ctx, sectorID); err != nil {
			return err
		}
		deployments, err := tx.ListSectorDeployments(ctx, sectorID)
		if err != nil {
			return err
		}
		for _, dep := range deployments {
			d, err := tx.GetDrone(ctx, dep.DroneID)
			if err != nil {
				return err
			}
			out = append(out, *d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CombatHistory returns the drone's most recent battles, newest first.
func (s *Service) CombatHistory(ctx context.Context, playerID, droneID uuid.UUID, limit int) ([]models.DroneCombat, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	var combats []models.DroneCombat
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		d, err := tx.GetDrone(ctx, droneID)
		if err != nil {
			return err
		}
		if d.PlayerID != playerID {
			return errors.NotFoundf("drone not found: %s", droneID)
		}
		combats, err = tx.ListDroneCombats(ctx, droneID)
		return err
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(combats, func(i, j int) bool { return combats[i].CreatedAt.After(combats[j].CreatedAt) })
	if len(combats) > limit {
		combats = combats[:limit]
	}
	if combats == nil {
		combats = []models.DroneCombat{}
	}
	return combats, nil
}
