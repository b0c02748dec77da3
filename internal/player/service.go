// Package player registers pilots: a player row, a starter ship, and a
// presence entry in the start sector, all written in one unit of work.
package player

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"sectorwars-server/internal/models"
	"sectorwars-server/internal/shared/config"
	"sectorwars-server/internal/shared/errors"
	"sectorwars-server/internal/storage"

	"github.com/google/uuid"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)

// starterShip is the hull every new player launches in.
var starterShip = models.Ship{
	Type:         models.ShipLightFreighter,
	BaseSpeed:    1,
	CurrentSpeed: 1,
	Shields:      50,
	Armor:        100,
	Guns:         5,
}

type Service struct {
	store  storage.Store
	start  config.PlayerConfig
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store storage.Store, start config.PlayerConfig, logger *slog.Logger, opts ...Option) *Service {
	logger.Debug("Initializing player service")

	s := &Service{
		store:  store,
		start:  start,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type Profile struct {
	Player *models.Player `json:"player"`
	Ship   *models.Ship   `json:"ship,omitempty"`
	Sector *models.Sector `json:"sector"`
}

func (s *Service) CreatePlayer(ctx context.Context, username string, teamID *uuid.UUID) (*Profile, error) {
	logger := s.logger.With("component", "player_service", "operation", "create_player", "username", username)

	if !usernamePattern.MatchString(username) {
		return nil, errors.Validation("username must be 3-32 letters, digits, '-' or '_'")
	}

	now := s.now().UTC()
	player := &models.Player{
		ID:              uuid.New(),
		Username:        username,
		TeamID:          teamID,
		CurrentSectorID: s.start.StartSectorID,
		Turns:           s.start.StartTurns,
		Credits:         s.start.StartCredits,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	ship := starterShip
	ship.ID = uuid.New()
	ship.OwnerID = player.ID
	ship.Name = username + "'s Freighter"
	ship.SectorID = s.start.StartSectorID
	ship.IsActive = true
	ship.CreatedAt = now
	player.CurrentShipID = &ship.ID

	var sector *models.Sector
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.InsertPlayer(ctx, player); err != nil {
			return err
		}
		if err := tx.InsertShip(ctx, &ship); err != nil {
			return err
		}

		var err error
		sector, err = tx.LockSector(ctx, s.start.StartSectorID)
		if err != nil {
			return err
		}
		sector.PlayersPresent = append(models.Without(sector.PlayersPresent, player.ID), models.PresenceEntry{
			PlayerID:  player.ID,
			Username:  player.Username,
			ShipID:    &ship.ID,
			ShipName:  ship.Name,
			ShipType:  ship.Type,
			TeamID:    player.TeamID,
			ArrivedAt: now,
		})
		return tx.UpdatePresence(ctx, sector.ID, sector.PlayersPresent)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Player registered", "player_id", player.ID, "sector_id", sector.ID)
	return &Profile{Player: player, Ship: &ship, Sector: sector}, nil
}

// GetProfile returns the player with their active ship, if any, and current sector.
func (s *Service) GetProfile(ctx context.Context, playerID uuid.UUID) (*Profile, error) {
	var profile Profile
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		player, err := tx.GetPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		profile.Player = player

		if player.CurrentShipID != nil {
			ship, err := tx.GetShip(ctx, *player.CurrentShipID)
			if err != nil && !errors.Is(err, errors.ErrorTypeNotFound) {
				return err
			}
			if ship != nil && ship.IsActive {
				profile.Ship = ship
			}
		}

		profile.Sector, err = tx.GetSector(ctx, player.CurrentSectorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
