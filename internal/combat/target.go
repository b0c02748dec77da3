package combat

import (
	"context"
	"strconv"
	"strings"

	"sectorwars-server/internal/models"
	"sectorwars-server/internal/shared/errors"
	"sectorwars-server/internal/storage"

	"github.com/google/uuid"
)

const (
	planetBaseDefense  = 100
	droneDefenseBonus  = 20
	planetArmorFactor  = 10
	portArmorFactor    = 5
	unknownPortDefense = 100
	unknownPortLoot    = 1000
	specialPortDefense = 500
	specialPortLoot    = 15000
	maxShipLoot        = 10000
)

// Target is what an attacker engaged. Exactly one of Ship, Planet or Port is
// set, matching Type. NPC targets carry a Defense rating instead of stats.
type Target struct {
	Type    models.TargetType
	Ship    *models.Ship
	Planet  *models.Planet
	Port    *models.Port
	Defense int
}

func (t Target) ID() uuid.UUID {
	switch t.Type {
	case models.TargetShip:
		return t.Ship.ID
	case models.TargetPlanet:
		return t.Planet.ID
	default:
		return t.Port.ID
	}
}

func (t Target) SectorID() int {
	switch t.Type {
	case models.TargetShip:
		return t.Ship.SectorID
	case models.TargetPlanet:
		return t.Planet.SectorID
	default:
		return t.Port.SectorID
	}
}

func (t Target) Name() string {
	switch t.Type {
	case models.TargetShip:
		return t.Ship.Name
	case models.TargetPlanet:
		return t.Planet.Name
	default:
		return t.Port.Name
	}
}

// OwnerID is the defending player, nil for unowned planets and ports.
func (t Target) OwnerID() *uuid.UUID {
	switch t.Type {
	case models.TargetShip:
		id := t.Ship.OwnerID
		return &id
	case models.TargetPlanet:
		return t.Planet.OwnerID
	}
	return nil
}

func (t Target) CombatType() models.CombatType {
	switch t.Type {
	case models.TargetShip:
		return models.CombatShipVsShip
	case models.TargetPlanet:
		return models.CombatPlanetaryAssault
	default:
		return models.CombatPortRaid
	}
}

// npcSide is the starting side of a planet or port with the given rating.
func npcSide(typ models.CombatType, defense int) Side {
	factor := portArmorFactor
	if typ == models.CombatPlanetaryAssault {
		factor = planetArmorFactor
	}
	return Side{
		Armor:     defense * factor,
		Accuracy:  npcAccuracy,
		HitDamage: defense / 10,
	}
}

// portClassNumber parses "class_N"; ok is false for special and unknown classes.
func portClassNumber(c models.PortClass) (int, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(string(c), "class_"))
	if err != nil || !strings.HasPrefix(string(c), "class_") || n < 0 || n > 9 {
		return 0, false
	}
	return n, true
}

func portDefense(c models.PortClass) int {
	if c == models.PortSpecial {
		return specialPortDefense
	}
	if n, ok := portClassNumber(c); ok {
		return n * 50
	}
	return unknownPortDefense
}

func portLoot(c models.PortClass) int {
	if c == models.PortSpecial {
		return specialPortLoot
	}
	if n, ok := portClassNumber(c); ok && n > 0 {
		return n * 1000
	}
	return unknownPortLoot
}

func shipLoot(credits int) int {
	return max(0, min(credits/10, maxShipLoot))
}

// planetDefense is the base rating plus the owner's parked drones and the
// owner's team deployments in the planet's sector.
func planetDefense(ctx context.Context, tx storage.Tx, planet *models.Planet) (int, error) {
	defense := planetBaseDefense
	if planet.OwnerID == nil {
		return defense, nil
	}

	ships, err := tx.ListActiveShips(ctx, *planet.OwnerID, planet.SectorID)
	if err != nil {
		return 0, err
	}
	for _, s := range ships {
		defense += s.Drones
	}

	owner, err := tx.GetPlayer(ctx, *planet.OwnerID)
	if errors.Is(err, errors.ErrorTypeNotFound) {
		return defense, nil
	}
	if err != nil {
		return 0, err
	}
	deployments, err := tx.ListSectorDeployments(ctx, planet.SectorID)
	if err != nil {
		return 0, err
	}
	for _, d := range deployments {
		if d.PlayerID == owner.ID || owner.SameTeam(d.TeamID) {
			defense += droneDefenseBonus
		}
	}
	return defense, nil
}

// resolveTarget loads the target and checks it can be engaged from the
// attacker's ship. Ship targets are row locked.
func resolveTarget(ctx context.Context, tx storage.Tx, attacker *models.Ship, typ models.TargetType, id uuid.UUID) (Target, error) {
	t := Target{Type: typ}

	switch typ {
	case models.TargetShip:
		ship, err := tx.LockShip(ctx, id)
		if err != nil {
			return t, err
		}
		if ship.ID == attacker.ID || ship.OwnerID == attacker.OwnerID {
			return t, errors.InvalidStatef("cannot attack your own ship")
		}
		if !ship.IsActive {
			return t, errors.InvalidStatef("target ship %s is destroyed", ship.ID)
		}
		t.Ship = ship
	case models.TargetPlanet:
		planet, err := tx.GetPlanet(ctx, id)
		if err != nil {
			return t, err
		}
		if planet.OwnerID != nil && *planet.OwnerID == attacker.OwnerID {
			return t, errors.InvalidStatef("cannot attack your own planet")
		}
		t.Planet = planet
		if t.Defense, err = planetDefense(ctx, tx, planet); err != nil {
			return t, err
		}
	case models.TargetPort:
		port, err := tx.GetPort(ctx, id)
		if err != nil {
			return t, err
		}
		t.Port = port
		t.Defense = portDefense(port.Class)
	default:
		return t, errors.Validationf("invalid target type: %q", typ)
	}

	if t.SectorID() != attacker.SectorID {
		return t, errors.InvalidStatef("target %s is not in the same sector", typ)
	}
	return t, nil
}
