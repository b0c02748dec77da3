package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"sectorwars-server/internal/models"
	"sectorwars-server/internal/shared/errors"

	"github.com/google/uuid"
)

// tx reads and writes the working copy. Every getter hands out a copy so
// callers only change stored state through the Update methods.
type tx struct {
	st *state
}

func (t *tx) InsertPlayer(_ context.Context, p *models.Player) error {
	if _, ok := t.st.players[p.ID]; ok {
		return errors.InvalidStatef("player %s already exists", p.ID)
	}
	for _, other := range t.st.players {
		if other.Username == p.Username {
			return errors.InvalidStatef("username %q is taken", p.Username)
		}
	}
	t.st.players[p.ID] = *p
	return nil
}

func (t *tx) GetPlayer(_ context.Context, id uuid.UUID) (*models.Player, error) {
	p, ok := t.st.players[id]
	if !ok {
		return nil, errors.NotFoundf("player not found: %s", id)
	}
	return &p, nil
}

func (t *tx) LockPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	return t.GetPlayer(ctx, id)
}

func (t *tx) UpdatePlayer(_ context.Context, p *models.Player) error {
	if _, ok := t.st.players[p.ID]; !ok {
		return errors.NotFoundf("player not found: %s", p.ID)
	}
	t.st.players[p.ID] = *p
	return nil
}

func (t *tx) InsertShip(_ context.Context, s *models.Ship) error {
	t.st.ships[s.ID] = *s
	return nil
}

func (t *tx) GetShip(_ context.Context, id uuid.UUID) (*models.Ship, error) {
	s, ok := t.st.ships[id]
	if !ok {
		return nil, errors.NotFoundf("ship not found: %s", id)
	}
	return &s, nil
}

func (t *tx) LockShip(ctx context.Context, id uuid.UUID) (*models.Ship, error) {
	return t.GetShip(ctx, id)
}

func (t *tx) UpdateShip(_ context.Context, s *models.Ship) error {
	if _, ok := t.st.ships[s.ID]; !ok {
		return errors.NotFoundf("ship not found: %s", s.ID)
	}
	t.st.ships[s.ID] = *s
	return nil
}

func (t *tx) ListActiveShips(_ context.Context, ownerID uuid.UUID, sectorID int) ([]models.Ship, error) {
	var ships []models.Ship
	for _, s := range t.st.ships {
		if s.OwnerID == ownerID && s.SectorID == sectorID && s.IsActive {
			ships = append(ships, s)
		}
	}
	sort.Slice(ships, func(i, j int) bool { return ships[i].CreatedAt.Before(ships[j].CreatedAt) })
	return ships, nil
}

func (t *tx) InsertSector(_ context.Context, s *models.Sector) error {
	if _, ok := t.st.sectors[s.ID]; ok {
		return errors.InvalidStatef("sector %d already exists", s.ID)
	}
	t.st.sectors[s.ID] = cloneSector(*s)
	return nil
}

func (t *tx) GetSector(_ context.Context, id int) (*models.Sector, error) {
	s, ok := t.st.sectors[id]
	if !ok {
		return nil, errors.NotFoundf("sector not found: %d", id)
	}
	s = cloneSector(s)
	return &s, nil
}

func (t *tx) LockSector(ctx context.Context, id int) (*models.Sector, error) {
	return t.GetSector(ctx, id)
}

func (t *tx) UpdatePresence(_ context.Context, sectorID int, entries []models.PresenceEntry) error {
	s, ok := t.st.sectors[sectorID]
	if !ok {
		return errors.NotFoundf("sector not found: %d", sectorID)
	}
	s.PlayersPresent = slices.Clone(entries)
	t.st.sectors[sectorID] = s
	return nil
}

func (t *tx) ListSectors(_ context.Context) ([]models.Sector, error) {
	sectors := make([]models.Sector, 0, len(t.st.sectors))
	for _, s := range t.st.sectors {
		sectors = append(sectors, cloneSector(s))
	}
	sort.Slice(sectors, func(i, j int) bool { return sectors[i].ID < sectors[j].ID })
	return sectors, nil
}

func (t *tx) InsertWarp(_ context.Context, w *models.Warp) error {
	t.st.warps = append(t.st.warps, *w)
	return nil
}

func (t *tx) ListWarps(_ context.Context) ([]models.Warp, error) {
	return slices.Clone(t.st.warps), nil
}

func (t *tx) InsertTunnel(_ context.Context, tn *models.Tunnel) error {
	if _, ok := t.st.tunnels[tn.ID]; !ok {
		t.st.tunnelOrder = append(t.st.tunnelOrder, tn.ID)
	}
	t.st.tunnels[tn.ID] = *tn
	return nil
}

func (t *tx) LockTunnel(_ context.Context, id uuid.UUID) (*models.Tunnel, error) {
	tn, ok := t.st.tunnels[id]
	if !ok {
		return nil, errors.NotFoundf("tunnel not found: %s", id)
	}
	return &tn, nil
}

func (t *tx) UpdateTunnel(_ context.Context, tn *models.Tunnel) error {
	if _, ok := t.st.tunnels[tn.ID]; !ok {
		return errors.NotFoundf("tunnel not found: %s", tn.ID)
	}
	t.st.tunnels[tn.ID] = *tn
	return nil
}

func (t *tx) ListTunnels(_ context.Context) ([]models.Tunnel, error) {
	var tunnels []models.Tunnel
	for _, id := range t.st.tunnelOrder {
		if tn := t.st.tunnels[id]; tn.Status == models.TunnelActive {
			tunnels = append(tunnels, tn)
		}
	}
	return tunnels, nil
}

func (t *tx) InsertPlanet(_ context.Context, p *models.Planet) error {
	t.st.planets[p.ID] = *p
	return nil
}

func (t *tx) GetPlanet(_ context.Context, id uuid.UUID) (*models.Planet, error) {
	p, ok := t.st.planets[id]
	if !ok {
		return nil, errors.NotFoundf("planet not found: %s", id)
	}
	return &p, nil
}

func (t *tx) InsertPort(_ context.Context, p *models.Port) error {
	t.st.ports[p.ID] = *p
	return nil
}

func (t *tx) GetPort(_ context.Context, id uuid.UUID) (*models.Port, error) {
	p, ok := t.st.ports[id]
	if !ok {
		return nil, errors.NotFoundf("port not found: %s", id)
	}
	return &p, nil
}

func (t *tx) InsertCombat(_ context.Context, c *models.CombatLog) error {
	if _, ok := t.st.combats[c.ID]; ok {
		return errors.InvalidStatef("combat %s already exists", c.ID)
	}
	t.st.combats[c.ID] = cloneCombat(*c)
	return nil
}

func (t *tx) GetCombat(_ context.Context, id uuid.UUID) (*models.CombatLog, error) {
	c, ok := t.st.combats[id]
	if !ok {
		return nil, errors.NotFoundf("combat not found: %s", id)
	}
	c = cloneCombat(c)
	return &c, nil
}

func (t *tx) LockCombat(ctx context.Context, id uuid.UUID) (*models.CombatLog, error) {
	return t.GetCombat(ctx, id)
}

func (t *tx) FinishRound(_ context.Context, c *models.CombatLog, round *models.CombatStats) error {
	stored, ok := t.st.combats[c.ID]
	if !ok {
		return errors.NotFoundf("combat not found: %s", c.ID)
	}
	if stored.Outcome.Terminal() {
		return errors.InvalidStatef("combat %s already ended as %s", c.ID, stored.Outcome)
	}
	rounds := t.st.rounds[c.ID]
	if want := len(rounds) + 1; round.RoundNumber != want {
		return errors.InvalidStatef("combat %s expected round %d, got %d", c.ID, want, round.RoundNumber)
	}
	t.st.rounds[c.ID] = append(slices.Clone(rounds), *round)
	t.st.combats[c.ID] = cloneCombat(*c)
	return nil
}

func (t *tx) ListRounds(_ context.Context, combatID uuid.UUID) ([]models.CombatStats, error) {
	return slices.Clone(t.st.rounds[combatID]), nil
}

func (t *tx) ListDueCombats(_ context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	var due []models.CombatLog
	for _, c := range t.st.combats {
		if c.Outcome == models.OutcomeOngoing && !c.LastRoundAt.After(cutoff) {
			due = append(due, c)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].LastRoundAt.Before(due[j].LastRoundAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	ids := make([]uuid.UUID, len(due))
	for i, c := range due {
		ids[i] = c.ID
	}
	return ids, nil
}

func (t *tx) ListCombatsForPlayer(_ context.Context, playerID uuid.UUID, limit int) ([]models.CombatLog, error) {
	var logs []models.CombatLog
	for _, c := range t.st.combats {
		if c.AttackerID == playerID || (c.DefenderID != nil && *c.DefenderID == playerID) {
			logs = append(logs, cloneCombat(c))
		}
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].StartedAt.After(logs[j].StartedAt) })
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (t *tx) InsertDrone(_ context.Context, d *models.Drone) error {
	t.st.drones[d.ID] = cloneDrone(*d)
	return nil
}

func (t *tx) GetDrone(_ context.Context, id uuid.UUID) (*models.Drone, error) {
	d, ok := t.st.drones[id]
	if !ok {
		return nil, errors.NotFoundf("drone not found: %s", id)
	}
	d = cloneDrone(d)
	return &d, nil
}

func (t *tx) LockDrone(ctx context.Context, id uuid.UUID) (*models.Drone, error) {
	return t.GetDrone(ctx, id)
}

func (t *tx) UpdateDrone(_ context.Context, d *models.Drone) error {
	if _, ok := t.st.drones[d.ID]; !ok {
		return errors.NotFoundf("drone not found: %s", d.ID)
	}
	t.st.drones[d.ID] = cloneDrone(*d)
	return nil
}

func (t *tx) ListDronesForPlayer(_ context.Context, playerID uuid.UUID) ([]models.Drone, error) {
	var drones []models.Drone
	for _, d := range t.st.drones {
		if d.PlayerID == playerID {
			drones = append(drones, cloneDrone(d))
		}
	}
	sort.Slice(drones, func(i, j int) bool { return drones[i].CreatedAt.Before(drones[j].CreatedAt) })
	return drones, nil
}

func (t *tx) InsertDeployment(_ context.Context, d *models.DroneDeployment) error {
	if _, ok := t.st.deployments[d.ID]; !ok {
		t.st.deployOrder = append(t.st.deployOrder, d.ID)
	}
	t.st.deployments[d.ID] = *d
	return nil
}

func (t *tx) ActiveDeployment(_ context.Context, droneID uuid.UUID) (*models.DroneDeployment, error) {
	for _, id := range t.st.deployOrder {
		d := t.st.deployments[id]
		if d.DroneID == droneID && d.IsActive {
			return &d, nil
		}
	}
	return nil, nil
}

func (t *tx) UpdateDeployment(_ context.Context, d *models.DroneDeployment) error {
	if _, ok := t.st.deployments[d.ID]; !ok {
		return errors.NotFoundf("deployment not found: %s", d.ID)
	}
	t.st.deployments[d.ID] = *d
	return nil
}

func (t *tx) ListSectorDeployments(_ context.Context, sectorID int) ([]models.DroneDeployment, error) {
	var out []models.DroneDeployment
	for _, id := range t.st.deployOrder {
		if d := t.st.deployments[id]; d.IsActive && d.SectorID == sectorID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (t *tx) InsertDroneCombat(_ context.Context, c *models.DroneCombat) error {
	c2 := *c
	c2.Rounds = slices.Clone(c.Rounds)
	t.st.droneCombats = append(t.st.droneCombats, c2)
	return nil
}

func (t *tx) ListDroneCombats(_ context.Context, droneID uuid.UUID) ([]models.DroneCombat, error) {
	var out []models.DroneCombat
	for _, c := range t.st.droneCombats {
		if c.AttackerDroneID == droneID || c.DefenderDroneID == droneID {
			out = append(out, c)
		}
	}
	return out, nil
}
