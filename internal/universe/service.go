// Package universe generates a playable galaxy: numbered sectors joined by
// a ring of two-way warps plus random shortcuts, warp tunnels, planets and
// ports. Generation runs in one unit of work against an empty store.
package universe

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"sectorwars-server/internal/models"
	"sectorwars-server/internal/random"
	"sectorwars-server/internal/shared/config"
	"sectorwars-server/internal/shared/errors"
	"sectorwars-server/internal/storage"

	"github.com/google/uuid"
)

type Summary struct {
	Sectors int `json:"sectors"`
	Warps   int `json:"warps"`
	Tunnels int `json:"tunnels"`
	Planets int `json:"planets,omitempty"`
	Ports   int `json:"ports,omitempty"`
}

type Service struct {
	store  storage.Store
	rand   random.Factory
	logger *slog.Logger
}

func NewService(store storage.Store, rng random.Factory, logger *slog.Logger) *Service {
	logger.Debug("Initializing universe service")

	return &Service{
		store:  store,
		rand:   rng,
		logger: logger,
	}
}

// Seed generates the galaxy unless one already exists, in which case it
// returns nil without error.
func (s *Service) Seed(ctx context.Context, cfg config.UniverseConfig) (*Summary, error) {
	summary, err := s.Generate(ctx, cfg)
	if errors.Is(err, errors.ErrorTypeInvalidState) {
		s.logger.Info("Galaxy already seeded, skipping generation")
		return nil, nil
	}
	return summary, err
}

// Generate fills an empty store. A non-zero cfg.Seed replays the same galaxy.
func (s *Service) Generate(ctx context.Context, cfg config.UniverseConfig) (*Summary, error) {
	logger := s.logger.With("component", "universe_service", "operation", "generate", "sector_count", cfg.SectorCount)
	logger.Debug("Generating galaxy")

	if cfg.SectorCount < 2 {
		return nil, errors.Validationf("a galaxy needs at least 2 sectors, got %d", cfg.SectorCount)
	}

	rng := s.rand()
	if cfg.Seed != 0 {
		rng = random.Seeded(cfg.Seed)
	}

	var summary Summary
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		existing, err := tx.ListSectors(ctx)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return errors.InvalidStatef("galaxy already has %d sectors", len(existing))
		}

		g := &generator{rng: rng, cfg: cfg, linked: map[[2]int]bool{}}
		summary, err = g.run(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Galaxy generated",
		"sectors", summary.Sectors,
		"warps", summary.Warps,
		"tunnels", summary.Tunnels,
		"planets", summary.Planets,
		"ports", summary.Ports)

	return &summary, nil
}

// Stats counts the movement graph: sectors, warps and active tunnels.
func (s *Service) Stats(ctx context.Context) (*Summary, error) {
	var summary Summary
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		sectors, err := tx.ListSectors(ctx)
		if err != nil {
			return err
		}
		warps, err := tx.ListWarps(ctx)
		if err != nil {
			return err
		}
		tunnels, err := tx.ListTunnels(ctx)
		if err != nil {
			return err
		}
		summary = Summary{Sectors: len(sectors), Warps: len(warps), Tunnels: len(tunnels)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

type generator struct {
	rng     random.Source
	cfg     config.UniverseConfig
	linked  map[[2]int]bool
	summary Summary
}

func (g *generator) run(ctx context.Context, tx storage.Tx) (Summary, error) {
	n := g.cfg.SectorCount

	sectors := make([]models.Sector, 0, n)
	for id := 1; id <= n; id++ {
		sector := g.sector(id)
		if err := tx.InsertSector(ctx, &sector); err != nil {
			return Summary{}, fmt.Errorf("failed to create sector %d: %w", id, err)
		}
		sectors = append(sectors, sector)
	}
	g.summary.Sectors = n

	// The ring keeps every sector reachable from every other.
	for id := 1; id <= n; id++ {
		if err := g.link(ctx, tx, id, id%n+1); err != nil {
			return Summary{}, err
		}
	}
	for id := 1; id <= n; id++ {
		for range g.cfg.ExtraWarps {
			if err := g.link(ctx, tx, id, random.IntRange(g.rng, 1, n)); err != nil {
				return Summary{}, err
			}
		}
	}

	for i := range g.cfg.TunnelCount {
		if err := g.tunnel(ctx, tx, i+1); err != nil {
			return Summary{}, err
		}
	}

	for _, sector := range sectors {
		if err := g.bodies(ctx, tx, sector); err != nil {
			return Summary{}, err
		}
	}

	return g.summary, nil
}

func (g *generator) sector(id int) models.Sector {
	sector := models.Sector{
		ID:   id,
		Name: fmt.Sprintf("%s %d", sectorNames[g.rng.IntN(len(sectorNames))], id),
		Type: models.SectorStandard,
	}
	// Sector 1 is the safe harbour new players start in.
	if id == 1 {
		return sector
	}

	sector.Type = pick(g.rng, sectorWeights)
	if sector.Type.Hazardous() {
		sector.HazardLevel = random.IntRange(g.rng, 4, 10)
	} else {
		sector.HazardLevel = random.IntRange(g.rng, 0, 3)
	}
	sector.RadiationLevel = round2(g.rng.Float64() * float64(sector.HazardLevel) / 10)
	return sector
}

// link adds a two-way warp unless the pair is already joined.
func (g *generator) link(ctx context.Context, tx storage.Tx, a, b int) error {
	if a == b || g.linked[[2]int{a, b}] {
		return nil
	}
	cost := random.IntRange(g.rng, 1, 3)
	for _, w := range []models.Warp{
		{SourceSectorID: a, DestinationSectorID: b, TurnCost: cost},
		{SourceSectorID: b, DestinationSectorID: a, TurnCost: cost},
	} {
		if err := tx.InsertWarp(ctx, &w); err != nil {
			return fmt.Errorf("failed to create warp %d->%d: %w", w.SourceSectorID, w.DestinationSectorID, err)
		}
	}
	g.linked[[2]int{a, b}] = true
	g.linked[[2]int{b, a}] = true
	g.summary.Warps += 2
	return nil
}

func (g *generator) tunnel(ctx context.Context, tx storage.Tx, n int) error {
	origin := random.IntRange(g.rng, 1, g.cfg.SectorCount)
	destination := random.IntRange(g.rng, 1, g.cfg.SectorCount-1)
	if destination >= origin {
		destination++
	}

	typ := pick(g.rng, tunnelWeights)
	t := models.Tunnel{
		ID:                  uuid.New(),
		Name:                fmt.Sprintf("%s Passage %d", sectorNames[g.rng.IntN(len(sectorNames))], n),
		OriginSectorID:      origin,
		DestinationSectorID: destination,
		Type:                typ,
		Status:              models.TunnelActive,
		IsBidirectional:     typ != models.TunnelOneWay && g.rng.Float64() < 0.8,
		Stability:           round2(0.7 + g.rng.Float64()*0.3),
		TurnCost:            random.IntRange(g.rng, 2, 6),
	}
	switch typ {
	case models.TunnelUnstable:
		t.Stability = round2(0.3 + g.rng.Float64()*0.3)
		fallthrough
	case models.TunnelArtificial:
		maxUses := random.IntRange(g.rng, 5, 20)
		t.MaxUses = &maxUses
	}

	if err := tx.InsertTunnel(ctx, &t); err != nil {
		return fmt.Errorf("failed to create tunnel %s: %w", t.Name, err)
	}
	g.summary.Tunnels++
	return nil
}

// bodies rolls an unowned planet and a port for the sector.
func (g *generator) bodies(ctx context.Context, tx storage.Tx, sector models.Sector) error {
	if g.rng.Float64() < g.cfg.PlanetChance {
		planet := models.Planet{
			ID:       uuid.New(),
			Name:     fmt.Sprintf("%s %s", sector.Name, planetSuffixes[g.rng.IntN(len(planetSuffixes))]),
			SectorID: sector.ID,
		}
		if err := tx.InsertPlanet(ctx, &planet); err != nil {
			return fmt.Errorf("failed to create planet in sector %d: %w", sector.ID, err)
		}
		g.summary.Planets++
	}

	if g.rng.Float64() < g.cfg.PortChance {
		port := models.Port{
			ID:       uuid.New(),
			Name:     sector.Name + " Station",
			SectorID: sector.ID,
			Class:    models.PortSpecial,
		}
		if g.rng.Float64() >= specialPortChance {
			port.Class = models.PortClass(fmt.Sprintf("class_%d", random.IntRange(g.rng, 0, 9)))
		}
		if err := tx.InsertPort(ctx, &port); err != nil {
			return fmt.Errorf("failed to create port in sector %d: %w", sector.ID, err)
		}
		g.summary.Ports++
	}
	return nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
