package universe

import (
	"context"
	"reflect"
	"testing"

	"sectorwars-server/internal/galaxy"
	"sectorwars-server/internal/models"
	"sectorwars-server/internal/random"
	"sectorwars-server/internal/shared/config"
	"sectorwars-server/internal/shared/errors"
	"sectorwars-server/internal/shared/logger"
	"sectorwars-server/internal/storage"
	"sectorwars-server/internal/storage/storagetest"

	"pgregory.net/rapid"
)

var baseConfig = config.UniverseConfig{
	Seed:         42,
	SectorCount:  30,
	ExtraWarps:   2,
	TunnelCount:  8,
	PlanetChance: 0.5,
	PortChance:   0.5,
}

func newService(w *storagetest.World) *Service {
	return NewService(w.Store, random.SeededFactory(7), logger.Discard())
}

type layout struct {
	sectors []models.Sector
	warps   []models.Warp
	tunnels []models.Tunnel
}

func readLayout(w *storagetest.World) layout {
	var l layout
	w.Read(func(ctx context.Context, tx storage.Tx) error {
		var err error
		if l.sectors, err = tx.ListSectors(ctx); err != nil {
			return err
		}
		if l.warps, err = tx.ListWarps(ctx); err != nil {
			return err
		}
		l.tunnels, err = tx.ListTunnels(ctx)
		return err
	})
	return l
}

func TestGenerate(t *testing.T) {
	w := storagetest.NewWorld(t)
	svc := newService(w)

	summary, err := svc.Generate(context.Background(), baseConfig)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	l := readLayout(w)

	if summary.Sectors != 30 || len(l.sectors) != 30 {
		t.Fatalf("sectors = %d (stored %d), want 30", summary.Sectors, len(l.sectors))
	}
	if summary.Warps != len(l.warps) || summary.Warps < 60 {
		t.Errorf("warps = %d (stored %d), want at least the 60 ring warps", summary.Warps, len(l.warps))
	}
	if summary.Tunnels != 8 || len(l.tunnels) != 8 {
		t.Errorf("tunnels = %d (stored %d), want 8", summary.Tunnels, len(l.tunnels))
	}

	first := l.sectors[0]
	if first.ID != 1 || first.Type != models.SectorStandard || first.HazardLevel != 0 {
		t.Errorf("start sector = %+v", first)
	}

	for _, tn := range l.tunnels {
		if tn.OriginSectorID == tn.DestinationSectorID {
			t.Errorf("tunnel %s loops on sector %d", tn.Name, tn.OriginSectorID)
		}
		if tn.Stability < 0 || tn.Stability > 1 || tn.TurnCost < 1 {
			t.Errorf("tunnel %s stability %v cost %d", tn.Name, tn.Stability, tn.TurnCost)
		}
		if tn.Type == models.TunnelOneWay && tn.IsBidirectional {
			t.Errorf("one-way tunnel %s is bidirectional", tn.Name)
		}
		if tn.Type == models.TunnelUnstable && tn.MaxUses == nil {
			t.Errorf("unstable tunnel %s has no use limit", tn.Name)
		}
	}

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Sectors != 30 || stats.Warps != summary.Warps || stats.Tunnels != 8 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestGenerateIsReproducible(t *testing.T) {
	a, b := storagetest.NewWorld(t), storagetest.NewWorld(t)
	for _, w := range []*storagetest.World{a, b} {
		if _, err := newService(w).Generate(context.Background(), baseConfig); err != nil {
			t.Fatalf("Generate: %v", err)
		}
	}

	la, lb := readLayout(a), readLayout(b)
	if !reflect.DeepEqual(la.sectors, lb.sectors) || !reflect.DeepEqual(la.warps, lb.warps) {
		t.Fatal("same seed produced different galaxies")
	}
}

func TestSeedSkipsExistingGalaxy(t *testing.T) {
	w := storagetest.NewWorld(t)
	w.Sectors(1)
	svc := newService(w)

	if _, err := svc.Generate(context.Background(), baseConfig); !errors.Is(err, errors.ErrorTypeInvalidState) {
		t.Fatalf("Generate error = %v, want invalid_state", err)
	}

	summary, err := svc.Seed(context.Background(), baseConfig)
	if err != nil || summary != nil {
		t.Fatalf("Seed = %+v, %v; want nil, nil", summary, err)
	}
	if n := len(readLayout(w).sectors); n != 1 {
		t.Errorf("sectors = %d, want the original 1", n)
	}
}

func TestGenerateRejectsTinyGalaxy(t *testing.T) {
	w := storagetest.NewWorld(t)
	cfg := baseConfig
	cfg.SectorCount = 1

	if _, err := newService(w).Generate(context.Background(), cfg); !errors.Is(err, errors.ErrorTypeValidation) {
		t.Fatalf("error = %v, want validation", err)
	}
}

func TestGeneratedGalaxyIsConnected(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		w := storagetest.NewWorld(rt)
		cfg := config.UniverseConfig{
			Seed:         rapid.Uint64Min(1).Draw(rt, "seed"),
			SectorCount:  rapid.IntRange(2, 40).Draw(rt, "sectors"),
			ExtraWarps:   rapid.IntRange(0, 3).Draw(rt, "extra_warps"),
			TunnelCount:  rapid.IntRange(0, 5).Draw(rt, "tunnels"),
			PlanetChance: 0.3,
			PortChance:   0.3,
		}
		if _, err := newService(w).Generate(context.Background(), cfg); err != nil {
			rt.Fatalf("Generate: %v", err)
		}

		l := readLayout(w)
		seen := map[[2]int]bool{}
		for _, warp := range l.warps {
			key := [2]int{warp.SourceSectorID, warp.DestinationSectorID}
			if key[0] == key[1] || seen[key] {
				rt.Fatalf("bad or duplicate warp %v", key)
			}
			seen[key] = true
		}

		g := galaxy.New(l.sectors, l.warps, l.tunnels)
		for _, s := range l.sectors {
			if len(g.ShortestPath(1, s.ID)) == 0 {
				rt.Fatalf("sector %d unreachable from 1", s.ID)
			}
		}
	})
}
