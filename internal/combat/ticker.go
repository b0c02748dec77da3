package combat

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"sectorwars-server/internal/shared/config"
	"sectorwars-server/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Ticker advances ongoing combats whose last round is older than the
// service's round interval, one round per combat per tick.
type Ticker struct {
	service       *Service
	store         storage.Store
	interval      time.Duration
	maxConcurrent int
	batchSize     int
	logger        *slog.Logger
}

func NewTicker(service *Service, store storage.Store, cfg config.CombatConfig, logger *slog.Logger) *Ticker {
	maxConcurrent := max(1, cfg.MaxConcurrent)
	return &Ticker{
		service:       service,
		store:         store,
		interval:      cfg.TickInterval,
		maxConcurrent: maxConcurrent,
		batchSize:     maxConcurrent * 16,
		logger:        logger.With("component", "combat_ticker"),
	}
}

// Run ticks until ctx is cancelled.
func (t *Ticker) Run(ctx context.Context) error {
	t.logger.Info("Combat ticker started", "interval", t.interval, "max_concurrent", t.maxConcurrent)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Combat ticker stopped")
			return nil
		case <-ticker.C:
			if _, err := t.Tick(ctx); err != nil && ctx.Err() == nil {
				t.logger.Error("Combat tick failed", "error", err)
			}
		}
	}
}

// Tick advances every due combat once and returns how many rounds were fought.
// A combat that fails to advance is logged and left for the next tick.
func (t *Ticker) Tick(ctx context.Context) (int, error) {
	cutoff := t.service.now().Add(-t.service.roundInterval)

	var due []uuid.UUID
	err := t.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		due, err = tx.ListDueCombats(ctx, cutoff, t.batchSize)
		return err
	})
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}

	var fought atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.maxConcurrent)

	for _, id := range due {
		g.Go(func() error {
			ok, err := t.service.advanceIfDue(gctx, id, cutoff)
			if err != nil {
				t.logger.Warn("Failed to advance combat", "combat_id", id, "error", err)
				return nil
			}
			if ok {
				fought.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	t.logger.Debug("Combat tick complete", "due", len(due), "rounds_fought", fought.Load())
	return int(fought.Load()), nil
}
