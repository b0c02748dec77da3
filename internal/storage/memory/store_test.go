package memory

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"sectorwars-server/internal/models"
	"sectorwars-server/internal/shared/errors"
	"sectorwars-server/internal/shared/logger"
	"sectorwars-server/internal/storage"

	"github.com/google/uuid"
)

func seed(t *testing.T, s *Store) uuid.UUID {
	t.Helper()
	id := uuid.New()
	err := s.Atomic(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		if err := tx.InsertSector(ctx, &models.Sector{ID: 1, Name: "One"}); err != nil {
			return err
		}
		return tx.InsertPlayer(ctx, &models.Player{ID: id, Username: "pilot", CurrentSectorID: 1, Turns: 10})
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return id
}

func TestAtomicRollsBackOnError(t *testing.T) {
	s := New(logger.Discard())
	id := seed(t, s)
	boom := stderrors.New("boom")

	err := s.Atomic(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		p, err := tx.LockPlayer(ctx, id)
		if err != nil {
			return err
		}
		p.Turns = 0
		if err := tx.UpdatePlayer(ctx, p); err != nil {
			return err
		}
		if err := tx.UpdatePresence(ctx, 1, []models.PresenceEntry{{PlayerID: id}}); err != nil {
			return err
		}
		return boom
	})
	if !stderrors.Is(err, boom) {
		t.Fatalf("Atomic() error = %v, want boom", err)
	}

	_ = s.Atomic(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		p, _ := tx.GetPlayer(ctx, id)
		if p.Turns != 10 {
			t.Errorf("turns = %d after rollback, want 10", p.Turns)
		}
		sec, _ := tx.GetSector(ctx, 1)
		if len(sec.PlayersPresent) != 0 {
			t.Errorf("presence = %v after rollback, want empty", sec.PlayersPresent)
		}
		return nil
	})
}

func TestGettersReturnCopies(t *testing.T) {
	s := New(logger.Discard())
	id := seed(t, s)

	_ = s.Atomic(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		p, _ := tx.GetPlayer(ctx, id)
		p.Turns = 99
		sec, _ := tx.GetSector(ctx, 1)
		sec.PlayersPresent = append(sec.PlayersPresent, models.PresenceEntry{PlayerID: id})
		return nil
	})

	_ = s.Atomic(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		p, _ := tx.GetPlayer(ctx, id)
		if p.Turns != 10 {
			t.Errorf("turns = %d, want 10: getter leaked a reference", p.Turns)
		}
		sec, _ := tx.GetSector(ctx, 1)
		if len(sec.PlayersPresent) != 0 {
			t.Errorf("presence = %v, want empty", sec.PlayersPresent)
		}
		return nil
	})
}

func TestFinishRoundGuards(t *testing.T) {
	s := New(logger.Discard())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	log := &models.CombatLog{ID: uuid.New(), Outcome: models.OutcomeOngoing, StartedAt: now, LastRoundAt: now}

	run := func(fn func(ctx context.Context, tx storage.Tx) error) error {
		return s.Atomic(context.Background(), fn)
	}

	if err := run(func(ctx context.Context, tx storage.Tx) error { return tx.InsertCombat(ctx, log) }); err != nil {
		t.Fatalf("InsertCombat() error = %v", err)
	}

	err := run(func(ctx context.Context, tx storage.Tx) error {
		return tx.FinishRound(ctx, log, &models.CombatStats{CombatID: log.ID, RoundNumber: 2})
	})
	if !errors.Is(err, errors.ErrorTypeInvalidState) {
		t.Fatalf("skipping a round error = %v, want invalid_state", err)
	}

	ended := *log
	ended.Outcome = models.OutcomeAttackerWin
	if err := run(func(ctx context.Context, tx storage.Tx) error {
		return tx.FinishRound(ctx, &ended, &models.CombatStats{CombatID: log.ID, RoundNumber: 1})
	}); err != nil {
		t.Fatalf("FinishRound(1) error = %v", err)
	}

	err = run(func(ctx context.Context, tx storage.Tx) error {
		return tx.FinishRound(ctx, log, &models.CombatStats{CombatID: log.ID, RoundNumber: 2})
	})
	if !errors.Is(err, errors.ErrorTypeInvalidState) {
		t.Fatalf("round after terminal outcome error = %v, want invalid_state", err)
	}

	_ = run(func(ctx context.Context, tx storage.Tx) error {
		rounds, _ := tx.ListRounds(ctx, log.ID)
		if len(rounds) != 1 {
			t.Errorf("rounds = %d, want 1", len(rounds))
		}
		due, _ := tx.ListDueCombats(ctx, now.Add(time.Hour), 10)
		if len(due) != 0 {
			t.Errorf("due = %v, want none for an ended combat", due)
		}
		return nil
	})
}

func TestAtomicHonoursCancelledContext(t *testing.T) {
	s := New(logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.Atomic(ctx, func(context.Context, storage.Tx) error {
		called = true
		return nil
	})
	if !stderrors.Is(err, context.Canceled) || called {
		t.Fatalf("Atomic() error = %v called = %v, want context.Canceled without running", err, called)
	}
}
