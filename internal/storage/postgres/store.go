// Package postgres implements storage.Store on Postgres via lib/pq.
// Lock* methods use SELECT ... FOR UPDATE so concurrent units of work on
// the same player, sector, tunnel, combat or drone serialize on the row.
package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"log/slog"

	"sectorwars-server/internal/shared/database"
	"sectorwars-server/internal/shared/errors"
	"sectorwars-server/internal/storage"
)

type Store struct {
	db     *database.DB
	logger *slog.Logger
}

var _ storage.Store = (*Store)(nil)

func New(db *database.DB, logger *slog.Logger) *Store {
	logger.Debug("Initializing postgres store")
	return &Store{db: db, logger: logger}
}

func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	return s.db.WithTx(ctx, func(dbTx *database.Tx) error {
		return fn(ctx, &tx{exec: dbTx, logger: s.logger})
	})
}

type tx struct {
	exec   database.Executor
	logger *slog.Logger
}

const forUpdate = " FOR UPDATE"

// notFound converts sql.ErrNoRows into the domain error, wrapping anything else.
func notFound(err error, format string, args ...any) error {
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.NotFoundf(format, args...)
	}
	return internal("query failed", err)
}

func internal(op string, err error) error {
	if err == nil {
		return nil
	}
	if database.Transient(err) {
		// Keep transient errors visible to the retry loop.
		return err
	}
	return errors.WrapInternal(op, err)
}

func expectOne(res sql.Result, err error, notFoundErr error) error {
	if err != nil {
		return internal("update failed", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return internal("rows affected", err)
	}
	if n == 0 {
		return notFoundErr
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}
