package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	stderrors "errors"
	"log/slog"
	"time"

	"sectorwars-server/internal/shared/errors"

	"github.com/cenkalti/backoff/v5"
	"github.com/lib/pq"
)

type RetryPolicy struct {
	MaxTries uint
	MaxDelay time.Duration
}

func (p RetryPolicy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	if p.MaxDelay > 0 {
		b.MaxInterval = p.MaxDelay
	}
	return b
}

// WithTx runs fn in a transaction, retrying the whole unit of work when
// Postgres reports a transient failure. Once retries are exhausted the
// last error is reported as unavailable.
func (db *DB) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	logger := slog.With("component", "database", "operation", "with_tx")

	tries := db.retry.MaxTries
	if tries == 0 {
		tries = 1
	}

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := db.runTx(ctx, fn)
		if err == nil {
			return struct{}{}, nil
		}
		if !Transient(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		logger.Debug("Transient transaction failure", "attempt", attempt, "error", err)
		return struct{}{}, err
	}, backoff.WithBackOff(db.retry.backOff()), backoff.WithMaxTries(tries))

	if err != nil && Transient(err) {
		return errors.WrapUnavailable("storage busy, retries exhausted", err)
	}
	return err
}

func (db *DB) runTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := db.BeginTxContext(ctx)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !stderrors.Is(rbErr, sql.ErrTxDone) {
			slog.Error("Failed to rollback transaction", "error", rbErr)
		}
		return err
	}

	return tx.Commit()
}

// Transient reports whether err is worth retrying the transaction for.
func Transient(err error) bool {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01", "55P03":
			return true
		}
		return pqErr.Code.Class() == "08"
	}
	return stderrors.Is(err, driver.ErrBadConn)
}

// UniqueViolation reports whether err is a unique constraint failure.
func UniqueViolation(err error) bool {
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr) && pqErr.Code == "23505"
}
