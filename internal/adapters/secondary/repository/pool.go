// Package repository contient les implémentations Postgres des ports Driven.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zingsocial/social-core/internal/core/domain"
)

// PgxPool est l'abstraction minimale du pool utilisée par les repos.
// Implémentée par *pgxpool.Pool et par pgxmock.PgxPoolIface (tests).
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Close()
}

// DB enveloppe le pool pour les constructeurs de repos.
type DB struct{ Pool PgxPool }

func New(pool *pgxpool.Pool) *DB { return &DB{Pool: pool} }

func (db *DB) Close() { db.Pool.Close() }

// --- Traduction technique -> domaine ---

func isUniqueViolation(err error) bool {
	var pg *pgconn.PgError
	return errors.As(err, &pg) && pg.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pg *pgconn.PgError
	return errors.As(err, &pg) && pg.Code == "23503"
}

// isRetryableTx : serialization failure / deadlock. Le store retente ces
// transactions de manière transparente, jusqu'à une limite interne.
func isRetryableTx(err error) bool {
	var pg *pgconn.PgError
	if !errors.As(err, &pg) {
		return false
	}
	return pg.Code == "40001" || pg.Code == "40P01"
}

const txMaxAttempts = 3

// runTx exécute fn dans une transaction avec retry borné sur conflit.
// Au-delà de la limite, l'échec remonte comme ErrTxConflict.
func runTx(ctx context.Context, pool PgxPool, fn func(tx pgx.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < txMaxAttempts; attempt++ {
		tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return err
		}

		if err := fn(tx); err != nil {
			_ = tx.Rollback(ctx)
			if isRetryableTx(err) {
				lastErr = err
				continue
			}
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			if isRetryableTx(err) {
				lastErr = err
				continue
			}
			return err
		}
		return nil
	}
	return errors.Join(domain.ErrTxConflict, lastErr)
}
