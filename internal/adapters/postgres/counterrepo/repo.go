package counterrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/outstationguru/og-api/internal/adapters/postgres"
	"github.com/outstationguru/og-api/internal/ports/out/counterrepo"
)

// Repo is a Postgres implementation of counterrepo.Repository.
//
// Each Next is a SERIALIZABLE read-then-upsert on one counters row. Concurrent issuers
// on the same name conflict and are retried by postgres.RunSerializable.
type Repo struct {
	pool     *pgxpool.Pool
	attempts int
}

func NewRepo(pool *pgxpool.Pool, attempts int) *Repo {
	return &Repo{pool: pool, attempts: attempts}
}

func (r *Repo) Next(ctx context.Context, name string) (int64, error) {
	var next int64
	err := postgres.RunSerializable(ctx, r.pool, r.attempts, func(tx pgx.Tx) error {
		var cur int64
		err := tx.QueryRow(ctx, `SELECT value FROM counters WHERE name = $1`, name).Scan(&cur)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		next = cur + 1
		_, err = tx.Exec(ctx, `
			INSERT INTO counters (name, value, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (name) DO UPDATE
			SET value = EXCLUDED.value,
			    updated_at = EXCLUDED.updated_at
		`, name, next)
		return err
	})
	if err != nil {
		if errors.Is(err, postgres.ErrTxConflict) {
			return 0, errors.Join(counterrepo.ErrConflict, err)
		}
		return 0, err
	}
	return next, nil
}
