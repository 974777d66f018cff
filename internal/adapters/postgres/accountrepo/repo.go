package accountrepo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/outstationguru/og-api/internal/adapters/postgres"
	"github.com/outstationguru/og-api/internal/domain"
	"github.com/outstationguru/og-api/internal/ports/out/accountrepo"
)

// Repo is a Postgres-backed identity-provider account directory.
// The accounts_phone_unique constraint arbitrates concurrent sign-ups for one phone.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) GetByPhone(ctx context.Context, phone string) (accountrepo.Account, error) {
	if r.pool == nil {
		return accountrepo.Account{}, errors.New("nil postgres pool")
	}
	var (
		a   accountrepo.Account
		uid string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT uid, phone, display_name, created_at
		FROM accounts
		WHERE phone = $1
	`, phone).Scan(&uid, &a.Phone, &a.DisplayName, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return accountrepo.Account{}, accountrepo.ErrNotFound
		}
		return accountrepo.Account{}, err
	}
	a.UID = domain.SubjectID(uid)
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

func (r *Repo) Create(ctx context.Context, in accountrepo.NewAccount) (accountrepo.Account, error) {
	if r.pool == nil {
		return accountrepo.Account{}, errors.New("nil postgres pool")
	}
	a := accountrepo.Account{
		UID:       domain.SubjectID(uuid.NewString()),
		Phone:     in.Phone,
		CreatedAt: time.Now().UTC(),
	}
	if in.DisplayName != "" {
		dn := in.DisplayName
		a.DisplayName = &dn
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO accounts (uid, phone, display_name, created_at)
		VALUES ($1, $2, $3, $4)
	`, string(a.UID), a.Phone, a.DisplayName, a.CreatedAt)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode && pe.ConstraintName == "accounts_phone_unique" {
			return accountrepo.Account{}, accountrepo.ErrPhoneTaken
		}
		return accountrepo.Account{}, err
	}
	return a, nil
}
