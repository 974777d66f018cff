package profilerepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/outstationguru/og-api/internal/adapters/postgres"
	"github.com/outstationguru/og-api/internal/domain"
	"github.com/outstationguru/og-api/internal/ports/out/profilerepo"
)

// Repo is a Postgres implementation of profilerepo.Repository.
//
// Profiles live in users with roles, ids and profile as JSONB documents. Every assigned
// external id is also recorded in user_external_ids, whose primary key keeps ids unique
// across subjects.
type Repo struct {
	pool     *pgxpool.Pool
	attempts int
}

func NewRepo(pool *pgxpool.Pool, attempts int) *Repo {
	return &Repo{pool: pool, attempts: attempts}
}

type profileDoc struct {
	DisplayName *string `json:"displayName,omitempty"`
}

func (r *Repo) Get(ctx context.Context, subject domain.SubjectID) (domain.Profile, error) {
	if r.pool == nil {
		return domain.Profile{}, errors.New("nil postgres pool")
	}
	return scanProfile(r.pool.QueryRow(ctx, selectProfileSQL, string(subject)))
}

func (r *Repo) Merge(ctx context.Context, subject domain.SubjectID, fn profilerepo.MergeFunc) (domain.Profile, error) {
	var saved domain.Profile
	err := postgres.RunSerializable(ctx, r.pool, r.attempts, func(tx pgx.Tx) error {
		cur, err := scanProfile(tx.QueryRow(ctx, selectProfileSQL+` FOR UPDATE`, string(subject)))
		exists := true
		if errors.Is(err, profilerepo.ErrNotFound) {
			exists = false
			cur = domain.Profile{}
		} else if err != nil {
			return err
		}

		next, err := fn(cur.Clone(), exists)
		if err != nil {
			return err
		}
		next.Subject = subject
		for role, id := range cur.IDs {
			if next.IDs[role] != id {
				return profilerepo.ErrExternalIDTaken
			}
		}

		if err := upsertProfile(ctx, tx, next); err != nil {
			return err
		}
		for role, id := range next.IDs {
			if _, had := cur.IDs[role]; had {
				continue
			}
			if err := insertExternalID(ctx, tx, subject, role, id); err != nil {
				return err
			}
		}
		saved = next
		return nil
	})
	if err != nil {
		if errors.Is(err, postgres.ErrTxConflict) {
			return domain.Profile{}, errors.Join(profilerepo.ErrConflict, err)
		}
		return domain.Profile{}, err
	}
	return saved.Clone(), nil
}

const selectProfileSQL = `
	SELECT uid, roles, ids, profile, created_at, updated_at
	FROM users
	WHERE uid = $1`

func scanProfile(row pgx.Row) (domain.Profile, error) {
	var (
		uid                  string
		rolesB, idsB, profB  []byte
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&uid, &rolesB, &idsB, &profB, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Profile{}, profilerepo.ErrNotFound
		}
		return domain.Profile{}, err
	}
	p := domain.Profile{
		Subject:   domain.SubjectID(uid),
		Roles:     map[domain.Role]bool{},
		IDs:       map[domain.Role]domain.ExternalID{},
		CreatedAt: createdAt.UTC(),
		UpdatedAt: updatedAt.UTC(),
	}
	if err := json.Unmarshal(rolesB, &p.Roles); err != nil {
		return domain.Profile{}, fmt.Errorf("decode roles: %w", err)
	}
	if err := json.Unmarshal(idsB, &p.IDs); err != nil {
		return domain.Profile{}, fmt.Errorf("decode ids: %w", err)
	}
	var doc profileDoc
	if err := json.Unmarshal(profB, &doc); err != nil {
		return domain.Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	p.DisplayName = doc.DisplayName
	return p, nil
}

func upsertProfile(ctx context.Context, tx pgx.Tx, p domain.Profile) error {
	roles := p.Roles
	if roles == nil {
		roles = map[domain.Role]bool{}
	}
	ids := p.IDs
	if ids == nil {
		ids = map[domain.Role]domain.ExternalID{}
	}
	rolesB, err := json.Marshal(roles)
	if err != nil {
		return err
	}
	idsB, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	profB, err := json.Marshal(profileDoc{DisplayName: p.DisplayName})
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO users (uid, roles, ids, profile, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (uid) DO UPDATE
		SET roles = EXCLUDED.roles,
		    ids = EXCLUDED.ids,
		    profile = EXCLUDED.profile,
		    updated_at = EXCLUDED.updated_at
	`,
		string(p.Subject),
		rolesB,
		idsB,
		profB,
		p.CreatedAt.UTC(),
		p.UpdatedAt.UTC(),
	)
	return err
}

func insertExternalID(ctx context.Context, tx pgx.Tx, subject domain.SubjectID, role domain.Role, id domain.ExternalID) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO user_external_ids (external_id, uid, role)
		VALUES ($1, $2, $3)
	`, string(id), string(subject), string(role))
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode && pe.ConstraintName == "user_external_ids_pkey" {
			return profilerepo.ErrExternalIDTaken
		}
		return err
	}
	return nil
}
