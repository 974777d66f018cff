package claimstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/outstationguru/og-api/internal/domain"
	"github.com/outstationguru/og-api/internal/ports/out/claimstore"
)

const keyPrefix = "claims:"

// Store keeps each subject's claims in one Redis hash. Field values are JSON so
// booleans and strings round-trip with their types.
type Store struct {
	client redis.UniversalClient
}

func NewStore(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

func (s *Store) Get(ctx context.Context, subject domain.SubjectID) (claimstore.Claims, error) {
	raw, err := s.client.HGetAll(ctx, key(subject)).Result()
	if err != nil {
		return nil, err
	}
	out := make(claimstore.Claims, len(raw))
	for field, v := range raw {
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err != nil {
			return nil, fmt.Errorf("decode claim %q: %w", field, err)
		}
		out[field] = decoded
	}
	return out, nil
}

func (s *Store) Set(ctx context.Context, subject domain.SubjectID, claims claimstore.Claims) error {
	fields := make([]any, 0, len(claims)*2)
	for name, v := range claims {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode claim %q: %w", name, err)
		}
		fields = append(fields, name, string(b))
	}
	k := key(subject)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, k)
		if len(fields) > 0 {
			p.HSet(ctx, k, fields...)
		}
		return nil
	})
	return err
}

// Merge writes one hash field, so it never races with merges of other claims.
func (s *Store) Merge(ctx context.Context, subject domain.SubjectID, name string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode claim %q: %w", name, err)
	}
	return s.client.HSet(ctx, key(subject), name, string(b)).Err()
}

func key(subject domain.SubjectID) string { return keyPrefix + string(subject) }
