// Package profiles assigns per-role identifiers and merges role data into subject profiles.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/outstationguru/og-api/internal/domain"
	clockport "github.com/outstationguru/og-api/internal/ports/out/clock"
	"github.com/outstationguru/og-api/internal/ports/out/counterrepo"
	"github.com/outstationguru/og-api/internal/ports/out/profilerepo"
)

var (
	ErrInvalidRole    = errors.New("invalid role")
	ErrMissingSubject = errors.New("missing subject")

	// errNeedsID aborts a merge that found no id for the role when none was minted.
	errNeedsID = errors.New("role has no id and none was minted")
)

// Result describes the outcome of EnsureRole.
type Result struct {
	Profile        domain.Profile
	AssignedID     domain.ExternalID
	AlreadyHadRole bool
}

// Engine implements EnsureRole as two independently retried units: the sequence
// counter, then the profile transaction. A read before minting avoids consuming numbers
// for roles that already have an id; the transaction re-checks and keeps any id that
// is already stored, so a number minted by a losing request is discarded.
type Engine struct {
	repo    profilerepo.Repository
	counter counterrepo.Repository
	clk     clockport.Clock
	logger  *slog.Logger
}

func NewEngine(repo profilerepo.Repository, counter counterrepo.Repository, clk clockport.Clock, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{repo: repo, counter: counter, clk: clk, logger: logger}
}

// EnsureRole makes sure subject holds role with an assigned external id.
//
// The id for a (subject, role) pair is assigned once and returned unchanged afterwards.
// displayName replaces the stored name when it is non-empty after normalization.
func (e *Engine) EnsureRole(ctx context.Context, subject domain.SubjectID, role domain.Role, displayName string) (Result, error) {
	if subject == "" {
		return Result{}, ErrMissingSubject
	}
	if !role.Valid() {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	name := domain.NormalizeHumanName(displayName)

	var minted domain.ExternalID
	cur, err := e.repo.Get(ctx, subject)
	switch {
	case err == nil && cur.IDs[role] != "":
	case err == nil, errors.Is(err, profilerepo.ErrNotFound):
		if minted, err = e.mint(ctx, role); err != nil {
			return Result{}, err
		}
	default:
		return Result{}, fmt.Errorf("read profile: %w", err)
	}

	// At most two passes: the second only runs if the id vanished between read and merge.
	for pass := 0; pass < 2; pass++ {
		var res Result
		saved, err := e.repo.Merge(ctx, subject, func(cur domain.Profile, exists bool) (domain.Profile, error) {
			res = Result{}
			next := cur
			if !exists {
				next = domain.Profile{CreatedAt: e.clk.Now()}
			}
			if next.Roles == nil {
				next.Roles = map[domain.Role]bool{}
			}
			if next.IDs == nil {
				next.IDs = map[domain.Role]domain.ExternalID{}
			}

			res.AlreadyHadRole = next.Roles[role]
			id := next.IDs[role]
			if id == "" {
				if minted == "" {
					return domain.Profile{}, errNeedsID
				}
				id = minted
				next.IDs[role] = id
			}
			res.AssignedID = id

			next.Roles[role] = true
			if name != "" {
				n := name
				next.DisplayName = &n
			}
			next.UpdatedAt = e.clk.Now()
			return next, nil
		})
		if errors.Is(err, errNeedsID) {
			if minted, err = e.mint(ctx, role); err != nil {
				return Result{}, err
			}
			continue
		}
		if err != nil {
			return Result{}, err
		}

		if minted != "" && minted != res.AssignedID {
			e.logger.InfoContext(ctx, "discarded sequence number",
				"subject", subject,
				"role", role,
				"discarded", minted,
				"kept", res.AssignedID,
			)
		}
		res.Profile = saved
		return res, nil
	}
	return Result{}, fmt.Errorf("assign %s id for %s: %w", role, subject, errNeedsID)
}

func (e *Engine) mint(ctx context.Context, role domain.Role) (domain.ExternalID, error) {
	n, err := e.counter.Next(ctx, role.CounterName())
	if err != nil {
		return "", fmt.Errorf("issue %s sequence number: %w", role, err)
	}
	return domain.FormatExternalID(role, n), nil
}
