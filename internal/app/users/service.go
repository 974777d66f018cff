// Package users provisions a caller's subject and role profile.
package users

import (
	"context"
	"errors"

	"github.com/outstationguru/og-api/internal/app/identity"
	"github.com/outstationguru/og-api/internal/app/profiles"
	"github.com/outstationguru/og-api/internal/domain"
	"github.com/outstationguru/og-api/internal/ports/out/counterrepo"
	"github.com/outstationguru/og-api/internal/ports/out/profilerepo"
)

type EnsureUserInput struct {
	BearerToken string
	Phone       string
	// Role defaults to customer when empty.
	Role        string
	DisplayName string
}

type EnsureUserResult struct {
	Subject        domain.SubjectID
	Role           domain.Role
	ExternalID     domain.ExternalID
	AlreadyHadRole bool
}

// ClaimsDispatcher schedules an asynchronous claims update.
type ClaimsDispatcher interface {
	Dispatch(subject domain.SubjectID, role domain.Role)
}

type Service struct {
	resolver *identity.Resolver
	engine   *profiles.Engine
	claims   ClaimsDispatcher
}

func NewService(resolver *identity.Resolver, engine *profiles.Engine, claims ClaimsDispatcher) *Service {
	return &Service{resolver: resolver, engine: engine, claims: claims}
}

func (s *Service) EnsureUser(ctx context.Context, in EnsureUserInput) (EnsureUserResult, error) {
	role := domain.DefaultRole
	if in.Role != "" {
		r, err := domain.ParseRole(in.Role)
		if err != nil {
			return EnsureUserResult{}, errInvalidRole(in.Role)
		}
		role = r
	}

	subject, err := s.resolver.Resolve(ctx, identity.Request{
		BearerToken: in.BearerToken,
		Phone:       in.Phone,
		DisplayName: in.DisplayName,
	})
	if err != nil {
		if errors.Is(err, identity.ErrUnauthenticated) {
			return EnsureUserResult{}, errUnauthenticated()
		}
		return EnsureUserResult{}, err
	}

	res, err := s.engine.EnsureRole(ctx, subject, role, in.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, counterrepo.ErrConflict), errors.Is(err, profilerepo.ErrConflict):
			return EnsureUserResult{}, errTransientConflict()
		case errors.Is(err, profiles.ErrInvalidRole):
			return EnsureUserResult{}, errInvalidRole(in.Role)
		}
		return EnsureUserResult{}, err
	}

	// Only after the profile write has committed.
	if s.claims != nil {
		s.claims.Dispatch(subject, role)
	}

	return EnsureUserResult{
		Subject:        subject,
		Role:           role,
		ExternalID:     res.AssignedID,
		AlreadyHadRole: res.AlreadyHadRole,
	}, nil
}
