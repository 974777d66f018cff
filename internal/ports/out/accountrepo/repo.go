package accountrepo

import (
	"context"
	"time"

	"github.com/outstationguru/og-api/internal/domain"
)

// Account is an identity-provider account addressable by phone number.
type Account struct {
	UID         domain.SubjectID
	Phone       string
	DisplayName *string
	CreatedAt   time.Time
}

type NewAccount struct {
	Phone       string
	DisplayName string
}

// Repository is the identity provider's account directory.
type Repository interface {
	GetByPhone(ctx context.Context, phone string) (Account, error)

	// Create registers a new account and assigns its uid.
	// It returns ErrPhoneTaken if another account already owns the phone number.
	Create(ctx context.Context, in NewAccount) (Account, error)
}
