package auth

import (
	"context"
	"errors"

	"github.com/pamperspets/petshaus/internal/domain/user"
	"github.com/pamperspets/petshaus/internal/security"
)

// ErrInvalidCredentials is the only failure a caller ever sees from Verify.
// Unknown email and wrong password are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid credentials")

// A syntactically valid bcrypt hash that matches no password. Compared
// against when the email is unknown so both failure paths cost one
// bcrypt comparison.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

// CredentialVerifier is the credential-verification callback handed to the
// session layer: it turns (email, password) into a session identity or
// ErrInvalidCredentials, and nothing else.
type CredentialVerifier struct {
	users UserReader
}

func NewCredentialVerifier(users UserReader) *CredentialVerifier {
	return &CredentialVerifier{users: users}
}

func (v *CredentialVerifier) Verify(ctx context.Context, email, password string) (user.Identity, error) {
	if email == "" || password == "" {
		return user.Identity{}, ErrInvalidCredentials
	}

	u, err := v.users.GetByEmail(ctx, email)

	if err != nil {
		_ = security.CheckPassword(dummyHash, password)
		return user.Identity{}, ErrInvalidCredentials
	}

	err = security.CheckPassword(u.PasswordHash, password)

	if err != nil {
		return user.Identity{}, ErrInvalidCredentials
	}

	return u.Identity(), nil
}
