// Package auth verifies login credentials against stored users.
package auth

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/alextreichler/bookstore/internal/apperr"
	"github.com/alextreichler/bookstore/internal/models"
)

// MsgBadCredentials is returned for every failed login, whatever the cause.
const MsgBadCredentials = "Correo o contraseña incorrectos."

type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error
}

type Authenticator struct {
	Users UserStore

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthenticator(users UserStore) *Authenticator {
	return &Authenticator{Users: users}
}

// Authenticate returns the active user matching email and password. Unknown
// email, wrong password and inactive account all yield the same Unauthorized
// error.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	const op = "auth.Authenticate"
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperr.E(apperr.Unauthorized, op, MsgBadCredentials)
	}

	user, err := a.Users.GetUserByEmail(ctx, email)
	if err != nil {
		if !apperr.Is(err, apperr.NotFound) {
			return nil, err
		}
		// Burn the same hashing time as a real check.
		_, _ = VerifyPassword(password, a.dummy())
		return nil, apperr.E(apperr.Unauthorized, op, MsgBadCredentials)
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		slog.Warn("Stored password hash could not be verified", "user_id", user.ID, "error", err)
		return nil, apperr.E(apperr.Unauthorized, op, MsgBadCredentials)
	}
	if !ok || !user.Active {
		return nil, apperr.E(apperr.Unauthorized, op, MsgBadCredentials)
	}

	if NeedsRehash(user.PasswordHash) {
		if hash, err := HashPassword(password); err == nil {
			if err := a.Users.UpdateUserPassword(ctx, user.ID, hash); err != nil {
				slog.Warn("Failed to upgrade password hash", "user_id", user.ID, "error", err)
			} else {
				user.PasswordHash = hash
				slog.Info("Upgraded password hash", "user_id", user.ID)
			}
		}
	}

	return user, nil
}

func (a *Authenticator) dummy() string {
	a.dummyOnce.Do(func() {
		a.dummyHash, _ = HashPassword("not-a-real-password")
	})
	return a.dummyHash
}
