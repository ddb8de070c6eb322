package sessions

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrSessionExists is returned by CreateSession when the session token is
// already taken. Callers retry with a fresh random token.
var ErrSessionExists = errors.New("session token already exists")

// Store is the capability interface over the external session store.
// Absent rows are reported as nil results, not errors; errors mean the store
// itself failed.
type Store interface {
	// CreateSession inserts a new session row. Fails with ErrSessionExists
	// when the token collides with an existing row.
	CreateSession(ctx context.Context, sessionToken, userID string, expires time.Time) (*Session, error)

	// GetSessionAndUser resolves a session token to its session/user pair.
	// Returns nil when the session is absent, expired, or its user is gone.
	GetSessionAndUser(ctx context.Context, sessionToken string) (*SessionUser, error)

	// GetUser fetches a user by id; nil when absent.
	GetUser(ctx context.Context, userID string) (*User, error)

	// DeleteSession removes a session row. Deleting an absent session is not
	// an error.
	DeleteSession(ctx context.Context, sessionToken string) error
}
