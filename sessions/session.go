// Package sessions defines the session store adapter contract. The store
// itself is owned by the browser login stack; this service only reads,
// creates replacement rows and deletes by opaque session token.
package sessions

import "time"

// Session is a row in the external session store. A session is valid iff it
// exists and now < ExpiresAt.
type Session struct {
	Token     string    `json:"sessionToken"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// User is the owning account a session resolves to.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// SessionUser pairs a live session with its user, mirroring the store's
// combined lookup.
type SessionUser struct {
	Session *Session
	User    *User
}

// Expired reports whether the session's expiry has passed at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
