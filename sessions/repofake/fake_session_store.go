package repofake

import (
	"context"
	"sync"
	"time"

	"github.com/fhhvr/auth-gateway/sessions"
)

var _ sessions.Store = (*FakeSessionStore)(nil)

// FakeSessionStore is an in-memory Store for tests. It honours the same
// contract as the Redis repo: absent rows are nil results, CreateSession
// fails on token collisions.
type FakeSessionStore struct {
	sessions map[string]*sessions.Session
	users    map[string]*sessions.User
	lock     sync.RWMutex

	// CreateErr, when set, is returned by every CreateSession call. Used to
	// exercise the bounded-retry path.
	CreateErr error

	createCalls int
}

func NewFakeSessionStore() *FakeSessionStore {
	return &FakeSessionStore{
		sessions: make(map[string]*sessions.Session),
		users:    make(map[string]*sessions.User),
	}
}

func (fs *FakeSessionStore) CreateSession(_ context.Context, sessionToken, userID string, expires time.Time) (*sessions.Session, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.createCalls++
	if fs.CreateErr != nil {
		return nil, fs.CreateErr
	}
	if _, ok := fs.sessions[sessionToken]; ok {
		return nil, sessions.ErrSessionExists
	}

	session := &sessions.Session{
		Token:     sessionToken,
		UserID:    userID,
		ExpiresAt: expires,
		UpdatedAt: time.Now(),
	}
	fs.sessions[sessionToken] = session
	return session, nil
}

func (fs *FakeSessionStore) GetSessionAndUser(_ context.Context, sessionToken string) (*sessions.SessionUser, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	session, ok := fs.sessions[sessionToken]
	if !ok || session.Expired(time.Now()) {
		return nil, nil
	}
	user, ok := fs.users[session.UserID]
	if !ok {
		return nil, nil
	}
	return &sessions.SessionUser{Session: session, User: user}, nil
}

func (fs *FakeSessionStore) GetUser(_ context.Context, userID string) (*sessions.User, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	user, ok := fs.users[userID]
	if !ok {
		return nil, nil
	}
	return user, nil
}

func (fs *FakeSessionStore) DeleteSession(_ context.Context, sessionToken string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	delete(fs.sessions, sessionToken)
	return nil
}

// Test helpers.

func (fs *FakeSessionStore) AddUser(user *sessions.User) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.users[user.ID] = user
}

func (fs *FakeSessionStore) RemoveUser(userID string) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	delete(fs.users, userID)
}

func (fs *FakeSessionStore) AddSession(session *sessions.Session) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.sessions[session.Token] = session
}

// SessionForUser returns any stored session owned by userID, or nil.
func (fs *FakeSessionStore) SessionForUser(userID string) *sessions.Session {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	for _, session := range fs.sessions {
		if session.UserID == userID {
			return session
		}
	}
	return nil
}

// CreateCalls reports how many times CreateSession was invoked.
func (fs *FakeSessionStore) CreateCalls() int {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return fs.createCalls
}
