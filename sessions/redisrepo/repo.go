// Package redisrepo backs the session store adapter with Redis. Sessions are
// stored as JSON under "session:<token>" with TTL = expiry, users under
// "user:<id>".
package redisrepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/fhhvr/auth-gateway/sessions"
)

const (
	sessionKeyPrefix = "session:"
	userKeyPrefix    = "user:"
)

var _ sessions.Store = (*Repo)(nil)

type Repo struct {
	client  *redis.Client
	nowFunc func() time.Time
}

type RepoOption func(*Repo)

// WithNowFunc sets the clock (for expiry checks in tests).
func WithNowFunc(now func() time.Time) RepoOption {
	return func(r *Repo) {
		r.nowFunc = now
	}
}

func New(client *redis.Client, options ...RepoOption) *Repo {
	r := &Repo{
		client:  client,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// CreateSession inserts the session with SETNX so concurrent creators of the
// same token lose with sessions.ErrSessionExists rather than overwriting.
func (r *Repo) CreateSession(ctx context.Context, sessionToken, userID string, expires time.Time) (*sessions.Session, error) {
	now := r.nowFunc()
	session := &sessions.Session{
		Token:     sessionToken,
		UserID:    userID,
		ExpiresAt: expires,
		UpdatedAt: now,
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return nil, errors.Wrap(err, "[Repo.CreateSession] marshal")
	}

	ttl := expires.Sub(now)
	if ttl <= 0 {
		// Never hand Redis a non-positive TTL, it would store the row forever.
		ttl = time.Second
	}

	ok, err := r.client.SetNX(ctx, sessionKeyPrefix+sessionToken, payload, ttl).Result()
	if err != nil {
		return nil, errors.Wrap(err, "[Repo.CreateSession] SetNX")
	}
	if !ok {
		return nil, sessions.ErrSessionExists
	}
	return session, nil
}

func (r *Repo) GetSessionAndUser(ctx context.Context, sessionToken string) (*sessions.SessionUser, error) {
	raw, err := r.client.Get(ctx, sessionKeyPrefix+sessionToken).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "[Repo.GetSessionAndUser] Get")
	}

	var session sessions.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, errors.Wrap(err, "[Repo.GetSessionAndUser] unmarshal")
	}

	// The TTL usually handles this, but a stored row can outlive its logical
	// expiry when clocks are injected or Redis persistence lags.
	if session.Expired(r.nowFunc()) {
		_ = r.client.Del(ctx, sessionKeyPrefix+sessionToken).Err()
		return nil, nil
	}

	user, err := r.GetUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	return &sessions.SessionUser{Session: &session, User: user}, nil
}

func (r *Repo) GetUser(ctx context.Context, userID string) (*sessions.User, error) {
	raw, err := r.client.Get(ctx, userKeyPrefix+userID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "[Repo.GetUser] Get")
	}

	var user sessions.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, errors.Wrap(err, "[Repo.GetUser] unmarshal")
	}
	return &user, nil
}

func (r *Repo) DeleteSession(ctx context.Context, sessionToken string) error {
	if err := r.client.Del(ctx, sessionKeyPrefix+sessionToken).Err(); err != nil {
		return errors.Wrap(err, "[Repo.DeleteSession] Del")
	}
	return nil
}

// PutUser stores a user row. The browser login stack normally owns user
// provisioning; this exists for seeding and tests.
func (r *Repo) PutUser(ctx context.Context, user *sessions.User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, "[Repo.PutUser] marshal")
	}
	if err := r.client.Set(ctx, userKeyPrefix+user.ID, payload, 0).Err(); err != nil {
		return errors.Wrap(err, "[Repo.PutUser] Set")
	}
	return nil
}

// Ping reports whether the backing Redis is reachable.
func (r *Repo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
