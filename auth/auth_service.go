// Package auth implements the token exchange state machine: the two token
// endpoint grants, session revocation, and the code-minting side of the
// authorization endpoint. It orchestrates the token codec and the external
// session store and keeps no state of its own.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/fhhvr/auth-gateway/oauthmodel"
	"github.com/fhhvr/auth-gateway/sessions"
	"github.com/fhhvr/auth-gateway/token"
)

const (
	sessionTokenLength = 32 // 256 bits of entropy per generated session token

	// sessionCreateAttempts bounds the replacement-session retry loop.
	// Collisions on 256-bit random tokens are vanishingly rare; the bound
	// exists so a broken store cannot spin forever.
	sessionCreateAttempts = 64

	replacementSessionTTL = 7 * 24 * time.Hour
)

// Service provides the token endpoint grants, sign-out and code issuance.
type Service struct {
	store   sessions.Store
	codec   *token.Codec
	nowFunc func() time.Time
}

type ServiceOption func(*Service)

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowFunc = now
	}
}

// NewService initialises a Service with its required collaborators.
func NewService(store sessions.Store, codec *token.Codec, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("[NewService] session store is required")
	}
	if codec == nil {
		return nil, errors.New("[NewService] token codec is required")
	}

	s := &Service{
		store:   store,
		codec:   codec,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Authorize mints an authorization code for a caller who already holds a live
// browser session. There is no login or consent UI behind this; a missing or
// dead session is ErrUnauthenticated.
func (s *Service) Authorize(ctx context.Context, sessionToken string, req oauthmodel.AuthorizeRequest) (string, error) {
	if req.ClientID == "" || req.RedirectURI == "" || req.CodeChallenge == "" {
		return "", ErrInvalidAuthorizeRequest
	}
	if sessionToken == "" {
		return "", ErrUnauthenticated
	}

	sessionUser, err := s.store.GetSessionAndUser(ctx, sessionToken)
	if err != nil {
		return "", errors.Wrap(err, "[Service.Authorize] GetSessionAndUser")
	}
	if sessionUser == nil {
		return "", ErrUnauthenticated
	}

	code, err := s.codec.MintCode(req.ClientID, req.RedirectURI, req.CodeChallenge, req.Scope)
	if err != nil {
		return "", errors.Wrap(err, "[Service.Authorize] MintCode")
	}
	return code, nil
}

// Token handles a token endpoint request. sessionToken is the caller's
// browser session cookie value, required by the code grant and ignored by the
// refresh grant. Failures are returned as *oauthmodel.Error so the handler
// can map them onto the wire without inspecting causes.
func (s *Service) Token(ctx context.Context, req oauthmodel.TokenRequest, sessionToken string) (*oauthmodel.TokenResponse, error) {
	switch req.GrantType {
	case oauthmodel.GrantTypeAuthorizationCode:
		return s.exchangeCode(ctx, req, sessionToken)
	case oauthmodel.GrantTypeRefreshToken:
		return s.refreshTokens(ctx, req)
	default:
		return nil, oauthmodel.InvalidRequest("unsupported grant_type")
	}
}

// SignOut verifies a bearer access token and deletes the session it resolves
// to. Deleting an already-absent session succeeds; the outcome is the same.
func (s *Service) SignOut(ctx context.Context, rawAccessToken string) error {
	claims := s.codec.VerifyAccessToken(rawAccessToken)
	if claims == nil {
		return ErrUnauthenticated
	}
	if err := s.store.DeleteSession(ctx, claims.SessionToken); err != nil {
		return errors.Wrap(err, "[Service.SignOut] DeleteSession")
	}
	return nil
}

// AccessTokenForSession mints a fresh access token for the holder of a live
// browser session. Used by the gateway to inject credentials for callers that
// present a cookie instead of a bearer token.
func (s *Service) AccessTokenForSession(ctx context.Context, sessionToken string) (string, error) {
	if sessionToken == "" {
		return "", ErrUnauthenticated
	}

	sessionUser, err := s.store.GetSessionAndUser(ctx, sessionToken)
	if err != nil {
		return "", errors.Wrap(err, "[Service.AccessTokenForSession] GetSessionAndUser")
	}
	if sessionUser == nil {
		return "", ErrUnauthenticated
	}

	accessToken, err := s.codec.MintAccessToken(sessionUser.Session.Token, sessionUser.User.ID)
	if err != nil {
		return "", errors.Wrap(err, "[Service.AccessTokenForSession] MintAccessToken")
	}
	return accessToken, nil
}

func (s *Service) exchangeCode(ctx context.Context, req oauthmodel.TokenRequest, sessionToken string) (*oauthmodel.TokenResponse, error) {
	if req.Code == "" || req.CodeVerifier == "" || req.RedirectURI == "" || req.ClientID == "" {
		return nil, oauthmodel.InvalidRequest("code, code_verifier, redirect_uri and client_id are required")
	}

	claims := s.codec.VerifyCode(req.Code)
	if claims == nil {
		return nil, oauthmodel.InvalidGrant("code invalid, expired, or wrong algorithm")
	}
	if claims.RedirectURI != req.RedirectURI || claims.ClientID != req.ClientID {
		return nil, oauthmodel.InvalidGrant("code was issued to a different client or redirect_uri")
	}
	if !checkCodeChallenge(claims.CodeChallenge, req.CodeVerifier) {
		return nil, oauthmodel.InvalidGrant("code challenge did not pass")
	}

	// The code only proves possession; the identity comes from the caller's
	// live browser session.
	if sessionToken == "" {
		return nil, oauthmodel.InternalError("could not get session")
	}
	sessionUser, err := s.store.GetSessionAndUser(ctx, sessionToken)
	if err != nil {
		log.Err(err).Msg("code grant: session lookup failed")
		return nil, oauthmodel.InternalError("could not get session")
	}
	if sessionUser == nil {
		return nil, oauthmodel.InternalError("could not get session")
	}

	return s.mintTokenPair(sessionUser.Session.Token, sessionUser.User.ID, claims.ClientID, claims.Scope)
}

func (s *Service) refreshTokens(ctx context.Context, req oauthmodel.TokenRequest) (*oauthmodel.TokenResponse, error) {
	if req.RefreshToken == "" {
		return nil, oauthmodel.InvalidRequest("refresh_token is required")
	}

	claims := s.codec.VerifyRefreshToken(req.RefreshToken)
	if claims == nil {
		return nil, oauthmodel.InvalidGrant("invalid or expired refresh_token")
	}
	if req.ClientID != claims.ClientID {
		return nil, oauthmodel.InvalidGrant("client_id does not match the refresh_token")
	}

	sessionToken := claims.SessionToken
	sessionUser, err := s.store.GetSessionAndUser(ctx, sessionToken)
	if err != nil {
		log.Err(err).Msg("refresh grant: session lookup failed")
		return nil, oauthmodel.InternalError("could not get session")
	}

	if sessionUser == nil {
		// The original session expired or was revoked. If the user is gone
		// too, tokens are outstanding for a deleted account; that is an
		// inconsistent-state failure, not a normal grant rejection.
		user, err := s.store.GetUser(ctx, claims.UserID)
		if err != nil {
			log.Err(err).Msg("refresh grant: user lookup failed")
			return nil, oauthmodel.InternalError("could not get user")
		}
		if user == nil {
			log.Error().Str("user_id", claims.UserID).Msg("refresh grant: user no longer exists")
			return nil, oauthmodel.InternalError("user no longer exists")
		}

		replacement, err := s.replaceSession(ctx, claims.UserID)
		if err != nil {
			log.Err(err).Str("user_id", claims.UserID).Msg("refresh grant: replacement session failed")
			return nil, oauthmodel.InternalError("could not create session")
		}
		sessionToken = replacement.Token
	}

	// Full rotation: the response pair becomes the canonical credential.
	return s.mintTokenPair(sessionToken, claims.UserID, claims.ClientID, claims.Scope)
}

// replaceSession creates a fresh session row for the user with a forward
// expiry. Each attempt uses an independently random token, so collisions are
// handled by retrying; if every attempt fails the last store error surfaces
// rather than proceeding with an identifier that was never persisted.
func (s *Service) replaceSession(ctx context.Context, userID string) (*sessions.Session, error) {
	expires := s.nowFunc().Add(replacementSessionTTL)

	operation := func() (*sessions.Session, error) {
		sessionToken, err := newSessionToken()
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		return s.store.CreateSession(ctx, sessionToken, userID, expires)
	}

	session, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(&backoff.ZeroBackOff{}),
		backoff.WithMaxTries(sessionCreateAttempts),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.replaceSession] CreateSession")
	}
	return session, nil
}

func (s *Service) mintTokenPair(sessionToken, userID, clientID, scope string) (*oauthmodel.TokenResponse, error) {
	accessToken, err := s.codec.MintAccessToken(sessionToken, userID)
	if err != nil {
		log.Err(err).Msg("minting access token failed")
		return nil, oauthmodel.InternalError("could not mint tokens")
	}
	refreshToken, err := s.codec.MintRefreshToken(userID, clientID, scope, sessionToken)
	if err != nil {
		log.Err(err).Msg("minting refresh token failed")
		return nil, oauthmodel.InternalError("could not mint tokens")
	}

	return &oauthmodel.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(token.AccessTokenLifetime.Seconds()),
		Scope:        scope,
	}, nil
}

// checkCodeChallenge recomputes the proof-of-possession: S256 first (base64url
// of the verifier's SHA-256, no padding), falling back to a direct comparison
// for challenges stored with the plain method.
func checkCodeChallenge(storedChallenge, verifier string) bool {
	if storedChallenge == "" {
		return false
	}
	hash := sha256.Sum256([]byte(verifier))
	if base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(hash[:]) == storedChallenge {
		return true
	}
	return storedChallenge == verifier
}

func newSessionToken() (string, error) {
	bytes := make([]byte, sessionTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", errors.Wrap(err, "newSessionToken rand.Read")
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}
