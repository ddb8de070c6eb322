// Package token implements the stateless token codec: integrity-signed
// authorization codes and encrypted access/refresh tokens, all bound to a
// single audience and minted from keys derived from one server secret.
package token

import (
	"time"

	jose "github.com/go-jose/go-jose/v4"
	josejwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Audience tags every minted token so tokens issued by other services sharing
// the secret are still rejected here.
const Audience = "urn:fhhvr"

// Token lifetimes. Expiry is the primary time-bound mechanism; nothing in the
// codec is revocable once minted.
const (
	CodeLifetime         = 5 * time.Minute
	AccessTokenLifetime  = time.Hour
	RefreshTokenLifetime = 365 * 24 * time.Hour
)

// CodeClaims are the claims carried by an authorization code. Codes are signed
// but not encrypted: nothing in them is secret, they only need to be
// tamper-evident.
type CodeClaims struct {
	ClientID      string `json:"client_id"`
	RedirectURI   string `json:"redirect_uri"`
	CodeChallenge string `json:"code_challenge"`
	Scope         string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// AccessTokenClaims resolve a bearer credential back to the session it was
// minted against. The session identifier is live credential material, which is
// why access tokens are encrypted rather than merely signed.
type AccessTokenClaims struct {
	SessionToken string `json:"session_token"`
	UserID       string `json:"user_id"`
}

// RefreshTokenClaims carry everything the refresh grant needs to rotate a
// token pair: the owning user, the client binding, the granted scope and the
// session the pair descends from.
type RefreshTokenClaims struct {
	UserID       string `json:"user_id"`
	ClientID     string `json:"client_id"`
	Scope        string `json:"scope,omitempty"`
	SessionToken string `json:"session_token"`
}

// Codec mints and verifies all three token kinds. It is stateless and safe for
// concurrent use; the only mutable input is the clock.
type Codec struct {
	signKey   []byte
	encKey    []byte
	encrypter jose.Encrypter
	nowFunc   func() time.Time
}

type CodecOption func(*Codec)

// WithNowFunc sets the clock (primarily for testing expiry boundaries).
func WithNowFunc(now func() time.Time) CodecOption {
	return func(c *Codec) {
		c.nowFunc = now
	}
}

// NewCodec derives the signing and encryption keys from secret and prepares
// the encrypter. The secret is injected here once; the codec never reads
// ambient configuration.
func NewCodec(secret string, options ...CodecOption) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("[NewCodec] secret is required")
	}

	signKey, err := deriveKey(secret, codeSigningInfo)
	if err != nil {
		return nil, errors.Wrap(err, "[NewCodec] signing key")
	}
	encKey, err := deriveKey(secret, tokenEncryptionInfo)
	if err != nil {
		return nil, errors.Wrap(err, "[NewCodec] encryption key")
	}

	encrypter, err := jose.NewEncrypter(
		jose.A256GCM,
		jose.Recipient{Algorithm: jose.DIRECT, Key: encKey},
		(&jose.EncrypterOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[NewCodec] jose.NewEncrypter")
	}

	c := &Codec{
		signKey:   signKey,
		encKey:    encKey,
		encrypter: encrypter,
		nowFunc:   time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// MintCode produces a signed authorization code binding the client, redirect
// URI and PKCE challenge for five minutes.
func (c *Codec) MintCode(clientID, redirectURI, codeChallenge, scope string) (string, error) {
	now := c.nowFunc()
	claims := CodeClaims{
		ClientID:      clientID,
		RedirectURI:   redirectURI,
		CodeChallenge: codeChallenge,
		Scope:         scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(CodeLifetime)),
			ID:        uuid.New().String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.signKey)
	if err != nil {
		return "", errors.Wrap(err, "[Codec.MintCode] SignedString")
	}
	return signed, nil
}

// VerifyCode checks signature, audience and expiry. Any failure collapses to
// nil so callers have a single branch for "could not verify".
func (c *Codec) VerifyCode(rawCode string) *CodeClaims {
	claims := &CodeClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.nowFunc),
	)
	parsed, err := parser.ParseWithClaims(rawCode, claims, func(*jwt.Token) (any, error) {
		return c.signKey, nil
	})
	if err != nil || !parsed.Valid {
		return nil
	}
	return claims
}

// MintAccessToken produces an encrypted token resolving to the given session
// for one hour.
func (c *Codec) MintAccessToken(sessionToken, userID string) (string, error) {
	raw, err := c.mintEncrypted(AccessTokenLifetime, AccessTokenClaims{
		SessionToken: sessionToken,
		UserID:       userID,
	})
	if err != nil {
		return "", errors.Wrap(err, "[Codec.MintAccessToken]")
	}
	return raw, nil
}

// VerifyAccessToken decrypts and validates an access token; nil on any
// failure.
func (c *Codec) VerifyAccessToken(rawToken string) *AccessTokenClaims {
	claims := &AccessTokenClaims{}
	if !c.decryptInto(rawToken, claims) {
		return nil
	}
	if claims.SessionToken == "" || claims.UserID == "" {
		return nil
	}
	return claims
}

// MintRefreshToken produces an encrypted token carrying the full rotation
// state for one year.
func (c *Codec) MintRefreshToken(userID, clientID, scope, sessionToken string) (string, error) {
	raw, err := c.mintEncrypted(RefreshTokenLifetime, RefreshTokenClaims{
		UserID:       userID,
		ClientID:     clientID,
		Scope:        scope,
		SessionToken: sessionToken,
	})
	if err != nil {
		return "", errors.Wrap(err, "[Codec.MintRefreshToken]")
	}
	return raw, nil
}

// VerifyRefreshToken decrypts and validates a refresh token; nil on any
// failure.
func (c *Codec) VerifyRefreshToken(rawToken string) *RefreshTokenClaims {
	claims := &RefreshTokenClaims{}
	if !c.decryptInto(rawToken, claims) {
		return nil
	}
	if claims.UserID == "" || claims.SessionToken == "" {
		return nil
	}
	return claims
}

func (c *Codec) mintEncrypted(lifetime time.Duration, privateClaims any) (string, error) {
	now := c.nowFunc()
	registered := josejwt.Claims{
		Audience: josejwt.Audience{Audience},
		IssuedAt: josejwt.NewNumericDate(now),
		Expiry:   josejwt.NewNumericDate(now.Add(lifetime)),
		ID:       uuid.New().String(),
	}
	raw, err := josejwt.Encrypted(c.encrypter).Claims(registered).Claims(privateClaims).Serialize()
	if err != nil {
		return "", errors.Wrap(err, "mintEncrypted Serialize")
	}
	return raw, nil
}

// decryptInto reports whether rawToken decrypts under the codec's key and
// carries the expected audience and an unexpired lifetime, filling
// privateClaims on success.
func (c *Codec) decryptInto(rawToken string, privateClaims any) bool {
	parsed, err := josejwt.ParseEncrypted(
		rawToken,
		[]jose.KeyAlgorithm{jose.DIRECT},
		[]jose.ContentEncryption{jose.A256GCM},
	)
	if err != nil {
		return false
	}

	var registered josejwt.Claims
	if err := parsed.Claims(c.encKey, &registered, privateClaims); err != nil {
		return false
	}

	expected := josejwt.Expected{
		AnyAudience: josejwt.Audience{Audience},
		Time:        c.nowFunc(),
	}
	return registered.ValidateWithLeeway(expected, 0) == nil
}
