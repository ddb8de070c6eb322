package token_test

import (
	"strings"
	"testing"
	"time"

	"github.com/fhhvr/auth-gateway/token"
	"github.com/stretchr/testify/require"
)

const (
	testSecret        = "test-secret-0123456789"
	testSessionToken  = "b2a1f0e9d8c7b6a5-session"
	testUserID        = "user-42"
	testClientID      = "viewer-client"
	testRedirectURI   = "http://localhost:3000/callback"
	testCodeChallenge = "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
	testScope         = "api offline_access"
)

// newTestCodec returns a codec with a controllable clock.
func newTestCodec(t *testing.T) (*token.Codec, *time.Time) {
	t.Helper()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	codec, err := token.NewCodec(testSecret, token.WithNowFunc(func() time.Time { return now }))
	require.NoError(t, err)
	return codec, &now
}

func TestNewCodecRequiresSecret(t *testing.T) {
	_, err := token.NewCodec("")
	require.Error(t, err)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	codec, now := newTestCodec(t)

	raw, err := codec.MintAccessToken(testSessionToken, testUserID)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	claims := codec.VerifyAccessToken(raw)
	require.NotNil(t, claims)
	require.Equal(t, testSessionToken, claims.SessionToken)
	require.Equal(t, testUserID, claims.UserID)

	// Still valid just inside the sixty minute lifetime.
	*now = now.Add(59 * time.Minute)
	require.NotNil(t, codec.VerifyAccessToken(raw))

	// Gone once the boundary passes.
	*now = now.Add(2 * time.Minute)
	require.Nil(t, codec.VerifyAccessToken(raw))
}

func TestAccessTokenIsOpaque(t *testing.T) {
	codec, _ := newTestCodec(t)

	raw, err := codec.MintAccessToken(testSessionToken, testUserID)
	require.NoError(t, err)

	// The payload carries the live session identifier, so it must not appear
	// anywhere in the serialized form.
	require.NotContains(t, raw, testSessionToken)
	require.NotContains(t, raw, testUserID)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	codec, now := newTestCodec(t)

	raw, err := codec.MintRefreshToken(testUserID, testClientID, testScope, testSessionToken)
	require.NoError(t, err)

	claims := codec.VerifyRefreshToken(raw)
	require.NotNil(t, claims)
	require.Equal(t, testUserID, claims.UserID)
	require.Equal(t, testClientID, claims.ClientID)
	require.Equal(t, testScope, claims.Scope)
	require.Equal(t, testSessionToken, claims.SessionToken)

	*now = now.Add(364 * 24 * time.Hour)
	require.NotNil(t, codec.VerifyRefreshToken(raw))

	*now = now.Add(2 * 24 * time.Hour)
	require.Nil(t, codec.VerifyRefreshToken(raw))
}

func TestCodeRoundTrip(t *testing.T) {
	codec, now := newTestCodec(t)

	code, err := codec.MintCode(testClientID, testRedirectURI, testCodeChallenge, testScope)
	require.NoError(t, err)

	claims := codec.VerifyCode(code)
	require.NotNil(t, claims)
	require.Equal(t, testClientID, claims.ClientID)
	require.Equal(t, testRedirectURI, claims.RedirectURI)
	require.Equal(t, testCodeChallenge, claims.CodeChallenge)
	require.Equal(t, testScope, claims.Scope)

	*now = now.Add(6 * time.Minute)
	require.Nil(t, codec.VerifyCode(code))
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	codec, _ := newTestCodec(t)
	other, err := token.NewCodec("a-completely-different-secret")
	require.NoError(t, err)

	code, err := codec.MintCode(testClientID, testRedirectURI, testCodeChallenge, testScope)
	require.NoError(t, err)
	access, err := codec.MintAccessToken(testSessionToken, testUserID)
	require.NoError(t, err)
	refresh, err := codec.MintRefreshToken(testUserID, testClientID, testScope, testSessionToken)
	require.NoError(t, err)

	require.Nil(t, other.VerifyCode(code))
	require.Nil(t, other.VerifyAccessToken(access))
	require.Nil(t, other.VerifyRefreshToken(refresh))
}

func TestVerifyRejectsTamperedTokens(t *testing.T) {
	codec, _ := newTestCodec(t)

	code, err := codec.MintCode(testClientID, testRedirectURI, testCodeChallenge, testScope)
	require.NoError(t, err)
	access, err := codec.MintAccessToken(testSessionToken, testUserID)
	require.NoError(t, err)
	refresh, err := codec.MintRefreshToken(testUserID, testClientID, testScope, testSessionToken)
	require.NoError(t, err)

	for _, raw := range []string{code, access, refresh} {
		for _, pos := range []int{2, len(raw) / 2, len(raw) - 3} {
			tampered := flipByte(raw, pos)
			require.Nil(t, codec.VerifyCode(tampered))
			require.Nil(t, codec.VerifyAccessToken(tampered))
			require.Nil(t, codec.VerifyRefreshToken(tampered))
		}
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	codec, _ := newTestCodec(t)

	for _, raw := range []string{"", "not-a-token", "a.b.c", strings.Repeat("x", 4096)} {
		require.Nil(t, codec.VerifyCode(raw))
		require.Nil(t, codec.VerifyAccessToken(raw))
		require.Nil(t, codec.VerifyRefreshToken(raw))
	}
}

// flipByte swaps a single character so the token stays structurally plausible
// but fails integrity checks.
func flipByte(raw string, pos int) string {
	b := []byte(raw)
	if b[pos] == 'A' {
		b[pos] = 'B'
	} else {
		b[pos] = 'A'
	}
	return string(b)
}
