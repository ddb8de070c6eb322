package server_test

import (
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fhhvr/auth-gateway/internal/config"
	"github.com/fhhvr/auth-gateway/server"
	"github.com/fhhvr/auth-gateway/sessions"
	"github.com/fhhvr/auth-gateway/sessions/repofake"
	"github.com/fhhvr/auth-gateway/token"
)

const (
	testSecret       = "server-test-secret"
	testCookieName   = "session_token"
	testSessionToken = "server-test-session"
	testUserID       = "user-42"
	testClientID     = "webapp"
	testRedirectURI  = "https://app.example.com/callback"
	testCodeVerifier = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
)

// testConfig satisfies config.Config with fixed values and a per-test backend
// URL.
type testConfig struct {
	config.Cors
	backendURL string
}

func (testConfig) GetPort() string              { return ":0" }
func (testConfig) GetAppName() string           { return "auth-gateway-test" }
func (testConfig) GetEnv() string               { return "TEST" }
func (testConfig) GetAuthSecret() string        { return testSecret }
func (testConfig) GetSessionCookieName() string { return testCookieName }
func (c testConfig) GetBackendURL() string      { return c.backendURL }
func (testConfig) GetRedisAddr() string         { return "" }
func (testConfig) GetRedisPassword() string     { return "" }
func (testConfig) GetRedisDB() int              { return 0 }

type testFixture struct {
	store  *repofake.FakeSessionStore
	codec  *token.Codec
	server *httptest.Server
}

func newTestFixture(t *testing.T, backendURL string) *testFixture {
	t.Helper()

	store := repofake.NewFakeSessionStore()
	srv, err := server.New(testConfig{backendURL: backendURL}, store)
	require.NoError(t, err)

	codec, err := token.NewCodec(testSecret)
	require.NoError(t, err)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return &testFixture{store: store, codec: codec, server: ts}
}

// seedSession installs a live session and its owning user in the fake store.
func (f *testFixture) seedSession(sessionToken, userID string) {
	f.store.AddUser(&sessions.User{ID: userID, Email: userID + "@example.com", Name: "Test User"})
	f.store.AddSession(&sessions.Session{
		Token:     sessionToken,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Hour),
		UpdatedAt: time.Now(),
	})
}

func challengeS256(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(hash[:])
}

// sessionCookie builds the browser-session cookie the handlers read.
func sessionCookie(sessionToken string) *http.Cookie {
	return &http.Cookie{Name: testCookieName, Value: sessionToken}
}
