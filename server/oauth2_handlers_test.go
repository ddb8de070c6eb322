package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// cookieRoundTripper attaches the browser-session cookie to every outgoing
// request, standing in for a browser talking to the token endpoint.
type cookieRoundTripper struct {
	cookie *http.Cookie
}

func (rt cookieRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	cloned := r.Clone(r.Context())
	cloned.AddCookie(rt.cookie)
	return http.DefaultTransport.RoundTrip(cloned)
}

func TestTokenEndpointCodeGrant(t *testing.T) {
	f := newTestFixture(t, "http://backend.invalid")
	f.seedSession(testSessionToken, testUserID)

	code, err := f.codec.MintCode(testClientID, testRedirectURI, challengeS256(testCodeVerifier), "read")
	require.NoError(t, err)

	conf := &oauth2.Config{
		ClientID:    testClientID,
		RedirectURL: testRedirectURI,
		Endpoint: oauth2.Endpoint{
			TokenURL:  f.server.URL + "/oauth/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	httpClient := &http.Client{Transport: cookieRoundTripper{cookie: sessionCookie(testSessionToken)}}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)

	tok, err := conf.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", testCodeVerifier))
	require.NoError(t, err)
	require.Equal(t, "Bearer", tok.TokenType)
	require.NotEmpty(t, tok.AccessToken)
	require.NotEmpty(t, tok.RefreshToken)

	claims := f.codec.VerifyAccessToken(tok.AccessToken)
	require.NotNil(t, claims)
	require.Equal(t, testSessionToken, claims.SessionToken)
	require.Equal(t, testUserID, claims.UserID)
}

func TestTokenEndpointRefreshGrant(t *testing.T) {
	f := newTestFixture(t, "http://backend.invalid")
	f.seedSession(testSessionToken, testUserID)

	refreshToken, err := f.codec.MintRefreshToken(testUserID, testClientID, "read", testSessionToken)
	require.NoError(t, err)

	resp := postForm(t, f.server.URL+"/oauth/token", url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {testClientID},
		"refresh_token": {refreshToken},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int    `json:"expires_in"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "Bearer", body.TokenType)
	require.Equal(t, 3600, body.ExpiresIn)
	require.NotEmpty(t, body.AccessToken)
	require.NotEqual(t, refreshToken, body.RefreshToken)
}

func TestTokenEndpointUnsupportedGrant(t *testing.T) {
	f := newTestFixture(t, "http://backend.invalid")

	resp := postForm(t, f.server.URL+"/oauth/token", url.Values{
		"grant_type": {"password"},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_request", errorCode(t, resp))
}

func TestTokenEndpointRejectsInvalidCode(t *testing.T) {
	f := newTestFixture(t, "http://backend.invalid")
	f.seedSession(testSessionToken, testUserID)

	resp := postForm(t, f.server.URL+"/oauth/token", url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {testClientID},
		"code":          {"not-a-real-code"},
		"code_verifier": {testCodeVerifier},
		"redirect_uri":  {testRedirectURI},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_grant", errorCode(t, resp))
}

func TestAuthorizeEndpoint(t *testing.T) {
	f := newTestFixture(t, "http://backend.invalid")
	f.seedSession(testSessionToken, testUserID)

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	authorizeURL := f.server.URL + "/oauth/authorize?" + url.Values{
		"client_id":      {testClientID},
		"redirect_uri":   {testRedirectURI},
		"code_challenge": {challengeS256(testCodeVerifier)},
		"state":          {"xyzzy"},
	}.Encode()

	req, err := http.NewRequest(http.MethodGet, authorizeURL, nil)
	require.NoError(t, err)
	req.AddCookie(sessionCookie(testSessionToken))

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(location.String(), testRedirectURI))
	require.Equal(t, "xyzzy", location.Query().Get("state"))

	claims := f.codec.VerifyCode(location.Query().Get("code"))
	require.NotNil(t, claims)
	require.Equal(t, testClientID, claims.ClientID)
}

func TestAuthorizeEndpointWithoutSession(t *testing.T) {
	f := newTestFixture(t, "http://backend.invalid")

	authorizeURL := f.server.URL + "/oauth/authorize?" + url.Values{
		"client_id":      {testClientID},
		"redirect_uri":   {testRedirectURI},
		"code_challenge": {challengeS256(testCodeVerifier)},
	}.Encode()

	resp, err := http.Get(authorizeURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "ACCESS_DENIED", errorCode(t, resp))
}

func TestSignOut(t *testing.T) {
	f := newTestFixture(t, "http://backend.invalid")
	f.seedSession(testSessionToken, testUserID)

	accessToken, err := f.codec.MintAccessToken(testSessionToken, testUserID)
	require.NoError(t, err)

	resp := signOut(t, f.server.URL, "Bearer "+accessToken)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	sessionUser, err := f.store.GetSessionAndUser(context.Background(), testSessionToken)
	require.NoError(t, err)
	require.Nil(t, sessionUser)

	// The token still verifies, so signing out again succeeds the same way.
	resp = signOut(t, f.server.URL, "Bearer "+accessToken)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestSignOutRejectsBadCredentials(t *testing.T) {
	f := newTestFixture(t, "http://backend.invalid")

	resp := signOut(t, f.server.URL, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = signOut(t, f.server.URL, "Bearer garbage")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// Helpers.

func postForm(t *testing.T, target string, form url.Values) *http.Response {
	t.Helper()
	resp, err := http.PostForm(target, form)
	require.NoError(t, err)
	return resp
}

func signOut(t *testing.T, baseURL, authorization string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, baseURL+"/oauth/signout", nil)
	require.NoError(t, err)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Error
}
