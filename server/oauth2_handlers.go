package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/fhhvr/auth-gateway/auth"
	"github.com/fhhvr/auth-gateway/oauthmodel"
)

const contentTypeJSON = "application/json; charset=utf-8"

// Authorize issues an authorization code to a caller holding a live browser
// session and redirects back to the client's redirect_uri.
func (s *Server) Authorize() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		authReq := oauthmodel.AuthorizeRequest{
			ClientID:      query.Get("client_id"),
			RedirectURI:   query.Get("redirect_uri"),
			CodeChallenge: query.Get("code_challenge"),
			Scope:         query.Get("scope"),
			State:         query.Get("state"),
		}

		code, err := s.auth.Authorize(r.Context(), s.sessionTokenFromRequest(r), authReq)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrUnauthenticated):
				writeJSONError(w, "ACCESS_DENIED", "a valid browser session is required", http.StatusUnauthorized)
			case errors.Is(err, auth.ErrInvalidAuthorizeRequest):
				writeJSONError(w, oauthmodel.ErrorCodeInvalidRequest, err.Error(), http.StatusBadRequest)
			default:
				log.Err(err).Msg("authorize failed")
				writeJSONError(w, oauthmodel.ErrorCodeInternal, "authorization failed", http.StatusInternalServerError)
			}
			return
		}

		redirect, err := url.Parse(authReq.RedirectURI)
		if err != nil {
			writeJSONError(w, oauthmodel.ErrorCodeInvalidRequest, "invalid redirect_uri", http.StatusBadRequest)
			return
		}
		q := redirect.Query()
		q.Set("code", code)
		if authReq.State != "" {
			q.Set("state", authReq.State)
		}
		redirect.RawQuery = q.Encode()
		http.Redirect(w, r, redirect.String(), http.StatusSeeOther)
	}
}

// Token exchanges an authorization code or refresh token for a fresh token
// pair.
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, oauthmodel.ErrorCodeInvalidRequest, "failed to parse form data", http.StatusBadRequest)
			return
		}

		tokenReq := oauthmodel.TokenRequest{
			GrantType:    r.FormValue("grant_type"),
			ClientID:     r.FormValue("client_id"),
			Code:         r.FormValue("code"),
			CodeVerifier: r.FormValue("code_verifier"),
			RedirectURI:  r.FormValue("redirect_uri"),
			RefreshToken: r.FormValue("refresh_token"),
		}

		tokenResponse, err := s.auth.Token(r.Context(), tokenReq, s.sessionTokenFromRequest(r))
		if err != nil {
			var oauthErr *oauthmodel.Error
			if errors.As(err, &oauthErr) {
				writeJSONError(w, oauthErr.Code, oauthErr.Description, oauthErr.Status)
				return
			}
			log.Err(err).Msg("token exchange failed")
			writeJSONError(w, oauthmodel.ErrorCodeInternal, "token exchange failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		_ = json.NewEncoder(w).Encode(tokenResponse)
	}
}

// SignOut deletes the session behind a bearer access token. 204 with no body
// on success, 401 with no body when the credential does not verify.
func (s *Server) SignOut() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawToken, ok := bearerToken(r)
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		if err := s.auth.SignOut(r.Context(), rawToken); err != nil {
			if errors.Is(err, auth.ErrUnauthenticated) {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			log.Err(err).Msg("sign-out failed")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// Helper functions

// bearerToken extracts the token from an "Authorization: Bearer x" header.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func (s *Server) sessionTokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(s.config.GetSessionCookieName())
	if err != nil {
		return ""
	}
	return cookie.Value
}

// writeJSONError writes an OAuth2-style error response
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}
