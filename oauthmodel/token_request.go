package oauthmodel

// Supported grant types at the token endpoint.
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"
)

// TokenRequest holds the form parameters of a token endpoint call.
type TokenRequest struct {
	// GrantType selects the exchange: "authorization_code" or "refresh_token".
	// Required: Yes
	GrantType string

	// ClientID identifies the client making the request.
	// Required: Yes for the code grant; compared against the refresh token's
	// bound client for the refresh grant.
	ClientID string

	// Code is the authorization code being redeemed.
	// Required: Yes (authorization_code grant only)
	Code string

	// CodeVerifier is the PKCE verifier whose hash must match the
	// code_challenge embedded in the code.
	// Required: Yes (authorization_code grant only)
	CodeVerifier string

	// RedirectURI must equal the redirect_uri the code was minted for.
	// Required: Yes (authorization_code grant only)
	RedirectURI string

	// RefreshToken is the token being rotated.
	// Required: Yes (refresh_token grant only)
	RefreshToken string
}

// AuthorizeRequest holds the query parameters of an authorization endpoint
// call. The caller must already hold a browser session; there is no login or
// consent UI here.
type AuthorizeRequest struct {
	ClientID      string
	RedirectURI   string
	CodeChallenge string
	Scope         string

	// State is echoed back on the redirect for CSRF protection.
	State string
}

// TokenResponse is the success envelope of the token endpoint.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
}
