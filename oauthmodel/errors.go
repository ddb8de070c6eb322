package oauthmodel

import "net/http"

// OAuth2 error codes surfaced by the token endpoint.
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeInvalidGrant   = "invalid_grant"
	ErrorCodeInternal       = "internal_error"
)

// Error is the failure envelope of the token endpoint. It carries the HTTP
// status alongside the wire fields so handlers map it without a lookup table.
type Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
	Status      int    `json:"-"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Description
}

// InvalidRequest flags a malformed request (missing or inconsistent fields).
func InvalidRequest(description string) *Error {
	return &Error{Code: ErrorCodeInvalidRequest, Description: description, Status: http.StatusBadRequest}
}

// InvalidGrant flags a credential failure: bad signature, expired, revoked or
// mismatched binding.
func InvalidGrant(description string) *Error {
	return &Error{Code: ErrorCodeInvalidGrant, Description: description, Status: http.StatusBadRequest}
}

// InternalError flags a server-side failure resolving state for an otherwise
// well-formed request.
func InternalError(description string) *Error {
	return &Error{Code: ErrorCodeInternal, Description: description, Status: http.StatusInternalServerError}
}
