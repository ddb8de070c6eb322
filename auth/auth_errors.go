package auth

import "github.com/pkg/errors"

var (
	// ErrUnauthenticated means no usable credential accompanied the request:
	// a missing or invalid bearer token, or no live browser session.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidAuthorizeRequest means the authorization request is missing a
	// required parameter.
	ErrInvalidAuthorizeRequest = errors.New("client_id, redirect_uri and code_challenge are required")
)
