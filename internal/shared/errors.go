package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrSessionNotFound indicates an unknown or expired session token.
	ErrSessionNotFound = errors.New("session not found")
	// ErrMalformedToken indicates a bearer token that is not a session id.
	ErrMalformedToken = errors.New("malformed session token")
)
