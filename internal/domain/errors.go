package domain

import "errors"

// Error taxonomy for the auth layer. Handlers map these to HTTP statuses:
// ErrClientError -> 400, ErrAuthExpired -> 401 + reauthorize headers,
// ErrUpstream -> 500.
var (
	// ErrClientError marks a missing or malformed shop identifier or
	// otherwise malformed request. Never retried automatically.
	ErrClientError = errors.New("invalid request")

	// ErrAuthExpired marks a missing/invalid session or a nonce
	// mismatch/expiry. Recovery is client-driven via top-level redirect.
	ErrAuthExpired = errors.New("authorization expired")

	// ErrUpstream marks a platform call or storage failure. A storage
	// failure is never interpreted as "no session".
	ErrUpstream = errors.New("upstream failure")
)
