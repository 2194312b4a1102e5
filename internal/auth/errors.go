package auth

import "errors"

var (
	ErrUnauthorized = errors.New("auth: unauthorized")
	ErrForbidden    = errors.New("auth: forbidden")
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrBadSignature covers missing, stale and mismatched ingest signatures.
	ErrBadSignature = errors.New("auth: bad ingest signature")
)
