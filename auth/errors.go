package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors for token verification.
var (
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrInvalidToken       = errors.New("auth: invalid token")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenMalformed     = errors.New("auth: token malformed")
	ErrKeyNotFound        = errors.New("auth: signing key not found")
	ErrClaimMismatch      = errors.New("auth: claim mismatch")
	ErrIncompleteContext  = errors.New("auth: token lacks tenant or role")
	ErrTenantInactive     = errors.New("auth: tenant is not active")
)

// VerifyError describes why a token was rejected. Callers surface only the
// generic ErrInvalidToken message; Reason and Err are meant for logs.
type VerifyError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *VerifyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: invalid token: %s: %v", e.Reason, e.Err)
	}
	return "auth: invalid token: " + e.Reason
}

// Unwrap returns the underlying cause.
func (e *VerifyError) Unwrap() error {
	return e.Err
}

// Is reports true for ErrInvalidToken so every rejection matches it.
func (e *VerifyError) Is(target error) bool {
	return target == ErrInvalidToken
}

func reject(reason string, err error) error {
	return &VerifyError{Reason: reason, Err: err}
}
