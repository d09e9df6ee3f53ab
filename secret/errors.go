package secret

import "errors"

var (
	// ErrMissingEnv indicates a referenced environment variable is unset.
	ErrMissingEnv = errors.New("secret: missing required environment variables")

	// ErrInvalidRef indicates a malformed secret reference.
	ErrInvalidRef = errors.New("secret: invalid reference")

	// ErrProviderNotRegistered indicates a reference names an unknown provider.
	ErrProviderNotRegistered = errors.New("secret: provider not registered")

	// ErrNotFound indicates the provider has no secret for the reference.
	ErrNotFound = errors.New("secret: not found")

	// ErrEmptyValue indicates a strict resolver received an empty secret.
	ErrEmptyValue = errors.New("secret: provider returned empty value")
)
