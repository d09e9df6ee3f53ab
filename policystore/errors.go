package policystore

import "errors"

var (
	// ErrNotFound indicates no record exists for the key.
	ErrNotFound = errors.New("policystore: record not found")

	// ErrInvalidRecord indicates a record failed validation.
	ErrInvalidRecord = errors.New("policystore: invalid record")

	// ErrUnavailable indicates the backing store could not be reached or
	// rejected the call.
	ErrUnavailable = errors.New("policystore: store unavailable")
)
