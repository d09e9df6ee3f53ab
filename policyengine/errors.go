package policyengine

import "errors"

var (
	// ErrUnavailable indicates the decision service could not be reached or
	// returned an unusable answer.
	ErrUnavailable = errors.New("policyengine: decision service unavailable")

	// ErrInvalidMode indicates an unknown Mode value.
	ErrInvalidMode = errors.New("policyengine: invalid mode")

	// ErrInvalidConfig indicates a client configuration problem.
	ErrInvalidConfig = errors.New("policyengine: invalid config")
)
