package health

import "errors"

var (
	// ErrCheckFailed wraps the cause reported by an unhealthy dependency.
	ErrCheckFailed = errors.New("health: dependency check failed")

	// ErrCheckTimeout indicates a check did not finish before the
	// aggregator deadline.
	ErrCheckTimeout = errors.New("health: check deadline exceeded")

	// ErrCheckerNotFound indicates no checker is registered under a name.
	ErrCheckerNotFound = errors.New("health: no checker registered")

	// ErrNoKeys indicates the JWKS key set is empty, so no token can verify.
	ErrNoKeys = errors.New("health: no signing keys available")
)
