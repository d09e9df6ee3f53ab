// Package auth verifies gateway bearer tokens.
//
// A Verifier checks the signature of an RS256 JWT against keys from a
// KeyProvider (normally a JWKSKeyProvider), enforces the exp, aud and
// token_use claims, and produces an AuthContext carrying the caller's
// tenant, subject and role.
//
// Every rejection satisfies errors.Is(err, ErrInvalidToken). The concrete
// *VerifyError carries the reason for logging; callers must not return it to
// clients.
package auth
