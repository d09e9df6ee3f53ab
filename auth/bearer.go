package auth

import "strings"

// BearerPrefix precedes the compact token in an Authorization header.
const BearerPrefix = "Bearer "

// BearerToken extracts the compact JWT from an Authorization header value.
// The value must start with BearerPrefix and the token must have exactly
// three dot-separated, non-empty segments.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", reject("no authorization header", ErrMissingCredentials)
	}
	if !strings.HasPrefix(header, BearerPrefix) {
		return "", reject("missing bearer prefix", ErrTokenMalformed)
	}
	token := strings.TrimSpace(header[len(BearerPrefix):])
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", reject("expected 3 segments", ErrTokenMalformed)
	}
	for _, p := range parts {
		if p == "" {
			return "", reject("empty segment", ErrTokenMalformed)
		}
	}
	return token, nil
}
