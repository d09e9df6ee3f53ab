package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/gatewayauthz/permission"
)

// VerifierConfig configures the token verifier.
type VerifierConfig struct {
	// ClientID is the expected audience (aud claim). Required.
	ClientID string

	// Issuer is the expected issuer (iss claim). Optional.
	Issuer string

	// TokenUse is the expected token_use claim.
	// Default: "id"
	TokenUse string

	// Algorithms lists accepted signing algorithms.
	// Default: ["RS256"]
	Algorithms []string

	// TenantClaim names the tenant claim.
	// Default: "tenant_id"
	TenantClaim string

	// RoleClaim names the role claim.
	// Default: "role"
	RoleClaim string

	// Leeway tolerates clock skew on exp, nbf and iat.
	Leeway time.Duration

	// Now overrides the clock. Default: time.Now
	Now func() time.Time
}

// KeyProvider retrieves signing keys for token validation.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: GetKey may perform network I/O and must honor cancellation.
type KeyProvider interface {
	// GetKey returns the public key for the given key ID.
	GetKey(ctx context.Context, keyID string) (any, error)
}

// Verifier validates bearer tokens and extracts an AuthContext.
//
// Verification depends only on the header value, the provider's key set and
// the clock.
type Verifier struct {
	config VerifierConfig
	keys   KeyProvider
	parser *jwt.Parser
}

var allowedAlgorithms = []string{"RS256", "RS384", "RS512", "PS256", "PS384", "PS512", "ES256", "ES384", "ES512"}

// NewVerifier creates a token verifier.
func NewVerifier(config VerifierConfig, keys KeyProvider) (*Verifier, error) {
	if config.ClientID == "" {
		return nil, errors.New("auth: client id is required")
	}
	if keys == nil {
		return nil, errors.New("auth: key provider is required")
	}
	if config.TokenUse == "" {
		config.TokenUse = "id"
	}
	if len(config.Algorithms) == 0 {
		config.Algorithms = []string{"RS256"}
	}
	for _, alg := range config.Algorithms {
		if !slices.Contains(allowedAlgorithms, alg) {
			return nil, fmt.Errorf("auth: algorithm %q is not allowed", alg)
		}
	}
	if config.TenantClaim == "" {
		config.TenantClaim = "tenant_id"
	}
	if config.RoleClaim == "" {
		config.RoleClaim = "role"
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(config.Algorithms),
		jwt.WithAudience(config.ClientID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(config.Leeway),
		jwt.WithTimeFunc(config.Now),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}

	return &Verifier{
		config: config,
		keys:   keys,
		parser: jwt.NewParser(opts...),
	}, nil
}

// Verify validates an Authorization header value of the form "Bearer <jwt>".
// Every failure satisfies errors.Is(err, ErrInvalidToken).
func (v *Verifier) Verify(ctx context.Context, authorization string) (*AuthContext, error) {
	token, err := BearerToken(authorization)
	if err != nil {
		return nil, err
	}
	return v.VerifyToken(ctx, token)
}

// VerifyToken validates a compact token without the bearer prefix.
func (v *Verifier) VerifyToken(ctx context.Context, token string) (*AuthContext, error) {
	if strings.Count(token, ".") != 2 {
		return nil, reject("expected 3 segments", ErrTokenMalformed)
	}

	claims := jwt.MapClaims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return v.keys.GetKey(ctx, kid)
	})
	if err != nil {
		return nil, classify(err)
	}
	if !parsed.Valid {
		return nil, reject("token not valid", nil)
	}

	if use, _ := claims["token_use"].(string); use != v.config.TokenUse {
		return nil, reject(fmt.Sprintf("token_use %q, want %q", use, v.config.TokenUse), ErrClaimMismatch)
	}

	ac := v.buildAuthContext(claims)
	if !ac.Valid() {
		return nil, reject("missing tenant claim", ErrIncompleteContext)
	}
	return ac, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return reject("expired", ErrTokenExpired)
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return reject("required claim missing", err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return reject("audience mismatch", ErrClaimMismatch)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return reject("issuer mismatch", ErrClaimMismatch)
	case errors.Is(err, ErrKeyNotFound):
		return reject("unknown signing key", ErrKeyNotFound)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return reject("signature", err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return reject("malformed", ErrTokenMalformed)
	default:
		return reject("parse", err)
	}
}

func (v *Verifier) buildAuthContext(claims jwt.MapClaims) *AuthContext {
	ac := &AuthContext{
		Claims: make(map[string]any, len(claims)),
		Role:   permission.DefaultRole,
	}
	for k, val := range claims {
		ac.Claims[k] = val
	}

	ac.UserID, _ = claims["sub"].(string)
	ac.TenantID, _ = claims[v.config.TenantClaim].(string)
	ac.Email, _ = claims["email"].(string)
	ac.AgentID, _ = claims["agent_id"].(string)
	if role, ok := claims[v.config.RoleClaim].(string); ok && role != "" {
		ac.Role = permission.Role(role)
	}
	ac.Groups = stringList(claims["groups"])

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		ac.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		ac.IssuedAt = iat.Time
	}
	return ac
}

// stringList accepts either a JSON array or a string holding a JSON array.
func stringList(v any) []string {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		if err := sonic.ConfigStd.UnmarshalFromString(val, &out); err != nil {
			return nil
		}
		return out
	default:
		return nil
	}
}
