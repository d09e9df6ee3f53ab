// Package authtest mints signed tokens and serves key sets for tests.
package authtest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/gatewayauthz/auth"
)

// Default identifiers used by Issuer.
const (
	ClientID = "test-client"
	KeyID    = "test-kid"
)

// Issuer signs RS256 tokens with a freshly generated key.
type Issuer struct {
	Key      *rsa.PrivateKey
	KeyID    string
	ClientID string
	Now      time.Time
}

// NewIssuer generates a 2048-bit signing key.
func NewIssuer(t testing.TB) *Issuer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey() error = %v", err)
	}
	return &Issuer{Key: key, KeyID: KeyID, ClientID: ClientID, Now: time.Now()}
}

// Claims returns a valid claim set for tenant and role. An empty role omits
// the role claim.
func (i *Issuer) Claims(tenant, role string) jwt.MapClaims {
	c := jwt.MapClaims{
		"sub":       "user-" + tenant,
		"aud":       i.ClientID,
		"token_use": "id",
		"iat":       i.Now.Add(-time.Minute).Unix(),
		"exp":       i.Now.Add(time.Hour).Unix(),
		"tenant_id": tenant,
		"email":     "user@" + tenant + ".example",
	}
	if role != "" {
		c["role"] = role
	}
	return c
}

// Token signs claims. A claim whose value is nil is removed first.
func (i *Issuer) Token(t testing.TB, claims jwt.MapClaims) string {
	t.Helper()
	for k, v := range claims {
		if v == nil {
			delete(claims, k)
		}
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = i.KeyID
	s, err := tok.SignedString(i.Key)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return s
}

// Bearer returns an Authorization header value for tenant and role.
func (i *Issuer) Bearer(t testing.TB, tenant, role string) string {
	t.Helper()
	return auth.BearerPrefix + i.Token(t, i.Claims(tenant, role))
}

// Provider returns a static key provider holding the public key.
func (i *Issuer) Provider() *auth.StaticKeyProvider {
	return auth.NewStaticKeyProvider(map[string]any{i.KeyID: &i.Key.PublicKey})
}

// Verifier returns a verifier trusting this issuer.
func (i *Issuer) Verifier(t testing.TB) *auth.Verifier {
	t.Helper()
	v, err := auth.NewVerifier(auth.VerifierConfig{
		ClientID: i.ClientID,
		Now:      func() time.Time { return i.Now },
	}, i.Provider())
	if err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}
	return v
}

// JWKS returns the public key set document.
func (i *Issuer) JWKS() []byte {
	doc := map[string]any{
		"keys": []map[string]any{{
			"kty": "RSA",
			"kid": i.KeyID,
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(i.Key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(i.Key.E)).Bytes()),
		}},
	}
	data, _ := json.Marshal(doc)
	return data
}

// Server serves JWKS on every path until the test ends.
func (i *Issuer) Server(t testing.TB) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(i.JWKS())
	}))
	t.Cleanup(srv.Close)
	return srv
}
