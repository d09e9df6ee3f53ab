package auth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/gatewayauthz/auth"
	"github.com/jonwraymond/gatewayauthz/auth/authtest"
	"github.com/jonwraymond/gatewayauthz/permission"
)

func TestNewVerifier_Validation(t *testing.T) {
	provider := auth.NewStaticKeyProvider(nil)

	tests := []struct {
		name   string
		config auth.VerifierConfig
		keys   auth.KeyProvider
	}{
		{"missing client id", auth.VerifierConfig{}, provider},
		{"missing provider", auth.VerifierConfig{ClientID: "c"}, nil},
		{"none algorithm", auth.VerifierConfig{ClientID: "c", Algorithms: []string{"none"}}, provider},
		{"hmac algorithm", auth.VerifierConfig{ClientID: "c", Algorithms: []string{"HS256"}}, provider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := auth.NewVerifier(tt.config, tt.keys); err == nil {
				t.Error("NewVerifier() expected error")
			}
		})
	}
}

func TestVerifier_Verify(t *testing.T) {
	iss := authtest.NewIssuer(t)
	v := iss.Verifier(t)

	ac, err := v.Verify(context.Background(), iss.Bearer(t, "tenantA", "user"))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if ac.TenantID != "tenantA" {
		t.Errorf("TenantID = %q, want tenantA", ac.TenantID)
	}
	if ac.UserID != "user-tenantA" {
		t.Errorf("UserID = %q, want user-tenantA", ac.UserID)
	}
	if ac.Role != permission.RoleUser {
		t.Errorf("Role = %q, want user", ac.Role)
	}
	if ac.Email != "user@tenantA.example" {
		t.Errorf("Email = %q", ac.Email)
	}
	if ac.ExpiresAt.IsZero() || ac.IssuedAt.IsZero() {
		t.Error("ExpiresAt and IssuedAt should be populated")
	}
	if !ac.Valid() {
		t.Error("Valid() = false")
	}
}

func TestVerifier_DefaultRole(t *testing.T) {
	iss := authtest.NewIssuer(t)
	ac, err := iss.Verifier(t).Verify(context.Background(), iss.Bearer(t, "tenantA", ""))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if ac.Role != permission.RoleGuest {
		t.Errorf("Role = %q, want guest", ac.Role)
	}
}

func TestVerifier_SupplementalClaims(t *testing.T) {
	iss := authtest.NewIssuer(t)
	claims := iss.Claims("tenantA", "admin")
	claims["agent_id"] = "agent-1"
	claims["groups"] = `["eng","ops"]`

	ac, err := iss.Verifier(t).VerifyToken(context.Background(), iss.Token(t, claims))
	if err != nil {
		t.Fatalf("VerifyToken() error = %v", err)
	}
	if ac.AgentID != "agent-1" {
		t.Errorf("AgentID = %q", ac.AgentID)
	}
	if len(ac.Groups) != 2 || ac.Groups[0] != "eng" || ac.Groups[1] != "ops" {
		t.Errorf("Groups = %v", ac.Groups)
	}
}

func TestVerifier_GroupsClaimForms(t *testing.T) {
	iss := authtest.NewIssuer(t)
	tests := []struct {
		name   string
		groups any
		want   []string
	}{
		{"array", []any{"eng", 7, "ops"}, []string{"eng", "ops"}},
		{"string encoded array", `["eng"]`, []string{"eng"}},
		{"string not json", "eng", nil},
		{"string encoded object", `{"eng":true}`, nil},
		{"number", 3, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			claims := iss.Claims("tenantA", "user")
			claims["groups"] = tc.groups
			ac, err := iss.Verifier(t).VerifyToken(context.Background(), iss.Token(t, claims))
			if err != nil {
				t.Fatalf("VerifyToken() error = %v", err)
			}
			if !slices.Equal(ac.Groups, tc.want) {
				t.Errorf("Groups = %v, want %v", ac.Groups, tc.want)
			}
		})
	}
}

func TestVerifier_Rejects(t *testing.T) {
	iss := authtest.NewIssuer(t)
	v := iss.Verifier(t)

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	forged := jwt.NewWithClaims(jwt.SigningMethodRS256, iss.Claims("tenantA", "admin"))
	forged.Header["kid"] = iss.KeyID
	forgedToken, _ := forged.SignedString(other)

	hmac := jwt.NewWithClaims(jwt.SigningMethodHS256, iss.Claims("tenantA", "admin"))
	hmacToken, _ := hmac.SignedString([]byte("secret"))

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, iss.Claims("tenantA", "admin"))
	unsignedToken, _ := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)

	with := func(key string, value any) string {
		c := iss.Claims("tenantA", "admin")
		c[key] = value
		return auth.BearerPrefix + iss.Token(t, c)
	}

	tests := []struct {
		name    string
		header  string
		wantErr error
	}{
		{"empty", "", auth.ErrMissingCredentials},
		{"no bearer prefix", iss.Token(t, iss.Claims("tenantA", "admin")), auth.ErrTokenMalformed},
		{"lowercase prefix", "bearer " + iss.Token(t, iss.Claims("tenantA", "admin")), auth.ErrTokenMalformed},
		{"two segments", "Bearer abc.def", auth.ErrTokenMalformed},
		{"four segments", "Bearer a.b.c.d", auth.ErrTokenMalformed},
		{"empty segment", "Bearer a..c", auth.ErrTokenMalformed},
		{"garbage", "Bearer aaa.bbb.ccc", nil},
		{"expired", with("exp", iss.Now.Add(-time.Minute).Unix()), auth.ErrTokenExpired},
		{"missing exp", with("exp", nil), nil},
		{"wrong audience", with("aud", "someone-else"), auth.ErrClaimMismatch},
		{"missing audience", with("aud", nil), nil},
		{"access token", with("token_use", "access"), auth.ErrClaimMismatch},
		{"missing token_use", with("token_use", nil), auth.ErrClaimMismatch},
		{"missing tenant", with("tenant_id", nil), auth.ErrIncompleteContext},
		{"empty tenant", with("tenant_id", ""), auth.ErrIncompleteContext},
		{"forged signature", auth.BearerPrefix + forgedToken, nil},
		{"hmac algorithm", auth.BearerPrefix + hmacToken, nil},
		{"none algorithm", auth.BearerPrefix + unsignedToken, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ac, err := v.Verify(context.Background(), tt.header)
			if err == nil {
				t.Fatalf("Verify() = %+v, want error", ac)
			}
			if ac != nil {
				t.Error("Verify() returned a context alongside an error")
			}
			if !errors.Is(err, auth.ErrInvalidToken) {
				t.Errorf("errors.Is(err, ErrInvalidToken) = false for %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestVerifier_UnknownKey(t *testing.T) {
	iss := authtest.NewIssuer(t)
	v := iss.Verifier(t)

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, iss.Claims("tenantA", "admin"))
	tok.Header["kid"] = "rotated-away"
	s, _ := tok.SignedString(iss.Key)

	_, err := v.VerifyToken(context.Background(), s)
	if !errors.Is(err, auth.ErrKeyNotFound) {
		t.Errorf("VerifyToken() error = %v, want ErrKeyNotFound", err)
	}
}

func TestVerifier_Issuer(t *testing.T) {
	iss := authtest.NewIssuer(t)
	v, err := auth.NewVerifier(auth.VerifierConfig{
		ClientID: iss.ClientID,
		Issuer:   "https://cognito-idp.us-east-1.amazonaws.com/pool",
		Now:      func() time.Time { return iss.Now },
	}, iss.Provider())
	if err != nil {
		t.Fatal(err)
	}

	c := iss.Claims("tenantA", "user")
	if _, err := v.VerifyToken(context.Background(), iss.Token(t, c)); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("missing iss: error = %v, want ErrInvalidToken", err)
	}

	c = iss.Claims("tenantA", "user")
	c["iss"] = "https://cognito-idp.us-east-1.amazonaws.com/pool"
	if _, err := v.VerifyToken(context.Background(), iss.Token(t, c)); err != nil {
		t.Errorf("matching iss: error = %v", err)
	}
}

func TestVerifier_Deterministic(t *testing.T) {
	iss := authtest.NewIssuer(t)
	v := iss.Verifier(t)
	header := iss.Bearer(t, "tenantB", "admin")

	first, err := v.Verify(context.Background(), header)
	if err != nil {
		t.Fatal(err)
	}
	for range 5 {
		again, err := v.Verify(context.Background(), header)
		if err != nil {
			t.Fatal(err)
		}
		if again.TenantID != first.TenantID || again.Role != first.Role || again.UserID != first.UserID {
			t.Errorf("Verify() not deterministic: %+v vs %+v", again, first)
		}
	}
}

func TestVerifyError_DoesNotLeakToken(t *testing.T) {
	iss := authtest.NewIssuer(t)
	c := iss.Claims("tenantA", "admin")
	c["aud"] = "other"
	token := iss.Token(t, c)

	_, err := iss.Verifier(t).VerifyToken(context.Background(), token)
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Contains(err.Error(), token) {
		t.Error("error message contains the raw token")
	}
}
