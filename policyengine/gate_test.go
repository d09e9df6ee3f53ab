package policyengine

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jonwraymond/gatewayauthz/auth"
	"github.com/jonwraymond/gatewayauthz/observe"
	"github.com/jonwraymond/gatewayauthz/permission"
)

func fixedAuthorizer(res Result, err error) Authorizer {
	return AuthorizerFunc(func(_ context.Context, _ string, actions []Action) (Result, error) {
		return res, err
	})
}

func TestGate_Check(t *testing.T) {
	tool := permission.ParseToolID("docs___retrieve_doc")
	caller := &auth.AuthContext{TenantID: "tenant-a", Role: permission.RoleUser}
	permit := Result{Authorized: []ActionDecision{{ID: "docs___retrieve_doc"}}}
	forbid := Result{Unauthorized: []ActionDecision{{ID: "docs___retrieve_doc", Reason: "forbid tenant"}}}
	failure := errors.New("boom")

	tests := []struct {
		name        string
		mode        Mode
		res         Result
		err         error
		wantAllowed bool
		wantErr     bool
		wantReason  string
		wantLog     string
	}{
		{name: "enforce permit", mode: ModeEnforce, res: permit, wantAllowed: true},
		{name: "enforce forbid", mode: ModeEnforce, res: forbid, wantReason: "forbid tenant"},
		{name: "enforce absent", mode: ModeEnforce, res: Result{}, wantReason: reasonNotAuthorized},
		{name: "enforce failure", mode: ModeEnforce, err: failure, wantErr: true, wantReason: reasonEvaluationFailed},
		{name: "log only permit", mode: ModeLogOnly, res: permit, wantAllowed: true},
		{name: "log only forbid", mode: ModeLogOnly, res: forbid, wantAllowed: true, wantReason: "forbid tenant", wantLog: "policy would deny"},
		{name: "log only failure", mode: ModeLogOnly, err: failure, wantAllowed: true, wantReason: reasonEvaluationFailed, wantLog: "policy evaluation failed"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			g := NewGate(fixedAuthorizer(tc.res, tc.err), tc.mode, observe.NewLoggerWithWriter("debug", &buf))

			d, err := g.Check(context.Background(), "tok", caller, tool)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Check() error = %v, wantErr %v", err, tc.wantErr)
			}
			if d.Allowed != tc.wantAllowed {
				t.Errorf("Allowed = %v, want %v", d.Allowed, tc.wantAllowed)
			}
			if d.Reason != tc.wantReason {
				t.Errorf("Reason = %q, want %q", d.Reason, tc.wantReason)
			}
			if d.Mode != tc.mode {
				t.Errorf("Mode = %q", d.Mode)
			}
			if tc.wantLog != "" && !strings.Contains(buf.String(), tc.wantLog) {
				t.Errorf("log %q missing %q", buf.String(), tc.wantLog)
			}
			if strings.Contains(buf.String(), "tok\"") {
				t.Errorf("log leaks token: %s", buf.String())
			}
		})
	}
}

func TestNewGate_ModeNormalization(t *testing.T) {
	forbid := Result{Unauthorized: []ActionDecision{{ID: "docs___retrieve_doc", Reason: "forbid tenant"}}}
	tool := permission.ParseToolID("docs___retrieve_doc")

	tests := []struct {
		mode        Mode
		wantMode    Mode
		wantAllowed bool
	}{
		{"", ModeLogOnly, true},
		{"log_only", ModeLogOnly, true},
		{" enforce ", ModeEnforce, false},
		{"bogus", ModeEnforce, false},
		{"AUDIT", ModeEnforce, false},
	}
	for _, tc := range tests {
		t.Run(string(tc.mode), func(t *testing.T) {
			g := NewGate(fixedAuthorizer(forbid, nil), tc.mode, nil)
			if g.Mode() != tc.wantMode {
				t.Errorf("Mode() = %q, want %q", g.Mode(), tc.wantMode)
			}
			d, err := g.Check(context.Background(), "tok", nil, tool)
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if d.Allowed != tc.wantAllowed {
				t.Errorf("Allowed = %v, want %v", d.Allowed, tc.wantAllowed)
			}
		})
	}

	t.Run("unknown mode fails closed on error", func(t *testing.T) {
		g := NewGate(fixedAuthorizer(Result{}, errors.New("boom")), "bogus", nil)
		d, err := g.Check(context.Background(), "tok", nil, tool)
		if err == nil || d.Allowed {
			t.Errorf("Check() = %+v, %v; want deny with error", d, err)
		}
	})
}

func TestGate_SendsPrefixedAction(t *testing.T) {
	var got []Action
	authz := AuthorizerFunc(func(_ context.Context, token string, actions []Action) (Result, error) {
		if token != "raw-token" {
			t.Errorf("token = %q", token)
		}
		got = actions
		return Result{}, nil
	})
	g := NewGate(authz, "", nil)
	if g.Mode() != ModeLogOnly {
		t.Errorf("default mode = %q", g.Mode())
	}
	_, _ = g.Check(context.Background(), "raw-token", nil, permission.ParseToolID("a___b___retrieve_doc"))
	if len(got) != 1 || got[0].ID != "a___b___retrieve_doc" || got[0].Type != ActionTypeCustom {
		t.Errorf("actions = %+v", got)
	}
}
