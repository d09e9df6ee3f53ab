package enrich

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"

	"github.com/jonwraymond/gatewayauthz/observe"
	"github.com/jonwraymond/gatewayauthz/permission"
	"github.com/jonwraymond/gatewayauthz/policystore"
)

// Claim names written by the enricher.
const (
	ClaimRole         = "role"
	ClaimGroups       = "groups"
	ClaimAllowedTools = "allowed_tools"
	ClaimTenantID     = "tenant_id"
	ClaimAgentID      = "agent_id"
)

// Identity attribute and hint keys.
const (
	AttrEmail    = "email"
	AttrTenantID = "custom:tenant_id"
	HintAgentID  = "agent_id"
)

// DefaultLookupTimeout bounds the policy store lookup.
const DefaultLookupTimeout = 2 * time.Second

// IdentityAttributes are the identity provider's attributes for the subject.
type IdentityAttributes map[string]string

// Hints are client-supplied, untrusted context values.
type Hints map[string]string

// Claims are claims to add to or override in the token.
type Claims map[string]string

// Option configures an Enricher.
type Option func(*Enricher)

// WithLogger sets the logger.
func WithLogger(l observe.Logger) Option {
	return func(e *Enricher) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLookupTimeout bounds each store lookup. Zero disables the bound.
func WithLookupTimeout(d time.Duration) Option {
	return func(e *Enricher) { e.timeout = d }
}

// Enricher derives claims from policy records.
type Enricher struct {
	store   policystore.Store
	logger  observe.Logger
	timeout time.Duration
}

// NewEnricher creates an enricher over store.
func NewEnricher(store policystore.Store, opts ...Option) *Enricher {
	e := &Enricher{
		store:   store,
		logger:  observe.NopLogger(),
		timeout: DefaultLookupTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich returns the claims for the subject described by attrs. It never
// fails: without a usable active record the result is guest claims.
func (e *Enricher) Enrich(ctx context.Context, attrs IdentityAttributes, hints Hints) Claims {
	rec := e.lookup(ctx, attrs[AttrEmail])

	claims := Claims{
		ClaimRole:         string(permission.RoleGuest),
		ClaimGroups:       "[]",
		ClaimAllowedTools: "[]",
	}
	tenant := attrs[AttrTenantID]

	if rec != nil {
		claims[ClaimRole] = rec.Role
		claims[ClaimGroups] = jsonList(rec.Groups)
		claims[ClaimAllowedTools] = jsonList(rec.AllowedTools)
		if rec.TenantID != "" {
			tenant = rec.TenantID
		}
		if agent := selectAgent(rec, hints[HintAgentID]); agent != "" {
			claims[ClaimAgentID] = agent
		} else if hints[HintAgentID] != "" {
			e.logger.Warn(ctx, "rejected agent hint",
				observe.F("email", rec.Email), observe.F("agent_id", hints[HintAgentID]))
		}
	}
	if tenant != "" {
		claims[ClaimTenantID] = tenant
	}
	return claims
}

// lookup returns the active record for email, or nil.
func (e *Enricher) lookup(ctx context.Context, email string) *policystore.UserPolicyRecord {
	if e.store == nil || email == "" {
		return nil
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	rec, err := e.store.GetUser(ctx, email)
	switch {
	case errors.Is(err, policystore.ErrNotFound):
		e.logger.Info(ctx, "no policy record, using guest claims", observe.F("email", email))
		return nil
	case err != nil:
		e.logger.Error(ctx, "policy lookup failed, using guest claims",
			observe.F("email", email), observe.F("error", err))
		return nil
	case !rec.IsActive():
		e.logger.Info(ctx, "inactive policy record, using guest claims", observe.F("email", email))
		return nil
	}
	return rec
}

// selectAgent returns the requested agent when the record allows it, the
// only allowed agent when none was requested, and "" otherwise.
func selectAgent(rec *policystore.UserPolicyRecord, requested string) string {
	if requested != "" {
		if rec.AllowsAgent(requested) {
			return requested
		}
		return ""
	}
	if len(rec.AllowedAgents) == 1 {
		return rec.AllowedAgents[0]
	}
	return ""
}

func jsonList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	data, err := sonic.ConfigStd.MarshalToString(items)
	if err != nil {
		return "[]"
	}
	return data
}
