package policystore

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Status is the lifecycle state of a record.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// UserPolicyRecord is the server-trusted authorization data for one identity.
type UserPolicyRecord struct {
	Email         string   `dynamodbav:"email" json:"email" yaml:"email" validate:"required,email"`
	TenantID      string   `dynamodbav:"tenant_id" json:"tenant_id" yaml:"tenant_id" validate:"required"`
	Role          string   `dynamodbav:"role" json:"role" yaml:"role" validate:"required"`
	Groups        []string `dynamodbav:"groups,omitempty" json:"groups,omitempty" yaml:"groups,omitempty" validate:"dive,required"`
	AllowedTools  []string `dynamodbav:"allowed_tools,omitempty" json:"allowed_tools,omitempty" yaml:"allowed_tools,omitempty" validate:"dive,required"`
	AllowedAgents []string `dynamodbav:"allowed_agents,omitempty" json:"allowed_agents,omitempty" yaml:"allowed_agents,omitempty" validate:"dive,required"`
	Status        Status   `dynamodbav:"status,omitempty" json:"status,omitempty" yaml:"status,omitempty" validate:"omitempty,oneof=active inactive"`
}

// IsActive reports whether the record grants anything. A missing status
// counts as active.
func (r *UserPolicyRecord) IsActive() bool {
	return r != nil && (r.Status == "" || r.Status == StatusActive)
}

// AllowsAgent reports whether agentID is in the record's allowed agents.
func (r *UserPolicyRecord) AllowsAgent(agentID string) bool {
	return r != nil && agentID != "" && slices.Contains(r.AllowedAgents, agentID)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the record's shape.
func (r *UserPolicyRecord) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+":"+fe.Tag())
			}
			return fmt.Errorf("%w: %s", ErrInvalidRecord, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return nil
}

// NormalizeEmail is the key form used for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
