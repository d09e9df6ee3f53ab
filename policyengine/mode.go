package policyengine

import (
	"fmt"
	"strings"
)

// Mode controls what a Gate does with an unauthorized answer.
type Mode string

const (
	// ModeLogOnly logs would-be denials and allows the call.
	ModeLogOnly Mode = "LOG_ONLY"
	// ModeEnforce blocks unauthorized calls and failed evaluations.
	ModeEnforce Mode = "ENFORCE"
)

// ParseMode parses a mode name case-insensitively. An empty name is
// ModeLogOnly, the mode the service is rolled out in.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(ModeLogOnly):
		return ModeLogOnly, nil
	case string(ModeEnforce):
		return ModeEnforce, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

func (m Mode) String() string { return string(m) }
