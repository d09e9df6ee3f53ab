package secret

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

// ExpandEnvStrict expands $VAR and ${VAR} in s from the environment.
// Every referenced variable must be set, possibly to the empty string.
// $$ emits a literal $.
func ExpandEnvStrict(s string) (string, error) {
	var missing []string
	out := os.Expand(s, func(name string) string {
		if name == "$" {
			return "$"
		}
		v, ok := os.LookupEnv(name)
		if !ok && !slices.Contains(missing, name) {
			missing = append(missing, name)
		}
		return v
	})
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}
	return out, nil
}
