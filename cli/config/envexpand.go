// Package config loads plandesk.yaml, the optional defaults file shared by
// every plandesk command.
package config

import (
	"os"
	"regexp"
	"strings"
)

// envRef matches ${NAME} and ${NAME:-fallback}. Group 1 is the name,
// group 2 the fallback.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv substitutes environment references in raw config text before
// it is parsed. A variable that is unset or empty takes its fallback, or
// becomes "" without one; a missing service token then shows up as a 401.
// A bare "$" or a malformed reference is copied through.
func ExpandEnv(input string) string {
	refs := envRef.FindAllStringSubmatchIndex(input, -1)
	if len(refs) == 0 {
		return input
	}

	var b strings.Builder
	b.Grow(len(input))
	last := 0
	for _, ref := range refs {
		b.WriteString(input[last:ref[0]])
		last = ref[1]

		if v := os.Getenv(input[ref[2]:ref[3]]); v != "" {
			b.WriteString(v)
		} else if ref[4] >= 0 {
			b.WriteString(input[ref[4]:ref[5]])
		}
	}
	b.WriteString(input[last:])
	return b.String()
}
