package validation

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	MinProfileNameLength = 1
	MaxProfileNameLength = 32
)

// Profile names become VPN client identifiers and end up in file names and
// certificate subjects, so the charset is deliberately narrow.
var profileNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateProfileName checks a desired VPN profile name.
func ValidateProfileName(name string) error {
	name = strings.TrimSpace(name)
	if len(name) < MinProfileNameLength {
		return fmt.Errorf("profile name cannot be empty")
	}
	if len(name) > MaxProfileNameLength {
		return fmt.Errorf("profile name cannot exceed %d characters", MaxProfileNameLength)
	}
	if !profileNameRegex.MatchString(name) {
		return fmt.Errorf("profile name may contain only letters, digits, '_' and '-'")
	}
	return nil
}
