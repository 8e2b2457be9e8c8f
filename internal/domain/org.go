package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// MaxOrgIDLength is the longest organization identifier accepted.
const MaxOrgIDLength = 128

// ValidateOrgID checks that org is a usable organization identifier.
// Surrounding whitespace is not trimmed by callers, so an ID that only
// consists of whitespace is reported as empty and any inner whitespace or
// control character makes the ID invalid.
func ValidateOrgID(org string) error {
	if strings.TrimSpace(org) == "" {
		return ErrEmptyOrgID
	}

	if len(org) > MaxOrgIDLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidOrgID, MaxOrgIDLength)
	}

	for _, r := range org {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%w: contains whitespace or control characters", ErrInvalidOrgID)
		}
	}

	return nil
}
