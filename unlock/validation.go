package unlock

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrInvalidExternalID = errors.New("external id must be 17-20 digits")
	ErrUnknownMilestone  = errors.New("unknown milestone")
)

var externalIDPattern = regexp.MustCompile(`^[0-9]{17,20}$`)

// IsValidExternalID reports whether s is a Discord-style numeric id (digits only, 17-20 long).
// No trimming happens here; callers trim user input first.
func IsValidExternalID(s string) bool {
	return externalIDPattern.MatchString(s)
}

// CleanExternalID trims whitespace and validates the result.
func CleanExternalID(s string) (string, error) {
	id := strings.TrimSpace(s)
	if !IsValidExternalID(id) {
		return "", ErrInvalidExternalID
	}
	return id, nil
}
