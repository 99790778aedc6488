package domain

import (
	"fmt"
	"regexp"
)

const (
	SearchQueryMinLength = 2
	SearchQueryMaxLength = 30
)

var searchQueryPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Profile is the public view of a player returned by search.
type Profile struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// ValidateSearchQuery enforces the [2,30] length bound and the
// letters/digits/underscore/hyphen charset.
func ValidateSearchQuery(q string) error {
	if len(q) < SearchQueryMinLength || len(q) > SearchQueryMaxLength {
		return fmt.Errorf("%w: query must be between %d and %d characters", ErrInvalidInput, SearchQueryMinLength, SearchQueryMaxLength)
	}
	if !searchQueryPattern.MatchString(q) {
		return fmt.Errorf("%w: query may only contain letters, digits, underscore and hyphen", ErrInvalidInput)
	}
	return nil
}
