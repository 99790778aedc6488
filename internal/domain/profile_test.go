package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSearchQuery(t *testing.T) {
	valid := []string{"ab", "Alice_99", "bob-the-builder", strings.Repeat("x", 30)}
	for _, q := range valid {
		assert.NoError(t, ValidateSearchQuery(q), q)
	}

	invalid := []string{"", "a", "a b", "ab!", "ümlaut", "ab%", strings.Repeat("x", 31)}
	for _, q := range invalid {
		err := ValidateSearchQuery(q)
		assert.True(t, errors.Is(err, ErrInvalidInput), "%q: %v", q, err)
	}
}
