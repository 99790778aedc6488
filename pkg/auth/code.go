package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// CodeAlphabet is the canonical handoff code charset. Codes are stored upper-case.
const CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// MinCodeLength keeps the code space at or above 36^6.
const MinCodeLength = 6

// GenerateCode returns a uniformly random code of the given length drawn from
// CodeAlphabet using crypto/rand.
func GenerateCode(length int) (string, error) {
	if length < MinCodeLength {
		return "", fmt.Errorf("code length %d below minimum %d", length, MinCodeLength)
	}

	max := big.NewInt(int64(len(CodeAlphabet)))
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %v", err)
		}
		b.WriteByte(CodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeCode trims surrounding whitespace and upper-cases the code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether an already normalized code has the expected
// length and only contains CodeAlphabet characters.
func ValidCode(code string, length int) bool {
	if len(code) != length {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
