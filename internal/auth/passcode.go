package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Alphabet excludes visually ambiguous characters: 0, O, 1, I.
const passcodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// passcodeLength is the code length after normalization (dashes stripped).
const passcodeLength = 16

// GeneratePasscode produces a code like "ABCD-2345-EFGH-6789": four
// hyphen-separated groups of four, drawn uniformly from a 32-character
// alphabet using a cryptographically secure source. Uniqueness is not
// checked; collision probability at this entropy is negligible.
func GeneratePasscode() (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(passcodeAlphabet)))

	for i := 0; i < passcodeLength; i++ {
		if i > 0 && i%4 == 0 {
			b.WriteByte('-')
		}
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generating passcode: %w", err)
		}
		b.WriteByte(passcodeAlphabet[n.Int64()])
	}

	return b.String(), nil
}

// NormalizePasscode strips separators and whitespace and uppercases, so
// "abcd-2345-efgh-6789" and "ABCD2345EFGH6789" hash and verify identically.
func NormalizePasscode(code string) string {
	code = strings.TrimSpace(code)
	code = strings.ReplaceAll(code, "-", "")
	code = strings.ReplaceAll(code, " ", "")
	return strings.ToUpper(code)
}

// PasscodeHint returns the last four characters of the normalized code.
// It is stored unhashed for display and is not sufficient to recover the code.
func PasscodeHint(code string) string {
	clean := NormalizePasscode(code)
	if len(clean) < 4 {
		return clean
	}
	return clean[len(clean)-4:]
}

// HashPasscode applies a salted bcrypt hash to the normalized code. The cost
// is tuned so verification takes tens of milliseconds.
func HashPasscode(code string, cost int) (string, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(NormalizePasscode(code)), cost)
	if err != nil {
		return "", fmt.Errorf("hashing passcode: %w", err)
	}
	return string(hash), nil
}

// VerifyPasscode checks a candidate plaintext against a stored hash using the
// same normalization as HashPasscode.
func VerifyPasscode(code, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(NormalizePasscode(code))) == nil
}
