package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

const (
	passwordLength = 12

	upperAlphabet  = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	lowerAlphabet  = "abcdefghijkmnpqrstuvwxyz"
	digitAlphabet  = "23456789"
	symbolAlphabet = "!@#$%&*+-_=?"

	inviteTokenBytes = 16
)

// GenerateTemporaryPassword returns a 12-character one-time password with at
// least one uppercase letter, one lowercase letter, one digit and one symbol.
// The remaining characters are drawn uniformly from the combined alphabet and
// the result is shuffled so the required characters sit at unpredictable
// positions. Callers persist the value and must never log it.
func GenerateTemporaryPassword() (string, error) {
	combined := upperAlphabet + lowerAlphabet + digitAlphabet + symbolAlphabet

	chars := make([]byte, 0, passwordLength)
	for _, alphabet := range []string{upperAlphabet, lowerAlphabet, digitAlphabet, symbolAlphabet} {
		ch, err := randomChar(alphabet)
		if err != nil {
			return "", err
		}
		chars = append(chars, ch)
	}
	for len(chars) < passwordLength {
		ch, err := randomChar(combined)
		if err != nil {
			return "", err
		}
		chars = append(chars, ch)
	}

	// Fisher-Yates with crypto/rand indices.
	for i := len(chars) - 1; i > 0; i-- {
		j, err := randomInt(i + 1)
		if err != nil {
			return "", err
		}
		chars[i], chars[j] = chars[j], chars[i]
	}

	return string(chars), nil
}

// GenerateInviteToken returns an opaque one-time bearer token: 32 hex
// characters of cryptographic randomness. The token encodes no claims; it is
// only usable through a database lookup.
func GenerateInviteToken() (string, error) {
	buf := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate invite token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashPassword derives the bcrypt hash stored on the user record.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether the plaintext matches the stored hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func randomChar(alphabet string) (byte, error) {
	idx, err := randomInt(len(alphabet))
	if err != nil {
		return 0, err
	}
	return alphabet[idx], nil
}

func randomInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return int(v.Int64()), nil
}
