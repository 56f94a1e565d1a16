package testutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSecret signs every token minted by this package.
const TokenSecret = "storefront-test-secret"

// MintToken returns an HS256 JWT for subject expiring at exp.
func MintToken(t testing.TB, subject string, exp time.Time) string {
	t.Helper()
	tok, err := mint(subject, exp)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return tok
}

func mint(subject string, exp time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(TokenSecret))
}
