package session

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "customer@shoozy.vn",
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Unix(1_900_000_000, 0)

	got, ok := TokenExpiry(signedToken(t, exp))
	require.True(t, ok)
	assert.True(t, exp.Equal(got))
}

func TestTokenExpiry_Malformed(t *testing.T) {
	noExp := "e30." + base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"x"}`)) + ".sig"

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"two parts", "a.b"},
		{"four parts", "a.b.c.d"},
		{"bad base64", "a.!!!.c"},
		{"not json", "a." + base64.RawURLEncoding.EncodeToString([]byte("hello")) + ".c"},
		{"no exp", noExp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := TokenExpiry(tt.token)
			assert.False(t, ok)
		})
	}
}

func TestTokenExpiry_PaddedSegment(t *testing.T) {
	payload := base64.URLEncoding.EncodeToString([]byte(`{"exp": 1900000000}`))
	got, ok := TokenExpiry("h." + payload + ".s")
	require.True(t, ok)
	assert.Equal(t, int64(1_900_000_000), got.Unix())
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole("Admin"))
	assert.Equal(t, RoleStaff, ParseRole("Staff"))
	assert.Equal(t, RoleCustomer, ParseRole(""))
	assert.Equal(t, RoleCustomer, ParseRole("root"))
}

func TestContainsRole(t *testing.T) {
	allowed := []Role{RoleAdmin, RoleStaff}
	assert.True(t, ContainsRole(allowed, RoleStaff))
	assert.False(t, ContainsRole(allowed, RoleCustomer))
	assert.False(t, ContainsRole(nil, RoleAdmin))
}

func TestSessionExpiryIsDerived(t *testing.T) {
	exp := time.Unix(1_900_000_000, 0)
	s := Session{Token: signedToken(t, exp), Role: RoleCustomer}

	assert.True(t, s.IsAuthenticated())
	got, ok := s.Expiry()
	require.True(t, ok)
	assert.Equal(t, exp.Unix(), got.Unix())

	assert.False(t, Session{}.IsAuthenticated())
}
