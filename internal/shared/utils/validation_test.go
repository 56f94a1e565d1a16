package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shoozy-shop/storefront/internal/shared/errors"
)

type signup struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		in      signup
		wantErr string
	}{
		{
			name: "valid",
			in:   signup{Email: "a@b.vn", Password: "secret1", ConfirmPassword: "secret1"},
		},
		{
			name:    "bad email",
			in:      signup{Email: "nope", Password: "secret1", ConfirmPassword: "secret1"},
			wantErr: "email must be a valid email address",
		},
		{
			name:    "mismatched confirmation",
			in:      signup{Email: "a@b.vn", Password: "secret1", ConfirmPassword: "secret2"},
			wantErr: "confirmPassword must match password",
		},
		{
			name:    "short password",
			in:      signup{Email: "a@b.vn", Password: "abc", ConfirmPassword: "abc"},
			wantErr: "password must be at least 6 characters long",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.in)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.IsValidationError(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
