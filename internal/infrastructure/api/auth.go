package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shoozy-shop/storefront/internal/domain/session"
)

// AuthAPI wraps the /auth and /users/profile endpoints.
type AuthAPI struct {
	client *Client
}

func NewAuthAPI(c *Client) *AuthAPI {
	return &AuthAPI{client: c}
}

func (a *AuthAPI) Login(ctx context.Context, creds session.Credentials) (*session.AuthGrant, error) {
	var grant session.AuthGrant
	if err := a.client.Do(ctx, http.MethodPost, "/auth/login", nil, creds, &grant); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &grant, nil
}

func (a *AuthAPI) Register(ctx context.Context, reg session.Registration) (*session.AuthGrant, error) {
	var grant session.AuthGrant
	if err := a.client.Do(ctx, http.MethodPost, "/auth/register", nil, reg, &grant); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return &grant, nil
}

func (a *AuthAPI) Logout(ctx context.Context) error {
	if err := a.client.Do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (a *AuthAPI) Profile(ctx context.Context) (*session.Profile, error) {
	var profile session.Profile
	if err := a.client.Do(ctx, http.MethodGet, "/users/profile", nil, nil, &profile); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &profile, nil
}

func (a *AuthAPI) ForgotPassword(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	if err := a.client.Do(ctx, http.MethodPost, "/auth/forgot-password", nil, body, nil); err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	return nil
}

func (a *AuthAPI) ResetPassword(ctx context.Context, token, newPassword string) error {
	body := map[string]string{"token": token, "newPassword": newPassword}
	if err := a.client.Do(ctx, http.MethodPost, "/auth/reset-password", nil, body, nil); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}
