package session

import (
	"context"
	"net/url"

	domainSession "github.com/shoozy-shop/storefront/internal/domain/session"
)

// AuthService is the backend's authentication surface.
type AuthService interface {
	Login(ctx context.Context, creds domainSession.Credentials) (*domainSession.AuthGrant, error)
	Register(ctx context.Context, reg domainSession.Registration) (*domainSession.AuthGrant, error)
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (*domainSession.Profile, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// Navigator is the part of the router the session manager drives.
type Navigator interface {
	CurrentPath() string
	Replace(ctx context.Context, path string, query url.Values) error
	// HardRedirect bypasses guards; used when Replace fails.
	HardRedirect(path string)
}

// serverError is implemented by backend errors that carry a code and a
// message in their body.
type serverError interface {
	error
	ReasonCode() string
	ReasonMessage() string
	UserMessage() string
}
