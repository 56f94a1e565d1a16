package router

import (
	"context"

	"github.com/shoozy-shop/storefront/internal/domain/session"
	"github.com/shoozy-shop/storefront/internal/shared/logger"
)

const (
	HomePath         = "/"
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
)

// SessionState is what the guard needs from the session manager.
type SessionState interface {
	CheckAuth(ctx context.Context)
	IsAuthenticated() bool
	Role() session.Role
}

// NewAuthGuard reconciles the session and then checks the target's meta:
// guest-only pages send signed-in users home, protected pages send
// anonymous users to the login view and role-restricted pages send
// everyone else to the unauthorized view.
func NewAuthGuard(s SessionState, log logger.Interface) Hook {
	return func(ctx context.Context, to, _ *Location) Decision {
		s.CheckAuth(ctx)
		authenticated := s.IsAuthenticated()

		if to.RequiresGuest() && authenticated {
			return Redirect(HomePath)
		}
		if to.RequiresAuth() && !authenticated {
			log.Debugw("protected route needs a session", "path", to.Path)
			return Redirect(LoginPath)
		}
		if roles := to.Roles(); len(roles) > 0 && !session.ContainsRole(roles, s.Role()) {
			log.Warnw("role not allowed", "path", to.Path, "role", s.Role(), "allowed", roles)
			return Redirect(UnauthorizedPath)
		}
		return Allow()
	}
}
