// Package session holds the authenticated identity of a storefront client:
// the bearer token, its role and the cached user profile.
package session

import "time"

// Durable storage keys. They survive a restart of the client.
const (
	KeyToken    = "token"
	KeyUser     = "user"
	KeyUserRole = "userRole"
)

// Transient storage keys, read once by the next login view.
const (
	KeyLogoutReason  = "logoutReason"
	KeyLogoutMessage = "logoutMessage"
)

// Logout reason codes.
const (
	ReasonTokenExpired  = "TOKEN_EXPIRED"
	ReasonAccountLocked = "ACCOUNT_LOCKED"
	ReasonForcedLogout  = "FORCED_LOGOUT"
)

// Default messages shown on the login view.
const (
	MessageTokenExpired  = "Phiên đăng nhập đã hết hạn"
	MessageAccountLocked = "Tài khoản đã bị khoá"
)

// User is the profile record cached alongside the token.
type User struct {
	ID          int64  `json:"id"`
	Avatar      string `json:"avatar"`
	Email       string `json:"email"`
	Fullname    string `json:"fullname"`
	Gender      *bool  `json:"gender"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
	DateOfBirth string `json:"dateOfBirth"`
}

// Profile is the /users/profile payload. RoleName, when present, is
// authoritative over the role stored at login.
type Profile struct {
	User
	RoleName string `json:"roleName"`
	IsActive *bool  `json:"isActive,omitempty"`
}

// Session is a point-in-time copy of the authenticated identity.
type Session struct {
	Token string
	Role  Role
	User  *User
}

func (s Session) IsAuthenticated() bool {
	return s.Token != ""
}

// Expiry decodes the token's exp claim on every call.
func (s Session) Expiry() (time.Time, bool) {
	return TokenExpiry(s.Token)
}

// LogoutReason is stashed for one-time display after a session ends.
type LogoutReason struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AuthGrant is the login/register response payload.
type AuthGrant struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	Role        string `json:"role"`
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Registration struct {
	Fullname        string `json:"fullname" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	PhoneNumber     string `json:"phoneNumber" validate:"required"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}
