// Package session owns the authenticated session of the running client:
// login and logout, restoring a persisted token, the auto-logout timer and
// the forced logout requested by the HTTP layer.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	domainSession "github.com/shoozy-shop/storefront/internal/domain/session"
	"github.com/shoozy-shop/storefront/internal/infrastructure/scheduler"
	"github.com/shoozy-shop/storefront/internal/infrastructure/storage"
	appErrors "github.com/shoozy-shop/storefront/internal/shared/errors"
	"github.com/shoozy-shop/storefront/internal/shared/logger"
	"github.com/shoozy-shop/storefront/internal/shared/services/markdown"
	"github.com/shoozy-shop/storefront/internal/shared/utils"
)

const (
	LoginPath = "/login"

	defaultExpirySkew = 5 * time.Second
	checkAuthKey      = "check-auth"
)

// Manager is the single owner of session state. Every identity change bumps
// epoch; results of calls started under an older epoch are discarded.
type Manager struct {
	auth      AuthService
	durable   storage.Store
	transient storage.Store
	nav       Navigator
	clock     clockwork.Clock
	timer     *scheduler.SingleTimer
	skew      time.Duration
	renderer  markdown.Renderer
	logger    logger.Interface

	flight singleflight.Group

	mu    sync.RWMutex
	token string
	role  domainSession.Role
	user  *domainSession.User
	epoch uint64

	// serialises storage writes so persisted keys follow the in-memory epoch
	persistMu sync.Mutex
}

type Option func(*Manager)

func WithClock(c clockwork.Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithExpirySkew sets how long before token expiry the session is ended.
func WithExpirySkew(d time.Duration) Option {
	return func(m *Manager) {
		if d >= 0 {
			m.skew = d
		}
	}
}

func WithTransientStore(s storage.Store) Option {
	return func(m *Manager) {
		m.transient = s
	}
}

func WithRenderer(r markdown.Renderer) Option {
	return func(m *Manager) {
		m.renderer = r
	}
}

func NewManager(auth AuthService, durable storage.Store, nav Navigator, log logger.Interface, opts ...Option) *Manager {
	m := &Manager{
		auth:      auth,
		durable:   durable,
		transient: storage.NewMemoryStore(),
		nav:       nav,
		clock:     clockwork.NewRealClock(),
		skew:      defaultExpirySkew,
		logger:    log,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.renderer == nil {
		m.renderer = markdown.NewRenderer()
	}
	m.timer = scheduler.NewSingleTimer(m.clock)
	return m
}

// Login exchanges credentials for a token and loads the profile.
func (m *Manager) Login(ctx context.Context, creds domainSession.Credentials) error {
	if err := utils.ValidateStruct(creds); err != nil {
		return err
	}

	grant, err := m.auth.Login(ctx, creds)
	if err != nil {
		m.logger.Warnw("login rejected", "email", utils.MaskEmail(creds.Email), "error", err)
		return credentialError(err)
	}
	if err := m.establish(ctx, grant); err != nil {
		return err
	}

	m.logger.Infow("login succeeded", "email", utils.MaskEmail(creds.Email), "role", m.Role())
	return nil
}

// Register creates an account and signs it in.
func (m *Manager) Register(ctx context.Context, reg domainSession.Registration) error {
	if err := utils.ValidateStruct(reg); err != nil {
		return err
	}

	grant, err := m.auth.Register(ctx, reg)
	if err != nil {
		m.logger.Warnw("registration rejected", "email", utils.MaskEmail(reg.Email), "error", err)
		return credentialError(err)
	}
	return m.establish(ctx, grant)
}

// establish adopts a fresh grant, schedules its expiry and loads the
// profile. A profile failure ends the new session.
func (m *Manager) establish(ctx context.Context, grant *domainSession.AuthGrant) error {
	if grant == nil || grant.AccessToken == "" {
		return appErrors.NewCredentialError("server returned no access token")
	}

	role := domainSession.ParseRole(grant.Role)
	epoch := m.adoptToken(grant.AccessToken, role)
	m.persist(ctx, epoch, map[string]string{
		domainSession.KeyToken:    grant.AccessToken,
		domainSession.KeyUserRole: role.String(),
	})

	profile, err := m.auth.Profile(ctx)
	if err != nil {
		m.clearIfCurrent(ctx, epoch, nil)
		return credentialError(err)
	}
	if !m.adoptProfile(ctx, epoch, profile) {
		return appErrors.NewCredentialError("session was replaced while signing in")
	}
	return nil
}

// adoptToken installs a freshly granted token and role, starts a new epoch
// and reschedules the expiry timer.
func (m *Manager) adoptToken(token string, role domainSession.Role) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.epoch++
	m.user = nil
	m.token = token
	m.role = role
	m.scheduleLocked(token, m.epoch)
	return m.epoch
}

// adoptRestored is adoptToken for a token read from storage. It refuses when
// the session changed since start, so a clear that raced the read wins.
func (m *Manager) adoptRestored(token string, role domainSession.Role, start uint64) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch != start {
		return 0, false
	}
	if m.token != token {
		m.epoch++
		m.user = nil
	}
	m.token = token
	m.role = role
	m.scheduleLocked(token, m.epoch)
	return m.epoch, true
}

func (m *Manager) scheduleLocked(token string, epoch uint64) {
	exp, ok := domainSession.TokenExpiry(token)
	if !ok {
		m.timer.Cancel()
		m.logger.Debugw("token carries no expiry, auto logout disabled")
		return
	}
	m.timer.Schedule(exp.Add(-m.skew), func() { m.expire(epoch) })
}

func (m *Manager) adoptProfile(ctx context.Context, epoch uint64, profile *domainSession.Profile) bool {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		m.logger.Debugw("discarding profile for superseded session")
		return false
	}
	user := profile.User
	m.user = &user
	if profile.RoleName != "" {
		m.role = domainSession.ParseRole(profile.RoleName)
	}
	role := m.role
	m.mu.Unlock()

	raw, err := json.Marshal(user)
	if err != nil {
		m.logger.Errorw("failed to encode user for storage", "error", err)
		return true
	}
	m.persist(ctx, epoch, map[string]string{
		domainSession.KeyUser:     string(raw),
		domainSession.KeyUserRole: role.String(),
	})
	return true
}

// expire runs when the auto-logout timer fires.
func (m *Manager) expire(epoch uint64) {
	ctx := context.Background()
	reason := &domainSession.LogoutReason{
		Code:    domainSession.ReasonTokenExpired,
		Message: domainSession.MessageTokenExpired,
	}
	if !m.clearIfCurrent(ctx, epoch, reason) {
		return
	}
	m.logger.Infow("session expired")

	if m.nav.CurrentPath() != LoginPath {
		m.navigateToLogin(ctx, url.Values{"reason": {"expired"}})
	}
}

// Logout notifies the server on a best-effort basis, clears the session and
// returns to the login view. It never fails.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.auth.Logout(ctx); err != nil {
		m.logger.Warnw("server logout failed", "error", err)
	}
	m.ClearAuth(nil)

	if m.nav.CurrentPath() != LoginPath {
		m.navigateToLogin(ctx, nil)
	}
}

// ForceLogout ends the session after the backend rejected the credential
// and sends the user to the login view, remembering where they were.
func (m *Manager) ForceLogout(ctx context.Context) {
	from := m.nav.CurrentPath()
	m.ClearAuth(nil)

	if from == LoginPath {
		return
	}
	var query url.Values
	if from != "" {
		query = url.Values{"redirect": {from}}
	}
	m.navigateToLogin(ctx, query)
}

func (m *Manager) navigateToLogin(ctx context.Context, query url.Values) {
	if err := m.nav.Replace(ctx, LoginPath, query); err != nil {
		m.logger.Errorw("navigation to login failed, falling back to hard redirect", "error", err)
		m.nav.HardRedirect(LoginPath)
	}
}

func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	req := struct {
		Email string `json:"email" validate:"required,email"`
	}{Email: email}
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}
	if err := m.auth.ForgotPassword(ctx, email); err != nil {
		m.logger.Warnw("forgot password failed", "email", utils.MaskEmail(email), "error", err)
		return credentialError(err)
	}
	return nil
}

func (m *Manager) ResetPassword(ctx context.Context, token, newPassword string) error {
	req := struct {
		Token       string `json:"token" validate:"required"`
		NewPassword string `json:"newPassword" validate:"required,min=6"`
	}{Token: token, NewPassword: newPassword}
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}
	if err := m.auth.ResetPassword(ctx, token, newPassword); err != nil {
		m.logger.Warnw("reset password failed", "error", err)
		return credentialError(err)
	}
	return nil
}

// CheckAuth reconciles memory with durable storage and revalidates the
// token against the server. Concurrent callers share one reconciliation.
// The shared call ignores the first caller's cancellation; the HTTP client
// timeout bounds it.
func (m *Manager) CheckAuth(ctx context.Context) {
	shared := context.WithoutCancel(ctx)
	_, _, _ = m.flight.Do(checkAuthKey, func() (any, error) {
		m.checkAuth(shared)
		return nil, nil
	})
}

func (m *Manager) checkAuth(ctx context.Context) {
	start := m.currentEpoch()

	token, err := m.durable.Get(ctx, domainSession.KeyToken)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		m.logger.Errorw("failed to read persisted token", "error", err)
	}
	if token == "" {
		m.clearIfCurrent(ctx, start, nil)
		return
	}

	roleName, err := m.durable.Get(ctx, domainSession.KeyUserRole)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		m.logger.Errorw("failed to read persisted role", "error", err)
	}
	epoch, ok := m.adoptRestored(token, domainSession.ParseRole(roleName), start)
	if !ok {
		m.logger.Debugw("session changed while reading storage, skipping restore")
		return
	}
	m.restoreUser(ctx, epoch)

	profile, err := m.auth.Profile(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			m.logger.Warnw("session check interrupted, keeping session", "error", err)
			return
		}
		reason := reasonFromError(err)
		if m.clearUnlessReplaced(ctx, epoch, &reason) {
			m.logger.Warnw("persisted session rejected", "code", reason.Code, "error", err)
		}
		return
	}
	m.adoptProfile(ctx, epoch, profile)
}

func (m *Manager) restoreUser(ctx context.Context, epoch uint64) {
	m.mu.RLock()
	have := m.user != nil
	m.mu.RUnlock()
	if have {
		return
	}

	raw, err := m.durable.Get(ctx, domainSession.KeyUser)
	if err != nil {
		return
	}
	var user domainSession.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		m.logger.Warnw("discarding unreadable persisted user", "error", err)
		return
	}

	m.mu.Lock()
	if m.epoch == epoch && m.user == nil {
		m.user = &user
	}
	m.mu.Unlock()
}

// ClearAuth ends the session. A non-nil reason is stashed for the next
// login view; its code defaults to ACCOUNT_LOCKED.
func (m *Manager) ClearAuth(reason *domainSession.LogoutReason) {
	m.mu.Lock()
	epoch := m.clearLocked()
	m.mu.Unlock()

	m.finishClear(context.Background(), epoch, reason)
}

// clearIfCurrent clears only if no newer identity was adopted since epoch.
func (m *Manager) clearIfCurrent(ctx context.Context, epoch uint64, reason *domainSession.LogoutReason) bool {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return false
	}
	cleared := m.clearLocked()
	m.mu.Unlock()

	m.finishClear(ctx, cleared, reason)
	return true
}

// clearUnlessReplaced is clearIfCurrent that also proceeds when the session
// was already cleared in the meantime, so the reason is still recorded. It
// backs off only if a different session has been adopted since epoch.
func (m *Manager) clearUnlessReplaced(ctx context.Context, epoch uint64, reason *domainSession.LogoutReason) bool {
	m.mu.Lock()
	if m.epoch != epoch && m.token != "" {
		m.mu.Unlock()
		return false
	}
	cleared := m.clearLocked()
	m.mu.Unlock()

	m.finishClear(ctx, cleared, reason)
	return true
}

func (m *Manager) clearLocked() uint64 {
	m.timer.Cancel()
	m.token = ""
	m.role = ""
	m.user = nil
	m.epoch++
	return m.epoch
}

func (m *Manager) finishClear(ctx context.Context, epoch uint64, reason *domainSession.LogoutReason) {
	m.persistMu.Lock()
	if m.currentEpoch() == epoch {
		if err := m.durable.Delete(ctx, domainSession.KeyToken, domainSession.KeyUser, domainSession.KeyUserRole); err != nil {
			m.logger.Errorw("failed to remove persisted session", "error", err)
		}
	}
	m.persistMu.Unlock()

	if reason == nil {
		return
	}
	code := reason.Code
	if code == "" {
		code = domainSession.ReasonAccountLocked
	}
	message := m.renderer.PlainText(reason.Message)
	if message == "" {
		message = domainSession.MessageAccountLocked
	}
	if err := m.transient.Set(ctx, domainSession.KeyLogoutReason, code); err != nil {
		m.logger.Errorw("failed to stash logout reason", "error", err)
	}
	if err := m.transient.Set(ctx, domainSession.KeyLogoutMessage, message); err != nil {
		m.logger.Errorw("failed to stash logout message", "error", err)
	}
}

// persist writes values only while epoch is still current.
func (m *Manager) persist(ctx context.Context, epoch uint64, values map[string]string) {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	if m.currentEpoch() != epoch {
		return
	}
	for k, v := range values {
		if err := m.durable.Set(ctx, k, v); err != nil {
			m.logger.Errorw("failed to persist session key", "key", k, "error", err)
		}
	}
}

func (m *Manager) currentEpoch() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.epoch
}

// ConsumeLogoutReason returns and forgets the stashed logout reason.
func (m *Manager) ConsumeLogoutReason(ctx context.Context) *domainSession.LogoutReason {
	code, err := m.transient.Get(ctx, domainSession.KeyLogoutReason)
	if err != nil || code == "" {
		return nil
	}
	message, _ := m.transient.Get(ctx, domainSession.KeyLogoutMessage)
	if err := m.transient.Delete(ctx, domainSession.KeyLogoutReason, domainSession.KeyLogoutMessage); err != nil {
		m.logger.Warnw("failed to drop logout reason", "error", err)
	}
	return &domainSession.LogoutReason{Code: code, Message: message}
}

// HasPermission reports whether the current role is one of roles.
func (m *Manager) HasPermission(roles ...domainSession.Role) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token != "" && domainSession.ContainsRole(roles, m.role)
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token != ""
}

func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

func (m *Manager) Role() domainSession.Role {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.role
}

// User returns a copy of the cached profile, or nil.
func (m *Manager) User() *domainSession.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

func (m *Manager) Snapshot() domainSession.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := domainSession.Session{Token: m.token, Role: m.role}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	return s
}

// ExpiryDue reports when the auto-logout timer will fire.
func (m *Manager) ExpiryDue() (time.Time, bool) {
	return m.timer.FireAt()
}

func credentialError(err error) error {
	var se serverError
	if errors.As(err, &se) {
		if msg := se.UserMessage(); msg != "" {
			return appErrors.NewCredentialError(msg).WithCause(err)
		}
	}
	return appErrors.NewCredentialError(err.Error()).WithCause(err)
}

func reasonFromError(err error) domainSession.LogoutReason {
	var se serverError
	if errors.As(err, &se) {
		return domainSession.LogoutReason{Code: se.ReasonCode(), Message: se.ReasonMessage()}
	}
	return domainSession.LogoutReason{}
}
