package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainSession "github.com/shoozy-shop/storefront/internal/domain/session"
	"github.com/shoozy-shop/storefront/internal/infrastructure/storage"
	appErrors "github.com/shoozy-shop/storefront/internal/shared/errors"
	"github.com/shoozy-shop/storefront/internal/shared/logger"
	"github.com/shoozy-shop/storefront/internal/shared/testutil"
)

type rejection struct {
	code    string
	message string
}

func (r *rejection) Error() string         { return "rejected: " + r.code }
func (r *rejection) ReasonCode() string    { return r.code }
func (r *rejection) ReasonMessage() string { return r.message }
func (r *rejection) UserMessage() string   { return r.message }

type fakeAuth struct {
	mu           sync.Mutex
	grants       map[string]*domainSession.AuthGrant
	loginErr     error
	logoutErr    error
	resetErr     error
	logouts      int
	profileCalls int
	profileFn    func(call int) (*domainSession.Profile, error)
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{grants: make(map[string]*domainSession.AuthGrant)}
}

func (f *fakeAuth) grant(email, token string, role domainSession.Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grants[email] = &domainSession.AuthGrant{AccessToken: token, TokenType: "Bearer", Role: role.String()}
}

func (f *fakeAuth) Login(_ context.Context, creds domainSession.Credentials) (*domainSession.AuthGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	g, ok := f.grants[creds.Email]
	if !ok {
		return nil, &rejection{code: "BAD_CREDENTIALS", message: "Sai email hoặc mật khẩu"}
	}
	return g, nil
}

func (f *fakeAuth) Register(ctx context.Context, reg domainSession.Registration) (*domainSession.AuthGrant, error) {
	return f.Login(ctx, domainSession.Credentials{Email: reg.Email, Password: reg.Password})
}

func (f *fakeAuth) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	return f.logoutErr
}

// Profile fails with the context error once ctx is done, as the HTTP client
// would.
func (f *fakeAuth) Profile(ctx context.Context) (*domainSession.Profile, error) {
	f.mu.Lock()
	f.profileCalls++
	call := f.profileCalls
	fn := f.profileFn
	f.mu.Unlock()

	profile := &domainSession.Profile{User: domainSession.User{ID: int64(call), Email: "user@shoozy.vn"}}
	var err error
	if fn != nil {
		profile, err = fn(call)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	return profile, err
}

func (f *fakeAuth) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profileCalls
}

// gatedStore holds Get(key) open after reading the value, once armed.
type gatedStore struct {
	*storage.MemoryStore
	key     string
	armed   atomic.Bool
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedStore(inner *storage.MemoryStore, key string) *gatedStore {
	return &gatedStore{
		MemoryStore: inner,
		key:         key,
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (g *gatedStore) Get(ctx context.Context, key string) (string, error) {
	v, err := g.MemoryStore.Get(ctx, key)
	if key == g.key && g.armed.Load() {
		g.once.Do(func() { close(g.entered) })
		<-g.release
	}
	return v, err
}

func (f *fakeAuth) ForgotPassword(context.Context, string) error { return nil }

func (f *fakeAuth) ResetPassword(context.Context, string, string) error { return f.resetErr }

type fixture struct {
	auth    *fakeAuth
	durable *storage.MemoryStore
	nav     *testutil.RecordingNavigator
	clock   *clockwork.FakeClock
	mgr     *Manager
}

func newFixture(t *testing.T, path string) *fixture {
	t.Helper()
	f := &fixture{
		auth:    newFakeAuth(),
		durable: storage.NewMemoryStore(),
		nav:     testutil.NewRecordingNavigator(path),
		clock:   clockwork.NewFakeClockAt(time.Now().Truncate(time.Second)),
	}
	f.mgr = NewManager(f.auth, f.durable, f.nav, logger.NewNop(), WithClock(f.clock))
	return f
}

func creds(email string) domainSession.Credentials {
	return domainSession.Credentials{Email: email, Password: "secret1"}
}

func TestManager_LoginAdoptsSession(t *testing.T) {
	f := newFixture(t, "/login")
	token := testutil.MintToken(t, "a", f.clock.Now().Add(time.Hour))
	f.auth.grant("staff@shoozy.vn", token, domainSession.RoleStaff)

	require.NoError(t, f.mgr.Login(context.Background(), creds("staff@shoozy.vn")))

	assert.True(t, f.mgr.IsAuthenticated())
	assert.Equal(t, token, f.mgr.Token())
	assert.Equal(t, domainSession.RoleStaff, f.mgr.Role())
	require.NotNil(t, f.mgr.User())

	stored, err := f.durable.Get(context.Background(), domainSession.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, token, stored)
	role, err := f.durable.Get(context.Background(), domainSession.KeyUserRole)
	require.NoError(t, err)
	assert.Equal(t, "Staff", role)
	_, err = f.durable.Get(context.Background(), domainSession.KeyUser)
	assert.NoError(t, err)
}

func TestManager_LoginRejected(t *testing.T) {
	f := newFixture(t, "/login")

	err := f.mgr.Login(context.Background(), creds("nobody@shoozy.vn"))

	require.Error(t, err)
	assert.True(t, appErrors.IsCredentialError(err))
	assert.Contains(t, err.Error(), "Sai email hoặc mật khẩu")
	assert.False(t, f.mgr.IsAuthenticated())
}

func TestManager_LoginValidatesInput(t *testing.T) {
	f := newFixture(t, "/login")

	err := f.mgr.Login(context.Background(), domainSession.Credentials{Email: "not-an-email"})

	require.Error(t, err)
	assert.True(t, appErrors.IsValidationError(err))
	assert.Zero(t, f.auth.profileCalls)
}

func TestManager_LoginProfileFailureClearsSession(t *testing.T) {
	f := newFixture(t, "/login")
	f.auth.grant("a@shoozy.vn", testutil.MintToken(t, "a", f.clock.Now().Add(time.Hour)), domainSession.RoleCustomer)
	f.auth.profileFn = func(int) (*domainSession.Profile, error) {
		return nil, errors.New("connection reset")
	}

	err := f.mgr.Login(context.Background(), creds("a@shoozy.vn"))

	require.Error(t, err)
	assert.True(t, appErrors.IsCredentialError(err))
	assert.False(t, f.mgr.IsAuthenticated())
	assert.Zero(t, f.durable.Len())
	_, pending := f.mgr.ExpiryDue()
	assert.False(t, pending)
}

func TestManager_ProfileRoleNameWins(t *testing.T) {
	f := newFixture(t, "/login")
	f.auth.grant("a@shoozy.vn", testutil.MintToken(t, "a", f.clock.Now().Add(time.Hour)), domainSession.RoleCustomer)
	f.auth.profileFn = func(int) (*domainSession.Profile, error) {
		return &domainSession.Profile{RoleName: "Admin"}, nil
	}

	require.NoError(t, f.mgr.Login(context.Background(), creds("a@shoozy.vn")))

	assert.Equal(t, domainSession.RoleAdmin, f.mgr.Role())
}

func TestManager_HasPermission(t *testing.T) {
	f := newFixture(t, "/login")
	f.auth.grant("staff@shoozy.vn", testutil.MintToken(t, "s", f.clock.Now().Add(time.Hour)), domainSession.RoleStaff)

	assert.False(t, f.mgr.HasPermission(domainSession.RoleCustomer, domainSession.RoleStaff, domainSession.RoleAdmin))

	require.NoError(t, f.mgr.Login(context.Background(), creds("staff@shoozy.vn")))

	assert.True(t, f.mgr.HasPermission(domainSession.RoleAdmin, domainSession.RoleStaff))
	assert.False(t, f.mgr.HasPermission(domainSession.RoleAdmin))
	assert.False(t, f.mgr.HasPermission())

	f.mgr.ClearAuth(nil)
	assert.False(t, f.mgr.HasPermission(domainSession.RoleStaff))
}

func TestManager_ExpiryScheduledBeforeTokenExpiry(t *testing.T) {
	f := newFixture(t, "/")
	exp := f.clock.Now().Add(time.Hour)
	f.auth.grant("a@shoozy.vn", testutil.MintToken(t, "a", exp), domainSession.RoleCustomer)

	require.NoError(t, f.mgr.Login(context.Background(), creds("a@shoozy.vn")))

	due, ok := f.mgr.ExpiryDue()
	require.True(t, ok)
	assert.Equal(t, exp.Add(-5*time.Second), due)
}

func TestManager_TokenExpiryLogsOut(t *testing.T) {
	f := newFixture(t, "/orders")
	f.auth.grant("a@shoozy.vn", testutil.MintToken(t, "a", f.clock.Now().Add(time.Minute)), domainSession.RoleCustomer)
	require.NoError(t, f.mgr.Login(context.Background(), creds("a@shoozy.vn")))

	f.clock.Advance(56 * time.Second)

	require.Eventually(t, func() bool { return len(f.nav.Replaces()) == 1 }, time.Second, 5*time.Millisecond)
	nav := f.nav.Replaces()[0]
	assert.Equal(t, "/login", nav.Path)
	assert.Equal(t, "expired", nav.Query.Get("reason"))
	assert.False(t, f.mgr.IsAuthenticated())

	reason := f.mgr.ConsumeLogoutReason(context.Background())
	require.NotNil(t, reason)
	assert.Equal(t, domainSession.ReasonTokenExpired, reason.Code)
	assert.Equal(t, domainSession.MessageTokenExpired, reason.Message)
}

func TestManager_ExpiryOnLoginViewDoesNotNavigate(t *testing.T) {
	f := newFixture(t, "/login")
	f.auth.grant("a@shoozy.vn", testutil.MintToken(t, "a", f.clock.Now().Add(time.Minute)), domainSession.RoleCustomer)
	require.NoError(t, f.mgr.Login(context.Background(), creds("a@shoozy.vn")))

	f.clock.Advance(time.Minute)

	require.Eventually(t, func() bool { return !f.mgr.IsAuthenticated() }, time.Second, 5*time.Millisecond)
	assert.Empty(t, f.nav.Replaces())
}

// A profile response for a session that was cleared and replaced must not
// resurrect it, and the replacement's timer fires exactly once.
func TestManager_StaleProfileDoesNotResurrectSession(t *testing.T) {
	f := newFixture(t, "/checkout")
	f.auth.grant("first@shoozy.vn", testutil.MintToken(t, "first", f.clock.Now().Add(time.Hour)), domainSession.RoleAdmin)
	f.auth.grant("second@shoozy.vn", testutil.MintToken(t, "second", f.clock.Now().Add(6*time.Second)), domainSession.RoleCustomer)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.auth.profileFn = func(call int) (*domainSession.Profile, error) {
		if call == 1 {
			close(entered)
			<-release
			return &domainSession.Profile{User: domainSession.User{ID: 1}, RoleName: "Admin"}, nil
		}
		return &domainSession.Profile{User: domainSession.User{ID: 2}}, nil
	}

	firstErr := make(chan error, 1)
	go func() {
		firstErr <- f.mgr.Login(context.Background(), creds("first@shoozy.vn"))
	}()
	<-entered

	f.mgr.ClearAuth(nil)
	require.NoError(t, f.mgr.Login(context.Background(), creds("second@shoozy.vn")))

	f.clock.Advance(2 * time.Second)
	require.Eventually(t, func() bool { return !f.mgr.IsAuthenticated() }, time.Second, 5*time.Millisecond)

	close(release)
	require.Error(t, <-firstErr)

	assert.False(t, f.mgr.IsAuthenticated())
	assert.Nil(t, f.mgr.User())
	assert.False(t, f.mgr.HasPermission(domainSession.RoleAdmin))
	assert.Zero(t, f.durable.Len())

	replaces := f.nav.Replaces()
	require.Len(t, replaces, 1)
	assert.Equal(t, "expired", replaces[0].Query.Get("reason"))
}

func TestManager_ClearAuthDefaultReason(t *testing.T) {
	f := newFixture(t, "/")

	f.mgr.ClearAuth(&domainSession.LogoutReason{})

	reason := f.mgr.ConsumeLogoutReason(context.Background())
	require.NotNil(t, reason)
	assert.Equal(t, domainSession.ReasonAccountLocked, reason.Code)
	assert.Equal(t, domainSession.MessageAccountLocked, reason.Message)
	assert.Nil(t, f.mgr.ConsumeLogoutReason(context.Background()))
}

func TestManager_ClearAuthSanitizesMessage(t *testing.T) {
	f := newFixture(t, "/")

	f.mgr.ClearAuth(&domainSession.LogoutReason{Code: "ACCOUNT_LOCKED", Message: "<b>Bị khoá</b>"})

	reason := f.mgr.ConsumeLogoutReason(context.Background())
	require.NotNil(t, reason)
	assert.Equal(t, "Bị khoá", reason.Message)
}

func TestManager_ClearAuthWithoutReasonStashesNothing(t *testing.T) {
	f := newFixture(t, "/")

	f.mgr.ClearAuth(nil)

	assert.Nil(t, f.mgr.ConsumeLogoutReason(context.Background()))
}

func TestManager_LogoutNeverFails(t *testing.T) {
	f := newFixture(t, "/account")
	f.auth.grant("a@shoozy.vn", testutil.MintToken(t, "a", f.clock.Now().Add(time.Hour)), domainSession.RoleCustomer)
	require.NoError(t, f.mgr.Login(context.Background(), creds("a@shoozy.vn")))
	f.auth.logoutErr = errors.New("backend down")

	f.mgr.Logout(context.Background())

	assert.Equal(t, 1, f.auth.logouts)
	assert.False(t, f.mgr.IsAuthenticated())
	assert.Zero(t, f.durable.Len())
	require.Len(t, f.nav.Replaces(), 1)
	assert.Equal(t, "/login", f.nav.Replaces()[0].Path)
}

func TestManager_PasswordRecovery(t *testing.T) {
	f := newFixture(t, "/forgot-password")
	ctx := context.Background()

	assert.True(t, appErrors.IsValidationError(f.mgr.ForgotPassword(ctx, "not-an-email")))
	require.NoError(t, f.mgr.ForgotPassword(ctx, "a@shoozy.vn"))

	assert.True(t, appErrors.IsValidationError(f.mgr.ResetPassword(ctx, "", "secret1")))
	assert.True(t, appErrors.IsValidationError(f.mgr.ResetPassword(ctx, "tok", "abc")))
	require.NoError(t, f.mgr.ResetPassword(ctx, "tok", "secret1"))

	f.auth.resetErr = &rejection{code: "TOKEN_INVALID", message: "Liên kết đã hết hạn"}
	err := f.mgr.ResetPassword(ctx, "tok", "secret1")
	require.Error(t, err)
	assert.True(t, appErrors.IsCredentialError(err))
	assert.Contains(t, err.Error(), "Liên kết đã hết hạn")
	assert.False(t, f.mgr.IsAuthenticated())
}

func TestManager_ForceLogoutRemembersPath(t *testing.T) {
	f := newFixture(t, "/orders/42")
	f.auth.grant("a@shoozy.vn", testutil.MintToken(t, "a", f.clock.Now().Add(time.Hour)), domainSession.RoleCustomer)
	require.NoError(t, f.mgr.Login(context.Background(), creds("a@shoozy.vn")))

	f.mgr.ForceLogout(context.Background())

	assert.False(t, f.mgr.IsAuthenticated())
	require.Len(t, f.nav.Replaces(), 1)
	assert.Equal(t, "/orders/42", f.nav.Replaces()[0].Query.Get("redirect"))
	assert.Nil(t, f.mgr.ConsumeLogoutReason(context.Background()))
}

func TestManager_ForceLogoutFallsBackToHardRedirect(t *testing.T) {
	f := newFixture(t, "/orders")
	f.nav.ReplaceFn = func(string) error { return errors.New("guard exploded") }

	f.mgr.ForceLogout(context.Background())

	assert.Equal(t, []string{"/login"}, f.nav.HardRedirects())
}

func TestManager_ForceLogoutOnLoginView(t *testing.T) {
	f := newFixture(t, "/login")

	f.mgr.ForceLogout(context.Background())

	assert.Empty(t, f.nav.Replaces())
	assert.Empty(t, f.nav.HardRedirects())
}

func TestManager_CheckAuthRestoresPersistedSession(t *testing.T) {
	f := newFixture(t, "/")
	ctx := context.Background()
	token := testutil.MintToken(t, "a", f.clock.Now().Add(time.Hour))
	require.NoError(t, f.durable.Set(ctx, domainSession.KeyToken, token))
	require.NoError(t, f.durable.Set(ctx, domainSession.KeyUserRole, "Staff"))
	require.NoError(t, f.durable.Set(ctx, domainSession.KeyUser, `{"id":7,"email":"s@shoozy.vn"}`))
	f.auth.profileFn = func(int) (*domainSession.Profile, error) {
		return &domainSession.Profile{User: domainSession.User{ID: 7, Fullname: "Nhân viên"}, RoleName: "Staff"}, nil
	}

	f.mgr.CheckAuth(ctx)

	assert.True(t, f.mgr.IsAuthenticated())
	assert.Equal(t, domainSession.RoleStaff, f.mgr.Role())
	require.NotNil(t, f.mgr.User())
	assert.Equal(t, "Nhân viên", f.mgr.User().Fullname)
	_, ok := f.mgr.ExpiryDue()
	assert.True(t, ok)
}

func TestManager_CheckAuthWithoutToken(t *testing.T) {
	f := newFixture(t, "/")

	f.mgr.CheckAuth(context.Background())

	assert.False(t, f.mgr.IsAuthenticated())
	assert.Zero(t, f.auth.profileCalls)
}

func TestManager_CheckAuthRejected(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "account locked",
			err:         &rejection{code: "ACCOUNT_LOCKED", message: "Tài khoản của bạn đã bị khoá"},
			wantCode:    "ACCOUNT_LOCKED",
			wantMessage: "Tài khoản của bạn đã bị khoá",
		},
		{
			name:        "token invalid",
			err:         &rejection{code: "TOKEN_INVALID", message: "Token không hợp lệ"},
			wantCode:    "TOKEN_INVALID",
			wantMessage: "Token không hợp lệ",
		},
		{
			name:        "network failure",
			err:         errors.New("dial tcp: connection refused"),
			wantCode:    domainSession.ReasonAccountLocked,
			wantMessage: domainSession.MessageAccountLocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "/")
			ctx := context.Background()
			require.NoError(t, f.durable.Set(ctx, domainSession.KeyToken, testutil.MintToken(t, "a", f.clock.Now().Add(time.Hour))))
			f.auth.profileFn = func(int) (*domainSession.Profile, error) { return nil, tt.err }

			f.mgr.CheckAuth(ctx)

			assert.False(t, f.mgr.IsAuthenticated())
			assert.Zero(t, f.durable.Len())
			reason := f.mgr.ConsumeLogoutReason(ctx)
			require.NotNil(t, reason)
			assert.Equal(t, tt.wantCode, reason.Code)
			assert.Equal(t, tt.wantMessage, reason.Message)
		})
	}
}

func TestManager_CheckAuthCoalescesConcurrentCalls(t *testing.T) {
	f := newFixture(t, "/")
	ctx := context.Background()
	require.NoError(t, f.durable.Set(ctx, domainSession.KeyToken, testutil.MintToken(t, "a", f.clock.Now().Add(time.Hour))))

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.auth.profileFn = func(int) (*domainSession.Profile, error) {
		once.Do(func() { close(entered) })
		<-release
		return &domainSession.Profile{}, nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		f.mgr.CheckAuth(ctx)
	}()
	<-entered

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.mgr.CheckAuth(ctx)
		}()
	}
	// let the followers join the in-flight call before releasing it
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	f.auth.mu.Lock()
	defer f.auth.mu.Unlock()
	assert.Equal(t, 1, f.auth.profileCalls)
}

func TestManager_CheckAuthRecordsReasonAfterConcurrentClear(t *testing.T) {
	f := newFixture(t, "/")
	ctx := context.Background()
	require.NoError(t, f.durable.Set(ctx, domainSession.KeyToken, testutil.MintToken(t, "a", f.clock.Now().Add(time.Hour))))
	f.auth.profileFn = func(int) (*domainSession.Profile, error) {
		// the HTTP interceptor reacts to the same 403 first
		f.mgr.ClearAuth(nil)
		return nil, &rejection{code: "ACCOUNT_LOCKED", message: "Tài khoản đã bị khoá"}
	}

	f.mgr.CheckAuth(ctx)

	reason := f.mgr.ConsumeLogoutReason(ctx)
	require.NotNil(t, reason)
	assert.Equal(t, domainSession.ReasonAccountLocked, reason.Code)
}

func TestManager_CheckAuthFailureIgnoredAfterNewLogin(t *testing.T) {
	f := newFixture(t, "/")
	ctx := context.Background()
	require.NoError(t, f.durable.Set(ctx, domainSession.KeyToken, testutil.MintToken(t, "old", f.clock.Now().Add(time.Hour))))
	f.auth.grant("b@shoozy.vn", testutil.MintToken(t, "b", f.clock.Now().Add(time.Hour)), domainSession.RoleCustomer)
	f.auth.profileFn = func(call int) (*domainSession.Profile, error) {
		if call == 1 {
			f.auth.profileFn = nil
			require.NoError(t, f.mgr.Login(ctx, creds("b@shoozy.vn")))
			return nil, &rejection{code: "TOKEN_INVALID"}
		}
		return &domainSession.Profile{}, nil
	}

	f.mgr.CheckAuth(ctx)

	assert.True(t, f.mgr.IsAuthenticated())
	assert.Nil(t, f.mgr.ConsumeLogoutReason(ctx))
}

func TestManager_CheckAuthDoesNotRestoreClearedSession(t *testing.T) {
	f := newFixture(t, "/account")
	ctx := context.Background()
	gate := newGatedStore(f.durable, domainSession.KeyToken)
	f.mgr = NewManager(f.auth, gate, f.nav, logger.NewNop(), WithClock(f.clock))

	f.auth.grant("a@shoozy.vn", testutil.MintToken(t, "a", f.clock.Now().Add(time.Hour)), domainSession.RoleCustomer)
	require.NoError(t, f.mgr.Login(ctx, creds("a@shoozy.vn")))

	gate.armed.Store(true)
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.mgr.CheckAuth(ctx)
	}()
	<-gate.entered

	// the persisted token has been read; logging out now must win
	f.mgr.Logout(ctx)
	close(gate.release)
	<-done

	assert.False(t, f.mgr.IsAuthenticated())
	assert.Empty(t, f.mgr.Role())
	assert.Nil(t, f.mgr.User())
	assert.Zero(t, f.durable.Len())
	_, pending := f.mgr.ExpiryDue()
	assert.False(t, pending)
	assert.Equal(t, 1, f.auth.calls())
}

func TestManager_CheckAuthInFlightThenShortLivedLogin(t *testing.T) {
	f := newFixture(t, "/checkout")
	ctx := context.Background()
	require.NoError(t, f.durable.Set(ctx, domainSession.KeyToken, testutil.MintToken(t, "old", f.clock.Now().Add(time.Hour))))
	f.auth.grant("b@shoozy.vn", testutil.MintToken(t, "b", f.clock.Now().Add(6*time.Second)), domainSession.RoleCustomer)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.auth.profileFn = func(call int) (*domainSession.Profile, error) {
		if call == 1 {
			close(entered)
			<-release
			return &domainSession.Profile{User: domainSession.User{ID: 1}, RoleName: "Admin"}, nil
		}
		return &domainSession.Profile{User: domainSession.User{ID: 2}}, nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.mgr.CheckAuth(ctx)
	}()
	<-entered

	f.mgr.ClearAuth(nil)
	require.NoError(t, f.mgr.Login(ctx, creds("b@shoozy.vn")))

	f.clock.Advance(2 * time.Second)
	require.Eventually(t, func() bool { return !f.mgr.IsAuthenticated() }, time.Second, 5*time.Millisecond)

	close(release)
	<-done

	assert.False(t, f.mgr.IsAuthenticated())
	assert.Nil(t, f.mgr.User())
	assert.False(t, f.mgr.HasPermission(domainSession.RoleAdmin))
	assert.Zero(t, f.durable.Len())

	replaces := f.nav.Replaces()
	require.Len(t, replaces, 1)
	assert.Equal(t, "expired", replaces[0].Query.Get("reason"))
}

func TestManager_CheckAuthSurvivesCallerCancellation(t *testing.T) {
	f := newFixture(t, "/")
	require.NoError(t, f.durable.Set(context.Background(), domainSession.KeyToken, testutil.MintToken(t, "a", f.clock.Now().Add(time.Hour))))

	entered := make(chan struct{})
	release := make(chan struct{})
	f.auth.profileFn = func(int) (*domainSession.Profile, error) {
		close(entered)
		<-release
		return &domainSession.Profile{User: domainSession.User{ID: 7}}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.mgr.CheckAuth(ctx)
	}()
	<-entered
	cancel()
	close(release)
	<-done

	assert.True(t, f.mgr.IsAuthenticated())
	require.NotNil(t, f.mgr.User())
	assert.Equal(t, int64(7), f.mgr.User().ID)
	assert.Nil(t, f.mgr.ConsumeLogoutReason(context.Background()))
}

func TestManager_CheckAuthKeepsSessionOnTimeout(t *testing.T) {
	f := newFixture(t, "/")
	ctx := context.Background()
	token := testutil.MintToken(t, "a", f.clock.Now().Add(time.Hour))
	require.NoError(t, f.durable.Set(ctx, domainSession.KeyToken, token))
	f.auth.profileFn = func(int) (*domainSession.Profile, error) {
		return nil, fmt.Errorf("send request: %w", context.DeadlineExceeded)
	}

	f.mgr.CheckAuth(ctx)

	assert.True(t, f.mgr.IsAuthenticated())
	stored, err := f.durable.Get(ctx, domainSession.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, token, stored)
	assert.Nil(t, f.mgr.ConsumeLogoutReason(ctx))
}
