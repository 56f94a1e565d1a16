package testutil

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shoozy-shop/storefront/internal/domain/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Account is a user known to the fake backend.
type Account struct {
	Password string
	Role     session.Role
	User     session.User
	Locked   bool
}

// Call is one request observed by the fake backend.
type Call struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
}

type override struct {
	status int
	body   any
}

// Backend is an in-process REST backend speaking the storefront envelope.
type Backend struct {
	Server *httptest.Server
	Engine *gin.Engine

	TokenTTL time.Duration

	mu        sync.Mutex
	accounts  map[string]*Account
	tokens    map[string]string
	calls     []Call
	overrides map[string]override
	coupons   map[int64]gin.H
}

// NewBackend starts the fake backend; it is closed by t.Cleanup.
func NewBackend(t testingT) *Backend {
	b := &Backend{
		Engine:    gin.New(),
		TokenTTL:  time.Hour,
		accounts:  make(map[string]*Account),
		tokens:    make(map[string]string),
		overrides: make(map[string]override),
		coupons:   make(map[int64]gin.H),
	}
	b.routes()
	b.Server = httptest.NewServer(b.Engine)
	t.Cleanup(b.Server.Close)
	return b
}

// testingT is the subset of testing.TB the helpers need.
type testingT interface {
	Helper()
	Cleanup(func())
	Fatalf(format string, args ...any)
}

// BaseURL is the API root, matching the production /api/v1 prefix.
func (b *Backend) BaseURL() string {
	return b.Server.URL + "/api/v1"
}

func (b *Backend) AddAccount(email, password string, role session.Role, user session.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	user.Email = email
	b.accounts[email] = &Account{Password: password, Role: role, User: user}
}

func (b *Backend) Lock(email string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if a, ok := b.accounts[email]; ok {
		a.Locked = true
	}
}

// IssueToken registers a token for email as if it had been returned by login.
func (b *Backend) IssueToken(email string, exp time.Time) string {
	tok, err := mint(email, exp)
	if err != nil {
		panic(err)
	}
	b.mu.Lock()
	b.tokens[tok] = email
	b.mu.Unlock()
	return tok
}

// RevokeTokens makes every issued token fail authentication.
func (b *Backend) RevokeTokens() {
	b.mu.Lock()
	b.tokens = make(map[string]string)
	b.mu.Unlock()
}

// Override answers method+path with status and body until cleared.
func (b *Backend) Override(method, path string, status int, body any) {
	b.mu.Lock()
	b.overrides[method+" "+path] = override{status: status, body: body}
	b.mu.Unlock()
}

func (b *Backend) ClearOverrides() {
	b.mu.Lock()
	b.overrides = make(map[string]override)
	b.mu.Unlock()
}

func (b *Backend) PutCoupon(id int64, code string, quantity, status int) {
	b.mu.Lock()
	b.coupons[id] = gin.H{"id": id, "code": code, "name": code, "quantity": quantity, "status": status}
	b.mu.Unlock()
}

func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// CallCount counts calls to method+path (path relative to /api/v1).
func (b *Backend) CallCount(method, path string) int {
	n := 0
	for _, c := range b.Calls() {
		if c.Method == method && c.Path == "/api/v1"+path {
			n++
		}
	}
	return n
}

func ok(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "message": message, "data": data})
}

func fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"code": code, "message": message})
}

func (b *Backend) routes() {
	b.Engine.Use(func(c *gin.Context) {
		b.mu.Lock()
		b.calls = append(b.calls, Call{
			Method:        c.Request.Method,
			Path:          c.Request.URL.Path,
			Authorization: c.GetHeader("Authorization"),
			RequestID:     c.GetHeader("X-Request-ID"),
		})
		ov, found := b.overrides[c.Request.Method+" "+strings.TrimPrefix(c.Request.URL.Path, "/api/v1")]
		b.mu.Unlock()

		if found {
			c.AbortWithStatusJSON(ov.status, ov.body)
			return
		}
		c.Next()
	})

	v1 := b.Engine.Group("/api/v1")

	v1.POST("/auth/login", b.login)
	v1.POST("/auth/register", b.register)
	v1.POST("/auth/logout", func(c *gin.Context) { ok(c, "Đăng xuất thành công", nil) })
	v1.POST("/auth/forgot-password", func(c *gin.Context) { ok(c, "Đã gửi email", nil) })
	v1.POST("/auth/reset-password", func(c *gin.Context) { ok(c, "Đặt lại mật khẩu thành công", nil) })

	authed := v1.Group("", b.requireToken)
	authed.GET("/users/profile", b.profile)
	authed.GET("/coupons/filter", b.filterCoupons)
	authed.GET("/coupons/:id", b.getCoupon)
	authed.PUT("/coupons/update-status/:id", b.updateCouponStatus)
	authed.GET("/orders/:id", func(c *gin.Context) {
		id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
		ok(c, "OK", gin.H{"id": id, "orderCode": "OD" + c.Param("id"), "status": "PENDING", "finalPrice": 250000})
	})
	authed.PUT("/orders/status/:id", func(c *gin.Context) { ok(c, "OK", nil) })
	authed.GET("/order-timeline", func(c *gin.Context) {
		ok(c, "OK", []gin.H{{"id": 1, "orderCode": "OD" + c.Query("orderId"), "type": "CREATED"}})
	})
	authed.GET("/returns/user", func(c *gin.Context) {
		ok(c, "OK", []gin.H{{"id": 3, "status": c.DefaultQuery("status", "PENDING"), "reason": c.Query("q")}})
	})
	authed.GET("/returns/admin", func(c *gin.Context) {
		ok(c, "OK", gin.H{"content": []gin.H{{"id": 3, "status": "PENDING"}}, "totalPages": 1, "totalElements": 1})
	})
	authed.POST("/returns/admin/update-status", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			fail(c, http.StatusBadRequest, "BAD_REQUEST", err.Error())
			return
		}
		ok(c, "OK", body)
	})

	v1.POST("/chat/message", func(c *gin.Context) {
		var body struct {
			Message string `json:"message"`
		}
		_ = c.ShouldBindJSON(&body)
		c.JSON(http.StatusOK, gin.H{"response": "**Shoozy:** " + body.Message})
	})
	v1.GET("/chat/health", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
}

func (b *Backend) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	b.mu.Lock()
	acct, found := b.accounts[req.Email]
	b.mu.Unlock()

	switch {
	case !found || acct.Password != req.Password:
		fail(c, http.StatusUnauthorized, "BAD_CREDENTIALS", "Email hoặc mật khẩu không đúng")
		return
	case acct.Locked:
		fail(c, http.StatusForbidden, "ACCOUNT_LOCKED", "Tài khoản đã bị khoá")
		return
	}

	tok := b.IssueToken(req.Email, time.Now().Add(b.TokenTTL))
	ok(c, "Đăng nhập thành công", gin.H{"accessToken": tok, "tokenType": "Bearer", "role": string(acct.Role)})
}

func (b *Backend) register(c *gin.Context) {
	var req struct {
		Fullname    string `json:"fullname"`
		Email       string `json:"email"`
		PhoneNumber string `json:"phoneNumber"`
		Password    string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	b.mu.Lock()
	_, exists := b.accounts[req.Email]
	if !exists {
		b.accounts[req.Email] = &Account{
			Password: req.Password,
			User:     session.User{ID: int64(len(b.accounts) + 1), Email: req.Email, Fullname: req.Fullname, PhoneNumber: req.PhoneNumber},
		}
	}
	b.mu.Unlock()

	if exists {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"status": http.StatusBadRequest, "message": "Email đã tồn tại"})
		return
	}

	tok := b.IssueToken(req.Email, time.Now().Add(b.TokenTTL))
	ok(c, "Đăng ký thành công", gin.H{"accessToken": tok, "tokenType": "Bearer"})
}

func (b *Backend) requireToken(c *gin.Context) {
	tok := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")

	b.mu.Lock()
	email, found := b.tokens[tok]
	acct := b.accounts[email]
	b.mu.Unlock()

	if !found || acct == nil {
		fail(c, http.StatusUnauthorized, "TOKEN_INVALID", "Phiên đăng nhập không hợp lệ")
		return
	}
	if acct.Locked {
		fail(c, http.StatusForbidden, "ACCOUNT_LOCKED", "Tài khoản đã bị khoá")
		return
	}
	c.Set("email", email)
	c.Next()
}

func (b *Backend) profile(c *gin.Context) {
	b.mu.Lock()
	acct := b.accounts[c.GetString("email")]
	b.mu.Unlock()

	role := acct.Role
	if role == "" {
		role = session.RoleCustomer
	}
	u := acct.User
	ok(c, "OK", gin.H{
		"id":          u.ID,
		"avatar":      u.Avatar,
		"email":       u.Email,
		"fullname":    u.Fullname,
		"gender":      u.Gender,
		"phoneNumber": u.PhoneNumber,
		"address":     u.Address,
		"dateOfBirth": u.DateOfBirth,
		"roleName":    string(role),
		"isActive":    true,
	})
}

func (b *Backend) filterCoupons(c *gin.Context) {
	keyword := c.Query("keyword")

	b.mu.Lock()
	var list []gin.H
	for _, cp := range b.coupons {
		if keyword == "" || strings.Contains(cp["code"].(string), keyword) {
			list = append(list, cp)
		}
	}
	b.mu.Unlock()

	ok(c, "OK", gin.H{"coupons": list, "totalPage": 1, "totalElements": len(list)})
}

func (b *Backend) getCoupon(c *gin.Context) {
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)

	b.mu.Lock()
	cp, found := b.coupons[id]
	b.mu.Unlock()

	if !found {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"status": http.StatusNotFound, "message": "Không tìm thấy mã giảm giá"})
		return
	}
	ok(c, "OK", cp)
}

func (b *Backend) updateCouponStatus(c *gin.Context) {
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
	status, err := strconv.Atoi(c.Query("status"))
	if err != nil {
		fail(c, http.StatusBadRequest, "BAD_REQUEST", "status is required")
		return
	}

	b.mu.Lock()
	cp, found := b.coupons[id]
	if found {
		cp["status"] = status
	}
	b.mu.Unlock()

	if !found {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"status": http.StatusNotFound, "message": "Không tìm thấy mã giảm giá"})
		return
	}
	ok(c, "Cập nhật trạng thái thành công", nil)
}
