package api

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/shoozy-shop/storefront/internal/shared/goroutine"
	"github.com/shoozy-shop/storefront/internal/shared/logger"
)

const (
	loginPath             = "/auth/login"
	defaultLogoutCooldown = time.Second

	HeaderRequestID = "X-Request-ID"
)

// SessionBinding is the slice of the session manager the transport needs.
type SessionBinding interface {
	Token() string
	ForceLogout(ctx context.Context)
}

// AuthTransport attaches the bearer token to outgoing requests and turns a
// 401/403 into a single forced-logout episode. Further failures inside the
// cooldown window are passed through without starting another episode.
type AuthTransport struct {
	base     http.RoundTripper
	clock    clockwork.Clock
	cooldown time.Duration
	logger   logger.Interface

	mu      sync.RWMutex
	binding SessionBinding

	loggingOut atomic.Bool
	episodes   atomic.Int64
}

type TransportOption func(*AuthTransport)

func WithClock(c clockwork.Clock) TransportOption {
	return func(t *AuthTransport) {
		t.clock = c
	}
}

func WithCooldown(d time.Duration) TransportOption {
	return func(t *AuthTransport) {
		if d > 0 {
			t.cooldown = d
		}
	}
}

func NewAuthTransport(base http.RoundTripper, log logger.Interface, opts ...TransportOption) *AuthTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	t := &AuthTransport{
		base:     base,
		clock:    clockwork.NewRealClock(),
		cooldown: defaultLogoutCooldown,
		logger:   log,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Bind attaches the session after construction; the session manager itself
// depends on a client built over this transport.
func (t *AuthTransport) Bind(b SessionBinding) {
	t.mu.Lock()
	t.binding = b
	t.mu.Unlock()
}

func (t *AuthTransport) session() SessionBinding {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.binding
}

func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	if out.Header.Get(HeaderRequestID) == "" {
		out.Header.Set(HeaderRequestID, uuid.NewString())
	}
	if s := t.session(); s != nil {
		if token := s.Token(); token != "" {
			out.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	if (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) &&
		!strings.Contains(req.URL.Path, loginPath) {
		t.beginEpisode(out)
	}
	return resp, nil
}

// beginEpisode runs ForceLogout on its own goroutine: the navigation it
// triggers re-enters the guard, which may issue requests through this
// transport.
func (t *AuthTransport) beginEpisode(req *http.Request) {
	if !t.loggingOut.CompareAndSwap(false, true) {
		return
	}
	n := t.episodes.Add(1)

	t.logger.Warnw("authorization rejected, forcing logout",
		"method", req.Method,
		"path", req.URL.Path,
		"request_id", req.Header.Get(HeaderRequestID),
		"episode", n,
	)

	ctx := context.WithoutCancel(req.Context())
	goroutine.SafeGo(t.logger, "force-logout", func() {
		defer t.clock.AfterFunc(t.cooldown, func() {
			t.loggingOut.Store(false)
		})
		if s := t.session(); s != nil {
			s.ForceLogout(ctx)
		}
	})
}

// Episodes returns how many forced-logout episodes have started.
func (t *AuthTransport) Episodes() int64 {
	return t.episodes.Load()
}

// InProgress reports whether an episode or its cooldown is active.
func (t *AuthTransport) InProgress() bool {
	return t.loggingOut.Load()
}
