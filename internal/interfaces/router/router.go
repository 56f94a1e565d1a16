package router

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	appErrors "github.com/shoozy-shop/storefront/internal/shared/errors"
	"github.com/shoozy-shop/storefront/internal/shared/goroutine"
	"github.com/shoozy-shop/storefront/internal/shared/logger"
)

const maxRedirects = 10

// Decision is what a hook wants done with a navigation.
type Decision struct {
	redirect string
	query    url.Values
}

// Allow lets the navigation proceed.
func Allow() Decision {
	return Decision{}
}

// Redirect sends the navigation to path instead.
func Redirect(path string) Decision {
	return Decision{redirect: path}
}

// RedirectWithQuery is Redirect carrying a query string.
func RedirectWithQuery(path string, query url.Values) Decision {
	return Decision{redirect: path, query: query}
}

func (d Decision) IsRedirect() bool {
	return d.redirect != ""
}

func (d Decision) Target() string {
	return d.redirect
}

// Hook runs before every guarded navigation. from is nil on the first
// navigation.
type Hook func(ctx context.Context, to, from *Location) Decision

type Router struct {
	table  *table
	logger logger.Interface

	mu            sync.RWMutex
	hooks         []Hook
	current       *Location
	history       []string
	hardRedirects []string
}

func New(routes []Route, log logger.Interface) *Router {
	return &Router{
		table:   compile(routes, log),
		logger:  log,
		current: &Location{Path: "/", Query: url.Values{}},
	}
}

// BeforeEach appends a hook. Hooks run in registration order; the first
// redirect wins.
func (r *Router) BeforeEach(h Hook) {
	r.mu.Lock()
	r.hooks = append(r.hooks, h)
	r.mu.Unlock()
}

// Resolve matches path against the route table without navigating.
func (r *Router) Resolve(path string, query url.Values) *Location {
	if query == nil {
		query = url.Values{}
	}
	loc := &Location{Path: cleanPath(path), Query: query, Params: map[string]string{}}
	chain, params, ok := r.table.match(loc.Path)
	if ok {
		loc.Matched = chain
		loc.Params = params
	}
	return loc
}

func (r *Router) Push(ctx context.Context, path string, query url.Values) error {
	return r.navigate(ctx, path, query, false)
}

func (r *Router) Replace(ctx context.Context, path string, query url.Values) error {
	return r.navigate(ctx, path, query, true)
}

func (r *Router) navigate(ctx context.Context, path string, query url.Values, replace bool) error {
	r.mu.RLock()
	hooks := append([]Hook(nil), r.hooks...)
	from := r.current
	r.mu.RUnlock()

	target := r.Resolve(path, query)
	for hop := 0; ; hop++ {
		if hop > maxRedirects {
			r.logger.Errorw("navigation aborted, too many redirects", "path", path, "last", target.Path)
			return appErrors.NewNavigationError("too many redirects", path)
		}

		decision, err := runHooks(ctx, r.logger, hooks, target, from)
		if err != nil {
			return err
		}
		if !decision.IsRedirect() {
			break
		}
		r.logger.Debugw("navigation redirected", "from", target.Path, "to", decision.redirect)
		target = r.Resolve(decision.redirect, decision.query)
	}

	r.mu.Lock()
	r.current = target
	if replace && len(r.history) > 0 {
		r.history[len(r.history)-1] = target.FullPath()
	} else {
		r.history = append(r.history, target.FullPath())
	}
	r.mu.Unlock()

	r.logger.Debugw("navigated", "path", target.FullPath(), "replace", replace)
	return nil
}

func runHooks(ctx context.Context, log logger.Interface, hooks []Hook, to, from *Location) (Decision, error) {
	for i, h := range hooks {
		var d Decision
		ok := goroutine.SafeCall(log, fmt.Sprintf("navigation hook %d", i), func() {
			d = h(ctx, to, from)
		})
		if !ok {
			return Decision{}, appErrors.NewNavigationError("navigation hook failed", to.Path)
		}
		if d.IsRedirect() {
			return d, nil
		}
	}
	return Allow(), nil
}

// HardRedirect moves to path without running hooks.
func (r *Router) HardRedirect(path string) {
	loc := r.Resolve(path, nil)

	r.mu.Lock()
	r.current = loc
	r.history = append(r.history, loc.FullPath())
	r.hardRedirects = append(r.hardRedirects, loc.Path)
	r.mu.Unlock()

	r.logger.Warnw("hard redirect", "path", loc.Path)
}

func (r *Router) Current() *Location {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

func (r *Router) CurrentPath() string {
	return r.Current().Path
}

func (r *Router) CurrentQuery() url.Values {
	q := r.Current().Query
	out := make(url.Values, len(q))
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func (r *Router) History() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.history...)
}

// HardRedirects lists every path reached through HardRedirect.
func (r *Router) HardRedirects() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.hardRedirects...)
}

func cleanPath(p string) string {
	if p == "" || p[0] != '/' {
		p = "/" + p
	}
	if len(p) > 1 && p[len(p)-1] == '/' {
		p = p[:len(p)-1]
	}
	return p
}
