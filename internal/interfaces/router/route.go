// Package router is the client-side navigation table. It matches paths
// against a tree of routes and runs before-each hooks, such as the auth
// guard, on every navigation.
package router

import (
	"maps"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"

	"github.com/shoozy-shop/storefront/internal/domain/session"
	"github.com/shoozy-shop/storefront/internal/shared/logger"
)

type Meta struct {
	RequiresAuth  bool           `yaml:"requiresAuth"`
	RequiresGuest bool           `yaml:"requiresGuest"`
	Roles         []session.Role `yaml:"roles"`
}

// Route is one record of the route tree. Child paths without a leading
// slash are relative to their parent. A "*" segment matches the rest of
// the path.
type Route struct {
	Path     string  `yaml:"path"`
	Name     string  `yaml:"name"`
	Meta     Meta    `yaml:"meta"`
	Children []Route `yaml:"children"`
}

// Location is a resolved navigation target.
type Location struct {
	Path    string
	Query   url.Values
	Params  map[string]string
	Matched []*Route
}

// FullPath renders the path with its query string.
func (l *Location) FullPath() string {
	if len(l.Query) == 0 {
		return l.Path
	}
	return l.Path + "?" + l.Query.Encode()
}

// Name is the name of the deepest matched route.
func (l *Location) Name() string {
	if len(l.Matched) == 0 {
		return ""
	}
	return l.Matched[len(l.Matched)-1].Name
}

// RequiresAuth reports whether any matched record requires a session.
func (l *Location) RequiresAuth() bool {
	for _, r := range l.Matched {
		if r.Meta.RequiresAuth {
			return true
		}
	}
	return false
}

// RequiresGuest reports whether any matched record is guest-only.
func (l *Location) RequiresGuest() bool {
	for _, r := range l.Matched {
		if r.Meta.RequiresGuest {
			return true
		}
	}
	return false
}

// Roles is the union of roles over the matched chain, in first-seen order.
func (l *Location) Roles() []session.Role {
	var roles []session.Role
	for _, r := range l.Matched {
		for _, role := range r.Meta.Roles {
			if !session.ContainsRole(roles, role) {
				roles = append(roles, role)
			}
		}
	}
	return roles
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func joinPath(parent, child string) string {
	if strings.HasPrefix(child, "/") {
		return child
	}
	if child == "" {
		return parent
	}
	return strings.TrimSuffix(parent, "/") + "/" + child
}

// table is the route tree flattened into mux routes. A record's children
// are added before the record itself, so the deepest match wins and earlier
// siblings win over later ones.
type table struct {
	mux    *mux.Router
	chains map[*mux.Route][]*Route
}

func compile(routes []Route, log logger.Interface) *table {
	t := &table{mux: mux.NewRouter(), chains: make(map[*mux.Route][]*Route)}
	t.add(routes, "/", nil, log)
	return t
}

func (t *table) add(routes []Route, base string, parents []*Route, log logger.Interface) {
	for i := range routes {
		r := &routes[i]
		full := joinPath(base, r.Path)
		chain := append(append([]*Route(nil), parents...), r)
		t.add(r.Children, full, chain, log)

		mr := t.mux.Path(template(full))
		if err := mr.GetError(); err != nil {
			log.Warnw("skipping route with invalid path", "path", full, "error", err)
			continue
		}
		t.chains[mr] = chain
	}
}

// match returns the matched chain, root first, and the path parameters.
func (t *table) match(path string) ([]*Route, map[string]string, bool) {
	req := &http.Request{Method: http.MethodGet, URL: &url.URL{Path: path}}
	var rm mux.RouteMatch
	if !t.mux.Match(req, &rm) {
		return nil, nil, false
	}
	chain, ok := t.chains[rm.Route]
	if !ok {
		return nil, nil, false
	}
	params := make(map[string]string, len(rm.Vars))
	maps.Copy(params, rm.Vars)
	return chain, params, true
}

// template turns ":name" segments into mux variables and "*" into a
// pathMatch variable covering the rest of the path.
func template(path string) string {
	segs := splitPath(path)
	for i, s := range segs {
		switch {
		case s == "*":
			segs[i] = "{pathMatch:.*}"
		case strings.HasPrefix(s, ":"):
			segs[i] = "{" + s[1:] + "}"
		}
	}
	return "/" + strings.Join(segs, "/")
}
