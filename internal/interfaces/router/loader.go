package router

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type routeFile struct {
	Routes []Route `yaml:"routes"`
}

// LoadRoutes reads a route table from a YAML file.
func LoadRoutes(path string) ([]Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read routes file: %w", err)
	}
	return ParseRoutes(data)
}

// ParseRoutes decodes a route table and rejects unknown role names.
func ParseRoutes(data []byte) ([]Route, error) {
	var f routeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse routes: %w", err)
	}
	if err := validateRoutes(f.Routes); err != nil {
		return nil, err
	}
	return f.Routes, nil
}

func validateRoutes(routes []Route) error {
	for _, r := range routes {
		for _, role := range r.Meta.Roles {
			if !role.IsValid() {
				return fmt.Errorf("route %q: unknown role %q", r.Path, role)
			}
		}
		if err := validateRoutes(r.Children); err != nil {
			return err
		}
	}
	return nil
}

// DefaultRoutes is the storefront's built-in table, used when no routes file
// is configured.
func DefaultRoutes() []Route {
	routes, err := ParseRoutes([]byte(defaultRoutesYAML))
	if err != nil {
		panic(err)
	}
	return routes
}

const defaultRoutesYAML = `
routes:
  - path: /
    name: home
  - path: /login
    name: login
    meta: {requiresGuest: true}
  - path: /register
    name: register
    meta: {requiresGuest: true}
  - path: /forgot-password
    name: forgot-password
    meta: {requiresGuest: true}
  - path: /unauthorized
    name: unauthorized
  - path: /products/:id
    name: product
  - path: /cart
    name: cart
  - path: /checkout
    name: checkout
    meta: {requiresAuth: true}
  - path: /account
    name: account
    meta: {requiresAuth: true}
    children:
      - path: ""
        name: profile
      - path: orders
        name: my-orders
      - path: orders/:id
        name: my-order
      - path: returns
        name: my-returns
  - path: /admin
    name: admin
    meta: {requiresAuth: true, roles: [Admin, Staff]}
    children:
      - path: ""
        name: dashboard
      - path: coupons
        name: admin-coupons
      - path: orders
        name: admin-orders
      - path: returns
        name: admin-returns
      - path: users
        name: admin-users
  - path: "*"
    name: not-found
`
