package auth

import (
	"net/http"
	"strings"
)

// route maps a path (or path prefix) to the roles its reads and writes need.
type route struct {
	path   string
	prefix bool
	read   Role
	write  Role
}

func (rt route) matches(path string) bool {
	if rt.prefix {
		return strings.HasPrefix(path, rt.path)
	}
	return path == rt.path
}

// The records prefix covers /{id} and /stream. Any other API path falls
// through to the last entry.
var registryRoutes = []route{
	{path: "/api/v1/fuel-records", read: RoleViewer, write: RoleOperator},
	{path: "/api/v1/fuel-records/", prefix: true, read: RoleViewer, write: RoleOperator},
	{path: "/api/v1/dashboard", read: RoleViewer, write: RoleOperator},
	{path: "/api/v1/exports/", prefix: true, read: RoleViewer, write: RoleOperator},
	{path: "/api/", prefix: true, read: RoleViewer, write: RoleOperator},
}

// Policy decides which requests skip bearer auth and which role the rest need.
type Policy struct {
	exemptPaths    map[string]struct{}
	exemptPrefixes []string
	routes         []route
}

// NewDefaultPolicy builds the registry policy. Exempt paths and prefixes
// skip bearer auth entirely; ingest carries its own signature.
func NewDefaultPolicy(exemptPaths []string, exemptPrefixes []string) Policy {
	set := make(map[string]struct{}, len(exemptPaths))
	for _, path := range exemptPaths {
		set[path] = struct{}{}
	}
	return Policy{
		exemptPaths:    set,
		exemptPrefixes: append([]string(nil), exemptPrefixes...),
		routes:         registryRoutes,
	}
}

// IsExempt reports whether r skips bearer auth.
func (p Policy) IsExempt(r *http.Request) bool {
	if r == nil {
		return true
	}
	if _, ok := p.exemptPaths[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range p.exemptPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// RequiredRole returns the role r needs. Paths outside /api/ need none.
func (p Policy) RequiredRole(r *http.Request) (Role, bool) {
	if r == nil {
		return "", false
	}
	for _, rt := range p.routes {
		if !rt.matches(r.URL.Path) {
			continue
		}
		if isRead(r.Method) {
			return rt.read, true
		}
		return rt.write, true
	}
	return "", false
}

func isRead(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}
