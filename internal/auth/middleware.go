package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Middleware verifies bearer tokens and enforces the role policy.
type Middleware struct {
	secret []byte
	policy Policy
	logger *zap.Logger
}

// NewMiddleware constructs an auth middleware.
func NewMiddleware(secret []byte, policy Policy, logger *zap.Logger) *Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Middleware{secret: secret, policy: policy, logger: logger}
}

// Wrap authorizes every request before it reaches next.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := m.authorize(r)
		switch {
		case err == nil:
			next.ServeHTTP(w, r.WithContext(ctx))
		case errors.Is(err, ErrForbidden):
			http.Error(w, "forbidden", http.StatusForbidden)
		default:
			m.logger.Debug("rejected request", zap.String("path", r.URL.Path), zap.Error(err))
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		}
	})
}

// authorize returns the request context carrying the caller identity.
func (m *Middleware) authorize(r *http.Request) (context.Context, error) {
	ctx := r.Context()
	if m.policy.IsExempt(r) {
		return ctx, nil
	}
	required, ok := m.policy.RequiredRole(r)
	if !ok {
		return ctx, nil
	}
	claims, err := ParseJWT(bearerToken(r), m.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	role, _ := NormalizeRole(claims.Role)
	if !role.Allows(required) {
		return nil, fmt.Errorf("%w: %s needs %s", ErrForbidden, role, required)
	}
	return WithIdentity(ctx, claims.Subject, claims.Email, role), nil
}

// bearerToken reads the Authorization header, falling back to access_token
// for EventSource clients, which cannot set headers.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return r.URL.Query().Get("access_token")
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
