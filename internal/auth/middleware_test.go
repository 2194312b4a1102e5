package auth

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func mustToken(t *testing.T, role Role) string {
	t.Helper()
	token, err := IssueJWT(testSecret, "user-1", "user@example.com", role, time.Hour, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	return token
}

func TestAuthMiddleware_NoToken(t *testing.T) {
	mw := NewMiddleware(testSecret, NewDefaultPolicy(nil, nil), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/fuel-records", nil)
	resp := httptest.NewRecorder()
	mw.Wrap(okHandler()).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthMiddleware_ViewerCanRead(t *testing.T) {
	mw := NewMiddleware(testSecret, NewDefaultPolicy(nil, nil), nil)
	var subject string
	var role Role
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = SubjectFromContext(r.Context())
		role = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+mustToken(t, RoleViewer))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "user-1", subject)
	assert.Equal(t, RoleViewer, role)
}

func TestAuthMiddleware_ViewerForbiddenCreate(t *testing.T) {
	mw := NewMiddleware(testSecret, NewDefaultPolicy(nil, nil), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/fuel-records", nil)
	req.Header.Set("Authorization", "Bearer "+mustToken(t, RoleViewer))
	resp := httptest.NewRecorder()
	mw.Wrap(okHandler()).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestAuthMiddleware_OperatorCanDelete(t *testing.T) {
	mw := NewMiddleware(testSecret, NewDefaultPolicy(nil, nil), nil)
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/fuel-records/abc", nil)
	req.Header.Set("Authorization", "Bearer "+mustToken(t, RoleOperator))
	resp := httptest.NewRecorder()
	mw.Wrap(okHandler()).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestAuthMiddleware_StreamAcceptsQueryToken(t *testing.T) {
	mw := NewMiddleware(testSecret, NewDefaultPolicy(nil, nil), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/fuel-records/stream?access_token="+mustToken(t, RoleViewer), nil)
	resp := httptest.NewRecorder()
	mw.Wrap(okHandler()).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestAuthMiddleware_ExemptPaths(t *testing.T) {
	mw := NewMiddleware(testSecret, NewDefaultPolicy([]string{"/healthz", "/metrics"}, []string{"/ingest/"}), nil)
	for _, path := range []string{"/healthz", "/metrics", "/ingest/snapshot"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		mw.Wrap(okHandler()).ServeHTTP(resp, req)
		assert.Equal(t, http.StatusOK, resp.Code, path)
	}
}

func TestAuthMiddleware_WrongSecret(t *testing.T) {
	token, err := IssueJWT([]byte("other"), "user-1", "", RoleOperator, time.Hour, time.Now())
	require.NoError(t, err)
	mw := NewMiddleware(testSecret, NewDefaultPolicy(nil, nil), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/fuel-records", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	mw.Wrap(okHandler()).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestParseJWT_Expired(t *testing.T) {
	token, err := IssueJWT(testSecret, "user-1", "", RoleViewer, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = ParseJWT(token, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssueJWT_RejectsUnknownRole(t *testing.T) {
	_, err := IssueJWT(testSecret, "user-1", "", Role("root"), time.Hour, time.Now())
	assert.Error(t, err)
}

func TestAuthMiddleware_RejectsUnknownRoleClaim(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:             "admin",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(testSecret)
	require.NoError(t, err)

	mw := NewMiddleware(testSecret, NewDefaultPolicy(nil, nil), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	mw.Wrap(okHandler()).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthMiddleware_AuthorizeErrors(t *testing.T) {
	mw := NewMiddleware(testSecret, NewDefaultPolicy(nil, nil), nil)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/fuel-records/a", nil)
	req.Header.Set("Authorization", "bearer "+mustToken(t, RoleViewer))
	_, err := mw.authorize(req)
	assert.ErrorIs(t, err, ErrForbidden)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/fuel-records", nil)
	req.Header.Set("Authorization", "Basic abc")
	_, err = mw.authorize(req)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, err, ErrInvalidToken)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	_, err = mw.authorize(req)
	assert.NoError(t, err)
}

func TestPolicy_RequiredRole(t *testing.T) {
	policy := NewDefaultPolicy(nil, nil)
	cases := []struct {
		method string
		path   string
		want   Role
		ok     bool
	}{
		{http.MethodGet, "/api/v1/fuel-records", RoleViewer, true},
		{http.MethodPost, "/api/v1/fuel-records", RoleOperator, true},
		{http.MethodDelete, "/api/v1/fuel-records/a", RoleOperator, true},
		{http.MethodGet, "/api/v1/fuel-records/stream", RoleViewer, true},
		{http.MethodGet, "/api/v1/exports/fuel-records.csv", RoleViewer, true},
		{http.MethodPost, "/api/v2/other", RoleOperator, true},
		{http.MethodGet, "/healthz", "", false},
	}
	for _, tc := range cases {
		got, ok := policy.RequiredRole(httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, tc.ok, ok, tc.method+" "+tc.path)
		assert.Equal(t, tc.want, got, tc.method+" "+tc.path)
	}
}

func TestRole_Allows(t *testing.T) {
	role, ok := NormalizeRole(" Operator ")
	require.True(t, ok)
	assert.True(t, role.Allows(RoleViewer))
	assert.True(t, role.Allows(RoleOperator))
	assert.False(t, RoleViewer.Allows(RoleOperator))
	assert.False(t, Role("admin").Allows(RoleViewer))

	_, ok = NormalizeRole("admin")
	assert.False(t, ok)
}

func TestIngestAuthMiddleware_Verify(t *testing.T) {
	secret := []byte("ingest-secret")
	now := time.Unix(1_700_000_000, 0)
	mw := NewIngestAuthMiddleware(secret, time.Minute)
	mw.now = func() time.Time { return now }

	body := []byte(`{}`)
	ts, sig := SignIngest(secret, now.Add(-30*time.Second), body)
	assert.NoError(t, mw.verify(ts, strings.ToUpper(sig), body))
	assert.ErrorIs(t, mw.verify("", sig, body), ErrBadSignature)
	assert.ErrorIs(t, mw.verify("soon", sig, body), ErrBadSignature)

	late, lateSig := SignIngest(secret, now.Add(2*time.Minute), body)
	assert.ErrorIs(t, mw.verify(late, lateSig, body), ErrBadSignature)

	mw.maxSkew = 0
	assert.NoError(t, mw.verify(late, lateSig, body))
}

func TestIngestAuthMiddleware(t *testing.T) {
	secret := []byte("ingest-secret")
	body := []byte(`{"a":{"name":"Shell"}}`)
	var got []byte
	handler := NewIngestAuthMiddleware(secret, 5*time.Minute).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))

	ts, sig := SignIngest(secret, time.Now(), body)
	req := httptest.NewRequest(http.MethodPost, "/ingest/snapshot", bytes.NewReader(body))
	req.Header.Set("X-Ingest-Timestamp", ts)
	req.Header.Set("X-Ingest-Signature", sig)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusAccepted, resp.Code)
	assert.Equal(t, body, got)

	req = httptest.NewRequest(http.MethodPost, "/ingest/snapshot", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("X-Ingest-Timestamp", ts)
	req.Header.Set("X-Ingest-Signature", sig)
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	stale, staleSig := SignIngest(secret, time.Now().Add(-time.Hour), body)
	req = httptest.NewRequest(http.MethodPost, "/ingest/snapshot", bytes.NewReader(body))
	req.Header.Set("X-Ingest-Timestamp", stale)
	req.Header.Set("X-Ingest-Signature", staleSig)
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
