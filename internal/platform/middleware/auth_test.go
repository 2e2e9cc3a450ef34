package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attesta/pkg/domain"
)

type stubValidator struct {
	address domain.Address
	err     error
}

func (v *stubValidator) ValidateToken(string) (domain.Address, error) {
	return v.address, v.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	handler := RequireAuth(&stubValidator{}, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/registry/credentials", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthorized")
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	handler := RequireAuth(&stubValidator{err: errors.New("expired")}, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not run")
	}))

	req := httptest.NewRequest(http.MethodPost, "/registry/credentials", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_ResolvesCaller(t *testing.T) {
	var got domain.Address
	handler := RequireAuth(&stubValidator{address: "0xissuer"}, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetCaller(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/registry/credentials", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.Address("0xissuer"), got)
}

func TestGetCaller_EmptyWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, GetCaller(req.Context()).IsZero())
}
