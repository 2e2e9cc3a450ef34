package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"attesta/pkg/domain"
)

// PrincipalValidator resolves a bearer token to the calling account address.
// The registry trusts the resolved address as the authorization subject;
// role checks happen in the service layer, not here.
type PrincipalValidator interface {
	ValidateToken(tokenString string) (domain.Address, error)
}

type contextKeyCaller struct{}

// ContextKeyCaller is exported for use in handler tests.
var ContextKeyCaller = contextKeyCaller{}

// GetCaller retrieves the authenticated caller address from the context.
func GetCaller(ctx context.Context) domain.Address {
	caller, ok := ctx.Value(ContextKeyCaller).(domain.Address)
	if !ok {
		return ""
	}
	return caller
}

// RequireAuth rejects requests without a valid bearer token and places the
// resolved caller address on the request context.
func RequireAuth(validator PrincipalValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Missing or invalid Authorization header"}`))
				return
			}

			caller, err := validator.ValidateToken(token)
			if err != nil {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Invalid or expired token"}`))
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyCaller, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
