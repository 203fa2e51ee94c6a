package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	dErrors "asamblea/pkg/domain-errors"
	"asamblea/pkg/platform/httputil"
	"asamblea/pkg/requestcontext"
)

// TokenValidator validates attendee session tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*SessionClaims, error)
}

// SessionClaims represents the claims we expect from the token validator.
type SessionClaims struct {
	SessionID  string
	AssemblyID string
}

// RequireSession rejects requests without a valid bearer token and injects
// the session and assembly ids into the request context.
func RequireSession(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Invalid or expired token"))
				return
			}

			ctx = requestcontext.WithSessionID(ctx, claims.SessionID)
			ctx = requestcontext.WithAssemblyID(ctx, claims.AssemblyID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
