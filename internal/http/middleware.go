package http

import (
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// AdminAuthenticator validates the admin password protecting the destructive
// surface.
type AdminAuthenticator interface {
	Authenticate(password string) error
}

// RequireAdmin gates a handler behind the admin password carried in the
// X-Admin-Password header.
func RequireAdmin(auth AdminAuthenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			password := strings.TrimSpace(r.Header.Get("X-Admin-Password"))
			if password == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingAdminPassword)
				return
			}

			if err := auth.Authenticate(password); err != nil {
				responder.writeJSON(r.Context(), w, http.StatusForbidden, errorResponse{
					ErrorCode: "AUTH_FORBIDDEN",
					Message:   "管理者パスワードが正しくありません。",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger attaches a request-scoped logger to the context and records
// request start and completion.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "duration", time.Since(start))
		})
	}
}
