package middleware

import (
	"log/slog"
	"net/http"

	"github.com/satriajat/helpdesk-management/internal/auth"
)

// RequirePermissions creates a middleware that checks if the actor has any of the required permissions
func RequirePermissions(permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := auth.ActorFromContext(r.Context())
			if !ok || actor == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !actor.HasAnyPermission(permissions) {
				slog.Warn("Access denied: actor lacks required permissions",
					"user_id", actor.ID,
					"required_permissions", permissions)
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
