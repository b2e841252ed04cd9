package rbac

import (
	"log/slog"
	"net/http"

	"github.com/dealerdesk/dealerdesk/internal/platform/httpx"
	"github.com/dealerdesk/dealerdesk/internal/shared"
)

// Middleware wires authorization guards for HTTP handlers.
type Middleware struct {
	Engine *Engine
	Logger *slog.Logger
}

// Require ensures the current user holds the given permission code. A policy
// denial yields 403; an engine failure yields 500, never a silent allow.
func (m Middleware) Require(code string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := shared.UserIDFromContext(r.Context())
			if !ok {
				forbidden(w)
				return
			}
			allowed, err := m.Engine.CheckPermission(r.Context(), userID, code)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("rbac require", slog.String("code", code), slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if !allowed {
				forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny ensures the current user holds at least one of the given codes.
func (m Middleware) RequireAny(codes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(codes) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			userID, ok := shared.UserIDFromContext(r.Context())
			if !ok {
				forbidden(w)
				return
			}
			for _, code := range codes {
				allowed, err := m.Engine.CheckPermission(r.Context(), userID, code)
				if err != nil {
					if m.Logger != nil {
						m.Logger.Error("rbac require any", slog.String("code", code), slog.Any("error", err))
					}
					httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
					return
				}
				if allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			forbidden(w)
		})
	}
}

func forbidden(w http.ResponseWriter) {
	httpx.JSON(w, http.StatusForbidden, map[string]string{"error": "Forbidden"})
}
