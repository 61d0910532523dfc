package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/noah-isme/backend-apotek/internal/common"
	"github.com/noah-isme/backend-apotek/internal/obs"
)

var errNoToken = errors.New("auth: token missing")

// Middleware wires authentication context into HTTP handlers.
type Middleware struct {
	Verifier     *Verifier
	AccessCookie string
}

// RequireAuth enforces that a valid token is present before executing the next handler.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := m.authenticateRequest(r)
		if err != nil {
			if errors.Is(err, errNoToken) {
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
				return
			}
			var appErr *common.AppError
			if errors.As(err, &appErr) {
				status := appErr.HTTPStatus
				if status == 0 {
					status = http.StatusUnauthorized
				}
				common.JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
				return
			}
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole admits principals holding one of roles. It must run after RequireAuth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := common.PrincipalFrom(r.Context())
			if !ok {
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
				return
			}
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient role", nil)
		})
	}
}

func (m Middleware) authenticateRequest(r *http.Request) (context.Context, error) {
	if m.Verifier == nil {
		return r.Context(), errors.New("auth: verifier not configured")
	}
	token := m.extractToken(r)
	if token == "" {
		return r.Context(), errNoToken
	}
	p, err := m.Verifier.ParseAccessToken(token)
	if err != nil {
		return r.Context(), err
	}
	obs.SetStaffID(r.Context(), p.StaffID)
	return common.WithPrincipal(r.Context(), p), nil
}

func (m Middleware) extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if m.AccessCookie != "" {
		if cookie, err := r.Cookie(m.AccessCookie); err == nil {
			if value := strings.TrimSpace(cookie.Value); value != "" {
				return value
			}
		}
	}
	return ""
}
