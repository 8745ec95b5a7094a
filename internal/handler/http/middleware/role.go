package middleware

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/cmlabs-hris/timesheet-go/internal/handler/http/response"
	"github.com/cmlabs-hris/timesheet-go/internal/pkg/jwt"
)

// RequireRole allows the request through when the token's role is one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := jwt.ClaimsFromContext(r.Context())
			if err != nil {
				response.HandleError(w, err)
				return
			}

			if !slices.Contains(roles, claims.Role) {
				response.Forbidden(w, fmt.Sprintf("Insufficient permissions: requires %s role", strings.Join(roles, " or ")))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AdminOnly requires the admin role.
func AdminOnly(next http.Handler) http.Handler {
	return RequireRole(jwt.RoleAdmin)(next)
}
