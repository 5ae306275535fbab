package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tenantkit/identity-api/internal/core/ports"
)

// RequireAdmin is the elevated gate: it runs after Auth and additionally
// requires the resolved user to hold an administrative role in the request's
// tenant. The privilege check is delegated to the role store; the auth core
// keeps no role state of its own.
func RequireAdmin(roles ports.RoleStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
			}

			isAdmin, err := roles.IsAdmin(c.Request().Context(), p.UserID, p.TenantID)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "role lookup unavailable")
			}
			if !isAdmin {
				return echo.NewHTTPError(http.StatusForbidden, "administrator role required")
			}
			return next(c)
		}
	}
}
