package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tenantkit/identity-api/internal/api/middleware"
)

// requirePrincipal extracts the principal injected by the authorization gate
// and fast-fails before any service call. Its presence proves the gate ran;
// a handler mounted outside the gate by mistake rejects instead of acting on
// an empty identity.
func requirePrincipal(c echo.Context) (middleware.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok || p.UserID == "" || p.SessionID == "" {
		return middleware.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return p, nil
}
