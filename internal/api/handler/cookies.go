package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tenantkit/identity-api/internal/api/middleware"
	"github.com/tenantkit/identity-api/pkg/token"
)

// RefreshCookie holds the long-lived refresh token; the access cookie name
// lives in the middleware package because the gate reads it.
const RefreshCookie = "identity_refresh"

// CookieSettings controls how auth cookies are written.
type CookieSettings struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// setAuthCookies writes the short-lived access cookie and the long-lived
// refresh cookie. Both are HttpOnly and SameSite=Lax.
func setAuthCookies(c echo.Context, pair *token.Pair, cfg CookieSettings) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.AccessCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		MaxAge:   int(cfg.AccessTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookie,
		Value:    pair.RefreshToken,
		Path:     "/",
		MaxAge:   int(cfg.RefreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearAuthCookies expires both auth cookies.
func clearAuthCookies(c echo.Context, cfg CookieSettings) {
	for _, name := range []string{middleware.AccessCookie, RefreshCookie} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   cfg.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
