package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/tenantkit/identity-api/internal/api/metrics"
	"github.com/tenantkit/identity-api/internal/core/ports"
)

// stateCookie holds the opaque CSRF state (and the requested tenant) between
// the provider redirect and the callback.
const stateCookie = "identity_oauth_state"

const stateTTL = 10 * time.Minute

// OAuthHandler runs the provider redirect / callback pair.
type OAuthHandler struct {
	svc      ports.AuthService
	provider ports.OAuthProvider
	cookies  CookieSettings

	// successURL and errorURL are dashboard pages the callback redirects to.
	successURL string
	errorURL   string

	log zerolog.Logger
}

func NewOAuthHandler(svc ports.AuthService, provider ports.OAuthProvider, cookies CookieSettings, successURL, errorURL string, log zerolog.Logger) *OAuthHandler {
	return &OAuthHandler{
		svc:        svc,
		provider:   provider,
		cookies:    cookies,
		successURL: successURL,
		errorURL:   errorURL,
		log:        log,
	}
}

// Begin redirects to the provider with a fresh CSRF state.
//
// @Summary      Start an OAuth sign-in
// @Tags         oauth
// @Param        provider   path   string  true   "Provider name"
// @Param        tenant_id  query  string  true   "Tenant to sign in under"
// @Success      302
// @Failure      400  {object}  map[string]string
// @Router       /oauth/{provider} [get]
func (h *OAuthHandler) Begin(c echo.Context) error {
	provider := c.Param("provider")
	tenantID := c.QueryParam("tenant_id")
	if tenantID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing tenant_id")
	}

	state := uuid.NewString()
	redirect, err := h.provider.AuthURL(provider, state)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown provider")
	}

	c.SetCookie(&http.Cookie{
		Name:     stateCookie,
		Value:    state + "." + tenantID,
		Path:     "/oauth",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusFound, redirect)
}

// Callback validates the CSRF state before anything else runs; a mismatch
// redirects to the error page with no partial work performed. On success it
// resolves the provider profile into a local account, sets the auth cookies
// and redirects into the dashboard.
//
// @Summary      OAuth callback
// @Tags         oauth
// @Param        provider  path   string  true  "Provider name"
// @Param        code      query  string  true  "Authorization code"
// @Param        state     query  string  true  "CSRF state"
// @Success      302
// @Router       /oauth/{provider}/callback [get]
func (h *OAuthHandler) Callback(c echo.Context) error {
	provider := c.Param("provider")

	state := c.QueryParam("state")
	code := c.QueryParam("code")
	cookie, err := c.Cookie(stateCookie)
	if err != nil || state == "" || code == "" {
		return c.Redirect(http.StatusFound, h.errorURL)
	}

	storedState, tenantID, ok := splitState(cookie.Value)
	if !ok || storedState != state {
		h.log.Warn().Str("provider", provider).Msg("oauth state mismatch")
		return c.Redirect(http.StatusFound, h.errorURL)
	}
	// State is single-use.
	c.SetCookie(&http.Cookie{Name: stateCookie, Value: "", Path: "/oauth", MaxAge: -1})

	profile, err := h.provider.Exchange(c.Request().Context(), provider, code)
	if err != nil {
		h.log.Error().Err(err).Str("provider", provider).Msg("oauth exchange failed")
		metrics.OAuthSignInsTotal.WithLabelValues(provider, "error").Inc()
		return c.Redirect(http.StatusFound, h.errorURL)
	}

	result, err := h.svc.SignInOAuth(c.Request().Context(), *profile, tenantID, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		h.log.Warn().Err(err).Str("provider", provider).Msg("oauth sign-in rejected")
		metrics.OAuthSignInsTotal.WithLabelValues(provider, "error").Inc()
		return c.Redirect(http.StatusFound, h.errorURL)
	}

	metrics.OAuthSignInsTotal.WithLabelValues(provider, "success").Inc()
	setAuthCookies(c, result.Tokens, h.cookies)
	return c.Redirect(http.StatusFound, h.successURL)
}

func splitState(value string) (state, tenantID string, ok bool) {
	i := strings.IndexByte(value, '.')
	if i <= 0 || i == len(value)-1 {
		return "", "", false
	}
	return value[:i], value[i+1:], true
}
