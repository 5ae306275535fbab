package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/tenantkit/identity-api/internal/api/metrics"
	"github.com/tenantkit/identity-api/internal/core/domain"
	"github.com/tenantkit/identity-api/internal/core/ports"
)

const (
	magicLinkMaxPerWindow = 3
	magicLinkLimitWindow  = 5 * time.Minute
)

// MagicLinkHandler issues and verifies single-use sign-in links.
type MagicLinkHandler struct {
	svc     ports.AuthService
	limiter ports.RateLimiter
	cookies CookieSettings
	log     zerolog.Logger
}

func NewMagicLinkHandler(svc ports.AuthService, limiter ports.RateLimiter, cookies CookieSettings, log zerolog.Logger) *MagicLinkHandler {
	return &MagicLinkHandler{svc: svc, limiter: limiter, cookies: cookies, log: log}
}

// Issue creates and mails a magic link. The response is 200 no matter what:
// account existence, rate-limit rejections and delivery failures are all
// invisible to the caller.
//
// @Summary      Request a magic link
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      magicLinkRequest  true  "Destination email"
// @Success      200   {object}  messageResponse
// @Router       /magic-link [post]
func (h *MagicLinkHandler) Issue(c echo.Context) error {
	ok := messageResponse{Message: "if the address exists, a link has been sent"}

	var req magicLinkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if h.limiter != nil {
		decision, err := h.limiter.Check(c.Request().Context(),
			"magic-link:"+c.RealIP(), magicLinkMaxPerWindow, magicLinkLimitWindow)
		if err == nil && !decision.Allowed {
			// Uniform success: a visible 429 here would signal whether the
			// address is being probed.
			return c.JSON(http.StatusOK, ok)
		}
	}

	purpose := req.Purpose
	if purpose == "" {
		purpose = domain.MagicLinkSignIn
	}
	if err := h.svc.IssueMagicLink(c.Request().Context(), req.Email, req.TenantID, purpose); err != nil {
		h.log.Error().Err(err).Msg("magic link issuance failed")
		return c.JSON(http.StatusOK, ok)
	}

	metrics.MagicLinksIssuedTotal.WithLabelValues(purpose).Inc()
	return c.JSON(http.StatusOK, ok)
}

// Verify consumes a link token and opens a session.
//
// @Summary      Verify a magic link
// @Tags         auth
// @Produce      json
// @Param        token  query     string  true  "Raw link token"
// @Success      200    {object}  authResponse
// @Failure      400    {object}  map[string]string
// @Router       /magic-link [get]
func (h *MagicLinkHandler) Verify(c echo.Context) error {
	raw := c.QueryParam("token")
	if raw == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing token")
	}

	result, err := h.svc.VerifyMagicLink(c.Request().Context(), raw, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return err
	}

	setAuthCookies(c, result.Tokens, h.cookies)
	return c.JSON(http.StatusOK, authResponse{
		User:         result.User,
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		ExpiresIn:    result.Tokens.ExpiresIn,
		SessionID:    result.SessionID,
	})
}
