package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/tenantkit/identity-api/internal/api/metrics"
	"github.com/tenantkit/identity-api/internal/api/middleware"
	"github.com/tenantkit/identity-api/internal/core/domain"
	"github.com/tenantkit/identity-api/internal/core/ports"
)

// Limits applied before the expensive auth operations.
const (
	signInMaxPerWindow = 10
	signUpMaxPerWindow = 5
	limitWindow        = time.Minute
)

// AuthHandler exposes the sign-up / sign-in / sign-out surface.
type AuthHandler struct {
	svc     ports.AuthService
	limiter ports.RateLimiter
	cookies CookieSettings
	log     zerolog.Logger
}

func NewAuthHandler(svc ports.AuthService, limiter ports.RateLimiter, cookies CookieSettings, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, limiter: limiter, cookies: cookies, log: log}
}

// SignUp creates a new account and opens its first session.
//
// @Summary      Sign up
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signUpRequest  true  "Account details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /sign-up [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// A rate-limit rejection here leaks no account information, so it is
	// returned explicitly.
	if err := h.checkLimit(c, "sign-up", signUpMaxPerWindow); err != nil {
		return err
	}

	result, err := h.svc.SignUp(c.Request().Context(), ports.SignUpInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		TenantID:  req.TenantID,
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		metrics.SignUpsTotal.WithLabelValues(signUpResultLabel(err)).Inc()
		return err
	}
	metrics.SignUpsTotal.WithLabelValues("success").Inc()

	setAuthCookies(c, result.Tokens, h.cookies)
	return c.JSON(http.StatusCreated, authResponse{
		User:         result.User,
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		ExpiresIn:    result.Tokens.ExpiresIn,
		SessionID:    result.SessionID,
	})
}

// SignIn authenticates a password credential and opens a session.
//
// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signInRequest  true  "Credentials"
// @Success      200   {object}  authResponse
// @Failure      401   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /sign-in [post]
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.checkLimit(c, "sign-in", signInMaxPerWindow); err != nil {
		return err
	}

	result, err := h.svc.SignIn(c.Request().Context(), ports.SignInInput{
		Email:     req.Email,
		Password:  req.Password,
		TenantID:  req.TenantID,
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		metrics.SignInsTotal.WithLabelValues(signInResultLabel(err)).Inc()
		return err
	}
	metrics.SignInsTotal.WithLabelValues("success").Inc()

	setAuthCookies(c, result.Tokens, h.cookies)
	return c.JSON(http.StatusOK, authResponse{
		User:         result.User,
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		ExpiresIn:    result.Tokens.ExpiresIn,
		SessionID:    result.SessionID,
	})
}

// SignOut revokes the presented session. It always returns 200 so the client
// can clear its local tokens regardless of server-side state.
//
// @Summary      Sign out
// @Tags         auth
// @Produce      json
// @Success      200  {object}  messageResponse
// @Router       /sign-out [post]
func (h *AuthHandler) SignOut(c echo.Context) error {
	if raw := bearerOrCookie(c); raw != "" {
		h.svc.SignOut(c.Request().Context(), raw)
		metrics.SessionsRevokedTotal.WithLabelValues("single").Inc()
	}
	clearAuthCookies(c, h.cookies)
	return c.JSON(http.StatusOK, messageResponse{Message: "signed out"})
}

// SignOutAll revokes every session of the caller except the current one.
//
// @Summary      Sign out everywhere else
// @Tags         auth
// @Produce      json
// @Success      200  {object}  signOutAllResponse
// @Failure      401  {object}  map[string]string
// @Router       /sign-out/all [post]
func (h *AuthHandler) SignOutAll(c echo.Context) error {
	p, err := requirePrincipal(c)
	if err != nil {
		return err
	}

	n, err := h.svc.SignOutAll(c.Request().Context(), p.UserID, p.SessionID)
	if err != nil {
		return err
	}
	metrics.SessionsRevokedTotal.WithLabelValues("all").Add(float64(n))
	return c.JSON(http.StatusOK, signOutAllResponse{Revoked: n})
}

// RevokeUserSessions is the admin action "sign this user out everywhere".
// It runs behind the elevated gate.
//
// @Summary      Revoke all sessions of a user
// @Tags         admin
// @Produce      json
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  signOutAllResponse
// @Failure      403  {object}  map[string]string
// @Router       /admin/users/{id}/sessions/revoke [post]
func (h *AuthHandler) RevokeUserSessions(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing user id")
	}

	n, err := h.svc.SignOutAll(c.Request().Context(), userID, "")
	if err != nil {
		return err
	}
	metrics.SessionsRevokedTotal.WithLabelValues("all").Add(float64(n))
	return c.JSON(http.StatusOK, signOutAllResponse{Revoked: n})
}

// ResetPassword completes a password-reset flow: it consumes the mailed token
// and replaces the credential. The account's sessions are revoked server-side.
//
// @Summary      Reset password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      resetPasswordRequest  true  "Token and new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  map[string]string
// @Router       /reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.checkLimit(c, "reset-password", signUpMaxPerWindow); err != nil {
		return err
	}

	if err := h.svc.ResetPassword(c.Request().Context(), req.Token, req.Password); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "password updated"})
}

// checkLimit consults the rate limiter keyed by endpoint and client IP.
// Limiter outages fail open.
func (h *AuthHandler) checkLimit(c echo.Context, endpoint string, max int64) error {
	if h.limiter == nil {
		return nil
	}
	decision, err := h.limiter.Check(c.Request().Context(), endpoint+":"+c.RealIP(), max, limitWindow)
	if err != nil {
		h.log.Warn().Err(err).Str("endpoint", endpoint).Msg("rate limiter unavailable, allowing request")
		return nil
	}
	if !decision.Allowed {
		return domain.ErrTooManyRequests
	}
	return nil
}

// bearerOrCookie mirrors the gate's token extraction for the endpoints that
// run outside it.
func bearerOrCookie(c echo.Context) string {
	header := c.Request().Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	if cookie, err := c.Cookie(middleware.AccessCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func signUpResultLabel(err error) string {
	switch err {
	case domain.ErrDisposableEmail:
		return "disposable_email"
	case domain.ErrWeakPassword:
		return "weak_password"
	case domain.ErrAlreadyExists:
		return "exists"
	default:
		return "error"
	}
}

func signInResultLabel(err error) string {
	switch err {
	case domain.ErrInvalidCredentials:
		return "invalid_credentials"
	case domain.ErrAccountSuspended:
		return "suspended"
	case domain.ErrAccountLocked:
		return "locked"
	case domain.ErrNotAMember:
		return "not_a_member"
	default:
		return "error"
	}
}
