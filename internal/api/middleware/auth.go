package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/tenantkit/identity-api/internal/api/metrics"
	"github.com/tenantkit/identity-api/internal/core/ports"
	"github.com/tenantkit/identity-api/pkg/token"
)

// principalKey is the echo context key the gate stores the Principal under.
const principalKey = "auth.principal"

// AccessCookie is the fallback cookie the gate reads when no Authorization
// header is present.
const AccessCookie = "identity_access"

// Principal is the request identity forwarded to business handlers once the
// gate has passed.
type Principal struct {
	UserID    string
	TenantID  string
	SessionID string
	Email     string
}

// PrincipalFrom extracts the Principal injected by the Auth gate.
func PrincipalFrom(c echo.Context) (Principal, bool) {
	p, ok := c.Get(principalKey).(Principal)
	return p, ok
}

// GateConfig wires the authorization gate's collaborators.
type GateConfig struct {
	Issuer   *token.Issuer
	Sessions ports.SessionStore
	Limiter  ports.RateLimiter

	// MaxRequests per Window per client IP. Zero disables the limiter stage.
	MaxRequests int64
	Window      time.Duration

	Log zerolog.Logger
}

// Auth is the per-request authorization gate. Stages run in order and
// short-circuit on the first failure:
//
//  1. rate limiter keyed by client IP → 429
//  2. token extraction (Authorization header, cookie fallback) → 401
//  3. access-token verification → 401
//  4. live-session validation → 401 "session expired or revoked"
//  5. best-effort session touch (failures logged only)
//  6. Principal injected into the request context
//
// A structurally valid token alone never authorizes a request; its session
// must still be active and unexpired.
func Auth(cfg GateConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			if cfg.Limiter != nil && cfg.MaxRequests > 0 {
				decision, err := cfg.Limiter.Check(ctx, "gate:"+c.RealIP(), cfg.MaxRequests, cfg.Window)
				if err != nil {
					// Limiter outage fails open: auth still stands between
					// the caller and anything sensitive.
					cfg.Log.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
				} else if !decision.Allowed {
					metrics.GateRejectionsTotal.WithLabelValues("rate_limited").Inc()
					return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
				}
			}

			raw := extractToken(c)
			if raw == "" {
				metrics.GateRejectionsTotal.WithLabelValues("missing_token").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "missing credentials")
			}

			claims, err := cfg.Issuer.VerifyAccess(raw)
			if err != nil {
				metrics.GateRejectionsTotal.WithLabelValues("invalid_token").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			ok, err := cfg.Sessions.IsValid(ctx, claims.UserID, claims.SessionID)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "session validation unavailable")
			}
			if !ok {
				// Specific on purpose: the caller already holds a valid
				// token, so naming the session state leaks nothing.
				metrics.GateRejectionsTotal.WithLabelValues("session_invalid").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "session expired or revoked")
			}

			if err := cfg.Sessions.Touch(ctx, claims.SessionID); err != nil {
				cfg.Log.Warn().Err(err).
					Str("session_id", claims.SessionID).
					Msg("session touch failed")
			}

			c.Set(principalKey, Principal{
				UserID:    claims.UserID,
				TenantID:  claims.TenantID,
				SessionID: claims.SessionID,
				Email:     claims.Email,
			})
			return next(c)
		}
	}
}

// extractToken prefers the Authorization header and falls back to the access
// cookie set by the sign-in handlers.
func extractToken(c echo.Context) string {
	header := c.Request().Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	if cookie, err := c.Cookie(AccessCookie); err == nil {
		return cookie.Value
	}
	return ""
}
