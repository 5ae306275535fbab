package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tenantkit/identity-api/internal/api/handler"
	"github.com/tenantkit/identity-api/internal/api/middleware"
	"github.com/tenantkit/identity-api/internal/core/ports"
	"github.com/tenantkit/identity-api/pkg/token"
)

// Dependencies carries everything the router needs to assemble handlers.
type Dependencies struct {
	Auth     ports.AuthService
	Issuer   *token.Issuer
	Sessions ports.SessionStore
	Limiter  ports.RateLimiter
	Roles    ports.RoleStore
	OAuth    ports.OAuthProvider

	Mongo *mongo.Database
	Redis *redis.Client

	Cookies handler.CookieSettings

	// Gate limits: requests per IP per GateWindow on protected endpoints.
	GateMaxRequests int64
	GateWindow      time.Duration

	OAuthSuccessURL string
	OAuthErrorURL   string

	Log zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddleware("identity"))

	gate := middleware.Auth(middleware.GateConfig{
		Issuer:      deps.Issuer,
		Sessions:    deps.Sessions,
		Limiter:     deps.Limiter,
		MaxRequests: deps.GateMaxRequests,
		Window:      deps.GateWindow,
		Log:         deps.Log,
	})

	authHandler := handler.NewAuthHandler(deps.Auth, deps.Limiter, deps.Cookies, deps.Log)
	meHandler := handler.NewMeHandler(deps.Auth)
	magicHandler := handler.NewMagicLinkHandler(deps.Auth, deps.Limiter, deps.Cookies, deps.Log)
	oauthHandler := handler.NewOAuthHandler(deps.Auth, deps.OAuth, deps.Cookies, deps.OAuthSuccessURL, deps.OAuthErrorURL, deps.Log)

	// --- Auth surface ---
	e.POST("/sign-up", authHandler.SignUp)
	e.POST("/sign-in", authHandler.SignIn)
	e.POST("/sign-out", authHandler.SignOut) // deliberately outside the gate: must always succeed
	e.POST("/sign-out/all", authHandler.SignOutAll, gate)
	e.GET("/me", meHandler.Me, gate)

	e.POST("/reset-password", authHandler.ResetPassword)

	e.POST("/magic-link", magicHandler.Issue)
	e.GET("/magic-link", magicHandler.Verify)

	e.GET("/oauth/:provider", oauthHandler.Begin)
	e.GET("/oauth/:provider/callback", oauthHandler.Callback)

	// --- Elevated surface (example consumer of the admin gate) ---
	admin := e.Group("/admin", gate, middleware.RequireAdmin(deps.Roles))
	admin.POST("/users/:id/sessions/revoke", authHandler.RevokeUserSessions)

	// --- Probes & metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Mongo, deps.Redis)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
