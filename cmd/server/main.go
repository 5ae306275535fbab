package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tenantkit/identity-api/internal/api"
	"github.com/tenantkit/identity-api/internal/api/handler"
	"github.com/tenantkit/identity-api/internal/core/ports"
	"github.com/tenantkit/identity-api/internal/core/service"
	"github.com/tenantkit/identity-api/internal/infrastructure/config"
	mongodb "github.com/tenantkit/identity-api/internal/infrastructure/db/mongo"
	redisdb "github.com/tenantkit/identity-api/internal/infrastructure/db/redis"
	"github.com/tenantkit/identity-api/internal/infrastructure/email"
	"github.com/tenantkit/identity-api/internal/infrastructure/oauth"
	"github.com/tenantkit/identity-api/internal/infrastructure/queue"
	"github.com/tenantkit/identity-api/internal/infrastructure/ratelimit"
	"github.com/tenantkit/identity-api/pkg/logger"
	"github.com/tenantkit/identity-api/pkg/password"
	"github.com/tenantkit/identity-api/pkg/token"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		panic(err)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Service: "identity-api",
		Pretty:  cfg.Env == "development",
	})

	// --- Stores ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()

	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("index creation failed")
	}

	userRepo := mongodb.NewUserRepository(db)
	sessionRepo := mongodb.NewSessionRepository(db, cfg.Auth.SessionTTL)
	magicRepo := mongodb.NewMagicLinkRepository(db)
	roleRepo := mongodb.NewRoleRepository(db)

	// --- Collaborators ---
	// Without Redis, rate-limit counters are per-process. Fine on a single
	// node; multi-instance deployments must set REDIS_ADDR.
	var (
		rdb     *redis.Client
		limiter ports.RateLimiter
	)
	if cfg.Redis.Addr != "" {
		rdb, err = redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		defer func() { _ = rdb.Close() }()
		limiter = redisdb.NewRateLimiter(rdb)
	} else {
		log.Warn().Msg("redis not configured, using in-process rate limiting")
		mem := ratelimit.NewMemoryLimiter()
		mem.StartCleanup(ctx, 10*time.Minute, time.Hour)
		limiter = mem
	}

	audit := queue.NewAuditDispatcher(cfg.Auth.AuditWorkers, mongodb.NewAuditRepository(db), log)
	audit.Start(ctx)

	mailer := email.NewAsyncMailer(email.LogSender{Log: log}, cfg.BaseURL, log)

	oauthClient := oauth.NewClient(map[string]oauth.ProviderConfig{
		"google": {
			ClientID:     cfg.OAuth.GoogleClientID,
			ClientSecret: cfg.OAuth.GoogleClientSecret,
			RedirectURL:  cfg.BaseURL + "/oauth/google/callback",
		},
		"github": {
			ClientID:     cfg.OAuth.GitHubClientID,
			ClientSecret: cfg.OAuth.GitHubClientSecret,
			RedirectURL:  cfg.BaseURL + "/oauth/github/callback",
		},
	})

	// --- Core ---
	issuer := token.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	hasher := password.NewHasher(cfg.Auth.BcryptCost)

	authService := service.NewAuthService(
		userRepo, sessionRepo, magicRepo,
		issuer, hasher, mailer, audit, log,
		service.Options{
			DisposableDomains:  cfg.Auth.DisposableDomains,
			ImplicitTenantLink: cfg.Auth.ImplicitTenantLink,
		},
	)

	e := api.NewRouter(api.Dependencies{
		Auth:     authService,
		Issuer:   issuer,
		Sessions: sessionRepo,
		Limiter:  limiter,
		Roles:    roleRepo,
		OAuth:    oauthClient,
		Mongo:    db,
		Redis:    rdb,
		Cookies: handler.CookieSettings{
			Secure:     cfg.Env != "development",
			AccessTTL:  cfg.Auth.AccessTTL,
			RefreshTTL: cfg.Auth.RefreshTTL,
		},
		GateMaxRequests: cfg.Auth.GateMaxRequests,
		GateWindow:      cfg.Auth.GateWindow,
		OAuthSuccessURL: cfg.OAuth.SuccessURL,
		OAuthErrorURL:   cfg.OAuth.ErrorURL,
		Log:             log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Msg("identity api listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
