package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dropDatabas3/hellosso/internal/account"
	"github.com/dropDatabas3/hellosso/internal/cache"
	memcache "github.com/dropDatabas3/hellosso/internal/cache/memory"
	redcache "github.com/dropDatabas3/hellosso/internal/cache/redis"
	"github.com/dropDatabas3/hellosso/internal/config"
	httpserver "github.com/dropDatabas3/hellosso/internal/http"
	"github.com/dropDatabas3/hellosso/internal/http/handlers"
	"github.com/dropDatabas3/hellosso/internal/logintoken"
	"github.com/dropDatabas3/hellosso/internal/metrics"
	"github.com/dropDatabas3/hellosso/internal/observability/logger"
	"github.com/dropDatabas3/hellosso/internal/oidc"
	"github.com/dropDatabas3/hellosso/internal/rate"
	"github.com/dropDatabas3/hellosso/internal/sso"
	"github.com/dropDatabas3/hellosso/internal/ssosession"
)

// version se inyecta en build con -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "ruta del config YAML")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.Log.Env,
		Level:       cfg.Log.Level,
		ServiceName: "hellosso",
		Version:     version,
	})
	defer func() { _ = logger.Sync() }()
	lg := logger.Named("main")

	if err := metrics.Register(nil); err != nil {
		lg.Fatal("métricas", logger.Err(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Cache (login tokens) ──
	var c cache.Cache
	var redisCache *redcache.Cache
	switch cfg.Cache.Kind {
	case "redis":
		rc := redcache.New(cfg.Cache.Redis.Addr, cfg.Cache.Redis.DB, cfg.Cache.Redis.Prefix)
		defer rc.Close()
		redisCache = rc
		c = rc
	default:
		ttl := 5 * time.Minute
		if cfg.Cache.Memory.DefaultTTL != "" {
			if d, err := time.ParseDuration(cfg.Cache.Memory.DefaultTTL); err == nil {
				ttl = d
			}
		}
		c = memcache.New(ttl)
	}

	// ── Rate limiter ──
	var limiter rate.MultiLimiter
	if cfg.Rate.Enabled {
		if redisCache != nil {
			limiter = rate.NewRedisMultiLimiter(redisCache.Client(), "rl:")
		} else {
			ml := rate.NewMemoryMultiLimiter()
			ml.StartPurger(ctx, 10*time.Minute)
			limiter = ml
		}
	}

	d := handlers.Deps{
		ServerName: cfg.Server.Name,
	}

	if cfg.SSO.Enable {
		pc := &oidc.ProviderConfig{
			Issuer:                cfg.SSO.Issuer,
			ClientID:              cfg.SSO.ClientID,
			ClientSecret:          cfg.SSO.ClientSecret,
			RedirectURI:           cfg.SSO.RedirectURI,
			Scopes:                cfg.SSO.Scopes,
			RegisterUser:          cfg.SSO.RegisterUser,
			SubjectClaim:          cfg.SSO.SubjectClaim,
			DisplaynameClaim:      cfg.SSO.DisplaynameClaim,
			EnableDiscovery:       cfg.SSO.EnableDiscovery,
			AuthorizationEndpoint: cfg.SSO.AuthorizationEndpoint,
			TokenEndpoint:         cfg.SSO.TokenEndpoint,
			UserinfoEndpoint:      cfg.SSO.UserinfoEndpoint,
			JWKSURI:               cfg.SSO.JWKSURI,
			AccountManagementURL:  cfg.SSO.AccountManagementURL,
			Production:            cfg.IsProd(),
		}
		if err := pc.Validate(); err != nil {
			lg.Fatal("configuración SSO inválida", logger.Err(err))
		}

		httpc := &http.Client{Timeout: cfg.SSO.HTTPTimeout}
		resolver := oidc.NewResolver(pc,
			oidc.WithHTTPClient(httpc),
			oidc.WithTTL(cfg.SSO.DiscoveryTTL, cfg.SSO.DiscoveryGrace),
		)
		client := oidc.NewClient(pc, resolver, httpc)

		sessions := ssosession.NewStore(cfg.SSO.SessionTTL)
		sweepEvery := time.Minute
		if cfg.SSO.SessionTTL < sweepEvery {
			sweepEvery = cfg.SSO.SessionTTL
		}
		sessions.StartSweeper(ctx, sweepEvery)

		var accounts account.Provisioner
		switch cfg.Storage.Driver {
		case "postgres":
			pool, err := pgxpool.New(ctx, cfg.Storage.DSN)
			if err != nil {
				lg.Fatal("postgres", logger.Err(err))
			}
			defer pool.Close()
			accounts = account.NewPGProvisioner(pool)
		default:
			accounts = account.NewMemoryProvisioner()
		}

		redirectWindow, _ := time.ParseDuration(cfg.Rate.Redirect.Window)
		callbackWindow, _ := time.ParseDuration(cfg.Rate.Callback.Window)

		d.PC = pc
		d.Resolver = resolver
		d.Flow = sso.NewFlow(pc, client, sessions, accounts)
		d.LoginTokens = logintoken.NewStore(c, cfg.SSO.LoginTokenTTL)
		d.Limiter = limiter
		d.Limits = handlers.RateLimits{
			Enabled:        cfg.Rate.Enabled,
			RedirectLimit:  cfg.Rate.Redirect.Limit,
			RedirectWindow: redirectWindow,
			CallbackLimit:  cfg.Rate.Callback.Limit,
			CallbackWindow: callbackWindow,
		}

		lg.Info("SSO habilitado", logger.Issuer(cfg.SSO.Issuer))
	} else {
		lg.Info("SSO deshabilitado, solo health y métricas")
	}

	rd := httpserver.RouterDeps{
		Healthz:            handlers.Healthz(),
		Metrics:            promhttp.Handler(),
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
	}
	if cfg.SSO.Enable {
		redirect, callback := handlers.BuildSSOHandlers(d)
		wellKnown, authIssuer := handlers.BuildMetaHandlers(d)
		rd.SSORedirect = redirect
		rd.SSOCallback = callback
		rd.WellKnown = wellKnown
		rd.AuthIssuer = authIssuer
		rd.Readyz = handlers.BuildReadyz(d)
	} else {
		rd.Readyz = handlers.Healthz()
	}

	lg.Info("escuchando", zap.String("addr", cfg.Server.Addr))
	if err := httpserver.Serve(ctx, cfg.Server.Addr, httpserver.NewRouter(rd)); err != nil {
		lg.Fatal("servidor HTTP", logger.Err(err))
	}
}
