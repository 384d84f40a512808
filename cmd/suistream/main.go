// main.go — suistream entrypoint.
//
// Runs two HTTP surfaces: the admin server (registry CRUD, audit, reviews)
// and the public access gateway (entitlement checks, watchlist, catalog).
// All configuration comes from environment variables; see internal/config.
package main

import (
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	goredis "github.com/redis/go-redis/v9"

	"github.com/suistream/suistream/internal/admin"
	"github.com/suistream/suistream/internal/audit"
	"github.com/suistream/suistream/internal/catalog"
	"github.com/suistream/suistream/internal/config"
	"github.com/suistream/suistream/internal/gateway"
	"github.com/suistream/suistream/internal/ledger"
	"github.com/suistream/suistream/internal/logger"
	"github.com/suistream/suistream/internal/ownership"
	"github.com/suistream/suistream/internal/ratelimit"
	"github.com/suistream/suistream/internal/registry"
	"github.com/suistream/suistream/internal/retry"
	"github.com/suistream/suistream/internal/reviews"
	"github.com/suistream/suistream/internal/scrape"
	"github.com/suistream/suistream/internal/shutdown"
	"github.com/suistream/suistream/internal/subscription"
	"github.com/suistream/suistream/internal/watchlist"
	"github.com/suistream/suistream/pkg/logging"
	"github.com/suistream/suistream/pkg/telemetry"
)

// release is stamped at build time via -ldflags.
var release = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "suistream: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.LogFormat, cfg.LogLevel)

	if cfg.SentryDSN != "" {
		if err := telemetry.InitSentry(cfg.SentryDSN, release); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer telemetry.Flush()
	}

	// Persistence backends.
	var db *sql.DB
	if cfg.RegistryBackend == config.BackendPostgres || cfg.AuditBackend == config.BackendPostgres {
		db, err = sql.Open("pgx", cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		log.Info("postgres connected")
	}

	var store registry.Store
	switch cfg.RegistryBackend {
	case config.BackendPostgres:
		store = registry.NewPostgresStore(db)
	case config.BackendMemory:
		store = registry.NewMemoryStore()
	default:
		store = registry.NewFileStore(cfg.RegistryPath)
	}

	var auditLog audit.Log
	if cfg.AuditBackend == config.BackendPostgres {
		auditLog = audit.NewPostgresLog(db)
	} else {
		auditLog = audit.NewFileLog(cfg.AuditPath)
	}

	// Ledger client and platform signer.
	policy := retry.Policy{
		MaxAttempts:       cfg.RetryMaxAttempts,
		BaseDelay:         cfg.RetryBaseDelay,
		BackoffMultiplier: retry.DefaultPolicy.BackoffMultiplier,
	}
	client := ledger.NewRPCClient(cfg.SuiRPCURL, policy, log.With("component", "ledger"))
	signer, err := ledger.LoadKeyfileSigner(cfg.SignerKeyPath)
	if err != nil {
		return fmt.Errorf("load signer: %w", err)
	}
	log.Info("platform signer loaded", "address", signer.Address())

	// Login rate limiting degrades to no-op without Redis.
	var limiterStore ratelimit.Store
	if cfg.RedisURL != "" {
		opts, err := goredis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		limiterStore = ratelimit.NewRedisStore(goredis.NewClient(opts))
		log.Info("redis rate limiting enabled")
	} else {
		log.Warn("REDIS_URL not set, admin login rate limiting disabled")
	}
	limiter := ratelimit.New(limiterStore)

	// Collaborators.
	var fetcher catalog.Fetcher
	if cfg.CatalogBaseURL != "" {
		fetcher = catalog.NewHTTPFetcher(cfg.CatalogBaseURL, cfg.CatalogAPIKey, policy, logging.NewLogger("catalog"))
	}
	scraper := scrape.NewHTTPResolver(policy, logging.NewLogger("scrape"))

	// Services.
	adminSvc := admin.NewService(store, auditLog, client, signer, cfg.PackageID, log.With("component", "admin"))
	ownershipRes := ownership.NewResolver(client, store, cfg.PackageID, log.With("component", "ownership"))
	subscriptionRes := subscription.NewResolver(client, cfg.PackageID, log.With("component", "subscription"))
	watchlists := watchlist.NewService(client, store, cfg.PackageID, log.With("component", "watchlist"))
	reviewSvc := reviews.NewService(client, store, cfg.PackageID, log.With("component", "reviews"))

	adminSrv := admin.NewServer(adminSvc, limiter, cfg.AdminUser, cfg.AdminPassHash, cfg.JWTSecret, log.With("component", "admin"))
	gatewaySrv := gateway.NewServer(ownershipRes, subscriptionRes, watchlists, reviewSvc, fetcher, scraper, cfg.PackageID, log.With("component", "gateway"))

	servers := []*http.Server{
		{Addr: ":" + cfg.Port, Handler: adminSrv.Routes(), ReadHeaderTimeout: 10 * time.Second},
		{Addr: ":" + cfg.GatewayPort, Handler: gatewaySrv.Routes(), ReadHeaderTimeout: 10 * time.Second},
	}
	return shutdown.GracefulServe(servers, 30*time.Second, log)
}
