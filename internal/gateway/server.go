// server.go — Access gateway: entitlement checks, watchlist, purchase tx
// building, catalog proxying. This is the public, unauthenticated surface —
// callers prove identity by wallet signatures at the ledger, not to us.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/suistream/suistream/internal/catalog"
	"github.com/suistream/suistream/internal/entitlement"
	"github.com/suistream/suistream/internal/metrics"
	"github.com/suistream/suistream/internal/middleware"
	"github.com/suistream/suistream/internal/reviews"
	"github.com/suistream/suistream/internal/scrape"
	"github.com/suistream/suistream/internal/watchlist"
	"github.com/suistream/suistream/pkg/telemetry"
)

// OwnershipResolver answers ownership queries against the ledger.
type OwnershipResolver interface {
	Resolve(ctx context.Context, wallet string) (entitlement.Ownership, error)
	IsOwned(ctx context.Context, wallet, contentRef string) (bool, error)
}

// SubscriptionResolver returns the wallet's effective subscription record.
type SubscriptionResolver interface {
	Resolve(ctx context.Context, wallet string) (*entitlement.SubscriptionRecord, error)
}

// Watchlists reads watchlists and builds unsigned mutations.
type Watchlists interface {
	Get(ctx context.Context, wallet string) ([]string, error)
	BuildMutation(ctx context.Context, wallet, action, contentRef string) (*watchlist.UnsignedTx, error)
}

// Reviews reads content reviews and builds unsigned add-review calls.
type Reviews interface {
	Get(ctx context.Context, contentRef string) (json.RawMessage, error)
	BuildMutation(ctx context.Context, wallet, contentRef, text string) (*reviews.UnsignedTx, error)
}

// Server exposes the gateway over HTTP.
type Server struct {
	ownership    OwnershipResolver
	subscription SubscriptionResolver
	watchlists   Watchlists
	reviews      Reviews
	catalog      catalog.Fetcher
	scraper      scrape.Resolver
	packageID    string
	logger       *slog.Logger
}

// NewServer wires the gateway. catalog and scraper may be nil when those
// surfaces are not deployed; their routes then answer 503.
func NewServer(ownership OwnershipResolver, subscription SubscriptionResolver, watchlists Watchlists, revs Reviews, cat catalog.Fetcher, scraper scrape.Resolver, packageID string, logger *slog.Logger) *Server {
	return &Server{
		ownership:    ownership,
		subscription: subscription,
		watchlists:   watchlists,
		reviews:      revs,
		catalog:      cat,
		scraper:      scraper,
		packageID:    packageID,
		logger:       logger,
	}
}

// Routes builds the chi router for the gateway surface.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(telemetry.PanicRecoveryMiddleware())
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS)
	r.Use(metrics.Middleware)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/entitlement", func(r chi.Router) {
		r.Post("/owned", s.handleOwned)
		r.Get("/subscription", s.handleSubscription)
		r.Post("/watch", s.handleWatch)
		r.Post("/buy", s.handleBuy)
		r.Get("/tiers", s.handleTiers)
	})

	r.Get("/watchlist", s.handleWatchlistGet)
	r.Post("/watchlist", s.handleWatchlistMutation)

	r.Get("/reviews", s.handleReviewsGet)
	r.Post("/reviews", s.handleReviewsMutation)

	r.Get("/catalog/{section}", s.handleCatalog)

	return r
}
