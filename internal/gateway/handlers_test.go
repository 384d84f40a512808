// handlers_test.go — HTTP tests for the access gateway.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/suistream/suistream/internal/catalog"
	"github.com/suistream/suistream/internal/entitlement"
	"github.com/suistream/suistream/internal/ledger"
	"github.com/suistream/suistream/internal/registry"
	"github.com/suistream/suistream/internal/reviews"
	"github.com/suistream/suistream/internal/scrape"
	"github.com/suistream/suistream/internal/validate"
	"github.com/suistream/suistream/internal/watchlist"
)

const testWallet = "0xabcdef0123456789"

// fakeOwnership scripts ownership answers.
type fakeOwnership struct {
	owned map[string]bool
	set   []string
	err   error
}

func (f *fakeOwnership) Resolve(ctx context.Context, wallet string) (entitlement.Ownership, error) {
	if f.err != nil {
		return nil, f.err
	}
	return entitlement.NewOwnership(f.set), nil
}

func (f *fakeOwnership) IsOwned(ctx context.Context, wallet, contentRef string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.owned[contentRef], nil
}

// fakeSubscription scripts the effective subscription record.
type fakeSubscription struct {
	sub *entitlement.SubscriptionRecord
	err error
}

func (f *fakeSubscription) Resolve(ctx context.Context, wallet string) (*entitlement.SubscriptionRecord, error) {
	return f.sub, f.err
}

// fakeWatchlists scripts watchlist reads and mutation building.
type fakeWatchlists struct {
	refs []string
	err  error
}

func (f *fakeWatchlists) Get(ctx context.Context, wallet string) ([]string, error) {
	return f.refs, f.err
}

func (f *fakeWatchlists) BuildMutation(ctx context.Context, wallet, action, contentRef string) (*watchlist.UnsignedTx, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &watchlist.UnsignedTx{
		Sender: wallet,
		Call: ledger.MoveCall{
			Target:    "0xpkg::suistream::add_to_watchlist",
			Arguments: []any{"0xwatch1", contentRef},
		},
	}, nil
}

// fakeReviews scripts review reads and add-review building.
type fakeReviews struct {
	raw json.RawMessage
	err error
}

func (f *fakeReviews) Get(ctx context.Context, contentRef string) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	if err := validate.NonEmptyString("content_id", contentRef); err != nil {
		return nil, err
	}
	return f.raw, nil
}

func (f *fakeReviews) BuildMutation(ctx context.Context, wallet, contentRef, text string) (*reviews.UnsignedTx, error) {
	if f.err != nil {
		return nil, f.err
	}
	var errs validate.MultiError
	errs.Add(validate.NonEmptyString("content_id", contentRef))
	errs.Add(validate.NonEmptyString("text", text))
	if errs.HasErrors() {
		return nil, &errs
	}
	return &reviews.UnsignedTx{
		Sender: wallet,
		Call: ledger.MoveCall{
			Target:    "0xpkg::content::add_review",
			Arguments: []any{"0xfee1", contentRef, text},
		},
	}, nil
}

// fakeScraper returns a fixed watch URL.
type fakeScraper struct {
	url string
	err error
}

func (f *fakeScraper) ResolveWatchURL(ctx context.Context, sourceURL string) (string, error) {
	return f.url, f.err
}

// fakeCatalog returns a fixed page.
type fakeCatalog struct {
	body json.RawMessage
	err  error
}

func (f *fakeCatalog) FetchPage(ctx context.Context, section string, page int) (json.RawMessage, error) {
	return f.body, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func activeSub(tier entitlement.Tier) *entitlement.SubscriptionRecord {
	return &entitlement.SubscriptionRecord{
		ID: "0xsub1", Tier: tier, UserAddress: testWallet,
		ExpiresAt: time.Now().Unix() + 86400, IsActive: true,
	}
}

func expiredSub(tier entitlement.Tier) *entitlement.SubscriptionRecord {
	return &entitlement.SubscriptionRecord{
		ID: "0xsub1", Tier: tier, UserAddress: testWallet,
		ExpiresAt: time.Now().Unix() - 86400, IsActive: true,
	}
}

type serverOpts struct {
	ownership    OwnershipResolver
	subscription SubscriptionResolver
	watchlists   Watchlists
	reviews      Reviews
	catalog      *fakeCatalog
	scraper      scrape.Resolver
}

func newTestServer(opts serverOpts) http.Handler {
	if opts.ownership == nil {
		opts.ownership = &fakeOwnership{}
	}
	if opts.subscription == nil {
		opts.subscription = &fakeSubscription{}
	}
	if opts.watchlists == nil {
		opts.watchlists = &fakeWatchlists{}
	}
	if opts.reviews == nil {
		opts.reviews = &fakeReviews{raw: json.RawMessage(`[]`)}
	}
	var cat *fakeCatalog
	if opts.catalog != nil {
		cat = opts.catalog
	}
	srv := NewServer(opts.ownership, opts.subscription, opts.watchlists, opts.reviews, fetcherOrNil(cat), opts.scraper, "0xpkg", testLogger())
	return srv.Routes()
}

// fetcherOrNil keeps a typed-nil fake from masquerading as a non-nil Fetcher.
func fetcherOrNil(f *fakeCatalog) catalog.Fetcher {
	if f == nil {
		return nil
	}
	return f
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	return body
}

func TestHealth(t *testing.T) {
	h := newTestServer(serverOpts{})
	w := doJSON(t, h, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestOwned_Point(t *testing.T) {
	h := newTestServer(serverOpts{ownership: &fakeOwnership{owned: map[string]bool{"movie-1": true}}})

	w := doJSON(t, h, http.MethodPost, "/entitlement/owned",
		map[string]string{"wallet": testWallet, "content": "movie-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := decodeBody(t, w); body["owned"] != true {
		t.Errorf("expected owned=true: %+v", body)
	}

	w = doJSON(t, h, http.MethodPost, "/entitlement/owned",
		map[string]string{"wallet": testWallet, "content": "movie-9"})
	if body := decodeBody(t, w); body["owned"] != false {
		t.Errorf("expected owned=false: %+v", body)
	}
}

func TestOwned_Bulk(t *testing.T) {
	h := newTestServer(serverOpts{ownership: &fakeOwnership{set: []string{"movie-1", "movie-2"}}})

	w := doJSON(t, h, http.MethodPost, "/entitlement/owned", map[string]string{"wallet": testWallet})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	owned, ok := body["owned"].([]any)
	if !ok || len(owned) != 2 {
		t.Errorf("expected two owned refs: %+v", body)
	}
}

func TestOwned_DegradedFailsClosed(t *testing.T) {
	h := newTestServer(serverOpts{ownership: &fakeOwnership{
		err: fmt.Errorf("%w: refused", ledger.ErrUnavailable),
	}})

	w := doJSON(t, h, http.MethodPost, "/entitlement/owned",
		map[string]string{"wallet": testWallet, "content": "movie-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("degraded check must not be a 5xx: %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["owned"] != false || body["degraded"] != true {
		t.Errorf("expected owned=false degraded=true: %+v", body)
	}
}

func TestOwned_InvalidWallet(t *testing.T) {
	h := newTestServer(serverOpts{})
	w := doJSON(t, h, http.MethodPost, "/entitlement/owned", map[string]string{"wallet": "nope"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSubscription(t *testing.T) {
	t.Run("active record", func(t *testing.T) {
		h := newTestServer(serverOpts{subscription: &fakeSubscription{sub: activeSub(entitlement.TierPremium)}})
		w := doJSON(t, h, http.MethodGet, "/entitlement/subscription?wallet="+testWallet, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		body := decodeBody(t, w)
		sub, ok := body["subscription"].(map[string]any)
		if !ok || sub["tier"] != float64(2) {
			t.Errorf("unexpected subscription %+v", body)
		}
	})

	t.Run("never subscribed is null", func(t *testing.T) {
		h := newTestServer(serverOpts{})
		w := doJSON(t, h, http.MethodGet, "/entitlement/subscription?wallet="+testWallet, nil)
		if body := decodeBody(t, w); body["subscription"] != nil {
			t.Errorf("expected null subscription: %+v", body)
		}
	})

	t.Run("ledger down is bad gateway, not null", func(t *testing.T) {
		h := newTestServer(serverOpts{subscription: &fakeSubscription{
			err: fmt.Errorf("%w: refused", ledger.ErrUnavailable),
		}})
		w := doJSON(t, h, http.MethodGet, "/entitlement/subscription?wallet="+testWallet, nil)
		if w.Code != http.StatusBadGateway {
			t.Fatalf("unknown must not read as unsubscribed: %d", w.Code)
		}
	})
}

func TestWatch(t *testing.T) {
	req := func(tier int) map[string]any {
		return map[string]any{"wallet": testWallet, "content": "movie-1", "requiredTier": tier}
	}

	t.Run("ownership short-circuits", func(t *testing.T) {
		h := newTestServer(serverOpts{
			ownership:    &fakeOwnership{owned: map[string]bool{"movie-1": true}},
			subscription: &fakeSubscription{err: fmt.Errorf("%w: down", ledger.ErrUnavailable)},
		})
		w := doJSON(t, h, http.MethodPost, "/entitlement/watch", req(3))
		body := decodeBody(t, w)
		if body["allowed"] != true || body["reason"] != string(entitlement.ReasonOwned) {
			t.Errorf("owned content must not consult subscriptions: %+v", body)
		}
		if body["degraded"] == true {
			t.Errorf("short-circuited check is not degraded: %+v", body)
		}
	})

	t.Run("sufficient tier", func(t *testing.T) {
		h := newTestServer(serverOpts{subscription: &fakeSubscription{sub: activeSub(entitlement.TierPremium)}})
		w := doJSON(t, h, http.MethodPost, "/entitlement/watch", req(2))
		body := decodeBody(t, w)
		if body["allowed"] != true || body["reason"] != string(entitlement.ReasonSubscribed) {
			t.Errorf("unexpected verdict %+v", body)
		}
	})

	t.Run("insufficient tier", func(t *testing.T) {
		h := newTestServer(serverOpts{subscription: &fakeSubscription{sub: activeSub(entitlement.TierBasic)}})
		w := doJSON(t, h, http.MethodPost, "/entitlement/watch", req(3))
		body := decodeBody(t, w)
		if body["allowed"] != false || body["reason"] != string(entitlement.ReasonInsufficientTier) {
			t.Errorf("unexpected verdict %+v", body)
		}
	})

	t.Run("expired subscription", func(t *testing.T) {
		h := newTestServer(serverOpts{subscription: &fakeSubscription{sub: expiredSub(entitlement.TierUltimate)}})
		w := doJSON(t, h, http.MethodPost, "/entitlement/watch", req(1))
		body := decodeBody(t, w)
		if body["allowed"] != false || body["reason"] != string(entitlement.ReasonExpired) {
			t.Errorf("unexpected verdict %+v", body)
		}
	})

	t.Run("no subscription", func(t *testing.T) {
		h := newTestServer(serverOpts{})
		w := doJSON(t, h, http.MethodPost, "/entitlement/watch", req(1))
		body := decodeBody(t, w)
		if body["allowed"] != false || body["reason"] != string(entitlement.ReasonNoSubscription) {
			t.Errorf("unexpected verdict %+v", body)
		}
	})

	t.Run("ledger down fails closed with degraded flag", func(t *testing.T) {
		h := newTestServer(serverOpts{
			ownership:    &fakeOwnership{err: fmt.Errorf("%w: down", ledger.ErrUnavailable)},
			subscription: &fakeSubscription{err: fmt.Errorf("%w: down", ledger.ErrUnavailable)},
		})
		w := doJSON(t, h, http.MethodPost, "/entitlement/watch", req(1))
		if w.Code != http.StatusOK {
			t.Fatalf("degraded verdict must not be a 5xx: %d", w.Code)
		}
		body := decodeBody(t, w)
		if body["allowed"] != false || body["degraded"] != true {
			t.Errorf("expected fail-closed degraded verdict: %+v", body)
		}
	})

	t.Run("default tier is basic", func(t *testing.T) {
		h := newTestServer(serverOpts{subscription: &fakeSubscription{sub: activeSub(entitlement.TierBasic)}})
		w := doJSON(t, h, http.MethodPost, "/entitlement/watch",
			map[string]string{"wallet": testWallet, "content": "movie-1"})
		if body := decodeBody(t, w); body["allowed"] != true {
			t.Errorf("basic subscription should satisfy the default requirement: %+v", body)
		}
	})

	t.Run("resolves watch url when allowed", func(t *testing.T) {
		h := newTestServer(serverOpts{
			ownership: &fakeOwnership{owned: map[string]bool{"movie-1": true}},
			scraper:   &fakeScraper{url: "https://cdn.example.com/stream.m3u8"},
		})
		w := doJSON(t, h, http.MethodPost, "/entitlement/watch", map[string]any{
			"wallet": testWallet, "content": "movie-1", "sourceUrl": "https://source.example/movie-1",
		})
		if body := decodeBody(t, w); body["watchUrl"] != "https://cdn.example.com/stream.m3u8" {
			t.Errorf("expected watchUrl: %+v", body)
		}
	})

	t.Run("watch url failure does not fail the verdict", func(t *testing.T) {
		h := newTestServer(serverOpts{
			ownership: &fakeOwnership{owned: map[string]bool{"movie-1": true}},
			scraper:   &fakeScraper{err: scrape.ErrNoStream},
		})
		w := doJSON(t, h, http.MethodPost, "/entitlement/watch", map[string]any{
			"wallet": testWallet, "content": "movie-1", "sourceUrl": "https://source.example/movie-1",
		})
		body := decodeBody(t, w)
		if body["allowed"] != true || body["watchUrlError"] != "not_found" {
			t.Errorf("unexpected body %+v", body)
		}
	})
}

func TestBuy(t *testing.T) {
	h := newTestServer(serverOpts{})

	w := doJSON(t, h, http.MethodPost, "/entitlement/buy", map[string]any{
		"wallet": testWallet, "content": "movie-1", "priceMist": 2_000_000_000,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
	}
	body := decodeBody(t, w)
	if body["sender"] != testWallet {
		t.Errorf("sender = %v", body["sender"])
	}
	call, ok := body["call"].(map[string]any)
	if !ok || call["target"] != "0xpkg::suistream::buy_movie" {
		t.Errorf("unexpected call %+v", body)
	}

	t.Run("rejects non-positive price", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/entitlement/buy", map[string]any{
			"wallet": testWallet, "content": "movie-1", "priceMist": 0,
		})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})
}

func TestTiers(t *testing.T) {
	h := newTestServer(serverOpts{})
	w := doJSON(t, h, http.MethodGet, "/entitlement/tiers", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	tiers, ok := body["tiers"].([]any)
	if !ok || len(tiers) != 3 {
		t.Fatalf("expected 3 tiers: %+v", body)
	}
	first := tiers[0].(map[string]any)
	if first["name"] != "Basic" || first["priceMist"] != float64(5_000_000_000) {
		t.Errorf("unexpected tier %+v", first)
	}
}

func TestWatchlistEndpoints(t *testing.T) {
	t.Run("get", func(t *testing.T) {
		h := newTestServer(serverOpts{watchlists: &fakeWatchlists{refs: []string{"movie-1"}}})
		w := doJSON(t, h, http.MethodGet, "/watchlist?wallet="+testWallet, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		body := decodeBody(t, w)
		if refs, ok := body["watchlist"].([]any); !ok || len(refs) != 1 {
			t.Errorf("unexpected body %+v", body)
		}
	})

	t.Run("get unregistered", func(t *testing.T) {
		h := newTestServer(serverOpts{watchlists: &fakeWatchlists{err: registry.ErrNotFound}})
		w := doJSON(t, h, http.MethodGet, "/watchlist?wallet="+testWallet, nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})

	t.Run("get ledger down", func(t *testing.T) {
		h := newTestServer(serverOpts{watchlists: &fakeWatchlists{
			err: fmt.Errorf("%w: down", ledger.ErrUnavailable),
		}})
		w := doJSON(t, h, http.MethodGet, "/watchlist?wallet="+testWallet, nil)
		if w.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", w.Code)
		}
	})

	t.Run("mutation returns unsigned tx", func(t *testing.T) {
		h := newTestServer(serverOpts{})
		w := doJSON(t, h, http.MethodPost, "/watchlist", map[string]string{
			"wallet": testWallet, "action": "add", "content": "movie-1",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
		}
		body := decodeBody(t, w)
		if body["sender"] != testWallet {
			t.Errorf("unexpected tx %+v", body)
		}
	})
}

func TestReviewsEndpoints(t *testing.T) {
	t.Run("get", func(t *testing.T) {
		h := newTestServer(serverOpts{reviews: &fakeReviews{
			raw: json.RawMessage(`[{"reviewer":"0xabc","text":"great"}]`),
		}})
		w := doJSON(t, h, http.MethodGet, "/reviews?content_id=movie-1", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
		}
		body := decodeBody(t, w)
		if revs, ok := body["reviews"].([]any); !ok || len(revs) != 1 {
			t.Errorf("unexpected body %+v", body)
		}
	})

	t.Run("get missing content id", func(t *testing.T) {
		h := newTestServer(serverOpts{})
		w := doJSON(t, h, http.MethodGet, "/reviews", nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("get handle unset", func(t *testing.T) {
		h := newTestServer(serverOpts{reviews: &fakeReviews{err: reviews.ErrNotConfigured}})
		w := doJSON(t, h, http.MethodGet, "/reviews?content_id=movie-1", nil)
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", w.Code)
		}
	})

	t.Run("get ledger down", func(t *testing.T) {
		h := newTestServer(serverOpts{reviews: &fakeReviews{
			err: fmt.Errorf("%w: down", ledger.ErrUnavailable),
		}})
		w := doJSON(t, h, http.MethodGet, "/reviews?content_id=movie-1", nil)
		if w.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", w.Code)
		}
	})

	t.Run("mutation returns unsigned tx", func(t *testing.T) {
		h := newTestServer(serverOpts{})
		w := doJSON(t, h, http.MethodPost, "/reviews", map[string]string{
			"wallet": testWallet, "content_id": "movie-1", "text": "loved it",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
		}
		body := decodeBody(t, w)
		if body["sender"] != testWallet {
			t.Errorf("unexpected tx %+v", body)
		}
	})

	t.Run("mutation missing text", func(t *testing.T) {
		h := newTestServer(serverOpts{})
		w := doJSON(t, h, http.MethodPost, "/reviews", map[string]string{
			"wallet": testWallet, "content_id": "movie-1",
		})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", w.Code, w.Body)
		}
	})
}

func TestCatalogEndpoint(t *testing.T) {
	t.Run("proxies page", func(t *testing.T) {
		h := newTestServer(serverOpts{catalog: &fakeCatalog{body: json.RawMessage(`{"results":[]}`)}})
		w := doJSON(t, h, http.MethodGet, "/catalog/popular?page=1", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("not configured", func(t *testing.T) {
		h := newTestServer(serverOpts{})
		w := doJSON(t, h, http.MethodGet, "/catalog/popular", nil)
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", w.Code)
		}
	})

	t.Run("bad page", func(t *testing.T) {
		h := newTestServer(serverOpts{catalog: &fakeCatalog{body: json.RawMessage(`{}`)}})
		w := doJSON(t, h, http.MethodGet, "/catalog/popular?page=zero", nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})
}
