// handlers.go — Gateway endpoint handlers.
//
// Access checks fail closed: when the ledger cannot answer, the verdict is
// "not allowed" with degraded=true, a warning, and a degradation metric —
// never an allow on unknown data, and never a raw 500 into the verdict path.
package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/suistream/suistream/internal/catalog"
	"github.com/suistream/suistream/internal/entitlement"
	"github.com/suistream/suistream/internal/metrics"
	"github.com/suistream/suistream/internal/registry"
	"github.com/suistream/suistream/internal/reviews"
	"github.com/suistream/suistream/internal/scrape"
	"github.com/suistream/suistream/internal/validate"
	"github.com/suistream/suistream/pkg/logging"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "suistream"})
}

// ── Entitlement ───────────────────────────────────────────────────────────────

func (s *Server) handleOwned(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Wallet  string `json:"wallet"`
		Content string `json:"content,omitempty"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.IsWalletAddress("wallet", req.Wallet); err != nil {
		writeValidation(w, err)
		return
	}

	if req.Content == "" {
		set, err := s.ownership.Resolve(r.Context(), req.Wallet)
		if err != nil {
			s.degraded("ownership_bulk", req.Wallet, err)
			writeJSON(w, http.StatusOK, map[string]any{"owned": []string{}, "degraded": true})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"owned": set.Refs()})
		return
	}

	owned, err := s.ownership.IsOwned(r.Context(), req.Wallet, req.Content)
	if err != nil {
		s.degraded("ownership", req.Wallet, err)
		writeJSON(w, http.StatusOK, map[string]any{"owned": false, "degraded": true})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"owned": owned})
}

func (s *Server) handleSubscription(w http.ResponseWriter, r *http.Request) {
	wallet := r.URL.Query().Get("wallet")
	if err := validate.IsWalletAddress("wallet", wallet); err != nil {
		writeValidation(w, err)
		return
	}

	sub, err := s.subscription.Resolve(r.Context(), wallet)
	if err != nil {
		s.degraded("subscription", wallet, err)
		writeError(w, http.StatusBadGateway, "ledger_unavailable", "subscription state is temporarily unknown")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscription": sub})
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Wallet       string `json:"wallet"`
		Content      string `json:"content"`
		RequiredTier int    `json:"requiredTier,omitempty"`
		SourceURL    string `json:"sourceUrl,omitempty"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	var errs validate.MultiError
	errs.Add(validate.IsWalletAddress("wallet", req.Wallet))
	errs.Add(validate.NonEmptyString("content", req.Content))
	if req.RequiredTier == 0 {
		req.RequiredTier = int(entitlement.TierBasic)
	}
	errs.Add(validate.IsTier("requiredTier", req.RequiredTier))
	if errs.HasErrors() {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "validation", "fields": errs.Errors})
		return
	}

	verdict, degraded := s.checkWatchAccess(r, req.Wallet, req.Content, entitlement.Tier(req.RequiredTier))
	metrics.AccessChecks.WithLabelValues(string(verdict.Reason)).Inc()

	resp := map[string]any{
		"allowed": verdict.Allowed,
		"reason":  verdict.Reason,
	}
	if degraded {
		resp["degraded"] = true
	}

	if verdict.Allowed && req.SourceURL != "" && s.scraper != nil {
		url, err := s.scraper.ResolveWatchURL(r.Context(), req.SourceURL)
		switch {
		case err == nil:
			resp["watchUrl"] = url
		case errors.Is(err, scrape.ErrNoStream):
			resp["watchUrlError"] = "not_found"
		case errors.Is(err, scrape.ErrForbiddenSource):
			resp["watchUrlError"] = "forbidden_source"
		default:
			resp["watchUrlError"] = "unavailable"
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// checkWatchAccess applies the decision order: ownership short-circuits,
// then subscription tier. A ledger failure on either leg marks the answer
// degraded and the failing leg contributes a negative.
func (s *Server) checkWatchAccess(r *http.Request, wallet, content string, required entitlement.Tier) (entitlement.Verdict, bool) {
	degraded := false

	owned, err := s.ownership.IsOwned(r.Context(), wallet, content)
	if err != nil {
		s.degraded("ownership", wallet, err)
		degraded = true
		owned = false
	}
	if owned {
		return entitlement.Verdict{Allowed: true, Reason: entitlement.ReasonOwned}, degraded
	}

	sub, err := s.subscription.Resolve(r.Context(), wallet)
	if err != nil {
		s.degraded("subscription", wallet, err)
		degraded = true
		sub = nil
	}

	return entitlement.Evaluate(entitlement.NewOwnership(nil), sub, content, required), degraded
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Wallet    string `json:"wallet"`
		Content   string `json:"content"`
		PriceMist int64  `json:"priceMist"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	var errs validate.MultiError
	errs.Add(validate.IsWalletAddress("wallet", req.Wallet))
	errs.Add(validate.NonEmptyString("content", req.Content))
	if req.PriceMist <= 0 {
		errs.Add(&validate.ValidationError{Field: "priceMist", Message: "must be a positive MIST amount"})
	}
	if errs.HasErrors() {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "validation", "fields": errs.Errors})
		return
	}

	// The purchase is signed by the buyer's wallet, never by the platform.
	writeJSON(w, http.StatusOK, map[string]any{
		"sender": req.Wallet,
		"call": map[string]any{
			"target":    s.packageID + "::suistream::buy_movie",
			"arguments": []any{req.Content, strconv.FormatInt(req.PriceMist, 10)},
		},
	})
}

func (s *Server) handleTiers(w http.ResponseWriter, r *http.Request) {
	type tierInfo struct {
		Tier      int    `json:"tier"`
		Name      string `json:"name"`
		PriceMist uint64 `json:"priceMist"`
	}
	tiers := []tierInfo{}
	for _, t := range []entitlement.Tier{entitlement.TierBasic, entitlement.TierPremium, entitlement.TierUltimate} {
		tiers = append(tiers, tierInfo{Tier: int(t), Name: t.String(), PriceMist: entitlement.TierPriceMist(t)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tiers": tiers})
}

// ── Watchlist ─────────────────────────────────────────────────────────────────

func (s *Server) handleWatchlistGet(w http.ResponseWriter, r *http.Request) {
	wallet := r.URL.Query().Get("wallet")
	if err := validate.IsWalletAddress("wallet", wallet); err != nil {
		writeValidation(w, err)
		return
	}

	refs, err := s.watchlists.Get(r.Context(), wallet)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "wallet is not registered")
	case err != nil:
		s.degraded("watchlist", wallet, err)
		writeError(w, http.StatusBadGateway, "ledger_unavailable", "watchlist is temporarily unavailable")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"watchlist": refs})
	}
}

func (s *Server) handleWatchlistMutation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Wallet  string `json:"wallet"`
		Action  string `json:"action"`
		Content string `json:"content"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.IsWalletAddress("wallet", req.Wallet); err != nil {
		writeValidation(w, err)
		return
	}

	tx, err := s.watchlists.BuildMutation(r.Context(), req.Wallet, req.Action, req.Content)
	if err != nil {
		var ve *validate.ValidationError
		switch {
		case errors.As(err, &ve):
			writeValidation(w, err)
		case errors.Is(err, registry.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "wallet is not registered")
		default:
			s.logger.Error("watchlist mutation build failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal", "operation failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// ── Reviews ───────────────────────────────────────────────────────────────────

func (s *Server) handleReviewsGet(w http.ResponseWriter, r *http.Request) {
	contentRef := r.URL.Query().Get("content_id")

	raw, err := s.reviews.Get(r.Context(), contentRef)
	if err != nil {
		var ve *validate.ValidationError
		switch {
		case errors.As(err, &ve):
			writeValidation(w, err)
		case errors.Is(err, reviews.ErrNotConfigured):
			writeError(w, http.StatusServiceUnavailable, "not_configured", "reviews are not available")
		default:
			s.degraded("reviews", "", err)
			writeError(w, http.StatusBadGateway, "ledger_unavailable", "reviews are temporarily unavailable")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": raw})
}

func (s *Server) handleReviewsMutation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Wallet  string `json:"wallet"`
		Content string `json:"content_id"`
		Text    string `json:"text"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.IsWalletAddress("wallet", req.Wallet); err != nil {
		writeValidation(w, err)
		return
	}

	tx, err := s.reviews.BuildMutation(r.Context(), req.Wallet, req.Content, req.Text)
	if err != nil {
		var ve *validate.ValidationError
		var me *validate.MultiError
		switch {
		case errors.As(err, &ve), errors.As(err, &me):
			writeValidation(w, err)
		case errors.Is(err, reviews.ErrNotConfigured):
			writeError(w, http.StatusServiceUnavailable, "not_configured", "reviews are not available")
		default:
			s.logger.Error("review mutation build failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal", "operation failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// ── Catalog ───────────────────────────────────────────────────────────────────

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "not_configured", "catalog is not available")
		return
	}

	section := chi.URLParam(r, "section")
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid_page", "page must be a positive integer")
			return
		}
		page = n
	}

	body, err := s.catalog.FetchPage(r.Context(), section, page)
	switch {
	case errors.Is(err, catalog.ErrUnknownSection):
		writeError(w, http.StatusNotFound, "not_found", "unknown catalog section")
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, "upstream_unavailable", "catalog is temporarily unavailable")
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// degraded records a failed ledger-backed read: warning log + metric.
func (s *Server) degraded(op, wallet string, err error) {
	metrics.LedgerDegradations.WithLabelValues(op).Inc()
	s.logger.Warn("ledger read degraded, failing closed",
		"op", op, "wallet", logging.RedactWallet(wallet), "error", err)
}

func writeValidation(w http.ResponseWriter, err error) {
	var ve *validate.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "validation", "fields": []validate.ValidationError{*ve}})
		return
	}
	var me *validate.MultiError
	if errors.As(err, &me) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "validation", "fields": me.Errors})
		return
	}
	writeError(w, http.StatusBadRequest, "validation", err.Error())
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a standard {error: code, message: msg} JSON error response.
func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": code, "message": msg})
}

// decodeJSON decodes the request body into v.
// Returns false and writes a 400 if decoding fails.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body is not valid JSON")
		return false
	}
	return true
}
