// handlers.go — Admin endpoint handlers. Failure responses are generic:
// ledger and storage internals never leak into an HTTP body.
package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/suistream/suistream/internal/auth"
	"github.com/suistream/suistream/internal/ledger"
	"github.com/suistream/suistream/internal/metrics"
	"github.com/suistream/suistream/internal/ratelimit"
	"github.com/suistream/suistream/internal/registry"
	"github.com/suistream/suistream/internal/validate"
)

// ── Session ───────────────────────────────────────────────────────────────────

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ip := ratelimit.ClientIP(r)
	if ok, retry := s.limiter.CheckLogin(r.Context(), ip); !ok {
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		writeError(w, http.StatusTooManyRequests, "rate_limited", "too many login attempts")
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if !auth.CheckCredentials(req.Username, req.Password, s.adminUser, s.adminPassHash) {
		metrics.AdminEvents.WithLabelValues("login", "failed").Inc()
		s.logger.Warn("admin login failed", "ip", ip)
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
		return
	}

	token, err := auth.GenerateSessionToken(s.jwtSecret, req.Username)
	if err != nil {
		s.logger.Error("session token generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "login failed")
		return
	}

	s.limiter.ResetLogin(r.Context(), ip)
	metrics.AdminEvents.WithLabelValues("login", "ok").Inc()
	auth.SetSessionCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ── Registry ──────────────────────────────────────────────────────────────────

func (s *Server) handleListRegistry(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.List(r.Context())
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	reviews, err := s.svc.store.ReviewsHandle(r.Context())
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"users":         users,
		"reviewsHandle": reviews,
	})
}

func (s *Server) handleOnboard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Wallet string `json:"wallet"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := s.svc.Onboard(r.Context(), auth.AdminFromContext(r.Context()), req.Wallet)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var entry registry.Entry
	if !decodeJSON(w, r, &entry) {
		return
	}

	if err := s.svc.Update(r.Context(), auth.AdminFromContext(r.Context()), entry); err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	wallet := chi.URLParam(r, "wallet")
	if err := s.svc.Remove(r.Context(), auth.AdminFromContext(r.Context()), wallet); err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// ── Audit & reviews ───────────────────────────────────────────────────────────

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := s.svc.AuditEntries(r.Context(), limit)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleSetReviews(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Handle string `json:"handle"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.svc.SetReviews(r.Context(), auth.AdminFromContext(r.Context()), req.Handle); err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "reviewsHandle": req.Handle})
}

// ── Error mapping ─────────────────────────────────────────────────────────────

// serviceError maps service-layer errors onto HTTP statuses. Bodies stay
// generic; the detail goes to the log.
func (s *Server) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *validate.ValidationError
	var me *validate.MultiError

	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "validation", "fields": []validate.ValidationError{*ve}})
	case errors.As(err, &me):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "validation", "fields": me.Errors})
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "wallet is not registered")
	case errors.Is(err, registry.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already_exists", "wallet is already registered")
	case errors.Is(err, registry.ErrReviewsAlreadySet):
		writeError(w, http.StatusConflict, "already_set", "reviews handle is already set")
	case errors.Is(err, ErrInconsistent):
		s.logger.Error("admin operation inconsistent", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "operation failed, contact the operator")
	case errors.Is(err, ledger.ErrUnavailable), errors.Is(err, ledger.ErrRejected):
		s.logger.Error("admin operation ledger failure", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadGateway, "ledger_error", "ledger operation failed")
	default:
		s.logger.Error("admin operation failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "operation failed")
	}
}

// ── Response helpers ──────────────────────────────────────────────────────────

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
