// sentry_test.go — Panic recovery and event scrubbing tests.
package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	sentry "github.com/getsentry/sentry-go"
)

func TestPanicRecoveryMiddleware(t *testing.T) {
	panics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("handler blew up")
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/entitlement/watch", nil)

	// Must not re-panic, even without an initialized Sentry client.
	PanicRecoveryMiddleware()(panics).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestPanicRecoveryMiddleware_PassThrough(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	PanicRecoveryMiddleware()(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}

func TestScrubSensitive(t *testing.T) {
	event := &sentry.Event{
		User: sentry.User{IPAddress: "203.0.113.9"},
		Request: &sentry.Request{
			Headers: map[string]string{
				"Authorization": "Bearer abc",
				"Cookie":        "admin_session=xyz",
				"Accept":        "application/json",
			},
		},
	}

	got := scrubSensitive(event)
	if got.User.IPAddress != "" {
		t.Error("client IP must be scrubbed")
	}
	if got.Request.Headers["Authorization"] != "[redacted]" {
		t.Error("Authorization header must be redacted")
	}
	if got.Request.Headers["Cookie"] != "[redacted]" {
		t.Error("Cookie header must be redacted")
	}
	if got.Request.Headers["Accept"] != "application/json" {
		t.Error("benign headers must survive scrubbing")
	}

	if scrubSensitive(nil) != nil {
		t.Error("nil event must pass through")
	}
}
