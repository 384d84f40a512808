// Package scrape resolves a playable watch URL from a content source page.
//
// The source site is an opaque collaborator: the backend fetches the page and
// extracts the first embedded stream reference. Markup drifts are expected —
// extraction failure is a typed error the gateway reports cleanly, never a
// panic into a handler.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/suistream/suistream/internal/middleware"
	"github.com/suistream/suistream/internal/retry"
)

// ErrUnavailable means the source site could not be reached after retries.
var ErrUnavailable = errors.New("scrape: source site unavailable")

// ErrNoStream means the page loaded but no stream reference was found —
// usually a markup change or a removed title.
var ErrNoStream = errors.New("scrape: no stream URL found on page")

// ErrForbiddenSource means the source URL points at a private or internal
// host. Source URLs come from request bodies, so this is the SSRF boundary.
var ErrForbiddenSource = errors.New("scrape: source host is not allowed")

// Resolver is the watch-URL collaborator boundary.
type Resolver interface {
	// ResolveWatchURL returns the playable stream URL embedded in the page
	// at sourceURL.
	ResolveWatchURL(ctx context.Context, sourceURL string) (string, error)
}

// HTTPResolver implements Resolver by fetching and scanning the source page.
type HTTPResolver struct {
	client *http.Client
	policy retry.Policy
	log    *logrus.Entry

	// isPrivateHost rejects source URLs before any fetch. Overridable so
	// tests can point the resolver at loopback servers.
	isPrivateHost func(string) bool
}

// NewHTTPResolver creates a resolver with the uniform retry policy.
func NewHTTPResolver(policy retry.Policy, log *logrus.Entry) *HTTPResolver {
	return &HTTPResolver{
		client:        &http.Client{Timeout: 15 * time.Second},
		policy:        policy,
		log:           log,
		isPrivateHost: middleware.IsPrivateHost,
	}
}

// Stream references in rough preference order: HLS manifests first, then
// bare video files, then embedded player iframes.
var streamPatterns = []*regexp.Regexp{
	regexp.MustCompile(`https?://[^\s"'<>]+\.m3u8[^\s"'<>]*`),
	regexp.MustCompile(`https?://[^\s"'<>]+\.(?:mp4|webm)[^\s"'<>]*`),
	regexp.MustCompile(`<iframe[^>]+src=["']([^"']+)["']`),
}

// ResolveWatchURL fetches sourceURL under the retry policy and extracts the
// first stream reference.
func (r *HTTPResolver) ResolveWatchURL(ctx context.Context, sourceURL string) (string, error) {
	if r.isPrivateHost != nil && r.isPrivateHost(sourceURL) {
		r.log.WithField("source", sourceURL).Warn("rejected private source host")
		return "", ErrForbiddenSource
	}

	var page []byte
	err := r.policy.Do(ctx, func() error {
		var ferr error
		page, ferr = r.fetch(ctx, sourceURL)
		return ferr
	})
	if err != nil {
		if errors.Is(err, ErrNoStream) {
			return "", err
		}
		r.log.WithError(err).WithField("source", sourceURL).Warn("watch-url fetch exhausted retries")
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	url, ok := extractStreamURL(page)
	if !ok {
		r.log.WithField("source", sourceURL).Warn("no stream reference on source page")
		return "", ErrNoStream
	}
	return url, nil
}

func (r *HTTPResolver) fetch(ctx context.Context, sourceURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, &retry.Permanent{Err: err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; suistream/1.0)")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	case resp.StatusCode == http.StatusNotFound:
		return nil, &retry.Permanent{Err: fmt.Errorf("%w: source page gone", ErrNoStream)}
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		return nil, &retry.Permanent{Err: fmt.Errorf("source HTTP %d", resp.StatusCode)}
	default:
		return nil, fmt.Errorf("source HTTP %d", resp.StatusCode)
	}
}

// extractStreamURL scans the page for the first matching stream reference.
func extractStreamURL(page []byte) (string, bool) {
	for i, re := range streamPatterns {
		m := re.FindSubmatch(page)
		if m == nil {
			continue
		}
		// The iframe pattern captures the src attribute; the URL patterns
		// match whole.
		if i == len(streamPatterns)-1 {
			return string(m[1]), true
		}
		return string(m[0]), true
	}
	return "", false
}
