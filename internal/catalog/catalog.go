// Package catalog proxies the external content metadata API.
//
// The backend treats the metadata service as an opaque collaborator: it asks
// for a catalog page and relays the response. Responses are cached in-process
// for an hour — the catalog changes slowly and the upstream rate-limits
// aggressively. A failed refresh after retries yields ErrUnavailable, never a
// stale-forever page nor a panic into a handler.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/suistream/suistream/internal/retry"
)

// ErrUnavailable means the metadata service could not be reached and no
// cached copy exists.
var ErrUnavailable = errors.New("catalog: metadata service unavailable")

// ErrUnknownSection means the upstream does not know the requested section.
// Retrying cannot help.
var ErrUnknownSection = errors.New("catalog: unknown section")

const cacheTTL = time.Hour

// Fetcher is the catalog-page collaborator boundary.
type Fetcher interface {
	// FetchPage returns one page of the named catalog section ("popular",
	// "top_rated", ...) as raw JSON.
	FetchPage(ctx context.Context, section string, page int) (json.RawMessage, error)
}

// HTTPFetcher implements Fetcher against the metadata HTTP API with retries
// and an in-process cache.
type HTTPFetcher struct {
	baseURL string
	apiKey  string
	client  *http.Client
	policy  retry.Policy
	log     *logrus.Entry

	mu    sync.Mutex
	cache map[string]cachedPage
}

type cachedPage struct {
	body    json.RawMessage
	fetched time.Time
}

// NewHTTPFetcher creates a fetcher for the metadata API at baseURL.
func NewHTTPFetcher(baseURL, apiKey string, policy retry.Policy, log *logrus.Entry) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		policy:  policy,
		log:     log,
		cache:   make(map[string]cachedPage),
	}
}

// FetchPage returns the cached page when fresh, otherwise refreshes it from
// the upstream under the retry policy.
func (f *HTTPFetcher) FetchPage(ctx context.Context, section string, page int) (json.RawMessage, error) {
	if page < 1 {
		page = 1
	}
	key := section + "/" + strconv.Itoa(page)

	f.mu.Lock()
	if c, ok := f.cache[key]; ok && time.Since(c.fetched) < cacheTTL {
		f.mu.Unlock()
		return c.body, nil
	}
	f.mu.Unlock()

	var body json.RawMessage
	err := f.policy.Do(ctx, func() error {
		var ferr error
		body, ferr = f.fetch(ctx, section, page)
		return ferr
	})
	if err != nil {
		if errors.Is(err, ErrUnknownSection) {
			return nil, err
		}
		f.log.WithError(err).WithField("section", section).Warn("catalog fetch exhausted retries")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	f.mu.Lock()
	f.cache[key] = cachedPage{body: body, fetched: time.Now()}
	f.mu.Unlock()
	return body, nil
}

func (f *HTTPFetcher) fetch(ctx context.Context, section string, page int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	if f.apiKey != "" {
		q.Set("api_key", f.apiKey)
	}
	reqURL := f.baseURL + "/" + url.PathEscape(section) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &retry.Permanent{Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metadata request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return nil, fmt.Errorf("metadata read: %w", err)
		}
		if !json.Valid(body) {
			return nil, fmt.Errorf("metadata response is not valid JSON")
		}
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, &retry.Permanent{Err: fmt.Errorf("%w: %q", ErrUnknownSection, section)}
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		return nil, &retry.Permanent{Err: fmt.Errorf("metadata HTTP %d", resp.StatusCode)}
	default:
		return nil, fmt.Errorf("metadata HTTP %d", resp.StatusCode)
	}
}
