// file: internal/acoustid/client.go
// version: 1.3.0
// guid: 8d9e0f1a-2b3c-4d5e-6f7a-8b9c0d1e2f3a

// Package acoustid looks up Chromaprint fingerprints against the AcoustID
// web service and narrows the returned candidate recordings down to at most
// one confirmed match.
package acoustid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/tunevault/tunevault/internal/cache"
)

// DefaultBaseURL is the AcoustID lookup endpoint.
const DefaultBaseURL = "https://api.acoustid.org/v2/lookup"

// DefaultTimeout bounds one lookup request. An expired timeout is a normal
// failure, not fatal.
const DefaultTimeout = 30 * time.Second

// lookupMeta is the fixed meta set requested from the service.
const lookupMeta = "recordings releasegroups compress"

// lookupCacheTTL bounds how long a lookup result is reused before the
// service is asked again. Fingerprint matches change rarely, so an hour
// mostly spares the rate limiter within a single long scan.
const lookupCacheTTL = time.Hour

// Artist is one credited artist on a recording or release group.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ReleaseGroup is a MusicBrainz release group attached to a candidate
// recording.
type ReleaseGroup struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	PrimaryType    string   `json:"type"`
	SecondaryTypes []string `json:"secondarytypes"`
	Artists        []Artist `json:"artists"`
}

// Recording is one candidate recording inside a result group.
type Recording struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Duration      float64        `json:"duration"`
	Artists       []Artist       `json:"artists"`
	ReleaseGroups []ReleaseGroup `json:"releasegroups"`
}

// ResultGroup is one scored match from the lookup service, carrying zero or
// more candidate recordings.
type ResultGroup struct {
	ID         string      `json:"id"`
	Score      float64     `json:"score"`
	Recordings []Recording `json:"recordings"`
}

type lookupResponse struct {
	Status  string        `json:"status"`
	Results []ResultGroup `json:"results"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Lookuper is the remote-lookup collaborator contract.
type Lookuper interface {
	LookupByFingerprint(ctx context.Context, fingerprint string, duration float64) ([]ResultGroup, error)
}

// Client performs fingerprint lookups against the AcoustID API, rate limited
// to the service's 3 requests per second.
type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	limiter    *rate.Limiter
	results    *cache.Cache[[]ResultGroup]
}

// NewClient creates a lookup client with the default endpoint, timeout and
// rate limit.
func NewClient(apiKey string) *Client {
	return &Client{
		APIKey:     apiKey,
		BaseURL:    DefaultBaseURL,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(3), 1),
		results:    cache.New[[]ResultGroup](lookupCacheTTL),
	}
}

// LookupByFingerprint queries the service for fingerprint matches with
// recordings and release groups attached. Duration is truncated to whole
// seconds as the API requires. Results are cached per fingerprint so a
// collection holding the same recording under several paths only hits the
// service once.
func (c *Client) LookupByFingerprint(ctx context.Context, fingerprint string, duration float64) ([]ResultGroup, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("no AcoustID api key configured")
	}

	cacheKey := fingerprint + ":" + strconv.Itoa(int(duration))
	if c.results != nil {
		if groups, ok := c.results.Get(cacheKey); ok {
			log.Printf("[DEBUG] acoustid: cached result for fingerprint of %.0fs", duration)
			return groups, nil
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter interrupted: %w", err)
		}
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("client", c.APIKey)
	params.Set("fingerprint", fingerprint)
	params.Set("duration", strconv.Itoa(int(duration)))
	params.Set("meta", lookupMeta)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build lookup request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read lookup response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup returned HTTP %d: %s", resp.StatusCode, body)
	}

	var decoded lookupResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("unparseable lookup response: %w", err)
	}
	if decoded.Status != "ok" {
		return nil, fmt.Errorf("lookup rejected: %s", decoded.Error.Message)
	}

	if c.results != nil {
		c.results.Set(cacheKey, decoded.Results)
	}

	log.Printf("[DEBUG] acoustid: %d result group(s) for fingerprint of %.0fs", len(decoded.Results), duration)
	return decoded.Results, nil
}
