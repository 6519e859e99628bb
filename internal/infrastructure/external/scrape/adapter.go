// Package scrape implements the Upstream Scrape Adapter (C3): a
// platform-parameterized invocation of the external follower-extraction
// actor, with the retry/backoff policy spec.md §4.3 describes.
//
// Grounded on the original's single-platform utils/scraper.py
// (scrape_followers) generalized to four platforms, and on the teacher's
// per-tenant provider-factory pattern
// (infrastructure/external/gemini/factory.go: ProviderFactory.GetProvider)
// generalized from "one client per tenant" to "one adapter per platform".
package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/entity"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/service"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/valueobject"
)

// maxAttempts and the backoff schedule (2^attempt seconds) mirror spec.md
// §4.3's retry policy: still retry on non-rate-limit errors, propagate the
// last error once the budget is exhausted.
const maxAttempts = 3

// platformAdapter is the per-platform seam: each upstream actor expects a
// different request shape and returns a different item shape, but the
// retry/backoff/normalization wrapper around it is shared.
type platformAdapter interface {
	actorID() string
	buildInput(accounts []string, maxPerAccount int) map[string]any
	normalize(item map[string]any) (*entity.CanonicalProfile, bool)
}

// Adapter implements service.ScrapeAdapter against an Apify-shaped actor
// API: POST /v2/acts/{actorId}/run-sync-get-dataset-items.
type Adapter struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     service.Logger
	platforms  map[valueobject.Platform]platformAdapter
}

// NewAdapter builds an Adapter with one registered platformAdapter per
// supported platform, keyed off per-platform actor ids (the
// {PLATFORM}_APIFY_ACTOR_ID environment variables in the original).
func NewAdapter(httpClient *http.Client, baseURL, apiKey string, actorIDs map[valueobject.Platform]string, logger service.Logger) *Adapter {
	return &Adapter{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		logger:     logger,
		platforms: map[valueobject.Platform]platformAdapter{
			valueobject.PlatformInstagram: &instagramAdapter{actor: actorIDs[valueobject.PlatformInstagram]},
			valueobject.PlatformThreads:   &threadsAdapter{actor: actorIDs[valueobject.PlatformThreads]},
			valueobject.PlatformTikTok:    &tiktokAdapter{actor: actorIDs[valueobject.PlatformTikTok]},
			valueobject.PlatformX:         &xAdapter{actor: actorIDs[valueobject.PlatformX]},
		},
	}
}

// Scrape dispatches to the platform's adapter and retries transient
// failures with exponential backoff, per spec.md §4.3.
func (a *Adapter) Scrape(ctx context.Context, platform valueobject.Platform, accounts []string, maxPerAccount int) (map[string]*entity.CanonicalProfile, error) {
	pa, ok := a.platforms[platform]
	if !ok {
		return nil, fmt.Errorf("unsupported platform %q: no actor configured", platform)
	}
	if pa.actorID() == "" {
		return nil, fmt.Errorf("no actor id configured for platform %q", platform)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			a.logger.Warn("retrying scrape", "platform", platform, "attempt", attempt+1, "backoff", backoff, "error", lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		items, err := a.runActor(ctx, pa, accounts, maxPerAccount)
		if err != nil {
			lastErr = err
			continue
		}

		profiles := make(map[string]*entity.CanonicalProfile, len(items))
		for _, item := range items {
			profile, ok := pa.normalize(item)
			if !ok || profile.Username == "" {
				continue
			}
			profiles[profile.Username] = profile
		}
		return profiles, nil
	}
	return nil, fmt.Errorf("scrape failed for platform %q after %d attempts: %w", platform, maxAttempts, lastErr)
}

func (a *Adapter) runActor(ctx context.Context, pa platformAdapter, accounts []string, maxPerAccount int) ([]map[string]any, error) {
	payload, err := json.Marshal(pa.buildInput(accounts, maxPerAccount))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal actor input: %w", err)
	}

	url := fmt.Sprintf("%s/v2/acts/%s/run-sync-get-dataset-items?token=%s", a.baseURL, pa.actorID(), a.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build actor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transient: failed to call scrape actor: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("rate limit: actor returned 429: %s", string(body))
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("transient: actor returned status %d: %s", resp.StatusCode, string(body))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("actor returned status %d: %s", resp.StatusCode, string(body))
	}

	var items []map[string]any
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("failed to parse actor dataset: %w", err)
	}
	return items, nil
}

// toInt coerces a decoded JSON numeric field (float64 after
// encoding/json's default unmarshal) to an int, defaulting to zero for
// missing or unexpected types rather than failing the whole row.
func toInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case string:
		var i int
		fmt.Sscanf(n, "%d", &i)
		return i
	default:
		return 0
	}
}

// firstInt returns the first populated field among keys, coerced to int;
// upstream actors disagree on field names across versions.
func firstInt(item map[string]any, keys ...string) int {
	for _, k := range keys {
		if v, ok := item[k]; ok {
			return toInt(v)
		}
	}
	return 0
}

// firstString returns the first populated string field among keys.
func firstString(item map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := item[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

var _ service.ScrapeAdapter = (*Adapter)(nil)
