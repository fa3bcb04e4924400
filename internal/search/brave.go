// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// braveAPIBase is the Brave web search endpoint. Declared as a var so tests
// can substitute an httptest server.
var braveAPIBase = "https://api.search.brave.com/res/v1/web/search"

// BraveProvider queries the Brave Search API. An API key is required via
// the X-Subscription-Token header.
type BraveProvider struct {
	APIKey     string
	Client     *http.Client
	MaxResults int
}

// NewBrave constructs the fallback Brave provider.
func NewBrave(apiKey string, cfg types.SearchConfig) *BraveProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &BraveProvider{
		APIKey:     apiKey,
		Client:     &http.Client{Timeout: timeout},
		MaxResults: cfg.MaxResults,
	}
}

// Name returns the provider identifier.
func (p *BraveProvider) Name() string { return "brave" }

// Search issues a web search against the Brave API.
func (p *BraveProvider) Search(ctx context.Context, query string) (ProviderResponse, error) {
	if p.APIKey == "" {
		return ProviderResponse{}, fmt.Errorf("brave API key not configured")
	}

	params := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, braveAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return ProviderResponse{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", p.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return ProviderResponse{}, fmt.Errorf("brave request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return ProviderResponse{}, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return ProviderResponse{}, fmt.Errorf("brave returned HTTP %d", resp.StatusCode)
	}

	var br braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return ProviderResponse{}, fmt.Errorf("parsing brave response: %w", err)
	}

	max := p.MaxResults
	if max <= 0 {
		max = 20
	}

	var out ProviderResponse
	for _, r := range br.Web.Results {
		if r.URL == "" {
			continue
		}
		out.Results = append(out.Results, types.SearchResult{
			Title:     r.Title,
			URL:       r.URL,
			Content:   r.Description,
			Thumbnail: r.Thumbnail.Src,
		})
		if len(out.Results) >= max {
			break
		}
	}
	if br.Query.Altered != "" {
		out.Suggestions = append(out.Suggestions, br.Query.Altered)
	}
	return out, nil
}

// Brave API JSON structures.
type braveResponse struct {
	Query struct {
		Altered string `json:"altered"`
	} `json:"query"`
	Web struct {
		Results []braveResult `json:"results"`
	} `json:"web"`
}

type braveResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Thumbnail   struct {
		Src string `json:"src"`
	} `json:"thumbnail"`
}
