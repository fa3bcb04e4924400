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

// SearxNGProvider queries a SearxNG instance's JSON API.
type SearxNGProvider struct {
	// BaseURL is the instance root (e.g. "http://localhost:8080").
	BaseURL string

	Client     *http.Client
	UserAgent  string
	MaxResults int
}

// NewSearxNG constructs the primary SearxNG provider.
func NewSearxNG(baseURL string, cfg types.SearchConfig) *SearxNGProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SearxNGProvider{
		BaseURL:    baseURL,
		Client:     &http.Client{Timeout: timeout},
		UserAgent:  cfg.UserAgent,
		MaxResults: cfg.MaxResults,
	}
}

// Name returns the provider identifier.
func (p *SearxNGProvider) Name() string { return "searxng" }

// Search issues a format=json query against the instance.
func (p *SearxNGProvider) Search(ctx context.Context, query string) (ProviderResponse, error) {
	if p.BaseURL == "" {
		return ProviderResponse{}, fmt.Errorf("searxng base URL not configured")
	}

	params := url.Values{
		"q":      {query},
		"format": {"json"},
	}
	reqURL := p.BaseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return ProviderResponse{}, fmt.Errorf("creating request: %w", err)
	}
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return ProviderResponse{}, fmt.Errorf("searxng request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return ProviderResponse{}, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return ProviderResponse{}, fmt.Errorf("searxng returned HTTP %d", resp.StatusCode)
	}

	var sr searxngResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return ProviderResponse{}, fmt.Errorf("parsing searxng response: %w", err)
	}

	max := p.MaxResults
	if max <= 0 {
		max = 20
	}

	var out ProviderResponse
	for _, r := range sr.Results {
		if r.URL == "" {
			continue
		}
		out.Results = append(out.Results, types.SearchResult{
			Title:     r.Title,
			URL:       r.URL,
			Content:   r.Content,
			Thumbnail: r.Thumbnail,
		})
		if len(out.Results) >= max {
			break
		}
	}
	out.Suggestions = sr.Suggestions
	return out, nil
}

// SearxNG JSON structures.
type searxngResponse struct {
	Results     []searxngResult `json:"results"`
	Suggestions []string        `json:"suggestions"`
}

type searxngResult struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Content   string `json:"content"`
	Thumbnail string `json:"thumbnail"`
}
