// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries web-search providers and returns unified,
// deduplicated results. A primary provider is tried first; on failure or an
// empty result set, control passes to a fallback provider. Each provider
// implements the Provider interface per the Strategy pattern.
package search

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// ErrRateLimited marks a provider response of HTTP 429. A rate-limited
// provider is never retried within the same call; control passes straight
// to the fallback.
var ErrRateLimited = errors.New("provider rate limited")

// Provider searches a single web-search API.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) (ProviderResponse, error)
}

// ProviderResponse holds one provider's raw results and query suggestions.
type ProviderResponse struct {
	Results     []types.SearchResult
	Suggestions []string
}

// Response is the unified search output. Search never returns a Go error;
// when every provider fails, Results is empty and Err carries the last
// provider error message.
type Response struct {
	Results     []types.SearchResult
	Suggestions []string
	Err         string
}

// Backend unifies two interchangeable providers behind one call with
// automatic fallback.
type Backend struct {
	primary  Provider
	fallback Provider
	log      *zap.Logger
}

// NewBackend builds a Backend. fallback may be nil when only one provider
// is configured.
func NewBackend(primary, fallback Provider, log *zap.Logger) *Backend {
	if log == nil {
		log = zap.NewNop()
	}
	return &Backend{primary: primary, fallback: fallback, log: log}
}

// Search tries the primary provider, falling back to the secondary when the
// primary errors or returns zero results. Suggestions from every provider
// actually called are unioned and deduplicated. Results are deduplicated by
// normalized URL, preserving first-seen order.
func (b *Backend) Search(ctx context.Context, query string) Response {
	var out Response

	primary, primaryErr := b.primary.Search(ctx, query)
	out.Suggestions = unionSuggestions(out.Suggestions, primary.Suggestions)
	if primaryErr != nil {
		b.log.Warn("primary search provider failed",
			zap.String("provider", b.primary.Name()), zap.Error(primaryErr))
		out.Err = fmt.Sprintf("%s: %v", b.primary.Name(), primaryErr)
	}

	if primaryErr == nil && len(primary.Results) > 0 {
		out.Results = dedupeResults(primary.Results)
		return out
	}

	if b.fallback == nil {
		return out
	}

	secondary, secondaryErr := b.fallback.Search(ctx, query)
	out.Suggestions = unionSuggestions(out.Suggestions, secondary.Suggestions)
	if secondaryErr != nil {
		b.log.Warn("fallback search provider failed",
			zap.String("provider", b.fallback.Name()), zap.Error(secondaryErr))
		if out.Err == "" {
			out.Err = fmt.Sprintf("%s: %v", b.fallback.Name(), secondaryErr)
		}
		return out
	}

	out.Results = dedupeResults(secondary.Results)
	if len(out.Results) > 0 {
		out.Err = ""
	}
	return out
}

// dedupeResults drops results sharing a normalized URL, keeping the first.
func dedupeResults(results []types.SearchResult) []types.SearchResult {
	seen := make(map[string]bool, len(results))
	var deduped []types.SearchResult
	for _, r := range results {
		key := types.NormalizeURL(r.URL)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, r)
	}
	return deduped
}

// unionSuggestions appends suggestions not already present, preserving order.
func unionSuggestions(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, s := range existing {
		seen[s] = true
	}
	for _, s := range incoming {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		existing = append(existing, s)
	}
	return existing
}
