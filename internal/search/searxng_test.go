// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/answer-engine/pkg/types"
)

func TestSearxNG_Search(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "capital of France", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"results": [
				{"title": "Paris", "url": "https://en.wikipedia.org/wiki/Paris", "content": "Paris is the capital of France."},
				{"title": "France", "url": "https://en.wikipedia.org/wiki/France", "content": "France is a country."}
			],
			"suggestions": ["paris france", "capital cities"]
		}`))
	}))
	defer ts.Close()

	p := NewSearxNG(ts.URL, types.SearchConfig{})
	out, err := p.Search(context.Background(), "capital of France")
	require.NoError(t, err)

	require.Len(t, out.Results, 2)
	assert.Equal(t, "Paris", out.Results[0].Title)
	assert.Equal(t, []string{"paris france", "capital cities"}, out.Suggestions)
}

func TestSearxNG_RateLimited(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	p := NewSearxNG(ts.URL, types.SearchConfig{})
	_, err := p.Search(context.Background(), "q")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestSearxNG_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	p := NewSearxNG(ts.URL, types.SearchConfig{})
	_, err := p.Search(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSearxNG_MaxResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"results": [
			{"title": "a", "url": "https://a.example"},
			{"title": "b", "url": "https://b.example"},
			{"title": "c", "url": "https://c.example"}
		]}`))
	}))
	defer ts.Close()

	p := NewSearxNG(ts.URL, types.SearchConfig{MaxResults: 2})
	out, err := p.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, out.Results, 2)
}

func TestBrave_Search(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Subscription-Token"))
		w.Write([]byte(`{
			"query": {"altered": "capital of france"},
			"web": {"results": [
				{"title": "Paris", "url": "https://en.wikipedia.org/wiki/Paris", "description": "Capital of France."}
			]}
		}`))
	}))
	defer ts.Close()

	old := braveAPIBase
	braveAPIBase = ts.URL
	defer func() { braveAPIBase = old }()

	p := NewBrave("secret", types.SearchConfig{})
	out, err := p.Search(context.Background(), "Capital of France")
	require.NoError(t, err)

	require.Len(t, out.Results, 1)
	assert.Equal(t, "Capital of France.", out.Results[0].Content)
	assert.Equal(t, []string{"capital of france"}, out.Suggestions)
}

func TestBrave_MissingKey(t *testing.T) {
	p := NewBrave("", types.SearchConfig{})
	_, err := p.Search(context.Background(), "q")
	assert.Error(t, err)
}
