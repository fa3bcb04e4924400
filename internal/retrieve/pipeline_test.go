// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/answer-engine/internal/llm"
	"github.com/pdiddy/answer-engine/internal/search"
	"github.com/pdiddy/answer-engine/internal/stream"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// queueGenerator pops one scripted completion per Complete call and streams
// fixed chunks for Stream calls.
type queueGenerator struct {
	completions []string
	chunks      []string
	streamed    []llm.Request
}

func (g *queueGenerator) Complete(ctx context.Context, req llm.Request) (string, error) {
	if len(g.completions) == 0 {
		return "", assert.AnError
	}
	out := g.completions[0]
	g.completions = g.completions[1:]
	return out, nil
}

func (g *queueGenerator) Stream(ctx context.Context, req llm.Request, emit func(string) error) error {
	g.streamed = append(g.streamed, req)
	for _, c := range g.chunks {
		if err := emit(c); err != nil {
			return err
		}
	}
	return nil
}

// staticProvider returns the same results every call.
type staticProvider struct {
	name    string
	results []types.SearchResult
}

func (p staticProvider) Name() string { return p.name }
func (p staticProvider) Search(ctx context.Context, query string) (search.ProviderResponse, error) {
	return search.ProviderResponse{Results: p.results}, nil
}

func collect(t *testing.T, p stream.Pipeline) []stream.Event {
	t.Helper()
	var events []stream.Event
	for ev := range stream.Run(context.Background(), p) {
		events = append(events, ev)
	}
	return events
}

func newTestChain(gen llm.Generator, provider search.Provider, emb llm.Embedder) *Chain {
	chain, _ := llm.NewChain([]llm.Candidate{{Name: "q", Generator: gen}}, nil)
	backend := search.NewBackend(provider, nil, nil)
	return NewChain(chain, backend, NewFetcher(""), NewReranker(emb, types.RerankConfig{}), types.OptSpeed, nil)
}

func TestAnswer_SearchPathOrdering(t *testing.T) {
	gen := &queueGenerator{
		completions: []string{"rewritten query"},
		chunks:      []string{"Solar ", "is growing."},
	}
	provider := staticProvider{name: "static", results: []types.SearchResult{
		{Title: "A", URL: "https://a.example", Content: "snippet a"},
		{Title: "B", URL: "https://b.example", Content: "snippet b"},
	}}

	c := newTestChain(gen, provider, &fakeEmbedder{})
	events := collect(t, c.Answer(nil, "tell me about solar"))

	require.NotEmpty(t, events)
	assert.Equal(t, stream.EventDone, events[len(events)-1].Type)

	var sourcesAt, firstChunkAt = -1, -1
	var chunks string
	for i, ev := range events {
		switch ev.Type {
		case stream.EventSources:
			sourcesAt = i
			assert.Len(t, ev.Sources, 2)
		case stream.EventResponse:
			if firstChunkAt < 0 {
				firstChunkAt = i
			}
			chunks += ev.Chunk
		}
	}
	require.GreaterOrEqual(t, sourcesAt, 0)
	require.GreaterOrEqual(t, firstChunkAt, 0)
	assert.Less(t, sourcesAt, firstChunkAt, "sources must precede the first chunk")
	assert.Equal(t, "Solar is growing.", chunks)

	// The streamed request carries the numbered context and the original question.
	require.Len(t, gen.streamed, 1)
	system := gen.streamed[0].Messages[0].Content
	assert.Contains(t, system, "[1] A (https://a.example)")
	assert.Contains(t, system, "snippet b")
}

func TestAnswer_NotNeededSkipsSearch(t *testing.T) {
	gen := &queueGenerator{
		completions: []string{"not_needed"},
		chunks:      []string{"Hello!"},
	}
	provider := staticProvider{name: "static"}

	c := newTestChain(gen, provider, &fakeEmbedder{})
	events := collect(t, c.Answer(nil, "hi there"))

	var sawSources bool
	for _, ev := range events {
		if ev.Type == stream.EventSources {
			sawSources = true
			assert.Empty(t, ev.Sources)
		}
		assert.NotEqual(t, stream.EventProgress, ev.Type, "no search, no search progress")
	}
	assert.True(t, sawSources, "an empty sources event still precedes chunks")
	assert.Equal(t, stream.EventDone, events[len(events)-1].Type)
}

func TestAnswer_AnalysisFailureIsTerminalError(t *testing.T) {
	gen := &failingGenerator{}
	c := newTestChain(gen, staticProvider{name: "static"}, &fakeEmbedder{})

	events := collect(t, c.Answer(nil, "anything"))
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, stream.EventError, last.Type)
	assert.Contains(t, last.Err, "query analysis")
}

type failingGenerator struct{}

func (failingGenerator) Complete(ctx context.Context, req llm.Request) (string, error) {
	return "", assert.AnError
}

func (failingGenerator) Stream(ctx context.Context, req llm.Request, emit func(string) error) error {
	return assert.AnError
}
