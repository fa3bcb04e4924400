// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm talks to chat-completion style inference APIs. It provides a
// single OpenAI-compatible client, a retryable-error classifier, an ordered
// candidate fallback chain, and an embeddings client.
package llm

import (
	"context"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// Request is one generation request.
type Request struct {
	Messages    []types.Message
	Temperature float64
	MaxTokens   int
}

// Generator produces completions. Implemented by Client; tests supply
// scripted fakes.
type Generator interface {
	// Complete returns the full completion text in one call.
	Complete(ctx context.Context, req Request) (string, error)

	// Stream invokes emit for each incremental text chunk. A non-nil error
	// from emit aborts the stream and is returned unchanged.
	Stream(ctx context.Context, req Request, emit func(chunk string) error) error
}

// Candidate pairs a name with a configured model handle. Candidates are
// immutable per request; index 0 of a chain is primary.
type Candidate struct {
	Name      string
	Generator Generator
}

// Embedder produces embedding vectors for a batch of texts.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}
