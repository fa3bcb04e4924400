// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieve

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/llm"
	"github.com/pdiddy/answer-engine/internal/search"
	"github.com/pdiddy/answer-engine/internal/stream"
	"github.com/pdiddy/answer-engine/pkg/types"
)

const answerPrompt = `You are an answer engine. Write a thorough, well-structured
answer to the question using the numbered context documents below. Cite
facts with bracketed source numbers like [1]. If the context does not
cover the question, say what is missing instead of guessing.

Context:
%s`

const directPrompt = `You are a helpful assistant. Answer the user directly from
the conversation; no external context is available or needed.`

// Chain runs the quick answer pipeline: analyze the query, gather
// documents from direct links or web search, rerank them, then stream a
// cited answer.
type Chain struct {
	llm      *llm.Chain
	searcher *search.Backend
	fetcher  *Fetcher
	reranker *Reranker
	opt      types.Optimization
	log      *zap.Logger
}

// NewChain assembles the quick pipeline.
func NewChain(chain *llm.Chain, searcher *search.Backend, fetcher *Fetcher, reranker *Reranker, opt types.Optimization, log *zap.Logger) *Chain {
	if log == nil {
		log = zap.NewNop()
	}
	return &Chain{llm: chain, searcher: searcher, fetcher: fetcher, reranker: reranker, opt: opt, log: log}
}

// Answer returns a stream.Pipeline for one question over the given history.
func (c *Chain) Answer(history []types.Message, query string) stream.Pipeline {
	return func(ctx context.Context, em *stream.Emitter) error {
		analysis, err := Analyze(ctx, c.llm, history, query)
		if err != nil {
			return err
		}

		if analysis.NotNeeded {
			em.Sources(nil)
			return c.streamAnswer(ctx, em, directPrompt, history, query)
		}

		docs, err := c.gather(ctx, em, analysis)
		if err != nil {
			return err
		}

		ranked, err := c.reranker.Rerank(ctx, analysis.Question, docs, c.opt)
		if err != nil {
			return err
		}
		em.Sources(ranked)

		return c.streamAnswer(ctx, em, fmt.Sprintf(answerPrompt, renderContext(ranked)), history, query)
	}
}

// gather collects candidate documents: summaries of user-supplied links, or
// otherwise snippets from a web search on the rewritten query.
func (c *Chain) gather(ctx context.Context, em *stream.Emitter, analysis Analysis) ([]types.Document, error) {
	if len(analysis.Links) > 0 {
		return c.fetcher.SummarizeLinks(ctx, c.llm, analysis.Links, analysis.Question)
	}

	em.Progress(types.ProgressEvent{
		ID: types.ProgressSearch, Label: "Searching the web", Status: types.StatusRunning,
	})
	resp := c.searcher.Search(ctx, analysis.Question)
	em.Progress(types.ProgressEvent{
		ID: types.ProgressSearch, Status: types.StatusComplete,
		Detail: fmt.Sprintf("%d results", len(resp.Results)),
	})
	if len(resp.Results) == 0 && resp.Err != "" {
		c.log.Warn("search yielded nothing", zap.String("err", resp.Err))
	}

	docs := make([]types.Document, 0, len(resp.Results))
	for _, r := range resp.Results {
		docs = append(docs, types.Document{
			PageContent: r.Content,
			Metadata:    types.DocumentMetadata{Title: r.Title, URL: r.URL},
		})
	}
	return docs, nil
}

// streamAnswer streams the model response chunk by chunk.
func (c *Chain) streamAnswer(ctx context.Context, em *stream.Emitter, system string, history []types.Message, query string) error {
	messages := make([]types.Message, 0, len(history)+2)
	messages = append(messages, types.Message{Role: "system", Content: system})
	messages = append(messages, history...)
	messages = append(messages, types.Message{Role: "user", Content: query})

	return c.llm.Stream(ctx, llm.Request{Messages: messages, Temperature: 0.7}, func(chunk string) error {
		em.Chunk(chunk)
		return nil
	})
}

// renderContext numbers the documents for citation.
func renderContext(docs []types.Document) string {
	if len(docs) == 0 {
		return "(no documents retrieved)"
	}
	var b strings.Builder
	for i, d := range docs {
		fmt.Fprintf(&b, "[%d] %s (%s)\n%s\n\n", i+1, d.Metadata.Title, d.Metadata.URL, d.PageContent)
	}
	return strings.TrimSpace(b.String())
}
