// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieve implements the quick-mode retrieval chain: query
// analysis, direct-link summarization, web search, and similarity
// reranking.
package retrieve

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/answer-engine/internal/llm"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// NotNeededSentinel is returned by the analysis model when the question
// can be answered without a web search (greetings, pure writing tasks).
const NotNeededSentinel = "not_needed"

// SummarizeSentinel marks a rewritten query that asks for a plain summary
// of supplied links; reranking is skipped for it.
const SummarizeSentinel = "summarize"

// Analysis is the outcome of query analysis: either no search is needed,
// explicit links plus a rewritten question, or a standalone search query.
type Analysis struct {
	NotNeeded bool
	Links     []string
	Question  string
}

const analyzePrompt = `You are a query rewriter for a web-augmented answer engine.
Given a conversation and a follow-up question, do one of the following:

1. If the follow-up is a greeting or a pure writing task that needs no web
   search, reply with exactly: not_needed
2. If the user is asking about specific URLs or asking to summarize a page,
   reply with the links inside a <links> block (one per line) and the
   question inside a <question> block. If the user just wants a summary,
   use the word summarize as the question.
3. Otherwise reply with a single standalone search query capturing the
   follow-up, and nothing else.`

// Analyze invokes the model at temperature zero over the conversation
// history and parses its rewrite decision.
func Analyze(ctx context.Context, chain *llm.Chain, history []types.Message, query string) (Analysis, error) {
	messages := make([]types.Message, 0, len(history)+2)
	messages = append(messages, types.Message{Role: "system", Content: analyzePrompt})
	messages = append(messages, history...)
	messages = append(messages, types.Message{Role: "user", Content: query})

	raw, err := chain.Complete(ctx, llm.Request{Messages: messages, Temperature: 0})
	if err != nil {
		return Analysis{}, fmt.Errorf("query analysis: %w", err)
	}
	return ParseAnalysis(raw), nil
}

// ParseAnalysis interprets the raw model response.
func ParseAnalysis(raw string) Analysis {
	trimmed := strings.TrimSpace(raw)
	if strings.EqualFold(trimmed, NotNeededSentinel) {
		return Analysis{NotNeeded: true}
	}

	links := extractBlock(trimmed, "links")
	if links != "" {
		var urls []string
		for _, line := range strings.Split(links, "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				urls = append(urls, line)
			}
		}
		question := strings.TrimSpace(extractBlock(trimmed, "question"))
		if question == "" {
			question = SummarizeSentinel
		}
		return Analysis{Links: urls, Question: question}
	}

	return Analysis{Question: trimmed}
}

// extractBlock returns the inner text of <tag>...</tag>, or "".
func extractBlock(s, tag string) string {
	open, close := "<"+tag+">", "</"+tag+">"
	start := strings.Index(s, open)
	if start < 0 {
		return ""
	}
	rest := s[start+len(open):]
	end := strings.Index(rest, close)
	if end < 0 {
		return ""
	}
	return rest[:end]
}
