// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/llm"
	"github.com/pdiddy/answer-engine/pkg/types"
)

const agentPrompt = `You are a research assistant condensing one crawled page.
Summarize the page text below into the facts relevant to the research
question, preserving figures, dates, and named entities. Reply with the
summary only.`

// Summarizer condenses crawled sources through a dedicated agent model.
// It is optional: when no agent endpoint is configured the orchestrator
// skips this stage and uses raw crawled content.
type Summarizer struct {
	gen llm.Generator
	log *zap.Logger
}

// NewSummarizer returns nil when the agent endpoint is not configured;
// callers treat a nil Summarizer as "stage disabled".
func NewSummarizer(cfg types.AgentConfig, log *zap.Logger) *Summarizer {
	if cfg.BaseURL == "" || cfg.Model == "" {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	client := llm.NewClient(types.CandidateConfig{
		Name:    "agent",
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
	})
	return &Summarizer{gen: client, log: log}
}

// Summarize condenses each successful source in place. A failed summary
// leaves the raw content untouched; this stage degrades per-source and
// never fails the run.
func (s *Summarizer) Summarize(ctx context.Context, query string, sources []types.Source) []types.Source {
	out := make([]types.Source, len(sources))
	copy(out, sources)

	for i := range out {
		if out[i].Status != types.SourceOK || out[i].Content == "" {
			continue
		}
		summary, err := s.gen.Complete(ctx, llm.Request{
			Messages: []types.Message{
				{Role: "system", Content: agentPrompt},
				{Role: "user", Content: fmt.Sprintf("Question: %s\n\nPage text:\n%s", query, out[i].Content)},
			},
			Temperature: 0,
		})
		if err != nil || summary == "" {
			s.log.Warn("agent summary failed, keeping raw content",
				zap.String("url", out[i].URL), zap.Error(err))
			continue
		}
		out[i].Content = summary
	}
	return out
}
