// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/crawler"
	"github.com/pdiddy/answer-engine/internal/llm"
	"github.com/pdiddy/answer-engine/internal/retrieve"
	"github.com/pdiddy/answer-engine/internal/sandbox"
	"github.com/pdiddy/answer-engine/internal/search"
	"github.com/pdiddy/answer-engine/internal/stream"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// Orchestrator composes discovery, sandboxed crawling, optional agent
// summarization, and report generation into one run. Every stage past
// discovery degrades rather than fails: a broken sandbox or corrupt crawl
// output drops the run back to search snippets, and the report is still
// generated.
type Orchestrator struct {
	searcher   *search.Backend
	llm        *llm.Chain
	rpc        sandbox.RPC
	summarizer *Summarizer
	cfg        types.ResearchConfig
	flavor     string
	userAgent  string
	log        *zap.Logger
}

// NewOrchestrator assembles a deep-research orchestrator. summarizer may
// be nil (agent stage disabled); rpc may be nil (sandbox disabled, runs
// degrade straight to snippets).
func NewOrchestrator(searcher *search.Backend, chain *llm.Chain, rpc sandbox.RPC, summarizer *Summarizer, cfg types.ResearchConfig, flavor, userAgent string, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		searcher:   searcher,
		llm:        chain,
		rpc:        rpc,
		summarizer: summarizer,
		cfg:        cfg,
		flavor:     flavor,
		userAgent:  userAgent,
		log:        log,
	}
}

// Run returns the event pipeline for one research question.
func (o *Orchestrator) Run(query string) stream.Pipeline {
	return func(ctx context.Context, em *stream.Emitter) error {
		runID := uuid.NewString()
		budget := ComputeBudget(o.cfg)
		log := o.log.With(zap.String("run", runID))
		log.Info("starting research run",
			zap.String("query", query),
			zap.String("mode", string(o.cfg.Mode)),
			zap.String("optimization", string(o.cfg.Optimization)))

		seeds := o.discover(ctx, em, query, budget)
		if len(seeds) == 0 {
			return fmt.Errorf("no sources found for %q", query)
		}

		sources := o.crawl(ctx, em, log, runID, query, seeds, budget)

		if o.summarizer != nil {
			em.Progress(types.ProgressEvent{
				ID: types.ProgressAnalysis, Label: "Summarizing sources", Status: types.StatusRunning,
			})
			sources = o.summarizer.Summarize(ctx, query, sources)
			em.Progress(types.ProgressEvent{ID: types.ProgressAnalysis, Status: types.StatusComplete})
		}

		docs := make([]types.Document, 0, len(sources))
		for _, s := range sources {
			docs = append(docs, s.Document())
		}
		em.Sources(docs)

		em.Progress(types.ProgressEvent{
			ID: types.ProgressFinalize, Label: "Writing report", Status: types.StatusRunning,
		})
		req := llm.Request{
			Messages: []types.Message{
				{Role: "system", Content: fmt.Sprintf(reportPrompt, renderSources(docs))},
				{Role: "user", Content: query},
			},
			Temperature: 0.7,
		}
		if err := o.llm.Stream(ctx, req, func(chunk string) error {
			em.Chunk(chunk)
			return nil
		}); err != nil {
			return fmt.Errorf("generating report: %w", err)
		}
		em.Progress(types.ProgressEvent{ID: types.ProgressFinalize, Status: types.StatusComplete})
		return nil
	}
}

// discover runs the primary query plus related searches, interleaves the
// two result streams two-to-one, deduplicates by normalized URL, and
// rank-limits to the source budget.
func (o *Orchestrator) discover(ctx context.Context, em *stream.Emitter, query string, budget Budget) []types.SearchResult {
	em.Progress(types.ProgressEvent{
		ID: types.ProgressSearch, Label: "Discovering sources", Status: types.StatusRunning,
	})

	primary := o.searcher.Search(ctx, query)

	var related []types.SearchResult
	for _, rq := range relatedQueries(query, primary.Suggestions, budget.RelatedQueries) {
		resp := o.searcher.Search(ctx, rq)
		related = append(related, resp.Results...)
	}

	merged := retrieve.Interleave(primary.Results, related, 2)
	if len(merged) > budget.Sources {
		merged = merged[:budget.Sources]
	}

	status := types.StatusComplete
	if len(merged) == 0 {
		status = types.StatusError
	}
	em.Progress(types.ProgressEvent{
		ID: types.ProgressSearch, Status: status,
		Detail: fmt.Sprintf("%d sources", len(merged)),
	})
	return merged
}

// crawl provisions a sandbox, runs the browser crawl, and returns the
// collected sources. Any failure degrades to snippet sources built from
// the discovery results; termination is attempted exactly once on every
// path, detached from the request context so a client disconnect cannot
// leak a sandbox.
func (o *Orchestrator) crawl(ctx context.Context, em *stream.Emitter, log *zap.Logger, runID, query string, seeds []types.SearchResult, budget Budget) []types.Source {
	if o.rpc == nil {
		return snippetSources(seeds)
	}

	manager := sandbox.NewManager(o.rpc, o.flavor, log)
	defer func() {
		em.Progress(types.ProgressEvent{
			ID: types.ProgressCleanup, Label: "Cleaning up", Status: types.StatusRunning,
		})
		if err := manager.Terminate(context.WithoutCancel(ctx)); err != nil {
			em.Progress(types.ProgressEvent{ID: types.ProgressCleanup, Status: types.StatusError, Detail: err.Error()})
		} else {
			em.Progress(types.ProgressEvent{ID: types.ProgressCleanup, Status: types.StatusComplete})
		}
	}()

	em.Progress(types.ProgressEvent{
		ID: types.ProgressSandbox, Label: "Provisioning sandbox", Status: types.StatusRunning,
	})
	session, err := manager.Provision(ctx)
	if err != nil {
		log.Warn("sandbox provisioning failed, degrading to snippets", zap.Error(err))
		em.Progress(types.ProgressEvent{ID: types.ProgressSandbox, Status: types.StatusError, Detail: "unavailable, using search snippets"})
		return snippetSources(seeds)
	}
	em.Progress(types.ProgressEvent{ID: types.ProgressSandbox, Status: types.StatusComplete})

	em.Progress(types.ProgressEvent{
		ID: types.ProgressBrowser, Label: "Preparing browser", Status: types.StatusRunning,
	})
	if err := manager.Setup(ctx); err != nil {
		log.Warn("browser setup failed, degrading to snippets", zap.Error(err))
		em.Progress(types.ProgressEvent{ID: types.ProgressBrowser, Status: types.StatusError, Detail: "unavailable, using search snippets"})
		return snippetSources(seeds)
	}
	em.Progress(types.ProgressEvent{ID: types.ProgressBrowser, Status: types.StatusComplete})
	manager.MarkCrawling()

	input := crawler.Input{
		RunID:        runID,
		Query:        query,
		Seeds:        crawlSeeds(seeds),
		MaxPages:     budget.MaxPages,
		MaxDepth:     budget.MaxDepth,
		PerHostCap:   budget.PerHostCap,
		LinksPerPage: budget.LinksPerPage,
		CharBudget:   budget.CharBudget,
		DurationMs:   budget.Duration.Milliseconds(),
		UserAgent:    o.userAgent,
	}

	em.Progress(types.ProgressEvent{
		ID: types.ProgressCrawl, Label: "Crawling sources", Status: types.StatusRunning,
	})
	out, err := crawler.NewRunner(o.rpc, log).Run(ctx, session, input, func(p crawler.Progress) {
		percent := 0
		if p.Total > 0 {
			percent = p.Done * 100 / p.Total
		}
		em.Progress(types.ProgressEvent{
			ID: types.ProgressCrawl, Status: types.StatusRunning,
			Detail:  fmt.Sprintf("%s (%d/%d)", p.Host, p.Done, p.Total),
			Percent: percent,
		})
	})
	if err != nil || out == nil || len(out.Sources) == 0 {
		log.Warn("crawl produced no usable output, degrading to snippets", zap.Error(err))
		em.Progress(types.ProgressEvent{ID: types.ProgressCrawl, Status: types.StatusError, Detail: "using search snippets"})
		return snippetSources(seeds)
	}
	em.Progress(types.ProgressEvent{
		ID: types.ProgressCrawl, Status: types.StatusComplete,
		Detail: fmt.Sprintf("%d pages", len(out.Sources)), Percent: 100,
	})
	return out.Sources
}

// snippetSources synthesizes fallback sources from discovery snippets.
func snippetSources(seeds []types.SearchResult) []types.Source {
	out := make([]types.Source, 0, len(seeds))
	for _, s := range seeds {
		out = append(out, types.Source{
			Title:       s.Title,
			URL:         s.URL,
			Content:     s.Content,
			Description: s.Content,
			Status:      types.SourceFallback,
		})
	}
	return out
}

func crawlSeeds(results []types.SearchResult) []crawler.Seed {
	out := make([]crawler.Seed, 0, len(results))
	for _, r := range results {
		out = append(out, crawler.Seed{Title: r.Title, URL: r.URL})
	}
	return out
}
