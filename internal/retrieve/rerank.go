// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieve

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/pdiddy/answer-engine/internal/llm"
	"github.com/pdiddy/answer-engine/pkg/types"
)

const (
	defaultSimilarityThreshold = 0.3
	defaultMaxDocuments        = 15
)

// Reranker orders candidate documents by embedding similarity to the
// rewritten query. Speed mode avoids embedding calls when possible;
// balanced and quality embed everything and filter by threshold.
type Reranker struct {
	embedder  llm.Embedder
	threshold float64
	maxDocs   int
	cache     *gocache.Cache
}

// NewReranker builds a Reranker. Zero config fields take the defaults
// (threshold 0.3, cap 15).
func NewReranker(embedder llm.Embedder, cfg types.RerankConfig) *Reranker {
	threshold := cfg.SimilarityThreshold
	if threshold == 0 {
		threshold = defaultSimilarityThreshold
	}
	maxDocs := cfg.MaxDocuments
	if maxDocs == 0 {
		maxDocs = defaultMaxDocuments
	}
	return &Reranker{
		embedder:  embedder,
		threshold: threshold,
		maxDocs:   maxDocs,
		cache:     gocache.New(10*time.Minute, 15*time.Minute),
	}
}

// Rerank orders docs by relevance to query under the given optimization.
// A summarize query skips reranking entirely: the documents already are
// the answer material.
//
// Speed mode returns the first documents verbatim without any embedding
// call, unless some documents carry pre-attached content (direct links),
// in which case those are ranked by similarity and backfilled with search
// snippets. Balanced and quality embed every document, drop scores below
// the threshold, and sort descending. Ties keep input order.
func (r *Reranker) Rerank(ctx context.Context, query string, docs []types.Document, opt types.Optimization) ([]types.Document, error) {
	if query == SummarizeSentinel {
		return capDocs(docs, r.maxDocs), nil
	}
	if len(docs) == 0 {
		return nil, nil
	}

	if opt == types.OptSpeed {
		return r.rerankSpeed(ctx, query, docs)
	}
	return r.rerankSimilarity(ctx, query, docs)
}

// rerankSpeed ranks only documents that came from fetched pages, then
// backfills with search snippets that carry content. With no fetched pages
// it returns the head of the contentful input with zero embedding calls.
func (r *Reranker) rerankSpeed(ctx context.Context, query string, docs []types.Document) ([]types.Document, error) {
	var fetched, snippets []types.Document
	for _, d := range docs {
		if d.Metadata.FromPage {
			fetched = append(fetched, d)
		} else if d.PageContent != "" {
			snippets = append(snippets, d)
		}
	}

	if len(fetched) == 0 {
		return capDocs(snippets, r.maxDocs), nil
	}

	ranked, err := r.rerankSimilarity(ctx, query, fetched)
	if err != nil {
		return nil, err
	}
	for _, d := range snippets {
		if len(ranked) >= r.maxDocs {
			break
		}
		ranked = append(ranked, d)
	}
	return capDocs(ranked, r.maxDocs), nil
}

// rerankSimilarity embeds the query and all documents, scores by cosine
// similarity, filters below the threshold, and sorts descending. The sort
// is stable: equal scores keep their input order.
func (r *Reranker) rerankSimilarity(ctx context.Context, query string, docs []types.Document) ([]types.Document, error) {
	texts := make([]string, 0, len(docs)+1)
	texts = append(texts, query)
	for _, d := range docs {
		texts = append(texts, d.PageContent)
	}

	vectors, err := r.embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding for rerank: %w", err)
	}
	queryVec := vectors[0]

	type scored struct {
		doc   types.Document
		score float64
	}
	var kept []scored
	for i, d := range docs {
		score := CosineSimilarity(queryVec, vectors[i+1])
		if score < r.threshold {
			continue
		}
		kept = append(kept, scored{doc: d, score: score})
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].score > kept[j].score })

	out := make([]types.Document, 0, len(kept))
	for _, s := range kept {
		out = append(out, s.doc)
	}
	return capDocs(out, r.maxDocs), nil
}

// embed resolves texts through the cache, batching only the misses.
func (r *Reranker) embed(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		if v, ok := r.cache.Get(text); ok {
			vectors[i] = v.([]float64)
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) > 0 {
		fresh, err := r.embedder.Embed(ctx, missing)
		if err != nil {
			return nil, err
		}
		if len(fresh) != len(missing) {
			return nil, fmt.Errorf("embedding batch returned %d vectors for %d texts", len(fresh), len(missing))
		}
		for j, v := range fresh {
			vectors[missingIdx[j]] = v
			r.cache.Set(missing[j], v, gocache.DefaultExpiration)
		}
	}
	return vectors, nil
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched or zero-magnitude vectors score zero.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func capDocs(docs []types.Document, n int) []types.Document {
	if len(docs) > n {
		return docs[:n]
	}
	return docs
}
