// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research orchestrates a deep-research run: source discovery
// through web search, a sandboxed browser crawl, optional agent
// summarization, and cited report generation, degrading gracefully at
// every stage.
package research

import (
	"time"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// Budget is the fully resolved limit set for one run.
type Budget struct {
	// Sources caps the seed URLs handed to the crawl.
	Sources int

	// MaxPages caps total pages visited by the crawl.
	MaxPages int

	// MaxDepth caps BFS traversal depth.
	MaxDepth int

	// PerHostCap caps pages visited per host.
	PerHostCap int

	// LinksPerPage caps new links enqueued per visited page.
	LinksPerPage int

	// CharBudget caps extracted characters per source.
	CharBudget int

	// Duration is the crawl wall-clock budget.
	Duration time.Duration

	// RelatedQueries is how many related searches pad discovery.
	RelatedQueries int
}

// mode baselines, scaled by the optimization multipliers.
var baselines = map[types.ResearchMode]Budget{
	types.ModeLight: {
		Sources:        10,
		MaxPages:       15,
		MaxDepth:       2,
		PerHostCap:     5,
		LinksPerPage:   10,
		CharBudget:     8000,
		Duration:       90 * time.Second,
		RelatedQueries: 2,
	},
	types.ModeMax: {
		Sources:        25,
		MaxPages:       40,
		MaxDepth:       3,
		PerHostCap:     8,
		LinksPerPage:   15,
		CharBudget:     20000,
		Duration:       4 * time.Minute,
		RelatedQueries: 4,
	},
}

// floors every scaled value is clamped to. Aggressive speed multipliers
// must never produce a degenerate crawl.
var floor = Budget{
	Sources:        3,
	MaxPages:       5,
	MaxDepth:       1,
	PerHostCap:     2,
	LinksPerPage:   3,
	CharBudget:     2000,
	Duration:       30 * time.Second,
	RelatedQueries: 1,
}

// ComputeBudget resolves the limit set for a mode and optimization. The
// multipliers are multiplicative against the mode baseline; every result
// is floor-clamped.
func ComputeBudget(cfg types.ResearchConfig) Budget {
	base := baselines[cfg.Mode]
	m := cfg.ResolveMultipliers()[cfg.Optimization]

	return Budget{
		Sources:        scaleInt(base.Sources, m.Count, floor.Sources),
		MaxPages:       scaleInt(base.MaxPages, m.Count, floor.MaxPages),
		MaxDepth:       scaleInt(base.MaxDepth, m.Count, floor.MaxDepth),
		PerHostCap:     scaleInt(base.PerHostCap, m.Count, floor.PerHostCap),
		LinksPerPage:   scaleInt(base.LinksPerPage, m.Count, floor.LinksPerPage),
		CharBudget:     scaleInt(base.CharBudget, m.Chars, floor.CharBudget),
		Duration:       scaleDuration(base.Duration, m.Duration, floor.Duration),
		RelatedQueries: scaleInt(base.RelatedQueries, m.Count, floor.RelatedQueries),
	}
}

func scaleInt(base int, mult float64, min int) int {
	scaled := int(float64(base) * mult)
	if scaled < min {
		return min
	}
	return scaled
}

func scaleDuration(base time.Duration, mult float64, min time.Duration) time.Duration {
	scaled := time.Duration(float64(base) * mult)
	if scaled < min {
		return min
	}
	return scaled
}
