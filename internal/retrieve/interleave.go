// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieve

import "github.com/pdiddy/answer-engine/pkg/types"

// Interleave merges two ranked result lists at a fixed ratio: for every
// `ratio` items taken from primary, one is taken from secondary. When one
// list runs out the other drains in order. Duplicate URLs across the two
// lists keep the first occurrence.
func Interleave(primary, secondary []types.SearchResult, ratio int) []types.SearchResult {
	if ratio < 1 {
		ratio = 1
	}

	merged := make([]types.SearchResult, 0, len(primary)+len(secondary))
	pi, si := 0, 0
	for pi < len(primary) || si < len(secondary) {
		for k := 0; k < ratio && pi < len(primary); k++ {
			merged = append(merged, primary[pi])
			pi++
		}
		if si < len(secondary) {
			merged = append(merged, secondary[si])
			si++
		}
		if pi >= len(primary) {
			merged = append(merged, secondary[si:]...)
			break
		}
	}
	return dedupeResults(merged)
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
