// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"fmt"
	"strings"

	"github.com/pdiddy/answer-engine/pkg/types"
)

const reportPrompt = `You are a research analyst. Write a structured report on the
question using only the numbered source documents below. Use this shape:

## Executive Summary
## Key Findings
## Evidence
## Implications
## Open Questions

Cite every factual sentence with bracketed source numbers like [3]. Where
sources conflict, say so. Do not invent sources or facts.

Sources:
%s`

// relatedModifiers pad the related-query set when provider suggestions run
// short.
var relatedModifiers = []string{
	"overview",
	"latest report",
	"statistics",
	"analysis",
	"key developments",
}

// relatedQueries derives up to n related searches: provider suggestions
// first, then the query padded with generic modifiers.
func relatedQueries(query string, suggestions []string, n int) []string {
	var out []string
	seen := map[string]bool{query: true}

	for _, s := range suggestions {
		if len(out) >= n {
			return out
		}
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}

	for _, mod := range relatedModifiers {
		if len(out) >= n {
			break
		}
		padded := query + " " + mod
		if seen[padded] {
			continue
		}
		seen[padded] = true
		out = append(out, padded)
	}
	return out
}

// renderSources numbers the documents for citation in the report prompt.
func renderSources(docs []types.Document) string {
	if len(docs) == 0 {
		return "(no sources)"
	}
	var b strings.Builder
	for i, d := range docs {
		fmt.Fprintf(&b, "[%d] %s (%s)\n%s\n\n", i+1, d.Metadata.Title, d.Metadata.URL, d.PageContent)
	}
	return strings.TrimSpace(b.String())
}
