// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/answer-engine/pkg/types"
)

func results(urls ...string) []types.SearchResult {
	out := make([]types.SearchResult, len(urls))
	for i, u := range urls {
		out[i] = types.SearchResult{Title: u, URL: "https://" + u}
	}
	return out
}

func urlsOf(rs []types.SearchResult) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Title
	}
	return out
}

func TestInterleave(t *testing.T) {
	tests := []struct {
		name      string
		primary   []types.SearchResult
		secondary []types.SearchResult
		ratio     int
		want      []string
	}{
		{
			name:      "two to one",
			primary:   results("p1", "p2", "p3", "p4"),
			secondary: results("s1", "s2"),
			ratio:     2,
			want:      []string{"p1", "p2", "s1", "p3", "p4", "s2"},
		},
		{
			name:      "primary drains first",
			primary:   results("p1"),
			secondary: results("s1", "s2", "s3"),
			ratio:     2,
			want:      []string{"p1", "s1", "s2", "s3"},
		},
		{
			name:      "secondary drains first",
			primary:   results("p1", "p2", "p3"),
			secondary: nil,
			ratio:     2,
			want:      []string{"p1", "p2", "p3"},
		},
		{
			name:      "ratio floor of one",
			primary:   results("p1", "p2"),
			secondary: results("s1", "s2"),
			ratio:     0,
			want:      []string{"p1", "s1", "p2", "s2"},
		},
		{
			name:      "cross-list duplicates keep first",
			primary:   results("shared", "p2"),
			secondary: results("shared", "s2"),
			ratio:     1,
			want:      []string{"shared", "p2", "s2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Interleave(tt.primary, tt.secondary, tt.ratio)
			assert.Equal(t, tt.want, urlsOf(got))
		})
	}
}
