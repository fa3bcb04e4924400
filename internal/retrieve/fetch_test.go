// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieve

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<html>
<head><title>Solar Report</title><style>body { color: red }</style></head>
<body>
<script>var tracking = true;</script>
<h1>Adoption</h1>
<p>Residential installs grew 14% in 2025.</p>
</body>
</html>`

func TestExtractText(t *testing.T) {
	title, text, err := ExtractText(samplePage)
	require.NoError(t, err)

	assert.Equal(t, "Solar Report", title)
	assert.Contains(t, text, "Residential installs grew 14% in 2025.")
	assert.NotContains(t, text, "tracking")
	assert.NotContains(t, text, "color: red")
}

func TestSplitChunks(t *testing.T) {
	chunks := splitChunks("alpha beta gamma delta", 11)
	assert.Equal(t, []string{"alpha beta", "gamma delta"}, chunks)

	assert.Equal(t, []string{"short"}, splitChunks("short", 100))
	assert.Empty(t, splitChunks("", 100))

	// No whitespace to break on: hard cut.
	chunks = splitChunks("abcdefghij", 4)
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, chunks)
}

func TestSummarizeLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		fmt.Fprint(w, samplePage)
	}))
	defer srv.Close()

	gen := &scriptedGenerator{completion: "a tidy synopsis"}
	f := NewFetcher("test-agent")

	docs, err := f.SummarizeLinks(context.Background(), chainOf(t, gen), []string{srv.URL}, "how fast is adoption?")
	require.NoError(t, err)

	require.Len(t, docs, 1)
	assert.Equal(t, "a tidy synopsis", docs[0].PageContent)
	assert.Equal(t, "Solar Report", docs[0].Metadata.Title)
	assert.Equal(t, srv.URL, docs[0].Metadata.URL)
	assert.True(t, docs[0].Metadata.FromPage)

	require.Len(t, gen.requests, 1)
	userMsg := gen.requests[0].Messages[1].Content
	assert.True(t, strings.Contains(userMsg, "how fast is adoption?"))
	assert.True(t, strings.Contains(userMsg, "Residential installs"))
}

func TestSummarizeLinks_SkipsUnfetchable(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, samplePage)
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer bad.Close()

	gen := &scriptedGenerator{completion: "synopsis"}
	f := NewFetcher("")

	docs, err := f.SummarizeLinks(context.Background(), chainOf(t, gen), []string{bad.URL, good.URL}, "q")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, good.URL, docs[0].Metadata.URL)
}

func TestSummarizeLinks_AllUnfetchableErrors(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	f := NewFetcher("")
	_, err := f.SummarizeLinks(context.Background(), chainOf(t, &scriptedGenerator{}), []string{bad.URL}, "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching links")
}
