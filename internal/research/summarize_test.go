// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/answer-engine/pkg/types"
)

func TestNewSummarizer_DisabledWithoutEndpoint(t *testing.T) {
	assert.Nil(t, NewSummarizer(types.AgentConfig{}, nil))
	assert.Nil(t, NewSummarizer(types.AgentConfig{BaseURL: "https://agent.example"}, nil))
	assert.Nil(t, NewSummarizer(types.AgentConfig{Model: "agent-1"}, nil))
	assert.NotNil(t, NewSummarizer(types.AgentConfig{BaseURL: "https://agent.example", Model: "agent-1"}, nil))
}

func agentServer(t *testing.T, calls *atomic.Int32, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		fmt.Fprintf(w, `{"choices":[{"message":{"content":%q}}]}`, content)
	}))
}

func TestSummarize_CondensesSuccessfulSources(t *testing.T) {
	var calls atomic.Int32
	srv := agentServer(t, &calls, http.StatusOK, "condensed facts")
	defer srv.Close()

	s := NewSummarizer(types.AgentConfig{BaseURL: srv.URL, Model: "agent-1"}, nil)
	require.NotNil(t, s)

	in := []types.Source{
		{URL: "https://a.example", Content: "long raw page", Status: types.SourceOK},
		{URL: "https://b.example", Content: "snippet", Status: types.SourceFallback},
		{URL: "https://c.example", Status: types.SourceError, Error: "nav failed"},
	}
	out := s.Summarize(context.Background(), "question", in)

	require.Len(t, out, 3)
	assert.Equal(t, "condensed facts", out[0].Content)
	assert.Equal(t, "snippet", out[1].Content, "fallback sources are left alone")
	assert.Empty(t, out[2].Content)
	assert.Equal(t, int32(1), calls.Load(), "only ok sources hit the agent")

	// Input slice is not mutated.
	assert.Equal(t, "long raw page", in[0].Content)
}

func TestSummarize_FailureKeepsRawContent(t *testing.T) {
	var calls atomic.Int32
	srv := agentServer(t, &calls, http.StatusBadRequest, "")
	defer srv.Close()

	s := NewSummarizer(types.AgentConfig{BaseURL: srv.URL, Model: "agent-1"}, nil)
	in := []types.Source{{URL: "https://a.example", Content: "raw content", Status: types.SourceOK}}

	out := s.Summarize(context.Background(), "question", in)
	require.Len(t, out, 1)
	assert.Equal(t, "raw content", out[0].Content)
}
