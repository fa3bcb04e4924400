// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/answer-engine/pkg/types"
)

func testClient(url string) *Client {
	c := NewClient(types.CandidateConfig{BaseURL: url, APIKey: "k", Model: "test-model"})
	return c
}

func TestClient_Complete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		w.Write([]byte(`{"choices":[{"message":{"content":"Paris is the capital."}}]}`))
	}))
	defer ts.Close()

	out, err := testClient(ts.URL).Complete(context.Background(), Request{
		Messages: []types.Message{{Role: "user", Content: "capital of France?"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital.", out)
}

func TestClient_CompleteStatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limit"}`))
	}))
	defer ts.Close()

	_, err := testClient(ts.URL).Complete(context.Background(), Request{})
	require.Error(t, err)

	assert.True(t, IsRateLimited(err))
}

func TestClient_Stream(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n"))
		w.Write([]byte(": keep-alive\n\n"))
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer ts.Close()

	var chunks []string
	err := testClient(ts.URL).Stream(context.Background(), Request{}, func(c string) error {
		chunks = append(chunks, c)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo"}, chunks)
}

func TestClient_StreamEmitErrorAborts(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n"))
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"y\"}}]}\n\n"))
	}))
	defer ts.Close()

	sentinel := assert.AnError
	var got int
	err := testClient(ts.URL).Stream(context.Background(), Request{}, func(string) error {
		got++
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, got)
}

func TestClient_MissingModel(t *testing.T) {
	c := NewClient(types.CandidateConfig{BaseURL: "http://localhost:1"})
	_, err := c.Complete(context.Background(), Request{})
	assert.Error(t, err)
}

func TestEmbeddingClient_Embed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		// Out-of-order indices must be reassembled into input order.
		w.Write([]byte(`{"data":[
			{"index":1,"embedding":[0.0,1.0]},
			{"index":0,"embedding":[1.0,0.0]}
		]}`))
	}))
	defer ts.Close()

	c := NewEmbeddingClient(types.LLMConfig{EmbeddingBaseURL: ts.URL, EmbeddingModel: "embed-small"})
	vecs, err := c.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float64{1.0, 0.0}, vecs[0])
	assert.Equal(t, []float64{0.0, 1.0}, vecs[1])
}

func TestEmbeddingClient_CountMismatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data":[{"index":0,"embedding":[1.0]}]}`))
	}))
	defer ts.Close()

	c := NewEmbeddingClient(types.LLMConfig{EmbeddingBaseURL: ts.URL, EmbeddingModel: "m"})
	_, err := c.Embed(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}

func TestEmbeddingClient_EmptyInput(t *testing.T) {
	c := NewEmbeddingClient(types.LLMConfig{EmbeddingModel: "m"})
	vecs, err := c.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}
