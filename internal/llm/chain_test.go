// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedGenerator emits the given chunks then fails with err (if set).
type scriptedGenerator struct {
	chunks []string
	err    error
	calls  int
}

func (g *scriptedGenerator) Complete(ctx context.Context, req Request) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	var out string
	for _, c := range g.chunks {
		out += c
	}
	return out, nil
}

func (g *scriptedGenerator) Stream(ctx context.Context, req Request, emit func(string) error) error {
	g.calls++
	for _, c := range g.chunks {
		if err := emit(c); err != nil {
			return err
		}
	}
	return g.err
}

func collectStream(t *testing.T, c *Chain) ([]string, error) {
	t.Helper()
	var got []string
	err := c.Stream(context.Background(), Request{}, func(chunk string) error {
		got = append(got, chunk)
		return nil
	})
	return got, err
}

func TestChain_Empty(t *testing.T) {
	_, err := NewChain(nil, nil)
	assert.Error(t, err)
}

func TestChain_PrimarySucceeds(t *testing.T) {
	primary := &scriptedGenerator{chunks: []string{"hello ", "world"}}
	backup := &scriptedGenerator{chunks: []string{"never"}}

	c, err := NewChain([]Candidate{
		{Name: "primary", Generator: primary},
		{Name: "backup", Generator: backup},
	}, nil)
	require.NoError(t, err)

	got, err := collectStream(t, c)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello ", "world"}, got)
	assert.Equal(t, 0, backup.calls)
}

func TestChain_RetryableBeforeOutputFallsBack(t *testing.T) {
	primary := &scriptedGenerator{err: &StatusError{Status: 429, Body: "slow down"}}
	backup := &scriptedGenerator{chunks: []string{"from backup"}}

	c, err := NewChain([]Candidate{
		{Name: "primary", Generator: primary},
		{Name: "backup", Generator: backup},
	}, nil)
	require.NoError(t, err)

	got, err := collectStream(t, c)
	require.NoError(t, err)
	assert.Equal(t, []string{"from backup"}, got)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, backup.calls)
}

func TestChain_FailureAfterOutputIsTerminal(t *testing.T) {
	// Retryable error, but chunks already streamed: no fallback.
	primary := &scriptedGenerator{chunks: []string{"partial "}, err: &StatusError{Status: 503}}
	backup := &scriptedGenerator{chunks: []string{"never"}}

	c, err := NewChain([]Candidate{
		{Name: "primary", Generator: primary},
		{Name: "backup", Generator: backup},
	}, nil)
	require.NoError(t, err)

	got, err := collectStream(t, c)
	require.Error(t, err)
	assert.Equal(t, []string{"partial "}, got, "partial output is not replayed")
	assert.Equal(t, 0, backup.calls, "no retry after output has streamed")
}

func TestChain_NonRetryableIsTerminal(t *testing.T) {
	primary := &scriptedGenerator{err: errors.New("invalid api key")}
	backup := &scriptedGenerator{chunks: []string{"never"}}

	c, err := NewChain([]Candidate{
		{Name: "primary", Generator: primary},
		{Name: "backup", Generator: backup},
	}, nil)
	require.NoError(t, err)

	_, err = collectStream(t, c)
	require.Error(t, err)
	assert.Equal(t, 0, backup.calls)
}

func TestChain_AllExhausted(t *testing.T) {
	a := &scriptedGenerator{err: &StatusError{Status: 429}}
	b := &scriptedGenerator{err: &StatusError{Status: 502}}

	c, err := NewChain([]Candidate{
		{Name: "a", Generator: a},
		{Name: "b", Generator: b},
	}, nil)
	require.NoError(t, err)

	_, err = collectStream(t, c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exhausted")
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestChain_CompleteFallsBack(t *testing.T) {
	a := &scriptedGenerator{err: &StatusError{Status: 500}}
	b := &scriptedGenerator{chunks: []string{"answer"}}

	c, err := NewChain([]Candidate{
		{Name: "a", Generator: a},
		{Name: "b", Generator: b},
	}, nil)
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
}

func TestRetryableClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"http 429", &StatusError{Status: 429}, true},
		{"rate limit text", errors.New("Rate limit exceeded, slow down"), true},
		{"too many requests text", errors.New("too many requests"), true},
		{"http 503", &StatusError{Status: 503}, true},
		{"http 522", &StatusError{Status: 522}, true},
		{"http 524", &StatusError{Status: 524}, true},
		{"timeout text", errors.New("context deadline exceeded: request timed out"), true},
		{"connection reset", errors.New("read tcp: connection reset by peer"), true},
		{"bad gateway text", errors.New("502 bad gateway"), true},
		{"http 400", &StatusError{Status: 400}, false},
		{"http 401", &StatusError{Status: 401}, false},
		{"plain failure", errors.New("model not found"), false},
		{"nil", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Retryable(tc.err))
		})
	}
}
