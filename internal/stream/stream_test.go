// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/answer-engine/pkg/types"
)

func collect(ch <-chan Event) []Event {
	var out []Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func TestRun_SourcesThenChunksThenDone(t *testing.T) {
	docs := []types.Document{{PageContent: "Paris", Metadata: types.DocumentMetadata{URL: "https://x"}}}

	events := collect(Run(context.Background(), func(ctx context.Context, em *Emitter) error {
		em.Sources(docs)
		em.Chunk("Paris ")
		em.Chunk("is the capital.")
		return nil
	}))

	require.Len(t, events, 4)
	assert.Equal(t, EventSources, events[0].Type)
	assert.Equal(t, EventResponse, events[1].Type)
	assert.Equal(t, EventResponse, events[2].Type)
	assert.Equal(t, EventDone, events[3].Type)
}

func TestRun_ErrorIsTerminal(t *testing.T) {
	events := collect(Run(context.Background(), func(ctx context.Context, em *Emitter) error {
		return errors.New("no sources found")
	}))

	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
	assert.Equal(t, "no sources found", events[0].Err)
}

func TestRun_ChunkWithoutSourcesEmitsEmptySources(t *testing.T) {
	events := collect(Run(context.Background(), func(ctx context.Context, em *Emitter) error {
		em.Chunk("hi")
		return nil
	}))

	require.Len(t, events, 3)
	assert.Equal(t, EventSources, events[0].Type, "sources always precedes the first response chunk")
	assert.Empty(t, events[0].Sources)
}

func TestRun_DuplicateSourcesSuppressed(t *testing.T) {
	events := collect(Run(context.Background(), func(ctx context.Context, em *Emitter) error {
		em.Sources(nil)
		em.Sources(nil)
		return nil
	}))

	var sourceCount int
	for _, ev := range events {
		if ev.Type == EventSources {
			sourceCount++
		}
	}
	assert.Equal(t, 1, sourceCount)
}

func TestRun_CancelStopsEmission(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cleanedUp := false
	ch := Run(ctx, func(ctx context.Context, em *Emitter) error {
		defer func() { cleanedUp = true }()
		em.Sources(nil)
		cancel()
		// These sends no longer have a listener; they must not block.
		for i := 0; i < 100; i++ {
			em.Chunk("x")
		}
		return nil
	})

	collect(ch)
	assert.True(t, cleanedUp, "pipeline cleanup runs even when the consumer is gone")
}

func TestEvent_MarshalJSON(t *testing.T) {
	cases := []struct {
		name string
		ev   Event
		want string
	}{
		{
			"response",
			Event{Type: EventResponse, Chunk: "hi"},
			`{"type":"response","data":"hi"}`,
		},
		{
			"done",
			Event{Type: EventDone},
			`{"type":"done"}`,
		},
		{
			"error",
			Event{Type: EventError, Err: "boom"},
			`{"type":"error","data":"boom"}`,
		},
		{
			"progress",
			Event{Type: EventProgress, Progress: &types.ProgressEvent{
				ID: types.ProgressCrawl, Label: "Crawling", Status: types.StatusRunning, Percent: 40,
			}},
			`{"type":"progress","data":{"id":"crawl","label":"Crawling","status":"running","percent":40}}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.ev)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(data))
		})
	}
}

func TestTracker_MergeByID(t *testing.T) {
	tr := NewTracker()

	tr.Apply(types.ProgressEvent{ID: types.ProgressCrawl, Label: "Crawling", Status: types.StatusRunning, Percent: 10})
	merged := tr.Apply(types.ProgressEvent{ID: types.ProgressCrawl, Status: types.StatusRunning, Percent: 50, Detail: "example.com 5/10"})

	assert.Equal(t, "Crawling", merged.Label, "label inherited from earlier event")
	assert.Equal(t, 50, merged.Percent)

	rows := tr.Rows()
	require.Len(t, rows, 1, "same id never yields a duplicate row")
	assert.Equal(t, "example.com 5/10", rows[0].Detail)
}

func TestTracker_Idempotent(t *testing.T) {
	tr := NewTracker()
	ev := types.ProgressEvent{ID: types.ProgressSandbox, Label: "Sandbox", Status: types.StatusComplete}

	tr.Apply(ev)
	tr.Apply(ev)

	rows := tr.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, types.StatusComplete, rows[0].Status)
}

func TestTracker_PreservesOrder(t *testing.T) {
	tr := NewTracker()
	tr.Apply(types.ProgressEvent{ID: types.ProgressSearch, Status: types.StatusComplete})
	tr.Apply(types.ProgressEvent{ID: types.ProgressSandbox, Status: types.StatusRunning})
	tr.Apply(types.ProgressEvent{ID: types.ProgressSearch, Status: types.StatusComplete})

	rows := tr.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, types.ProgressSearch, rows[0].ID)
	assert.Equal(t, types.ProgressSandbox, rows[1].ID)
}
