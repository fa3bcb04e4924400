// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stream

import (
	"sync"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// Tracker merges progress events by row id, last-write-wins. A consumer
// rendering a live status list from Tracker output never sees duplicate
// rows. The tracker is scoped to one run and passed through the Emitter,
// not held in package state.
type Tracker struct {
	mu    sync.Mutex
	rows  map[types.ProgressID]types.ProgressEvent
	order []types.ProgressID
}

// NewTracker builds an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{rows: make(map[types.ProgressID]types.ProgressEvent)}
}

// Apply merges ev into its row and returns the merged row state. Empty
// label/detail fields inherit the previous value; status and percent take
// the incoming value.
func (t *Tracker) Apply(ev types.ProgressEvent) types.ProgressEvent {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, ok := t.rows[ev.ID]
	if !ok {
		t.order = append(t.order, ev.ID)
		t.rows[ev.ID] = ev
		return ev
	}

	if ev.Label == "" {
		ev.Label = prev.Label
	}
	if ev.Detail == "" {
		ev.Detail = prev.Detail
	}
	if ev.Percent == 0 {
		ev.Percent = prev.Percent
	}
	t.rows[ev.ID] = ev
	return ev
}

// Rows returns the current row states in first-seen order.
func (t *Tracker) Rows() []types.ProgressEvent {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]types.ProgressEvent, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rows[id])
	}
	return out
}
