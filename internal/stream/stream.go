// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package stream turns a generation pipeline into an ordered event stream:
// one sources event, zero or more response chunks and progress updates, and
// exactly one terminal done or error event. Events form a tagged union
// rather than named emitter callbacks; consumers range over a channel.
package stream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// EventType discriminates the stream event union.
type EventType string

const (
	EventSources  EventType = "sources"
	EventProgress EventType = "progress"
	EventResponse EventType = "response"
	EventDone     EventType = "done"
	EventError    EventType = "error"
)

// Event is one element of the answer stream. Exactly one payload field is
// set, selected by Type.
type Event struct {
	Type     EventType
	Sources  []types.Document
	Progress *types.ProgressEvent
	Chunk    string
	Err      string
}

// MarshalJSON encodes the event in the wire contract consumed by the
// request-handler layer: {"type": ..., "data": ...}.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventSources:
		return json.Marshal(struct {
			Type EventType        `json:"type"`
			Data []types.Document `json:"data"`
		}{e.Type, e.Sources})
	case EventProgress:
		return json.Marshal(struct {
			Type EventType            `json:"type"`
			Data *types.ProgressEvent `json:"data"`
		}{e.Type, e.Progress})
	case EventResponse:
		return json.Marshal(struct {
			Type EventType `json:"type"`
			Data string    `json:"data"`
		}{e.Type, e.Chunk})
	case EventError:
		return json.Marshal(struct {
			Type EventType `json:"type"`
			Data string    `json:"data"`
		}{e.Type, e.Err})
	case EventDone:
		return json.Marshal(struct {
			Type EventType `json:"type"`
		}{e.Type})
	}
	return nil, fmt.Errorf("unknown event type %q", e.Type)
}

// Pipeline is a generation run that reports through an Emitter. Returning
// nil yields a terminal done event; returning an error yields a terminal
// error event.
type Pipeline func(ctx context.Context, em *Emitter) error

// Run executes the pipeline in a goroutine and returns its event channel.
// The channel is closed after the single terminal event. If the pipeline
// errors after sources/chunks were already delivered, those events stand;
// only the terminal marker differs.
func Run(ctx context.Context, pipeline Pipeline) <-chan Event {
	ch := make(chan Event, 16)
	em := &Emitter{ctx: ctx, ch: ch, progress: NewTracker()}

	go func() {
		defer close(ch)
		err := pipeline(ctx, em)
		if err != nil {
			em.send(Event{Type: EventError, Err: err.Error()})
			return
		}
		em.send(Event{Type: EventDone})
	}()

	return ch
}

// Emitter is the pipeline's side of the stream. It enforces the ordering
// invariant that sources precede the first response chunk.
type Emitter struct {
	ctx      context.Context
	ch       chan Event
	progress *Tracker

	sourcesSent bool
}

// Sources emits the retrieved document set. It must be called before the
// first Chunk and is emitted at most once per run.
func (e *Emitter) Sources(docs []types.Document) {
	if e.sourcesSent {
		return
	}
	e.sourcesSent = true
	e.send(Event{Type: EventSources, Sources: docs})
}

// Chunk emits one incremental response fragment.
func (e *Emitter) Chunk(text string) {
	if !e.sourcesSent {
		// Generation without a sources event means the pipeline skipped
		// retrieval; emit an empty set so consumers see the invariant hold.
		e.Sources(nil)
	}
	e.send(Event{Type: EventResponse, Chunk: text})
}

// Progress merges the update into the named row and emits the merged state.
// Replaying the same row id updates it; it never yields a duplicate row.
func (e *Emitter) Progress(ev types.ProgressEvent) {
	merged := e.progress.Apply(ev)
	e.send(Event{Type: EventProgress, Progress: &merged})
}

// send delivers an event unless the consumer is gone. Emission stops on
// context cancellation; pipeline cleanup is the pipeline's own concern and
// runs regardless.
func (e *Emitter) send(ev Event) {
	select {
	case e.ch <- ev:
	case <-e.ctx.Done():
	}
}
