// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/answer-engine/internal/history"
	"github.com/pdiddy/answer-engine/internal/stream"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// renderStream consumes a pipeline's events: response chunks go to w as
// they arrive, progress rows to stderr, and the source list is printed
// after the terminal event. Returns the collected run for persistence.
func renderStream(ctx context.Context, pipeline stream.Pipeline, w io.Writer, jsonOutput bool) (history.Run, error) {
	run := history.Run{ID: uuid.NewString(), CreatedAt: time.Now().UTC()}
	var answer strings.Builder
	var streamErr error

	enc := json.NewEncoder(w)
	for ev := range stream.Run(ctx, pipeline) {
		if jsonOutput {
			if err := enc.Encode(ev); err != nil {
				return run, err
			}
		}
		switch ev.Type {
		case stream.EventSources:
			run.Sources = ev.Sources
		case stream.EventProgress:
			if !jsonOutput {
				printProgress(ev.Progress)
			}
		case stream.EventResponse:
			answer.WriteString(ev.Chunk)
			if !jsonOutput {
				fmt.Fprint(w, ev.Chunk)
			}
		case stream.EventError:
			streamErr = fmt.Errorf("%s", ev.Err)
		}
	}

	run.Answer = answer.String()
	if streamErr != nil {
		return run, streamErr
	}

	if !jsonOutput {
		fmt.Fprintln(w)
		printSources(run.Sources)
	}
	return run, nil
}

func printProgress(p *types.ProgressEvent) {
	label := p.Label
	if label == "" {
		label = string(p.ID)
	}
	line := fmt.Sprintf("[%s] %s", p.Status, label)
	if p.Detail != "" {
		line += ": " + p.Detail
	}
	if p.Percent > 0 {
		line += fmt.Sprintf(" (%d%%)", p.Percent)
	}
	fmt.Fprintln(os.Stderr, line)
}

func printSources(docs []types.Document) {
	if len(docs) == 0 {
		return
	}
	fmt.Println("\nSources:")
	for i, d := range docs {
		fmt.Printf("  [%d] %s - %s\n", i+1, d.Metadata.Title, d.Metadata.URL)
	}
}

// saveRun persists a completed run, warning instead of failing the command
// when the history store is unavailable.
func saveRun(ctx context.Context, cfg types.HistoryConfig, run history.Run) {
	store, err := history.NewStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: history unavailable: %v\n", err)
		return
	}
	defer store.Close()
	if err := store.Save(ctx, run); err != nil {
		fmt.Fprintf(os.Stderr, "warning: saving run failed: %v\n", err)
	}
}
