// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package crawler runs the sandbox-side research crawl: it stages a
// versioned crawl script plus a JSON input descriptor, launches the script
// as a detached process, polls its progress log, and recovers the output
// artifact through tiered read strategies.
package crawler

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"path"

	"github.com/pdiddy/answer-engine/internal/sandbox"
)

// crawlScript is the crawl program shipped as a compiled-in asset. It is
// parameterized entirely through the input descriptor; the host never
// assembles executable code at runtime.
//
//go:embed crawl.js
var crawlScript string

const (
	scriptFile = "crawl.js"
	inputFile  = "crawl_input.json"
	outputFile = "research_output.json"
	logFile    = "crawl.log"
	doneFile   = "crawl.done"
)

// Seed is one starting URL for the breadth-first traversal.
type Seed struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Input is the JSON descriptor handed to the crawl script.
type Input struct {
	RunID        string `json:"runId"`
	Query        string `json:"query"`
	Seeds        []Seed `json:"seeds"`
	MaxPages     int    `json:"maxPages"`
	MaxDepth     int    `json:"maxDepth"`
	PerHostCap   int    `json:"perHostCap"`
	LinksPerPage int    `json:"linksPerPage"`
	CharBudget   int    `json:"charBudget"`
	DurationMs   int64  `json:"durationMs"`
	UserAgent    string `json:"userAgent"`
}

// stage writes the crawl script and its input descriptor into the sandbox
// working directory.
func stage(ctx context.Context, rpc sandbox.RPC, session sandbox.Session, input Input) error {
	descriptor, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("encoding crawl input: %w", err)
	}

	if err := rpc.WriteFile(ctx, session.ID, path.Join(session.WorkingDir, scriptFile), crawlScript); err != nil {
		return fmt.Errorf("staging crawl script: %w", err)
	}
	if err := rpc.WriteFile(ctx, session.ID, path.Join(session.WorkingDir, inputFile), string(descriptor)); err != nil {
		return fmt.Errorf("staging crawl input: %w", err)
	}
	return nil
}
