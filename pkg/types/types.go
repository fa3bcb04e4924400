// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the answer-engine
// pipeline: search results, documents, crawl sources, progress rows, and
// the terminal research artifact.
package types

import (
	"net/url"
	"strings"
	"time"
)

// Message is one turn of conversation history. Role is "system", "user",
// or "assistant".
type Message struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// SearchResult is one hit returned by a web-search provider.
type SearchResult struct {
	// Title is the page title as returned by the provider.
	Title string `json:"title" yaml:"title"`

	// URL is the result URL as returned by the provider.
	URL string `json:"url" yaml:"url"`

	// Content is the provider's snippet for the page, when available.
	Content string `json:"content,omitempty" yaml:"content,omitempty"`

	// Thumbnail is an optional preview image URL.
	Thumbnail string `json:"thumbnail,omitempty" yaml:"thumbnail,omitempty"`
}

// Document is the unit that reranking and generation operate on.
type Document struct {
	// PageContent is the text handed to the model.
	PageContent string `json:"pageContent" yaml:"page_content"`

	// Metadata carries the document provenance.
	Metadata DocumentMetadata `json:"metadata" yaml:"metadata"`
}

// DocumentMetadata identifies where a Document came from.
type DocumentMetadata struct {
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`

	// FromPage marks documents built from fetched page text rather than a
	// provider snippet. Speed-mode reranking treats the two differently.
	FromPage bool `json:"fromPage,omitempty" yaml:"from_page,omitempty"`
}

// SourceStatus classifies how a crawl Source was obtained.
type SourceStatus string

const (
	SourceOK       SourceStatus = "ok"
	SourceError    SourceStatus = "error"
	SourceFallback SourceStatus = "fallback"
)

// Source is one crawled (or fallback-synthesized) page. Every visited URL
// produces exactly one Source, successful or not.
type Source struct {
	Title       string       `json:"title" yaml:"title"`
	URL         string       `json:"url" yaml:"url"`
	Content     string       `json:"content" yaml:"content"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Status      SourceStatus `json:"status" yaml:"status"`
	Error       string       `json:"error,omitempty" yaml:"error,omitempty"`
}

// Document converts a Source into the generation-facing Document form.
func (s Source) Document() Document {
	content := s.Content
	if content == "" {
		content = s.Description
	}
	return Document{
		PageContent: content,
		Metadata:    DocumentMetadata{Title: s.Title, URL: s.URL},
	}
}

// ResearchOutput is the terminal artifact written by the sandbox crawl. An
// output whose RunID does not match the run that launched the crawl is
// treated as foreign and discarded.
type ResearchOutput struct {
	RunID       string    `json:"runId" yaml:"run_id"`
	Query       string    `json:"query" yaml:"query"`
	CollectedAt time.Time `json:"collectedAt" yaml:"collected_at"`
	Sources     []Source  `json:"sources" yaml:"sources"`
	Errors      []string  `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// ProgressID names one logical progress row. Later events with the same ID
// update that row, never append a duplicate.
type ProgressID string

const (
	ProgressSearch   ProgressID = "search"
	ProgressSandbox  ProgressID = "sandbox"
	ProgressSetup    ProgressID = "setup"
	ProgressBrowser  ProgressID = "browser"
	ProgressCrawl    ProgressID = "crawl"
	ProgressAnalysis ProgressID = "analysis"
	ProgressFinalize ProgressID = "finalize"
	ProgressCleanup  ProgressID = "cleanup"
)

// ProgressStatus is the state of one progress row.
type ProgressStatus string

const (
	StatusPending  ProgressStatus = "pending"
	StatusRunning  ProgressStatus = "running"
	StatusComplete ProgressStatus = "complete"
	StatusError    ProgressStatus = "error"
)

// ProgressEvent is one update for a progress row.
type ProgressEvent struct {
	ID      ProgressID     `json:"id" yaml:"id"`
	Label   string         `json:"label" yaml:"label"`
	Status  ProgressStatus `json:"status" yaml:"status"`
	Detail  string         `json:"detail,omitempty" yaml:"detail,omitempty"`
	Percent int            `json:"percent,omitempty" yaml:"percent,omitempty"`
}

// NormalizeURL canonicalizes a URL for deduplication: lowercased scheme and
// host, fragment stripped, trailing slash trimmed from the path. Query
// strings are preserved. Invalid URLs are returned trimmed but otherwise
// unchanged so they still dedupe against exact copies of themselves.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(raw, "/")
	}
	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}
