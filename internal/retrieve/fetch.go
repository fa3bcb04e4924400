// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieve

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/pdiddy/answer-engine/internal/llm"
	"github.com/pdiddy/answer-engine/pkg/types"
)

const (
	// maxChunksPerURL caps the text chunks summarized per linked page.
	maxChunksPerURL = 10

	// chunkChars is the chunk size pages are split into before summarization.
	chunkChars = 4000

	// maxFetchBytes bounds a single page download.
	maxFetchBytes = 2 << 20
)

// Fetcher downloads user-referenced links and condenses each page into one
// answer-focused Document via the model.
type Fetcher struct {
	Client    *http.Client
	UserAgent string
}

// NewFetcher builds a Fetcher with a modest timeout.
func NewFetcher(userAgent string) *Fetcher {
	return &Fetcher{
		Client:    &http.Client{Timeout: 15 * time.Second},
		UserAgent: userAgent,
	}
}

const summarizePrompt = `You are a text summarizer. Using only the supplied page text,
write a 2-4 paragraph synopsis focused on answering the question. Keep
concrete facts and figures; drop navigation and boilerplate. If the text
does not bear on the question, summarize what the page is about instead.`

// SummarizeLinks fetches each link, groups its text by URL (capped at ten
// chunks per URL), and asks the model for an answer-focused synopsis of
// each group independently. Unfetchable links are skipped, not fatal.
func (f *Fetcher) SummarizeLinks(ctx context.Context, chain *llm.Chain, links []string, question string) ([]types.Document, error) {
	var docs []types.Document
	var lastErr error

	for _, link := range links {
		title, text, err := f.fetch(ctx, link)
		if err != nil {
			lastErr = err
			continue
		}

		chunks := splitChunks(text, chunkChars)
		if len(chunks) > maxChunksPerURL {
			chunks = chunks[:maxChunksPerURL]
		}

		summary, err := chain.Complete(ctx, llm.Request{
			Messages: []types.Message{
				{Role: "system", Content: summarizePrompt},
				{Role: "user", Content: fmt.Sprintf("Question: %s\n\nPage text:\n%s", question, strings.Join(chunks, "\n\n"))},
			},
			Temperature: 0,
		})
		if err != nil {
			return nil, fmt.Errorf("summarizing %s: %w", link, err)
		}

		docs = append(docs, types.Document{
			PageContent: summary,
			Metadata:    types.DocumentMetadata{Title: title, URL: link, FromPage: true},
		})
	}

	if len(docs) == 0 && lastErr != nil {
		return nil, fmt.Errorf("fetching links: %w", lastErr)
	}
	return docs, nil
}

// fetch downloads one page and extracts its title and visible text.
func (f *Fetcher) fetch(ctx context.Context, link string) (title, text string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", "", fmt.Errorf("creating request: %w", err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("fetching %s: HTTP %d", link, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return "", "", err
	}
	return ExtractText(string(body))
}

// ExtractText parses HTML and returns the document title and visible body
// text, skipping script and style subtrees.
func ExtractText(rawHTML string) (title, text string, err error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", "", fmt.Errorf("parsing HTML: %w", err)
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			case "title":
				if title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
			}
		case html.TextNode:
			trimmed := strings.TrimSpace(n.Data)
			if trimmed != "" {
				b.WriteString(trimmed)
				b.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return title, strings.TrimSpace(b.String()), nil
}

// splitChunks cuts text into pieces of at most size characters, breaking
// on whitespace where possible.
func splitChunks(text string, size int) []string {
	var chunks []string
	for len(text) > size {
		cut := strings.LastIndexByte(text[:size], ' ')
		if cut <= 0 {
			cut = size
		}
		chunks = append(chunks, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
