// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Chain tries an ordered list of candidates. A candidate failure moves to
// the next candidate only when the error is classified retryable and the
// failing attempt has not yet emitted any output; once a chunk has reached
// the caller, a failure is terminal, never silently retried.
type Chain struct {
	candidates []Candidate
	log        *zap.Logger
}

// NewChain builds a fallback chain. At least one candidate is required.
func NewChain(candidates []Candidate, log *zap.Logger) (*Chain, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("candidate chain is empty")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Chain{candidates: candidates, log: log}, nil
}

// Candidates returns the chain members in order.
func (c *Chain) Candidates() []Candidate {
	return c.candidates
}

// Stream runs a streaming generation across the chain. emit receives each
// chunk exactly once; chunks from a failed attempt are never replayed.
func (c *Chain) Stream(ctx context.Context, req Request, emit func(chunk string) error) error {
	var lastErr error

	for i, cand := range c.candidates {
		emitted := false
		err := cand.Generator.Stream(ctx, req, func(chunk string) error {
			emitted = true
			return emit(chunk)
		})
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = fmt.Errorf("candidate %s: %w", cand.Name, err)

		if emitted {
			// Partial output already reached the caller; retrying would
			// duplicate it.
			return lastErr
		}
		if !Retryable(err) {
			return lastErr
		}

		c.log.Warn("candidate failed, trying next",
			zap.String("candidate", cand.Name),
			zap.Int("remaining", len(c.candidates)-i-1),
			zap.Error(err))
	}

	return fmt.Errorf("all %d candidates exhausted: %w", len(c.candidates), lastErr)
}

// Complete runs a single-shot generation across the chain, moving to the
// next candidate on retryable failure.
func (c *Chain) Complete(ctx context.Context, req Request) (string, error) {
	var lastErr error

	for _, cand := range c.candidates {
		out, err := cand.Generator.Complete(ctx, req)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		lastErr = fmt.Errorf("candidate %s: %w", cand.Name, err)
		if !Retryable(err) {
			return "", lastErr
		}

		c.log.Warn("candidate failed, trying next",
			zap.String("candidate", cand.Name), zap.Error(err))
	}

	return "", fmt.Errorf("all %d candidates exhausted: %w", len(c.candidates), lastErr)
}
