// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"errors"
	"fmt"
	"strings"
)

// StatusError is an API response with a non-2xx status. The body is kept
// for retry classification.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return fmt.Sprintf("inference API returned HTTP %d: %s", e.Status, msg)
}

// rateLimitPatterns match provider messages that indicate throttling.
var rateLimitPatterns = []string{
	"rate limit",
	"too many requests",
}

// transientPatterns match provider messages that indicate a transient
// upstream failure.
var transientPatterns = []string{
	"timeout",
	"timed out",
	"connection reset",
	"gateway",
	"service unavailable",
	"upstream error",
}

// transientStatuses are HTTP statuses treated as transient upstream
// failures (including Cloudflare's 522/524).
var transientStatuses = map[int]bool{
	408: true, 500: true, 502: true, 503: true, 504: true, 522: true, 524: true,
}

// IsRateLimited reports whether err is a throttling failure.
func IsRateLimited(err error) bool {
	var se *StatusError
	if errors.As(err, &se) && se.Status == 429 {
		return true
	}
	return matchesAny(err, rateLimitPatterns)
}

// IsTransient reports whether err is a transient upstream failure.
func IsTransient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) && transientStatuses[se.Status] {
		return true
	}
	return matchesAny(err, transientPatterns)
}

// Retryable reports whether a candidate failure warrants moving to the next
// candidate in the chain.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return IsRateLimited(err) || IsTransient(err)
}

func matchesAny(err error, patterns []string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
