// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/sandbox"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// progressMarker prefixes the structured progress lines the crawl script
// writes to its log.
const progressMarker = "@@PROGRESS "

// PollInterval is the delay between log polls. Tests override this.
var PollInterval = 1200 * time.Millisecond

// chunkReadSize is the byte-range size for tiered chunked recovery.
const chunkReadSize = 64 * 1024

// Progress is one parsed progress marker from the crawl log.
type Progress struct {
	Done  int    `json:"done"`
	Total int    `json:"total"`
	Host  string `json:"host"`
}

// Runner launches and supervises one crawl inside a provisioned sandbox.
type Runner struct {
	rpc sandbox.RPC
	log *zap.Logger
}

// NewRunner builds a Runner over the given RPC client.
func NewRunner(rpc sandbox.RPC, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{rpc: rpc, log: log}
}

// Run stages the crawl, launches it detached, polls progress until the done
// sentinel appears or the wall-clock budget expires, then recovers the
// output artifact. A budget expiry is not a failure: whatever the crawler
// logged is recovered as a partial result. onProgress may be nil.
func (r *Runner) Run(ctx context.Context, session sandbox.Session, input Input, onProgress func(Progress)) (*types.ResearchOutput, error) {
	if err := stage(ctx, r.rpc, session, input); err != nil {
		return nil, err
	}
	if err := r.launch(ctx, session); err != nil {
		return nil, err
	}

	r.poll(ctx, session, input, onProgress)

	return r.recoverOutput(ctx, session, input.RunID)
}

// launch starts the crawl as a detached background process. Its stdout goes
// to the log file; completion is signaled by a sentinel file containing the
// exit code. The remote process may outlive our polling loop.
func (r *Runner) launch(ctx context.Context, session sandbox.Session) error {
	cmd := fmt.Sprintf(
		"cd %s && rm -f %s %s && nohup sh -c 'node %s >> %s 2>&1; echo $? > %s' >/dev/null 2>&1 &",
		session.WorkingDir, logFile, doneFile, scriptFile, logFile, doneFile,
	)
	res, err := r.rpc.Exec(ctx, session.ID, sandbox.ExecRequest{Command: cmd})
	if err != nil {
		return fmt.Errorf("launching crawl: %w", err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("crawl launch exited %d: %s", res.ExitCode, res.Stderr)
	}
	return nil
}

// poll reads the crawl log on a fixed interval from the last-read byte
// offset, forwarding progress markers. It returns when the done sentinel
// appears, the duration budget expires, or the context is cancelled.
func (r *Runner) poll(ctx context.Context, session sandbox.Session, input Input, onProgress func(Progress)) {
	deadline := time.Now().Add(time.Duration(input.DurationMs)*time.Millisecond + 30*time.Second)
	logPath := path.Join(session.WorkingDir, logFile)
	offset := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(PollInterval):
		}

		content, err := r.rpc.ReadFile(ctx, session.ID, logPath)
		if err == nil && len(content) > offset {
			for _, p := range ParseProgress(content[offset:]) {
				if onProgress != nil {
					onProgress(p)
				}
			}
			offset = len(content)
		}

		if r.isDone(ctx, session) {
			return
		}
		if time.Now().After(deadline) {
			// The remote process may still be running; treat this as a
			// timeout and move on to output recovery with whatever exists.
			r.log.Warn("crawl polling timed out", zap.String("sandbox", session.ID))
			return
		}
	}
}

// isDone checks for the sentinel exit-code file.
func (r *Runner) isDone(ctx context.Context, session sandbox.Session) bool {
	names, err := r.rpc.ListFiles(ctx, session.ID, session.WorkingDir)
	if err != nil {
		return false
	}
	for _, n := range names {
		if n == doneFile {
			return true
		}
	}
	return false
}

// ParseProgress extracts progress markers from a chunk of log output.
// Non-marker lines and malformed markers are ignored.
func ParseProgress(logChunk string) []Progress {
	var out []Progress
	for _, line := range strings.Split(logChunk, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, progressMarker) {
			continue
		}
		var p Progress
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, progressMarker)), &p); err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

// recoverOutput reads back the crawl artifact through tiered strategies:
// a direct remote file read, then a size-probed chunked read over the exec
// channel, then a plain cat. Parse failures and run-id mismatches are both
// corruption: the result is discarded and an error returned so the caller
// can fall back to search snippets.
func (r *Runner) recoverOutput(ctx context.Context, session sandbox.Session, runID string) (*types.ResearchOutput, error) {
	outPath := path.Join(session.WorkingDir, outputFile)

	if content, err := r.rpc.ReadFile(ctx, session.ID, outPath); err == nil {
		if out, parseErr := ParseOutput([]byte(content), runID); parseErr == nil {
			return out, nil
		} else {
			r.log.Warn("direct output read unusable, trying chunked recovery",
				zap.String("sandbox", session.ID), zap.Error(parseErr))
		}
	} else {
		r.log.Warn("direct output read failed, trying chunked recovery",
			zap.String("sandbox", session.ID), zap.Error(err))
	}

	if content, err := r.chunkedRead(ctx, session, outPath); err == nil {
		if out, parseErr := ParseOutput([]byte(content), runID); parseErr == nil {
			return out, nil
		}
	}

	res, err := r.rpc.Exec(ctx, session.ID, sandbox.ExecRequest{
		Command: fmt.Sprintf("cat %s", outPath),
	})
	if err != nil {
		return nil, fmt.Errorf("all output recovery strategies failed: %w", err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("all output recovery strategies failed: cat exited %d", res.ExitCode)
	}
	return ParseOutput([]byte(res.Stdout), runID)
}

// chunkedRead probes the remote file size, then reads it back in byte
// ranges over the exec channel and concatenates the pieces.
func (r *Runner) chunkedRead(ctx context.Context, session sandbox.Session, remotePath string) (string, error) {
	probe, err := r.rpc.Exec(ctx, session.ID, sandbox.ExecRequest{
		Command: fmt.Sprintf("wc -c < %s", remotePath),
	})
	if err != nil {
		return "", fmt.Errorf("probing output size: %w", err)
	}
	size := 0
	if _, err := fmt.Sscanf(strings.TrimSpace(probe.Stdout), "%d", &size); err != nil || size <= 0 {
		return "", fmt.Errorf("output file appears empty")
	}

	var b strings.Builder
	for off := 0; off < size; off += chunkReadSize {
		res, err := r.rpc.Exec(ctx, session.ID, sandbox.ExecRequest{
			Command: fmt.Sprintf("tail -c +%d %s | head -c %d", off+1, remotePath, chunkReadSize),
		})
		if err != nil {
			return "", fmt.Errorf("chunked read at offset %d: %w", off, err)
		}
		if res.ExitCode != 0 {
			return "", fmt.Errorf("chunked read at offset %d exited %d", off, res.ExitCode)
		}
		b.WriteString(res.Stdout)
	}
	return b.String(), nil
}

// ParseOutput decodes a ResearchOutput and verifies it belongs to the run
// that launched the crawl. A foreign or unparsable artifact is corruption,
// never merged.
func ParseOutput(data []byte, runID string) (*types.ResearchOutput, error) {
	var out types.ResearchOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing crawl output: %w", err)
	}
	if out.RunID != runID {
		return nil, fmt.Errorf("crawl output run id %q does not match expected %q", out.RunID, runID)
	}
	return &out, nil
}
