// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sandbox

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is one stage of the sandbox lifecycle.
type State string

const (
	StateCreating        State = "creating"
	StateWarmup          State = "warmup"
	StateReady           State = "ready"
	StateInstalling      State = "installing"
	StateVerifying       State = "verifying"
	StateFallbackInstall State = "fallback_install"
	StateCrawling        State = "crawling"
	StateTerminated      State = "terminated"
)

// WorkingDir is the sandbox directory all crawl artifacts live under.
const WorkingDir = "/workspace"

const (
	warmupAttempts      = 5
	installLockRetries  = 3
	preprovisionedProbe = "test -d /ms-playwright"
	noopCommand         = "true"
)

// Test seams for backoff timing.
var (
	warmupBaseDelay  = 2 * time.Second
	installLockDelay = 20 * time.Second
	warmupJitter     = func() time.Duration {
		return time.Duration(rand.Intn(500)) * time.Millisecond
	}
)

// Manager drives one sandbox through its lifecycle:
//
//	Creating → Warmup → Ready → Installing → Verifying → Crawling
//
// with a single FallbackInstall → Verifying detour when the pre-provisioned
// browser runtime fails verification. Terminated is always reached via
// Terminate, which the owning run must call on every exit path.
type Manager struct {
	rpc    RPC
	flavor string
	log    *zap.Logger

	state   State
	session Session

	usedPreprovisioned bool

	terminateOnce sync.Once
	terminateErr  error
}

// NewManager builds a lifecycle manager over the given RPC client.
func NewManager(rpc RPC, flavor string, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{rpc: rpc, flavor: flavor, log: log, state: StateCreating}
}

// State returns the current lifecycle state.
func (m *Manager) State() State { return m.state }

// Session returns the provisioned session. Valid only after Provision
// succeeds.
func (m *Manager) Session() Session { return m.session }

// Provision creates the sandbox and warms it up. The sandbox is requested
// at high scheduling priority and non-preemptable: deep research is
// latency-sensitive and must not be evicted mid-run.
func (m *Manager) Provision(ctx context.Context) (Session, error) {
	m.state = StateCreating
	session, err := m.rpc.Create(ctx, CreateRequest{
		Priority:    "high",
		Preemptable: false,
		Flavor:      m.flavor,
	})
	if err != nil {
		return Session{}, fmt.Errorf("creating sandbox: %w", err)
	}
	m.session = session
	m.session.WorkingDir = WorkingDir
	m.log.Info("sandbox created", zap.String("id", session.ID))

	m.state = StateWarmup
	if err := m.warmup(ctx); err != nil {
		return Session{}, err
	}

	m.state = StateReady
	return m.session, nil
}

// warmup checks remote health and runs a no-op command, up to five
// attempts with exponential backoff plus jitter. HTTP 502 is expected while
// the sandbox is still starting and is never fatal before attempts exhaust.
func (m *Manager) warmup(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= warmupAttempts; attempt++ {
		if attempt > 1 {
			delay := time.Duration(attempt)*warmupBaseDelay + warmupJitter()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		status, err := m.rpc.Status(ctx, m.session.ID)
		if err != nil {
			lastErr = err
			m.log.Debug("warmup health check failed",
				zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		if !status.Healthy {
			lastErr = fmt.Errorf("sandbox not healthy: %s", status.Status)
			continue
		}

		if _, err := m.rpc.Exec(ctx, m.session.ID, ExecRequest{Command: noopCommand}); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("sandbox warmup failed after %d attempts: %w", warmupAttempts, lastErr)
}

// Setup installs and verifies the browser runtime. It prefers a
// pre-provisioned runtime when the environment has one; a verification
// failure on that runtime triggers exactly one fresh local install before
// giving up. A returned error means the caller must degrade to
// non-sandboxed search.
func (m *Manager) Setup(ctx context.Context) error {
	m.state = StateInstalling

	probe, err := m.rpc.Exec(ctx, m.session.ID, ExecRequest{Command: preprovisionedProbe})
	m.usedPreprovisioned = err == nil && probe.ExitCode == 0

	if m.usedPreprovisioned {
		m.log.Info("using pre-provisioned browser runtime", zap.String("id", m.session.ID))
	} else {
		if err := m.installBrowser(ctx); err != nil {
			return err
		}
	}

	m.state = StateVerifying
	if err := m.verifyBrowser(ctx); err == nil {
		return nil
	} else if !m.usedPreprovisioned {
		return err
	}

	// The pre-provisioned runtime failed its smoke test; fall back once to
	// a fresh local install and re-verify.
	m.log.Warn("pre-provisioned runtime failed verification, falling back to local install",
		zap.String("id", m.session.ID))
	m.state = StateFallbackInstall
	m.usedPreprovisioned = false
	if err := m.installBrowser(ctx); err != nil {
		return err
	}

	m.state = StateVerifying
	return m.verifyBrowser(ctx)
}

// MarkCrawling transitions the manager into the crawl phase.
func (m *Manager) MarkCrawling() { m.state = StateCrawling }

// installBrowser installs system dependencies then the browser binary.
// Package-manager lock contention is retried with a linear backoff.
func (m *Manager) installBrowser(ctx context.Context) error {
	depsCmd := "apt-get update -qq && apt-get install -y -qq libnss3 libatk-bridge2.0-0 libgtk-3-0 libgbm1 libasound2"

	var lastErr error
	for attempt := 1; attempt <= installLockRetries; attempt++ {
		res, err := m.rpc.Exec(ctx, m.session.ID, ExecRequest{Command: depsCmd})
		if err != nil {
			return fmt.Errorf("installing system dependencies: %w", err)
		}
		if res.ExitCode == 0 {
			lastErr = nil
			break
		}
		lastErr = fmt.Errorf("dependency install exited %d: %s", res.ExitCode, res.Stderr)
		if !isLockContention(res.Stderr) {
			return lastErr
		}

		m.log.Debug("package manager locked, retrying", zap.Int("attempt", attempt))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * installLockDelay):
		}
	}
	if lastErr != nil {
		return fmt.Errorf("dependency install failed after %d attempts: %w", installLockRetries, lastErr)
	}

	res, err := m.rpc.Exec(ctx, m.session.ID, ExecRequest{
		Command: "npx playwright install chromium",
	})
	if err != nil {
		return fmt.Errorf("installing browser: %w", err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("browser install exited %d: %s", res.ExitCode, res.Stderr)
	}
	return nil
}

// verifyBrowser launches the browser headlessly as a smoke test.
func (m *Manager) verifyBrowser(ctx context.Context) error {
	res, err := m.rpc.Exec(ctx, m.session.ID, ExecRequest{
		Command: `node -e "const{chromium}=require('playwright');chromium.launch({headless:true}).then(b=>b.close())"`,
	})
	if err != nil {
		return fmt.Errorf("browser verification: %w", err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("browser verification exited %d: %s", res.ExitCode, res.Stderr)
	}
	return nil
}

// Terminate destroys the sandbox. Safe to call from any state and on every
// exit path; only the first call issues the RPC.
func (m *Manager) Terminate(ctx context.Context) error {
	m.terminateOnce.Do(func() {
		if m.session.ID == "" {
			m.state = StateTerminated
			return
		}
		m.terminateErr = m.rpc.Terminate(ctx, m.session.ID)
		m.state = StateTerminated
		if m.terminateErr != nil {
			m.log.Warn("sandbox termination failed",
				zap.String("id", m.session.ID), zap.Error(m.terminateErr))
		} else {
			m.log.Info("sandbox terminated", zap.String("id", m.session.ID))
		}
	})
	return m.terminateErr
}

// isLockContention matches the package manager's lock-held diagnostics.
func isLockContention(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, marker := range []string{"could not get lock", "lock-frontend", "is another process using it"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
