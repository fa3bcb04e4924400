// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/history"
	"github.com/pdiddy/answer-engine/internal/research"
	"github.com/pdiddy/answer-engine/internal/sandbox"
	"github.com/pdiddy/answer-engine/pkg/types"
)

var researchCmd = &cobra.Command{
	Use:   "research [question]",
	Short: "Run a deep-research crawl and write a cited report",
	Long: `Research runs the deep pipeline: sources are discovered through the
primary query plus related searches, crawled inside a sandboxed browser,
optionally condensed by an agent model, and assembled into a structured
report with per-sentence citations.

When the sandbox is unavailable the run degrades to search snippets
rather than failing. Progress is reported on stderr.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResearch,
}

func runResearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	cfg, err := loadPipelineConfig()
	if err != nil {
		return err
	}
	if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
		cfg.Research.Mode = types.ResearchMode(mode)
	}
	if opt, _ := cmd.Flags().GetString("optimization"); opt != "" {
		cfg.Research.Optimization = types.Optimization(opt)
	}
	if err := cfg.Research.Validate(); err != nil {
		return err
	}

	log, err := buildLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	orchestrator, err := buildOrchestrator(cfg, log)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	run, err := renderStream(context.Background(), orchestrator.Run(query), os.Stdout, jsonOutput)
	if err != nil {
		return fmt.Errorf("research failed: %w", err)
	}

	run.Kind = history.KindResearch
	run.Query = query
	saveRun(context.Background(), cfg.History, run)
	return nil
}

// buildOrchestrator assembles the deep-research pipeline. The sandbox and
// agent stages are optional; without them the run degrades to snippets and
// raw content respectively.
func buildOrchestrator(cfg types.PipelineConfig, log *zap.Logger) (*research.Orchestrator, error) {
	backend, err := buildSearchBackend(cfg, log)
	if err != nil {
		return nil, err
	}
	chain, err := buildLLMChain(cfg, log)
	if err != nil {
		return nil, err
	}

	var rpc sandbox.RPC
	if cfg.Sandbox.BaseURL != "" {
		rpc = sandbox.NewClient(cfg.Sandbox, log)
	} else {
		log.Warn("sandbox.base_url not configured, research will use search snippets only")
	}

	return research.NewOrchestrator(
		backend,
		chain,
		rpc,
		research.NewSummarizer(cfg.Agent, log),
		cfg.Research,
		cfg.Sandbox.Flavor,
		cfg.Search.UserAgent,
		log,
	), nil
}

func init() {
	researchCmd.Flags().String("mode", "", "budget baseline: light or max")
	researchCmd.Flags().String("optimization", "", "budget scaling: speed, balanced, or quality")
	researchCmd.Flags().Bool("json", false, "emit the raw event stream as NDJSON")

	rootCmd.AddCommand(researchCmd)
}
