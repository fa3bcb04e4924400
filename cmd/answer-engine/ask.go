// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/answer-engine/internal/history"
	"github.com/pdiddy/answer-engine/internal/retrieve"
	"github.com/pdiddy/answer-engine/pkg/types"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question with web-grounded context",
	Long: `Ask runs the quick pipeline: the question is analyzed and rewritten, the
web is searched (or user-supplied links are fetched directly), candidate
documents are reranked by similarity, and a cited answer is streamed to
stdout. Sources are listed after the answer.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	cfg, err := loadPipelineConfig()
	if err != nil {
		return err
	}
	if opt, _ := cmd.Flags().GetString("optimization"); opt != "" {
		cfg.Research.Optimization = types.Optimization(opt)
		if err := cfg.Research.Validate(); err != nil {
			return err
		}
	}

	log, err := buildLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	backend, err := buildSearchBackend(cfg, log)
	if err != nil {
		return err
	}
	chain, err := buildLLMChain(cfg, log)
	if err != nil {
		return err
	}
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}

	quick := retrieve.NewChain(
		chain,
		backend,
		retrieve.NewFetcher(cfg.Search.UserAgent),
		retrieve.NewReranker(embedder, cfg.Rerank),
		cfg.Research.Optimization,
		log,
	)

	jsonOutput, _ := cmd.Flags().GetBool("json")
	run, err := renderStream(context.Background(), quick.Answer(nil, query), os.Stdout, jsonOutput)
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}

	run.Kind = history.KindQuick
	run.Query = query
	saveRun(context.Background(), cfg.History, run)
	return nil
}

func init() {
	askCmd.Flags().String("optimization", "", "reranking strategy: speed, balanced, or quality")
	askCmd.Flags().Bool("json", false, "emit the raw event stream as NDJSON")

	rootCmd.AddCommand(askCmd)
}
