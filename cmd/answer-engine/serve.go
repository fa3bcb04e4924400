// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/answer-engine/internal/api"
	"github.com/pdiddy/answer-engine/internal/history"
	"github.com/pdiddy/answer-engine/internal/retrieve"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the answer and research pipelines over HTTP",
	Long: `Serve exposes the pipelines as an HTTP API. POST /api/answer and
POST /api/research stream newline-delimited JSON events; completed runs
are persisted and browsable under /api/history. The server shuts down
gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadPipelineConfig()
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
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

	orchestrator, err := buildOrchestrator(cfg, log)
	if err != nil {
		return err
	}

	store, err := history.NewStore(cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(quick, orchestrator, store, log)
	return server.Start(ctx, cfg.Server.Addr)
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :3001)")

	rootCmd.AddCommand(serveCmd)
}
