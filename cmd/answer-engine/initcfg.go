// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/answer-engine/pkg/types"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the answer-engine configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter answer-engine.yaml",
	Long: `Init writes a commented starter configuration to ./answer-engine.yaml.
API keys can live in the file or as single-line files under .secrets/
(searxng-url, brave-api-key, openai-api-key, embedding-api-key,
sandbox-api-key, agent-api-key).`,
	RunE: runConfigInit,
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	const path = "answer-engine.yaml"
	if _, err := os.Stat(path); err == nil {
		force, _ := cmd.Flags().GetBool("force")
		if !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	cfg := types.PipelineConfig{
		Search: types.SearchConfig{
			SearxNGURL: "http://localhost:8080",
			MaxResults: 20,
		},
		LLM: types.LLMConfig{
			Candidates: []types.CandidateConfig{
				{Name: "primary", BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini"},
			},
			EmbeddingBaseURL: "https://api.openai.com/v1",
			EmbeddingModel:   "text-embedding-3-small",
		},
		Rerank: types.RerankConfig{
			SimilarityThreshold: 0.3,
			MaxDocuments:        15,
		},
		Sandbox: types.SandboxConfig{
			Flavor: "medium",
		},
		Research: types.ResearchConfig{
			Mode:         types.ModeLight,
			Optimization: types.OptBalanced,
		},
		History: types.HistoryConfig{Dir: "history"},
		Server:  types.ServerConfig{Addr: ":3001"},
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

func init() {
	configInitCmd.Flags().Bool("force", false, "overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
