// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/llm"
	"github.com/pdiddy/answer-engine/internal/search"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// loadPipelineConfig assembles the pipeline configuration from the config
// file, environment, and .secrets/.
func loadPipelineConfig() (types.PipelineConfig, error) {
	var cfg types.PipelineConfig

	cfg.Search.SearxNGURL = secretDefault("searxng-url", viper.GetString("search.searxng_url"))
	cfg.Search.BraveAPIKey = secretDefault("brave-api-key", viper.GetString("search.brave_api_key"))
	cfg.Search.MaxResults = viper.GetInt("search.max_results")
	cfg.Search.UserAgent = viper.GetString("search.user_agent")
	if cfg.Search.UserAgent == "" {
		cfg.Search.UserAgent = "answer-engine/" + version
	}

	yamlTags := func(dc *mapstructure.DecoderConfig) { dc.TagName = "yaml" }
	if err := viper.UnmarshalKey("llm.candidates", &cfg.LLM.Candidates, yamlTags); err != nil {
		return cfg, fmt.Errorf("parsing llm.candidates: %w", err)
	}
	for i := range cfg.LLM.Candidates {
		cfg.LLM.Candidates[i].APIKey = secretDefault("openai-api-key", cfg.LLM.Candidates[i].APIKey)
	}
	cfg.LLM.EmbeddingBaseURL = viper.GetString("llm.embedding_base_url")
	cfg.LLM.EmbeddingAPIKey = secretDefault("embedding-api-key", viper.GetString("llm.embedding_api_key"))
	cfg.LLM.EmbeddingModel = viper.GetString("llm.embedding_model")

	cfg.Rerank.SimilarityThreshold = viper.GetFloat64("rerank.similarity_threshold")
	cfg.Rerank.MaxDocuments = viper.GetInt("rerank.max_documents")

	cfg.Sandbox.BaseURL = viper.GetString("sandbox.base_url")
	cfg.Sandbox.APIKey = secretDefault("sandbox-api-key", viper.GetString("sandbox.api_key"))
	cfg.Sandbox.Flavor = viper.GetString("sandbox.flavor")
	if cfg.Sandbox.Flavor == "" {
		cfg.Sandbox.Flavor = "medium"
	}

	cfg.Agent.BaseURL = viper.GetString("agent.base_url")
	cfg.Agent.Model = viper.GetString("agent.model")
	cfg.Agent.APIKey = secretDefault("agent-api-key", viper.GetString("agent.api_key"))

	cfg.Research.Mode = types.ResearchMode(viper.GetString("research.mode"))
	if cfg.Research.Mode == "" {
		cfg.Research.Mode = types.ModeLight
	}
	cfg.Research.Optimization = types.Optimization(viper.GetString("research.optimization"))
	if cfg.Research.Optimization == "" {
		cfg.Research.Optimization = types.OptBalanced
	}
	if err := cfg.Research.Validate(); err != nil {
		return cfg, err
	}

	cfg.History.Dir = viper.GetString("history.dir")
	cfg.Server.Addr = viper.GetString("server.addr")
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":3001"
	}

	return cfg, nil
}

// buildLogger constructs the process logger. Verbose runs use the
// development encoder at debug level.
func buildLogger() (*zap.Logger, error) {
	verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
	if verbose {
		return zap.NewDevelopment()
	}
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}

// buildSearchBackend wires the SearxNG primary and optional Brave fallback.
func buildSearchBackend(cfg types.PipelineConfig, log *zap.Logger) (*search.Backend, error) {
	if cfg.Search.SearxNGURL == "" {
		return nil, fmt.Errorf("search.searxng_url is required (config file or .secrets/searxng-url)")
	}
	primary := search.NewSearxNG(cfg.Search.SearxNGURL, cfg.Search)

	var fallback search.Provider
	if cfg.Search.BraveAPIKey != "" {
		fallback = search.NewBrave(cfg.Search.BraveAPIKey, cfg.Search)
	}
	return search.NewBackend(primary, fallback, log), nil
}

// buildLLMChain wires the candidate fallback chain.
func buildLLMChain(cfg types.PipelineConfig, log *zap.Logger) (*llm.Chain, error) {
	if len(cfg.LLM.Candidates) == 0 {
		return nil, fmt.Errorf("llm.candidates is required: configure at least one model")
	}
	candidates := make([]llm.Candidate, 0, len(cfg.LLM.Candidates))
	for _, c := range cfg.LLM.Candidates {
		candidates = append(candidates, llm.Candidate{
			Name:      c.Name,
			Generator: llm.NewClient(c),
		})
	}
	return llm.NewChain(candidates, log)
}

// buildEmbedder wires the embeddings client.
func buildEmbedder(cfg types.PipelineConfig) (*llm.EmbeddingClient, error) {
	if cfg.LLM.EmbeddingModel == "" {
		return nil, fmt.Errorf("llm.embedding_model is required for reranking")
	}
	return llm.NewEmbeddingClient(cfg.LLM), nil
}
