// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "answer-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchConfig holds settings for the web-search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// SearxNGURL is the base URL of the primary SearxNG instance.
	SearxNGURL string `json:"searxng_url" yaml:"searxng_url"`

	// BraveAPIKey enables the Brave fallback provider when set.
	BraveAPIKey string `json:"brave_api_key,omitempty" yaml:"brave_api_key,omitempty"`

	// MaxResults caps the results returned per provider call (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// CandidateConfig describes one LLM inference candidate. Candidates are
// tried in order; index 0 is primary.
type CandidateConfig struct {
	// Name identifies the candidate in logs and errors.
	Name string `json:"name" yaml:"name"`

	// BaseURL is the OpenAI-compatible API base (e.g. "https://api.openai.com/v1").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// APIKey authenticates requests to this candidate.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Model is the model identifier sent in requests.
	Model string `json:"model" yaml:"model"`
}

// LLMConfig holds the candidate chain and generation defaults.
type LLMConfig struct {
	// Candidates is the ordered fallback chain. At least one is required.
	Candidates []CandidateConfig `json:"candidates" yaml:"candidates"`

	// EmbeddingBaseURL is the OpenAI-compatible embeddings endpoint base.
	EmbeddingBaseURL string `json:"embedding_base_url" yaml:"embedding_base_url"`

	// EmbeddingAPIKey authenticates embedding requests.
	EmbeddingAPIKey string `json:"embedding_api_key,omitempty" yaml:"embedding_api_key,omitempty"`

	// EmbeddingModel is the embedding model identifier.
	EmbeddingModel string `json:"embedding_model" yaml:"embedding_model"`
}

// RerankConfig holds reranking settings.
type RerankConfig struct {
	// SimilarityThreshold filters documents scoring below it (default 0.3).
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold"`

	// MaxDocuments caps reranker output (default 15).
	MaxDocuments int `json:"max_documents" yaml:"max_documents"`
}

// SandboxConfig holds settings for the remote sandbox service.
type SandboxConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the sandbox RPC endpoint.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// APIKey is the bearer token for sandbox RPC calls.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Flavor selects the sandbox machine size (e.g. "medium").
	Flavor string `json:"flavor" yaml:"flavor"`
}

// AgentConfig holds the optional agent-summarizer endpoint. Summarization
// is attempted only when both fields are set.
type AgentConfig struct {
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model   string `json:"model,omitempty" yaml:"model,omitempty"`
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// ResearchMode sets the baseline deep-research budget.
type ResearchMode string

const (
	ModeLight ResearchMode = "light"
	ModeMax   ResearchMode = "max"
)

// Optimization scales budgets and selects the reranking strategy.
type Optimization string

const (
	OptSpeed    Optimization = "speed"
	OptBalanced Optimization = "balanced"
	OptQuality  Optimization = "quality"
)

// OptimizationMultipliers scales a mode's baseline budget. Multiplicative,
// not additive; scaled results are floor-clamped by the budget code.
type OptimizationMultipliers struct {
	// Count scales source, page, depth, and related-query counts.
	Count float64 `json:"count" yaml:"count"`

	// Duration scales wall-clock budgets.
	Duration float64 `json:"duration" yaml:"duration"`

	// Chars scales per-source character budgets.
	Chars float64 `json:"chars" yaml:"chars"`
}

// DefaultMultipliers is the optimization scaling table. Validated at
// startup rather than looked up from loose string maps.
var DefaultMultipliers = map[Optimization]OptimizationMultipliers{
	OptSpeed:    {Count: 0.7, Duration: 0.6, Chars: 0.7},
	OptBalanced: {Count: 0.85, Duration: 0.8, Chars: 0.85},
	OptQuality:  {Count: 1.0, Duration: 1.0, Chars: 1.0},
}

// ResearchConfig holds deep-research settings.
type ResearchConfig struct {
	// Mode selects the baseline budget: light or max.
	Mode ResearchMode `json:"mode" yaml:"mode"`

	// Optimization scales the baseline: speed, balanced, or quality.
	Optimization Optimization `json:"optimization" yaml:"optimization"`

	// Multipliers overrides DefaultMultipliers when non-empty.
	Multipliers map[Optimization]OptimizationMultipliers `json:"multipliers,omitempty" yaml:"multipliers,omitempty"`
}

// ResolveMultipliers returns the multiplier table in effect.
func (c ResearchConfig) ResolveMultipliers() map[Optimization]OptimizationMultipliers {
	if len(c.Multipliers) > 0 {
		return c.Multipliers
	}
	return DefaultMultipliers
}

// Validate checks the research configuration at startup.
func (c ResearchConfig) Validate() error {
	switch c.Mode {
	case ModeLight, ModeMax:
	default:
		return fmt.Errorf("invalid research mode %q (want light or max)", c.Mode)
	}
	switch c.Optimization {
	case OptSpeed, OptBalanced, OptQuality:
	default:
		return fmt.Errorf("invalid optimization %q (want speed, balanced, or quality)", c.Optimization)
	}
	table := c.ResolveMultipliers()
	for _, opt := range []Optimization{OptSpeed, OptBalanced, OptQuality} {
		m, ok := table[opt]
		if !ok {
			return fmt.Errorf("missing multipliers for optimization %q", opt)
		}
		if m.Count <= 0 || m.Duration <= 0 || m.Chars <= 0 {
			return fmt.Errorf("multipliers for %q must be positive", opt)
		}
	}
	return nil
}

// HistoryConfig holds settings for the run-history store.
type HistoryConfig struct {
	// Dir is the directory holding the history database (default "history/").
	Dir string `json:"dir" yaml:"dir"`
}

// ServerConfig holds settings for the HTTP stream server.
type ServerConfig struct {
	// Addr is the listen address (default ":3001").
	Addr string `json:"addr" yaml:"addr"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Search   SearchConfig   `json:"search" yaml:"search"`
	LLM      LLMConfig      `json:"llm" yaml:"llm"`
	Rerank   RerankConfig   `json:"rerank" yaml:"rerank"`
	Sandbox  SandboxConfig  `json:"sandbox" yaml:"sandbox"`
	Agent    AgentConfig    `json:"agent" yaml:"agent"`
	Research ResearchConfig `json:"research" yaml:"research"`
	History  HistoryConfig  `json:"history" yaml:"history"`
	Server   ServerConfig   `json:"server" yaml:"server"`
}
