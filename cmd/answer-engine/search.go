// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Probe the web-search providers directly",
	Long: `Search runs one query through the configured provider pair (SearxNG
primary, Brave fallback) and prints the unified results. Useful for
verifying provider configuration before running the full pipelines.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	cfg, err := loadPipelineConfig()
	if err != nil {
		return err
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

	resp := backend.Search(context.Background(), query)

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if resp.Err != "" {
		fmt.Fprintf(os.Stderr, "search degraded: %s\n", resp.Err)
	}
	if len(resp.Results) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for i, r := range resp.Results {
		fmt.Printf("%2d. %s\n    %s\n", i+1, r.Title, r.URL)
		if r.Content != "" {
			snippet := r.Content
			if len(snippet) > 120 {
				snippet = snippet[:117] + "..."
			}
			fmt.Printf("    %s\n", snippet)
		}
	}
	if len(resp.Suggestions) > 0 {
		fmt.Printf("\nRelated: %s\n", strings.Join(resp.Suggestions, ", "))
	}
	return nil
}

func init() {
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}
