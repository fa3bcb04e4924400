// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/answer-engine/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse past answer and research runs",
	Long: `History lists, shows, searches, and deletes runs persisted by the ask,
research, and serve commands.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.List(context.Background(), limit)
	if err != nil {
		return err
	}
	return printRuns(cmd, runs)
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one run in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.Get(context.Background(), args[0])
		if err != nil {
			return err
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		}

		fmt.Printf("%s  %s  %s\n", run.ID, run.Kind, run.CreatedAt.Format("2006-01-02 15:04"))
		fmt.Printf("Q: %s\n\n%s\n", run.Query, run.Answer)
		printSources(run.Sources)
		return nil
	},
}

var historySearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Full-text search over past queries and answers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := store.Search(context.Background(), strings.Join(args, " "), limit)
		if err != nil {
			return err
		}
		return printRuns(cmd, runs)
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()
		return store.Delete(context.Background(), args[0])
	},
}

func openHistory() (*history.Store, error) {
	cfg, err := loadPipelineConfig()
	if err != nil {
		return nil, err
	}
	return history.NewStore(cfg.History)
}

func printRuns(cmd *cobra.Command, runs []history.Run) error {
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found.")
		return nil
	}
	for _, run := range runs {
		query := run.Query
		if len(query) > 60 {
			query = query[:57] + "..."
		}
		fmt.Printf("%s  %-8s  %s  %s\n",
			run.ID, run.Kind, run.CreatedAt.Format("2006-01-02 15:04"), query)
	}
	return nil
}

func init() {
	historyCmd.PersistentFlags().Int("limit", 20, "maximum runs to list")
	historyCmd.PersistentFlags().Bool("json", false, "output as JSON")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historySearchCmd)
	historyCmd.AddCommand(historyDeleteCmd)

	rootCmd.AddCommand(historyCmd)
}
