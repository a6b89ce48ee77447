/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/simplylegal/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded rewrite requests",
	Long:  `List, inspect, summarise, and clear the request history kept in SQLite.`,
}

var historyLimit int

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		entries, err := db.ListRequests(context.Background(), historyLimit)
		if err != nil {
			return fmt.Errorf("failed to list requests: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println("No requests recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tMODE\tSTATUS\tCHUNKS\tAUDIO\tMS\tWHEN\tTEXT")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%v\t%d\t%s\t%s\n",
				e.ID, e.Mode, e.Status, e.ChunksProcessed, e.HasAudio, e.ElapsedMS,
				e.Timestamp.Format("2006-01-02 15:04"), snippet(e.SourceText, 40))
		}
		return w.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one request with its chunk timings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		e, chunks, err := db.GetRequest(context.Background(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("ID:      %s\n", e.ID)
		fmt.Printf("Mode:    %s\n", e.Mode)
		fmt.Printf("Status:  %s\n", e.Status)
		fmt.Printf("When:    %s\n", e.Timestamp.Format("2006-01-02 15:04:05"))
		fmt.Printf("Elapsed: %dms\n", e.ElapsedMS)
		if e.Error != "" {
			fmt.Printf("Error:   %s\n", e.Error)
		}
		fmt.Printf("\n--- source ---\n%s\n", e.SourceText)
		if e.FinalText != "" {
			fmt.Printf("\n--- result ---\n%s\n", e.FinalText)
		}

		if len(chunks) > 0 {
			fmt.Println()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CHUNK\tIN\tOUT\tMS\tOUTCOME")
			for _, c := range chunks {
				fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%s\n", c.Index, c.InputLen, c.OutputLen, c.LatencyMS, c.Outcome)
			}
			return w.Flush()
		}
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show request statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		stats, err := db.Stats(context.Background())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		fmt.Printf("Total requests:  %d\n", stats.TotalRequests)
		fmt.Printf("Succeeded:       %d\n", stats.Succeeded)
		fmt.Printf("Partial:         %d\n", stats.Partial)
		fmt.Printf("Failed:          %d\n", stats.Failed)
		fmt.Printf("Chunks:          %d\n", stats.TotalChunks)
		fmt.Printf("Avg chunk time:  %.0fms\n", stats.AvgChunkMS)
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all recorded requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		n, err := db.ClearHistory(context.Background())
		if err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		fmt.Printf("Cleared %d requests.\n", n)
		return nil
	},
}

func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of requests to show (0 = all)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyStatsCmd)
	historyCmd.AddCommand(historyClearCmd)
}
