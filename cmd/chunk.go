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
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/simplylegal/internal/config"
	"github.com/valpere/simplylegal/internal/orchestrator"
)

var chunkInput string

var chunkCmd = &cobra.Command{
	Use:   "chunk",
	Short: "Show how a document would be split",
	Long: `Print the chunk plan for a document without calling any model: one line
per chunk with its index, length in characters and opening words.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(chunkInput, cfg.MaxUploadBytes)
		if err != nil {
			return err
		}

		chunks := orchestrator.Plan(text, cfg.ChunkSize, cfg.EnableChunking)
		if len(chunks) == 0 {
			fmt.Println("Document is empty.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "INDEX\tLENGTH\tTEXT")
		for _, c := range chunks {
			snippet := strings.Join(strings.Fields(c.Text), " ")
			if r := []rune(snippet); len(r) > 60 {
				snippet = string(r[:57]) + "..."
			}
			flag := ""
			if c.Len() > cfg.ChunkSize && cfg.EnableChunking {
				flag = " (oversized sentence)"
			}
			fmt.Fprintf(w, "%d\t%d%s\t%s\n", c.Index, c.Len(), flag, snippet)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\n%d chunk(s), limit %d\n", len(chunks), cfg.ChunkSize)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chunkCmd)

	chunkCmd.Flags().StringVarP(&chunkInput, "input", "i", "", "Input file, or - for stdin (required)")
	chunkCmd.Flags().Int(config.FlagName(config.KeyChunkSize), 1000, "Maximum chunk length in characters")
	chunkCmd.Flags().Bool(config.FlagName(config.KeyEnableChunking), true, "Split long documents into chunks")
	chunkCmd.MarkFlagRequired("input")
}
