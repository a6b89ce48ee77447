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
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/valpere/simplylegal/internal"
	"github.com/valpere/simplylegal/internal/config"
	"github.com/valpere/simplylegal/internal/orchestrator"
)

var (
	csvInputFile  string
	csvOutputFile string
	csvModeName   string
	csvColumns    []int
	csvSkipHeader bool
	csvNoHistory  bool
)

var csvCmd = &cobra.Command{
	Use:   "csv",
	Short: "Rewrite columns of a CSV file",
	Long: `Rewrite one or more columns of a CSV file, one cell per pipeline run.

By default all columns are rewritten. Use -l to select specific columns
(0-indexed). The flag may be repeated to select multiple columns. A cell whose
rewrite fails keeps its original text.

Example:
  simplylegal translate csv -i clauses.csv -o plain.csv -l 2 --skip-header`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if csvInputFile == csvOutputFile {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		mode, err := internal.ParseMode(csvModeName)
		if err != nil {
			return err
		}

		f, err := os.Open(csvInputFile)
		if err != nil {
			return fmt.Errorf("failed to open input CSV: %w", err)
		}
		defer f.Close()

		reader := csv.NewReader(f)
		reader.FieldsPerRecord = -1
		records, err := reader.ReadAll()
		if err != nil {
			return fmt.Errorf("failed to read CSV: %w", err)
		}

		if len(records) == 0 {
			return fmt.Errorf("CSV file is empty")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg.TTSProvider = config.TTSNone
		if csvNoHistory {
			cfg.DBPath = ""
		}
		db := openHistory()
		if db != nil {
			defer db.Close()
		}

		orch, err := buildPipeline(cfg, db, logger)
		if err != nil {
			return err
		}

		colSet := make(map[int]bool, len(csvColumns))
		for _, c := range csvColumns {
			colSet[c] = true
		}
		rewriteAll := len(csvColumns) == 0

		out := make([][]string, len(records))
		var rewritten, failed int
		for rowIdx, row := range records {
			out[rowIdx] = make([]string, len(row))
			copy(out[rowIdx], row)

			if rowIdx == 0 && csvSkipHeader {
				continue
			}

			for colIdx, cell := range row {
				if !rewriteAll && !colSet[colIdx] {
					continue
				}
				if cell == "" {
					continue
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}

				outcome, err := orch.Run(ctx, orchestrator.Request{Text: cell, Mode: mode})
				if err != nil {
					fmt.Fprintf(os.Stderr, "Row %d col %d: %v, keeping original\n", rowIdx, colIdx, err)
					failed++
					continue
				}
				out[rowIdx][colIdx] = outcome.Text
				rewritten++
			}
		}

		outFile, err := os.Create(csvOutputFile)
		if err != nil {
			return fmt.Errorf("failed to create output CSV: %w", err)
		}
		defer outFile.Close()

		writer := csv.NewWriter(outFile)
		if err := writer.WriteAll(out); err != nil {
			return fmt.Errorf("failed to write output CSV: %w", err)
		}
		if err := writer.Error(); err != nil {
			return fmt.Errorf("failed to flush output CSV: %w", err)
		}

		fmt.Fprintf(os.Stderr, "Rewrote %d cell(s), %d kept original: %s\n", rewritten, failed, csvOutputFile)
		return nil
	},
}

func init() {
	translateCmd.AddCommand(csvCmd)

	csvCmd.Flags().StringVarP(&csvInputFile, "input", "i", "", "Input CSV file (required)")
	csvCmd.Flags().StringVarP(&csvOutputFile, "output", "o", "", "Output CSV file (required)")
	csvCmd.Flags().StringVarP(&csvModeName, "mode", "m", "legal", "Rewrite mode: legal or oldEnglish")
	csvCmd.Flags().IntSliceVarP(&csvColumns, "column", "l", nil, "Column index to rewrite (0-indexed, repeatable; default: all columns)")
	csvCmd.Flags().BoolVar(&csvSkipHeader, "skip-header", false, "Leave the first row unchanged")
	csvCmd.Flags().BoolVar(&csvNoHistory, "no-history", false, "Do not record the runs in the history database")
	addPipelineFlags(csvCmd)

	csvCmd.MarkFlagRequired("input")
	csvCmd.MarkFlagRequired("output")
}
