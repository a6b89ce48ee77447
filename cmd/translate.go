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
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/valpere/simplylegal/internal"
	"github.com/valpere/simplylegal/internal/config"
	"github.com/valpere/simplylegal/internal/extract"
	"github.com/valpere/simplylegal/internal/orchestrator"
	"github.com/valpere/simplylegal/internal/store"
)

var (
	inputFile  string
	outputFile string
	audioFile  string
	modeName   string
	noHistory  bool
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Rewrite a document into plain English",
	Long: `Rewrite legal or archaic English into plain modern English.

Input may be a .txt, .md, .pdf or .docx file, or "-" for stdin. The result is
written to --output, or to stdout when no output file is given.

Modes:
  - legal        legal language to plain English (default)
  - oldEnglish   archaic English to modern English

Narration:
  --audio out.mp3 writes speech for the result; requires TTS_PROVIDER=openai
  or TTS_PROVIDER=command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputFile != "" && outputFile != "-" && inputFile == outputFile {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		mode, err := internal.ParseMode(modeName)
		if err != nil {
			return err
		}

		text, err := readInput(inputFile, cfg.MaxUploadBytes)
		if err != nil {
			return err
		}

		if audioFile == "" {
			// no audio requested
			cfg.TTSProvider = config.TTSNone
		} else if cfg.TTSProvider == config.TTSNone {
			return fmt.Errorf("--audio needs a narrator; set TTS_PROVIDER to openai or command")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if noHistory {
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

		outcome, err := orch.Run(ctx, orchestrator.Request{Text: text, Mode: mode})
		if err != nil {
			if outcome != nil {
				return fmt.Errorf("rewrite failed after %d chunk(s): %w", outcome.ChunksProcessed, err)
			}
			return err
		}

		if err := writeOutput(outputFile, []byte(outcome.Text+"\n")); err != nil {
			return err
		}

		if audioFile != "" {
			if len(outcome.Audio) > 0 {
				if err := writeOutput(audioFile, outcome.Audio); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(os.Stderr, "Warning: narration failed, no audio written: %v\n", outcome.Err)
			}
		}

		fmt.Fprintf(os.Stderr, "Rewrote %d chunk(s) in %s mode (%s)\n", outcome.ChunksProcessed, mode, outcome.Status)
		return nil
	},
}

// openHistory opens the store unless history was switched off.
func openHistory() *store.Store {
	if cfg.DBPath == "" {
		return nil
	}
	return openStore(cfg)
}

// readInput reads a file or stdin. Rich formats go through the same
// extraction as HTTP uploads.
func readInput(path string, maxBytes int64) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read input file: %w", err)
	}
	if ext, err := extract.FileType(path); err == nil && ext != ".txt" {
		doc, err := extract.Extract(filepath.Base(path), data, maxBytes)
		if err != nil {
			return "", err
		}
		return doc.Text, nil
	}
	return string(data), nil
}

func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input file to rewrite, or - for stdin (required)")
	translateCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default stdout)")
	translateCmd.Flags().StringVarP(&audioFile, "audio", "a", "", "Write narration audio to this file")
	translateCmd.Flags().StringVarP(&modeName, "mode", "m", "legal", "Rewrite mode: legal or oldEnglish")
	translateCmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record this run in the history database")
	addPipelineFlags(translateCmd)

	translateCmd.MarkFlagRequired("input")
}
