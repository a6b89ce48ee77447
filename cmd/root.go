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
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/valpere/simplylegal/internal/config"
)

var version = "0.3.0"

var (
	envFile string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "simplylegal",
	Short: "Rewrite legal and archaic English into plain language",
	Long: `A CLI and HTTP service that rewrites legal or archaic English into plain
modern English with a local or hosted LLM, and can read the result aloud.

Long documents are split at paragraph and sentence boundaries, each chunk is
rewritten, and the chunks are merged back in order.

Settings come from flags, environment variables and a .env file, in that order.

Use "simplylegal translate --help" for rewrite options.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(envFile, cmd.Flags())
		if err != nil {
			return err
		}
		logger, err = buildLogger(cfg, false)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceErrors = true

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a .env file (ignored if missing)")
	rootCmd.PersistentFlags().String(config.FlagName(config.KeyLogLevel), "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String(config.FlagName(config.KeyDBPath), "./data/simplylegal.db", "Database path for history and glossary")
}
