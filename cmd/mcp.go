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
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/valpere/simplylegal/internal/config"
	"github.com/valpere/simplylegal/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the rewrite pipeline as an MCP tool over stdio",
	Long: `Start a Model Context Protocol server on stdin/stdout exposing the
simplify_text tool. Narration is disabled; the tool returns text only.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.TTSProvider = config.TTSNone

		db := openStore(cfg)
		if db != nil {
			defer db.Close()
		}

		orch, err := buildPipeline(cfg, db, logger)
		if err != nil {
			return err
		}

		server := mcpserver.NewMCPServer("simplylegal", version)
		mcp.RegisterTools(server, orch)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("MCP server starting on stdio")

		serverErr := make(chan error, 1)
		go func() {
			serverErr <- mcpserver.ServeStdio(server)
		}()

		select {
		case <-ctx.Done():
			logger.Info("shutdown signal received")
		case err := <-serverErr:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	addPipelineFlags(mcpCmd)
}
