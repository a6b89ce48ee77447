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
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/simplylegal/internal/api"
	"github.com/valpere/simplylegal/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API.

Endpoints:
  GET  /health           liveness probe
  GET  /api/             hello message
  POST /api/llm_output   {"text": "...", "mode": "legal"} -> rewritten text and audio
  POST /api/upload       multipart "file" (.txt, .md, .pdf, .docx) -> extracted text`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := buildLogger(cfg, true)
		if err != nil {
			return err
		}
		logger = log

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		db := openStore(cfg)
		if db != nil {
			defer db.Close()
		}

		orch, err := buildPipeline(cfg, db, log)
		if err != nil {
			return err
		}

		if tr, err := buildTranslator(cfg); err == nil {
			checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := tr.IsAvailable(checkCtx); err != nil {
				log.Warn("translator not reachable yet", "translator", tr.Name(), "error", err)
			}
			cancel()
		}

		httpServer := &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      api.NewServer(orch, log, *cfg),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: writeTimeout(cfg),
			IdleTimeout:  60 * time.Second,
		}

		go func() {
			<-ctx.Done()
			log.Info("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			httpServer.Shutdown(shutdownCtx)
		}()

		log.Info("starting simplylegal", "port", cfg.Port, "llm", cfg.LLMProvider, "model", cfg.LLMModel)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	},
}

// writeTimeout leaves room for every chunk of a maximum-length document to
// use its full timeout, plus narration.
func writeTimeout(c *config.Config) time.Duration {
	chunks := c.MaxTextLength/c.ChunkSize + 1
	if !c.EnableChunking {
		chunks = 1
	}
	return time.Duration(chunks)*c.LLMTimeout + 2*time.Minute
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int(config.FlagName(config.KeyPort), 8000, "HTTP port")
	serveCmd.Flags().Int64(config.FlagName(config.KeyMaxUploadBytes), 10<<20, "Maximum upload size in bytes")
	addPipelineFlags(serveCmd)
}
