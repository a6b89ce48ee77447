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
	"github.com/valpere/simplylegal/internal/narrator"
	"github.com/valpere/simplylegal/internal/orchestrator"
	"github.com/valpere/simplylegal/internal/store"
	"github.com/valpere/simplylegal/internal/translator"
)

// buildLogger writes to stderr so stdout stays free for output and for the
// MCP stdio transport. The HTTP server asks for JSON.
func buildLogger(c *config.Config, json bool) (*slog.Logger, error) {
	level, err := c.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
}

// addPipelineFlags registers the flags shared by every command that runs the
// pipeline. Flags left unset fall back to the environment.
func addPipelineFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int(config.FlagName(config.KeyChunkSize), 1000, "Maximum chunk length in characters")
	f.Bool(config.FlagName(config.KeyEnableChunking), true, "Split long documents into chunks")
	f.String(config.FlagName(config.KeyLLMTimeout), "60s", "Timeout per chunk (seconds or Go duration)")
	f.Int(config.FlagName(config.KeyMaxTextLength), 5000, "Maximum input length in characters")
	f.Int(config.FlagName(config.KeyMaxConcurrency), 1, "Chunks translated at once (1 = sequential)")
	f.Float64(config.FlagName(config.KeyLLMRateLimit), 0, "Maximum LLM calls per second (0 = unlimited)")

	f.String(config.FlagName(config.KeyLLMProvider), config.ProviderOllama, "LLM backend: ollama or openai")
	f.String(config.FlagName(config.KeyLLMModel), config.DefaultLLMModel, "Model name")
	f.String(config.FlagName(config.KeyOllamaURL), translator.DefaultOllamaURL, "Ollama base URL")
	f.String(config.FlagName(config.KeyOpenAIBaseURL), "", "OpenAI-compatible base URL (e.g. "+translator.OpenRouterBaseURL+")")

	f.String(config.FlagName(config.KeyTTSProvider), config.TTSNone, "Narrator: none, openai or command")
	f.String(config.FlagName(config.KeyTTSVoice), narrator.DefaultOpenAIVoice, "OpenAI voice")
	f.String(config.FlagName(config.KeyTTSCommand), narrator.DefaultCommand, "Speech command reading text on stdin")
}

func buildTranslator(c *config.Config) (translator.Translator, error) {
	switch c.LLMProvider {
	case config.ProviderOllama:
		return translator.NewOllamaTranslator(c.OllamaURL, c.LLMModel), nil
	case config.ProviderOpenAI:
		model := c.LLMModel
		if model == config.DefaultLLMModel {
			model = translator.DefaultOpenAIModel
		}
		return translator.NewOpenAITranslator(translator.ServiceConfig{
			APIKey:  c.OpenAIAPIKey,
			Model:   model,
			BaseURL: c.OpenAIBaseURL,
		})
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", c.LLMProvider)
	}
}

// buildNarrator returns nil when narration is off.
func buildNarrator(c *config.Config) (narrator.Narrator, error) {
	switch c.TTSProvider {
	case config.TTSNone:
		return nil, nil
	case config.TTSOpenAI:
		return narrator.NewOpenAINarrator(c.OpenAIAPIKey, c.OpenAIBaseURL, c.TTSModel, c.TTSVoice)
	case config.TTSCommand:
		return narrator.NewCommandNarrator(c.TTSCommand)
	default:
		return nil, fmt.Errorf("unknown TTS provider: %s", c.TTSProvider)
	}
}

// openStore opens the history database. A failure is logged and nil returned:
// history is optional for every pipeline command.
func openStore(c *config.Config) *store.Store {
	db, err := store.Open(c.DBPath)
	if err != nil {
		logger.Warn("history disabled", "db", c.DBPath, "error", err)
		return nil
	}
	return db
}

// buildPipeline wires the translator, the narrator and, when db is not nil,
// history and glossary.
func buildPipeline(c *config.Config, db *store.Store, log *slog.Logger) (*orchestrator.Orchestrator, error) {
	tr, err := buildTranslator(c)
	if err != nil {
		return nil, err
	}
	nar, err := buildNarrator(c)
	if err != nil {
		return nil, err
	}

	opts := orchestrator.Options{
		ChunkSize:      c.ChunkSize,
		EnableChunking: c.EnableChunking,
		MaxLength:      c.MaxTextLength,
		Timeout:        c.LLMTimeout,
		Concurrency:    c.MaxConcurrency,
		RateLimit:      c.LLMRateLimit,
		Logger:         log,
	}
	if db != nil {
		opts.Recorder = db
		opts.Glossary = db
	}

	log.Debug("pipeline configured",
		"translator", tr.Name(),
		"model", c.LLMModel,
		"tts", c.TTSProvider,
		"chunk_size", c.ChunkSize,
		"chunking", c.EnableChunking,
		"concurrency", c.MaxConcurrency)

	return orchestrator.New(tr, nar, opts), nil
}
