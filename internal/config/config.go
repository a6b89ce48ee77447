// Package config loads runtime settings from flags, the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Setting keys. They double as environment variable names.
const (
	KeyChunkSize      = "CHUNK_SIZE"
	KeyEnableChunking = "ENABLE_CHUNKING"
	KeyLLMTimeout     = "LLM_TIMEOUT"
	KeyMaxTextLength  = "MAX_TEXT_LENGTH"
	KeyMaxConcurrency = "MAX_CONCURRENCY"
	KeyLLMRateLimit   = "LLM_RATE_LIMIT"
	KeyLLMProvider    = "LLM_PROVIDER"
	KeyLLMModel       = "LLM_MODEL"
	KeyOllamaURL      = "OLLAMA_URL"
	KeyOpenAIAPIKey   = "OPENAI_API_KEY"
	KeyOpenAIBaseURL  = "OPENAI_BASE_URL"
	KeyTTSProvider    = "TTS_PROVIDER"
	KeyTTSModel       = "TTS_MODEL"
	KeyTTSVoice       = "TTS_VOICE"
	KeyTTSCommand     = "TTS_COMMAND"
	KeyDBPath         = "DB_PATH"
	KeyPort           = "PORT"
	KeyMaxUploadBytes = "MAX_UPLOAD_BYTES"
	KeyLogLevel       = "LOG_LEVEL"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	DefaultLLMModel = "deepseek-r1:8b"

	TTSNone    = "none"
	TTSOpenAI  = "openai"
	TTSCommand = "command"
)

// Config holds every tunable of the pipeline, the HTTP server and the stores.
type Config struct {
	ChunkSize      int
	EnableChunking bool
	LLMTimeout     time.Duration
	MaxTextLength  int
	MaxConcurrency int
	LLMRateLimit   float64

	LLMProvider   string
	LLMModel      string
	OllamaURL     string
	OpenAIAPIKey  string
	OpenAIBaseURL string

	TTSProvider string
	TTSModel    string
	TTSVoice    string
	TTSCommand  string

	DBPath         string
	Port           int
	MaxUploadBytes int64
	LogLevel       string
}

var defaults = map[string]any{
	KeyChunkSize:      1000,
	KeyEnableChunking: true,
	KeyLLMTimeout:     "60s",
	KeyMaxTextLength:  5000,
	KeyMaxConcurrency: 1,
	KeyLLMRateLimit:   0.0,
	KeyLLMProvider:    ProviderOllama,
	KeyLLMModel:       DefaultLLMModel,
	KeyOllamaURL:      "http://localhost:11434",
	KeyOpenAIAPIKey:   "",
	KeyOpenAIBaseURL:  "",
	KeyTTSProvider:    TTSNone,
	KeyTTSModel:       "tts-1",
	KeyTTSVoice:       "alloy",
	KeyTTSCommand:     "espeak-ng --stdout --stdin",
	KeyDBPath:         "./data/simplylegal.db",
	KeyPort:           8000,
	KeyMaxUploadBytes: 10 << 20,
	KeyLogLevel:       "info",
}

// FlagName returns the command-line flag bound to key, e.g. "chunk-size".
func FlagName(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), "_", "-")
}

// Load reads envFile (missing is fine), then resolves each key from a changed
// flag in flags, the environment, or the default, in that order. flags may be
// nil.
func Load(envFile string, flags *pflag.FlagSet) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if flags != nil {
		for key := range defaults {
			if f := flags.Lookup(FlagName(key)); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", f.Name, err)
				}
			}
		}
	}

	timeout, err := ParseTimeout(v.GetString(KeyLLMTimeout))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ChunkSize:      v.GetInt(KeyChunkSize),
		EnableChunking: v.GetBool(KeyEnableChunking),
		LLMTimeout:     timeout,
		MaxTextLength:  v.GetInt(KeyMaxTextLength),
		MaxConcurrency: v.GetInt(KeyMaxConcurrency),
		LLMRateLimit:   v.GetFloat64(KeyLLMRateLimit),

		LLMProvider:   strings.ToLower(v.GetString(KeyLLMProvider)),
		LLMModel:      v.GetString(KeyLLMModel),
		OllamaURL:     v.GetString(KeyOllamaURL),
		OpenAIAPIKey:  v.GetString(KeyOpenAIAPIKey),
		OpenAIBaseURL: v.GetString(KeyOpenAIBaseURL),

		TTSProvider: strings.ToLower(v.GetString(KeyTTSProvider)),
		TTSModel:    v.GetString(KeyTTSModel),
		TTSVoice:    v.GetString(KeyTTSVoice),
		TTSCommand:  v.GetString(KeyTTSCommand),

		DBPath:         v.GetString(KeyDBPath),
		Port:           v.GetInt(KeyPort),
		MaxUploadBytes: v.GetInt64(KeyMaxUploadBytes),
		LogLevel:       v.GetString(KeyLogLevel),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseTimeout accepts a Go duration ("90s", "2m") or a bare number of
// seconds ("60").
func ParseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", KeyLLMTimeout, s, err)
	}
	return d, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch {
	case c.ChunkSize <= 0:
		return fmt.Errorf("%s must be positive, got %d", KeyChunkSize, c.ChunkSize)
	case c.LLMTimeout <= 0:
		return fmt.Errorf("%s must be positive, got %s", KeyLLMTimeout, c.LLMTimeout)
	case c.MaxTextLength <= 0:
		return fmt.Errorf("%s must be positive, got %d", KeyMaxTextLength, c.MaxTextLength)
	case c.MaxConcurrency <= 0:
		return fmt.Errorf("%s must be at least 1, got %d", KeyMaxConcurrency, c.MaxConcurrency)
	case c.LLMRateLimit < 0:
		return fmt.Errorf("%s must not be negative, got %g", KeyLLMRateLimit, c.LLMRateLimit)
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("%s out of range: %d", KeyPort, c.Port)
	case c.MaxUploadBytes <= 0:
		return fmt.Errorf("%s must be positive, got %d", KeyMaxUploadBytes, c.MaxUploadBytes)
	}

	switch c.LLMProvider {
	case ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown %s %q (want ollama or openai)", KeyLLMProvider, c.LLMProvider)
	}

	switch c.TTSProvider {
	case TTSNone, TTSOpenAI, TTSCommand:
	default:
		return fmt.Errorf("unknown %s %q (want none, openai or command)", KeyTTSProvider, c.TTSProvider)
	}

	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error").
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", KeyLogLevel, c.LogLevel, err)
	}
	return level, nil
}
