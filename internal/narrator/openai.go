package narrator

import (
	"bytes"
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/valpere/simplylegal/internal/chunker"
	"github.com/valpere/simplylegal/internal/postprocess"
)

const (
	DefaultOpenAIVoice = "alloy"

	// The speech endpoint rejects inputs over 4096 characters.
	maxSpeechInput = 4000
)

// OpenAINarrator uses the OpenAI speech endpoint and returns MP3 audio.
type OpenAINarrator struct {
	client *openai.Client
	model  openai.SpeechModel
	voice  openai.SpeechVoice
}

func NewOpenAINarrator(apiKey, baseURL, model, voice string) (*OpenAINarrator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required for narration")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = string(openai.TTSModel1)
	}
	if voice == "" {
		voice = DefaultOpenAIVoice
	}
	return &OpenAINarrator{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.SpeechModel(model),
		voice:  openai.SpeechVoice(voice),
	}, nil
}

func (n *OpenAINarrator) Name() string {
	return "openai"
}

// Synthesize speaks text in pieces the endpoint accepts and concatenates the
// MP3 streams, which players treat as one file.
func (n *OpenAINarrator) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = postprocess.ForSpeech(text)
	if text == "" {
		return nil, ErrNoAudio
	}

	var audio bytes.Buffer
	for _, piece := range chunker.Split(text, maxSpeechInput) {
		resp, err := n.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
			Model:          n.model,
			Input:          piece.Text,
			Voice:          n.voice,
			ResponseFormat: openai.SpeechResponseFormatMp3,
		})
		if err != nil {
			return nil, fmt.Errorf("speech request %d failed: %w", piece.Index, err)
		}
		_, err = io.Copy(&audio, resp)
		resp.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read speech %d: %w", piece.Index, err)
		}
	}

	if audio.Len() == 0 {
		return nil, ErrNoAudio
	}
	return audio.Bytes(), nil
}
