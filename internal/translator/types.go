package translator

import (
	"context"

	"github.com/valpere/simplylegal/internal"
)

type ServiceConfig struct {
	APIKey  string `mapstructure:"api_key" json:"api_key"`
	Model   string `mapstructure:"model" json:"model"`
	BaseURL string `mapstructure:"base_url" json:"base_url"`
}

// Request is one unit of text to rewrite.
type Request struct {
	Text string        `json:"text"`
	Mode internal.Mode `json:"mode"`

	// PreviousContext is the tail of the preceding source chunk. It is shown
	// to the model for continuity and must not be rewritten.
	PreviousContext string `json:"previous_context,omitempty"`

	// Glossary maps source terms to the plain wording the user wants used.
	Glossary map[string]string `json:"glossary,omitempty"`

	// Instructions are appended verbatim to the system prompt.
	Instructions string `json:"instructions,omitempty"`
}

// Translator rewrites text into plain language.
type Translator interface {
	Name() string
	Translate(ctx context.Context, req Request) (string, error)
	IsAvailable(ctx context.Context) error
}
