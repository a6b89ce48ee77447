// Package narrator turns the final plain-language text into speech audio.
package narrator

import (
	"context"
	"errors"
)

// ErrNoAudio is returned when a backend finished without producing audio.
var ErrNoAudio = errors.New("narrator produced no audio")

// Narrator synthesizes encoded audio for a finished document.
type Narrator interface {
	Name() string
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
