package internal

import (
	"fmt"
	"strings"
	"time"
)

// Mode is the rewrite style requested for a document.
type Mode string

const (
	ModeLegal      Mode = "legal"
	ModeOldEnglish Mode = "oldEnglish"
)

// Modes lists every supported mode in display order.
var Modes = []Mode{ModeLegal, ModeOldEnglish}

// ParseMode maps user input onto a Mode. An empty string selects ModeLegal.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "legal":
		return ModeLegal, nil
	case "oldenglish", "old_english", "old-english", "archaic":
		return ModeOldEnglish, nil
	}
	return "", fmt.Errorf("unknown mode %q (expected legal or oldEnglish)", s)
}

func (m Mode) String() string {
	return string(m)
}

// Valid reports whether m is one of the closed set of modes.
func (m Mode) Valid() bool {
	return m == ModeLegal || m == ModeOldEnglish
}

type TranslationRequest struct {
	ID         string    `json:"id"`
	SourceText string    `json:"source_text"`
	Mode       Mode      `json:"mode"`
	Timestamp  time.Time `json:"timestamp"`
}
