package orchestrator

import (
	"encoding/base64"
	"time"

	"github.com/valpere/simplylegal/internal"
)

// Status is the terminal state of a pipeline run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// ChunkReport describes one translated chunk, or the chunk that aborted the
// run. Outcome is "ok" or the failure kind.
type ChunkReport struct {
	Index     int           `json:"index"`
	InputLen  int           `json:"input_len"`
	OutputLen int           `json:"output_len"`
	Elapsed   time.Duration `json:"elapsed"`
	Outcome   string        `json:"outcome"`
}

// Outcome is built once per run and not modified afterwards.
type Outcome struct {
	RequestID       string
	Mode            internal.Mode
	SourceText      string
	Text            string
	Audio           []byte
	ChunksProcessed int
	Status          Status
	Chunks          []ChunkReport
	Elapsed         time.Duration

	// Err is the ChunkError of a failed run or the NarrationError of a
	// partial one.
	Err error
}

// Envelope is the response shape shared by the HTTP API and the MCP tool.
type Envelope struct {
	Text            string  `json:"text"`
	Audio           *string `json:"audio"`
	ChunksProcessed int     `json:"chunks_processed"`
	Status          Status  `json:"status"`
}

// Envelope encodes audio as standard base64, or null when there is none.
func (o *Outcome) Envelope() Envelope {
	env := Envelope{
		Text:            o.Text,
		ChunksProcessed: o.ChunksProcessed,
		Status:          o.Status,
	}
	if len(o.Audio) > 0 {
		encoded := base64.StdEncoding.EncodeToString(o.Audio)
		env.Audio = &encoded
	}
	return env
}
