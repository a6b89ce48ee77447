package narrator

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/valpere/simplylegal/internal/postprocess"
)

// DefaultCommand writes a WAV stream for text read from stdin.
const DefaultCommand = "espeak-ng --stdout --stdin"

// CommandNarrator pipes text into a local speech program and returns what it
// writes to stdout. It needs no network access.
type CommandNarrator struct {
	name string
	args []string
}

// NewCommandNarrator parses a command line such as "espeak-ng --stdout --stdin".
func NewCommandNarrator(command string) (*CommandNarrator, error) {
	if strings.TrimSpace(command) == "" {
		command = DefaultCommand
	}
	fields := strings.Fields(command)
	path, err := exec.LookPath(fields[0])
	if err != nil {
		return nil, fmt.Errorf("speech command not found: %w", err)
	}
	return &CommandNarrator{name: path, args: fields[1:]}, nil
}

func (n *CommandNarrator) Name() string {
	return "command"
}

func (n *CommandNarrator) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = postprocess.ForSpeech(text)
	if text == "" {
		return nil, ErrNoAudio
	}

	cmd := exec.CommandContext(ctx, n.name, n.args...)
	cmd.Stdin = strings.NewReader(text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("speech command interrupted: %w", ctx.Err())
		}
		return nil, fmt.Errorf("speech command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, ErrNoAudio
	}
	return stdout.Bytes(), nil
}
