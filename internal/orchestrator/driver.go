package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/valpere/simplylegal/internal"
	"github.com/valpere/simplylegal/internal/chunker"
	"github.com/valpere/simplylegal/internal/placeholder"
	"github.com/valpere/simplylegal/internal/translator"
)

// Job is one chunk with everything the model needs to rewrite it.
type Job struct {
	Chunk           chunker.Chunk
	Mode            internal.Mode
	PreviousContext string
	Glossary        map[string]string
}

// Result pairs a chunk index with either translated text or a failure.
type Result struct {
	Index   int
	Text    string
	Elapsed time.Duration
	Err     *ChunkError
}

// Driver calls the translator for a single chunk under a timeout. It never
// retries.
type Driver struct {
	translator translator.Translator
	timeout    time.Duration
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewDriver returns a driver. limiter and logger may be nil.
func NewDriver(t translator.Translator, timeout time.Duration, limiter *rate.Limiter, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{translator: t, timeout: timeout, limiter: limiter, logger: logger}
}

// TranslateChunk rewrites job.Chunk and logs one record for it.
func (d *Driver) TranslateChunk(ctx context.Context, job Job) Result {
	start := time.Now()
	text, err := d.call(ctx, job)
	res := Result{Index: job.Chunk.Index, Elapsed: time.Since(start)}

	attrs := []any{
		slog.Int("chunk_index", job.Chunk.Index),
		slog.Int("input_len", job.Chunk.Len()),
		slog.Int64("elapsed_ms", res.Elapsed.Milliseconds()),
		slog.String("translator", d.translator.Name()),
	}

	if err != nil {
		res.Err = &ChunkError{Index: job.Chunk.Index, Kind: Classify(err), Err: err}
		if Canceled(err) {
			d.logger.Info("chunk translation canceled", append(attrs, slog.String("outcome", "canceled"))...)
			return res
		}
		d.logger.Warn("chunk translation failed",
			append(attrs, slog.String("outcome", res.Err.Kind.String()), slog.Any("error", err))...)
		return res
	}

	res.Text = text
	d.logger.Info("chunk translated",
		append(attrs, slog.String("outcome", "ok"), slog.Int("output_len", len([]rune(text))))...)
	return res
}

func (d *Driver) call(ctx context.Context, job Job) (string, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return "", fmt.Errorf("waiting for rate limiter: %w", ctx.Err())
			}
			// The limiter refuses up front when the wait would outlast the deadline.
			return "", fmt.Errorf("waiting for rate limiter: %v: %w", err, context.DeadlineExceeded)
		}
	}

	protected, markers := placeholder.Protect(job.Chunk.Text)
	req := translator.Request{
		Text:            protected,
		Mode:            job.Mode,
		PreviousContext: job.PreviousContext,
		Glossary:        job.Glossary,
	}
	if len(markers) > 0 {
		req.Instructions = placeholder.InstructionHint()
	}

	out, err := d.translator.Translate(ctx, req)
	if err != nil {
		return "", err
	}

	if missing := placeholder.Validate(out, markers); len(missing) > 0 {
		d.logger.Warn("placeholders dropped by model",
			slog.Int("chunk_index", job.Chunk.Index), slog.Any("missing", missing))
	}
	return placeholder.Restore(out, markers), nil
}
