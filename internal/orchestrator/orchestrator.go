// Package orchestrator runs the rewrite pipeline for one document: validate,
// split, translate every chunk, merge, then narrate.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/valpere/simplylegal/internal"
	"github.com/valpere/simplylegal/internal/chunker"
	"github.com/valpere/simplylegal/internal/narrator"
	"github.com/valpere/simplylegal/internal/translator"
)

const (
	DefaultMaxLength = 5000
	DefaultTimeout   = 60 * time.Second
)

// Recorder keeps a history of finished runs. Its errors never change an
// outcome.
type Recorder interface {
	RecordOutcome(ctx context.Context, o *Outcome) error
}

// GlossarySource supplies preferred wordings for a mode.
type GlossarySource interface {
	GetGlossaryTerms(ctx context.Context, mode internal.Mode) (map[string]string, error)
}

type Options struct {
	ChunkSize      int
	EnableChunking bool
	MaxLength      int
	Timeout        time.Duration

	// Concurrency is the number of chunks in flight; 1 is sequential.
	Concurrency int

	// RateLimit caps translator calls per second across all chunks; 0 is
	// unlimited.
	RateLimit float64

	Recorder Recorder
	Glossary GlossarySource
	Logger   *slog.Logger
}

// Request is one document to rewrite. An empty Mode means legal.
type Request struct {
	Text string
	Mode internal.Mode
}

type Orchestrator struct {
	driver   *Driver
	narrator narrator.Narrator
	opts     Options
	logger   *slog.Logger
}

// New builds an orchestrator. n may be nil, in which case no audio is produced
// and runs still succeed.
func New(t translator.Translator, n narrator.Narrator, opts Options) *Orchestrator {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = chunker.DefaultChunkSize
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultMaxLength
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &Orchestrator{
		driver:   NewDriver(t, opts.Timeout, limiter, opts.Logger),
		narrator: n,
		opts:     opts,
		logger:   opts.Logger,
	}
}

// Validate checks the document bounds without calling anything.
func (o *Orchestrator) Validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return &ValidationError{Reason: "text is empty"}
	}
	if n := utf8.RuneCountInString(text); n > o.opts.MaxLength {
		return &ValidationError{Reason: "text too long", Length: n, Max: o.opts.MaxLength}
	}
	return nil
}

// Chunks returns the pieces Run would translate for text.
func (o *Orchestrator) Chunks(text string) []chunker.Chunk {
	return Plan(text, o.opts.ChunkSize, o.opts.EnableChunking)
}

// Plan splits text the way Run does for the given chunk settings. With
// chunking off the whole document is one chunk.
func Plan(text string, chunkSize int, enableChunking bool) []chunker.Chunk {
	if !enableChunking {
		text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
		if text == "" {
			return nil
		}
		return []chunker.Chunk{{Index: 0, Text: text}}
	}
	return chunker.Split(text, chunkSize)
}

// Run rewrites req.Text. A ValidationError comes back with a nil outcome. A
// ChunkError comes back with a failed outcome that carries no text. A
// narration failure is not returned as an error; the outcome is partial.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Outcome, error) {
	start := time.Now()

	mode := req.Mode
	if mode == "" {
		mode = internal.ModeLegal
	}
	if !mode.Valid() {
		return nil, &ValidationError{Reason: "unknown mode " + string(req.Mode)}
	}
	if err := o.Validate(req.Text); err != nil {
		return nil, err
	}

	requestID := uuid.New().String()
	logger := o.logger.With(slog.String("request_id", requestID), slog.String("mode", mode.String()))

	chunks := o.Chunks(req.Text)
	logger.Info("pipeline started",
		slog.Int("input_len", utf8.RuneCountInString(req.Text)), slog.Int("chunks", len(chunks)))

	results, err := o.translateAll(ctx, mode, chunks)

	outcome := &Outcome{
		RequestID:  requestID,
		Mode:       mode,
		SourceText: req.Text,
	}

	if err != nil {
		var chunkErr *ChunkError
		if !errors.As(err, &chunkErr) {
			// The caller's context ended between chunks.
			chunkErr = &ChunkError{Index: len(results), Kind: Classify(err), Err: err}
		}
		outcome.Status = StatusFailed
		outcome.ChunksProcessed = len(results)
		outcome.Chunks = reports(chunks, results)
		kind := chunkErr.Kind.String()
		if Canceled(chunkErr) {
			kind = "canceled"
		}
		if chunkErr.Index < len(chunks) {
			outcome.Chunks = append(outcome.Chunks, ChunkReport{
				Index:    chunkErr.Index,
				InputLen: chunks[chunkErr.Index].Len(),
				Outcome:  kind,
			})
		}
		outcome.Err = chunkErr
		outcome.Elapsed = time.Since(start)
		level := slog.LevelError
		if Canceled(chunkErr) {
			level = slog.LevelInfo
		}
		logger.Log(ctx, level, "pipeline failed",
			slog.Int("chunk_index", chunkErr.Index),
			slog.String("outcome", kind),
			slog.Any("error", chunkErr.Err))
		o.record(ctx, logger, outcome)
		return outcome, chunkErr
	}

	translated := make([]chunker.Chunk, len(results))
	for i, r := range results {
		translated[i] = chunker.Chunk{Index: r.Index, Text: r.Text}
	}
	outcome.Text = chunker.Merge(translated)
	outcome.ChunksProcessed = len(results)
	outcome.Chunks = reports(chunks, results)
	outcome.Status = StatusSuccess

	if o.narrator != nil {
		audio, nerr := o.narrator.Synthesize(ctx, outcome.Text)
		if nerr != nil {
			outcome.Status = StatusPartial
			outcome.Err = &NarrationError{Narrator: o.narrator.Name(), Err: nerr}
			logger.Warn("narration failed, returning text only", slog.Any("error", nerr))
		} else {
			outcome.Audio = audio
		}
	}

	outcome.Elapsed = time.Since(start)
	logger.Info("pipeline finished",
		slog.String("status", string(outcome.Status)),
		slog.Int("chunks_processed", outcome.ChunksProcessed),
		slog.Int64("elapsed_ms", outcome.Elapsed.Milliseconds()))
	o.record(ctx, logger, outcome)
	return outcome, nil
}

// translateAll drives every chunk with at most Concurrency calls in flight.
// Results are stored by chunk position, so completion order does not matter.
// The first failure cancels the chunks still running and skips the rest.
func (o *Orchestrator) translateAll(ctx context.Context, mode internal.Mode, chunks []chunker.Chunk) ([]Result, error) {
	glossary := o.glossary(ctx, mode)
	results := make([]Result, len(chunks))
	done := make([]bool, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Concurrency)

	for i, c := range chunks {
		job := Job{Chunk: c, Mode: mode, Glossary: glossary}
		if i > 0 {
			job.PreviousContext = chunker.ExtractContext(chunks[i-1].Text, chunker.DefaultContextWords)
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			res := o.driver.TranslateChunk(gctx, job)
			results[i] = res
			if res.Err != nil {
				return res.Err
			}
			done[i] = true
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return markDone(results, done), err
	}
	return results, nil
}

func (o *Orchestrator) glossary(ctx context.Context, mode internal.Mode) map[string]string {
	if o.opts.Glossary == nil {
		return nil
	}
	terms, err := o.opts.Glossary.GetGlossaryTerms(ctx, mode)
	if err != nil {
		o.logger.Warn("failed to load glossary", slog.Any("error", err))
		return nil
	}
	return terms
}

func (o *Orchestrator) record(ctx context.Context, logger *slog.Logger, outcome *Outcome) {
	if o.opts.Recorder == nil {
		return
	}
	if err := o.opts.Recorder.RecordOutcome(context.WithoutCancel(ctx), outcome); err != nil {
		logger.Warn("failed to record history", slog.Any("error", err))
	}
}

// markDone keeps only the finished results of an aborted run.
func markDone(results []Result, done []bool) []Result {
	var out []Result
	for i, r := range results {
		if done[i] {
			out = append(out, r)
		}
	}
	return out
}

func reports(chunks []chunker.Chunk, results []Result) []ChunkReport {
	byIndex := make(map[int]chunker.Chunk, len(chunks))
	for _, c := range chunks {
		byIndex[c.Index] = c
	}
	out := make([]ChunkReport, 0, len(results))
	for _, r := range results {
		out = append(out, ChunkReport{
			Index:     r.Index,
			InputLen:  byIndex[r.Index].Len(),
			OutputLen: utf8.RuneCountInString(r.Text),
			Elapsed:   r.Elapsed,
			Outcome:   "ok",
		})
	}
	return out
}
