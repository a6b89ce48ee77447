package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/simplylegal/internal"
	"github.com/valpere/simplylegal/internal/translator"
)

type mockTranslator struct {
	translateFunc func(ctx context.Context, req translator.Request) (string, error)
	callCount     atomic.Int32

	mu       sync.Mutex
	requests []translator.Request
}

func (m *mockTranslator) Name() string { return "mock" }

func (m *mockTranslator) Translate(ctx context.Context, req translator.Request) (string, error) {
	m.callCount.Add(1)
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.translateFunc != nil {
		return m.translateFunc(ctx, req)
	}
	return req.Text, nil
}

func (m *mockTranslator) IsAvailable(ctx context.Context) error { return nil }

type mockNarrator struct {
	audio []byte
	err   error
	text  string
}

func (m *mockNarrator) Name() string { return "mock" }

func (m *mockNarrator) Synthesize(ctx context.Context, text string) ([]byte, error) {
	m.text = text
	return m.audio, m.err
}

type mockRecorder struct {
	outcomes []*Outcome
	err      error
}

func (m *mockRecorder) RecordOutcome(ctx context.Context, o *Outcome) error {
	m.outcomes = append(m.outcomes, o)
	return m.err
}

type mockGlossary map[string]string

func (m mockGlossary) GetGlossaryTerms(ctx context.Context, mode internal.Mode) (map[string]string, error) {
	return m, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func defaultOptions() Options {
	return Options{
		ChunkSize:      1000,
		EnableChunking: true,
		MaxLength:      5000,
		Timeout:        time.Second,
		Concurrency:    1,
		Logger:         quietLogger(),
	}
}

// paragraphs builds n paragraphs of roughly size runes each.
func paragraphs(n, size int) string {
	parts := make([]string, n)
	for i := range parts {
		sentence := fmt.Sprintf("Clause %d binds the parties. ", i)
		parts[i] = strings.TrimSpace(strings.Repeat(sentence, size/len(sentence)+1))
	}
	return strings.Join(parts, "\n\n")
}

func TestNew_Defaults(t *testing.T) {
	o := New(&mockTranslator{}, nil, Options{})
	assert.Equal(t, 1000, o.opts.ChunkSize)
	assert.Equal(t, DefaultMaxLength, o.opts.MaxLength)
	assert.Equal(t, DefaultTimeout, o.opts.Timeout)
	assert.Equal(t, 1, o.opts.Concurrency)
}

func TestRun_EmptyInput(t *testing.T) {
	tr := &mockTranslator{}
	o := New(tr, nil, defaultOptions())

	for _, text := range []string{"", "   \n\t "} {
		outcome, err := o.Run(context.Background(), Request{Text: text})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Nil(t, outcome)
	}
	assert.Zero(t, tr.callCount.Load(), "translator must not be called")
}

func TestRun_TooLong(t *testing.T) {
	text := strings.Repeat("a", 6000)
	for _, chunking := range []bool{true, false} {
		opts := defaultOptions()
		opts.EnableChunking = chunking
		tr := &mockTranslator{}

		_, err := New(tr, nil, opts).Run(context.Background(), Request{Text: text})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, "chunking=%v", chunking)
		assert.Equal(t, 6000, verr.Length)
		assert.Zero(t, tr.callCount.Load())
	}
}

func TestRun_LengthCountsRunes(t *testing.T) {
	opts := defaultOptions()
	opts.MaxLength = 11
	_, err := New(&mockTranslator{}, nil, opts).Run(context.Background(), Request{Text: "þæt wæs gōd"})
	assert.NoError(t, err)
}

func TestRun_UnknownMode(t *testing.T) {
	_, err := New(&mockTranslator{}, nil, defaultOptions()).Run(context.Background(), Request{Text: "x", Mode: "pirate"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestRun_ChunkingDisabled(t *testing.T) {
	opts := defaultOptions()
	opts.EnableChunking = false
	opts.ChunkSize = 50
	tr := &mockTranslator{}

	text := paragraphs(4, 400)
	outcome, err := New(tr, nil, opts).Run(context.Background(), Request{Text: text})
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.ChunksProcessed)
	assert.EqualValues(t, 1, tr.callCount.Load())
	assert.Equal(t, StatusSuccess, outcome.Status)
	assert.Equal(t, text, outcome.Text)
}

func TestRun_IdentityRoundTrip(t *testing.T) {
	text := paragraphs(5, 300)
	tr := &mockTranslator{}

	outcome, err := New(tr, nil, defaultOptions()).Run(context.Background(), Request{Text: text})
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, outcome.Status)
	assert.Greater(t, outcome.ChunksProcessed, 1)
	assert.Equal(t, int(tr.callCount.Load()), outcome.ChunksProcessed)
	assert.Equal(t, strings.Fields(text), strings.Fields(outcome.Text))
	assert.Nil(t, outcome.Audio)
	assert.NotEmpty(t, outcome.RequestID)
	assert.Equal(t, internal.ModeLegal, outcome.Mode)
	assert.Len(t, outcome.Chunks, outcome.ChunksProcessed)
}

func TestRun_PassesModeAndContext(t *testing.T) {
	tr := &mockTranslator{}
	opts := defaultOptions()
	opts.Glossary = mockGlossary{"Lessee": "renter"}

	_, err := New(tr, nil, opts).Run(context.Background(), Request{Text: paragraphs(3, 600), Mode: internal.ModeOldEnglish})
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(tr.requests), 2)
	for _, req := range tr.requests {
		assert.Equal(t, internal.ModeOldEnglish, req.Mode)
		assert.Equal(t, "renter", req.Glossary["Lessee"])
	}
	assert.Empty(t, tr.requests[0].PreviousContext)
	assert.Len(t, strings.Fields(tr.requests[1].PreviousContext), 25)
}

func TestRun_ProtectsCitations(t *testing.T) {
	tr := &mockTranslator{translateFunc: func(ctx context.Context, req translator.Request) (string, error) {
		assert.NotContains(t, req.Text, "42 U.S.C. § 1983")
		assert.NotEmpty(t, req.Instructions)
		return "You can sue under " + strings.TrimPrefix(req.Text, "Claims arise under "), nil
	}}

	outcome, err := New(tr, nil, defaultOptions()).Run(context.Background(), Request{Text: "Claims arise under 42 U.S.C. § 1983."})
	require.NoError(t, err)
	assert.Equal(t, "You can sue under 42 U.S.C. § 1983.", outcome.Text)
}

func TestRun_ChunkFailureAborts(t *testing.T) {
	var calls atomic.Int32
	tr := &mockTranslator{translateFunc: func(ctx context.Context, req translator.Request) (string, error) {
		if calls.Add(1) == 2 {
			return "", fmt.Errorf("decode: %w", translator.ErrEncoding)
		}
		return "ok", nil
	}}
	rec := &mockRecorder{}
	n := &mockNarrator{audio: []byte("mp3")}
	opts := defaultOptions()
	opts.Recorder = rec

	outcome, err := New(tr, n, opts).Run(context.Background(), Request{Text: paragraphs(4, 600)})

	var chunkErr *ChunkError
	require.ErrorAs(t, err, &chunkErr)
	assert.Equal(t, EncodingError, chunkErr.Kind)
	assert.Equal(t, 1, chunkErr.Index)

	require.NotNil(t, outcome)
	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Empty(t, outcome.Text)
	assert.Nil(t, outcome.Audio)
	assert.Equal(t, 1, outcome.ChunksProcessed)
	require.Len(t, outcome.Chunks, 2)
	assert.Equal(t, "ok", outcome.Chunks[0].Outcome)
	assert.Equal(t, "encoding_error", outcome.Chunks[1].Outcome)
	assert.EqualValues(t, 2, tr.callCount.Load(), "no chunk after the failure is attempted")
	assert.Empty(t, n.text, "narrator must not run after a failure")
	assert.Len(t, rec.outcomes, 1)
}

func TestRun_Timeout(t *testing.T) {
	tr := &mockTranslator{translateFunc: func(ctx context.Context, req translator.Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	opts := defaultOptions()
	opts.Timeout = 20 * time.Millisecond

	outcome, err := New(tr, nil, opts).Run(context.Background(), Request{Text: "Pay rent."})
	var chunkErr *ChunkError
	require.ErrorAs(t, err, &chunkErr)
	assert.Equal(t, Timeout, chunkErr.Kind)
	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Equal(t, 503, HTTPStatus(err))
}

func TestRun_NarratorFailureIsPartial(t *testing.T) {
	n := &mockNarrator{err: errors.New("speaker on fire")}

	outcome, err := New(&mockTranslator{}, n, defaultOptions()).Run(context.Background(), Request{Text: "Pay rent."})
	require.NoError(t, err)

	assert.Equal(t, StatusPartial, outcome.Status)
	assert.Equal(t, "Pay rent.", outcome.Text)
	assert.Nil(t, outcome.Audio)
	var nerr *NarrationError
	assert.ErrorAs(t, outcome.Err, &nerr)
	assert.Nil(t, outcome.Envelope().Audio)
}

func TestRun_NarratorSuccess(t *testing.T) {
	n := &mockNarrator{audio: []byte("mp3")}

	outcome, err := New(&mockTranslator{}, n, defaultOptions()).Run(context.Background(), Request{Text: "Pay rent."})
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, outcome.Status)
	assert.Equal(t, []byte("mp3"), outcome.Audio)
	assert.Equal(t, "Pay rent.", n.text)
	require.NotNil(t, outcome.Envelope().Audio)
	assert.Equal(t, "bXAz", *outcome.Envelope().Audio)
}

func TestRun_ConcurrentPreservesOrder(t *testing.T) {
	var inFlight, peak atomic.Int32
	tr := &mockTranslator{translateFunc: func(ctx context.Context, req translator.Request) (string, error) {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(time.Duration(rand.Intn(15)) * time.Millisecond)
		return strings.ToUpper(req.Text), nil
	}}
	opts := defaultOptions()
	opts.ChunkSize = 100
	opts.Concurrency = 4

	text := paragraphs(12, 80)
	outcome, err := New(tr, nil, opts).Run(context.Background(), Request{Text: text})
	require.NoError(t, err)

	assert.Equal(t, strings.ToUpper(text), outcome.Text)
	assert.LessOrEqual(t, peak.Load(), int32(4))
	for i, r := range outcome.Chunks {
		assert.Equal(t, i, r.Index)
	}
}

func TestRun_ConcurrentFailureAborts(t *testing.T) {
	tr := &mockTranslator{translateFunc: func(ctx context.Context, req translator.Request) (string, error) {
		if strings.HasPrefix(req.Text, "Clause 3 ") {
			return "", fmt.Errorf("dial ollama: %w", syscall.ECONNREFUSED)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(500 * time.Millisecond):
			return req.Text, nil
		}
	}}
	n := &mockNarrator{audio: []byte("mp3")}
	opts := defaultOptions()
	opts.ChunkSize = 100
	opts.Concurrency = 4

	outcome, err := New(tr, n, opts).Run(context.Background(), Request{Text: paragraphs(12, 80)})

	var chunkErr *ChunkError
	require.ErrorAs(t, err, &chunkErr)
	assert.Equal(t, ConnectionError, chunkErr.Kind)
	assert.Equal(t, 3, chunkErr.Index)
	assert.Equal(t, 503, HTTPStatus(err))

	require.NotNil(t, outcome)
	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Empty(t, outcome.Text)
	assert.Nil(t, outcome.Audio)
	assert.Empty(t, n.text, "narrator must not run after a failure")
	assert.Less(t, outcome.ChunksProcessed, 12)
}

func TestRun_CallerCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tr := &mockTranslator{translateFunc: func(c context.Context, req translator.Request) (string, error) {
		cancel()
		<-c.Done()
		return "", c.Err()
	}}
	rec := &mockRecorder{}
	opts := defaultOptions()
	opts.Recorder = rec

	outcome, err := New(tr, nil, opts).Run(ctx, Request{Text: "Pay rent."})

	require.Error(t, err)
	assert.True(t, Canceled(err))
	assert.Equal(t, StatusClientClosedRequest, HTTPStatus(err))
	assert.Equal(t, StatusFailed, outcome.Status)
	require.Len(t, outcome.Chunks, 1)
	assert.Equal(t, "canceled", outcome.Chunks[0].Outcome)
	assert.Len(t, rec.outcomes, 1, "a canceled run is still recorded")
}

func TestRun_RecorderErrorIgnored(t *testing.T) {
	opts := defaultOptions()
	opts.Recorder = &mockRecorder{err: errors.New("disk full")}

	outcome, err := New(&mockTranslator{}, nil, opts).Run(context.Background(), Request{Text: "Pay rent."})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, outcome.Status)
}

func TestRun_RateLimited(t *testing.T) {
	opts := defaultOptions()
	opts.ChunkSize = 100
	opts.RateLimit = 50

	start := time.Now()
	outcome, err := New(&mockTranslator{}, nil, opts).Run(context.Background(), Request{Text: paragraphs(4, 80)})
	require.NoError(t, err)
	assert.Equal(t, 4, outcome.ChunksProcessed)
	// burst of 1 then one token every 20ms
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestChunks_Deterministic(t *testing.T) {
	o := New(&mockTranslator{}, nil, defaultOptions())
	text := paragraphs(5, 300)
	assert.Equal(t, o.Chunks(text), o.Chunks(text))
}

func TestPlan_MatchesChunks(t *testing.T) {
	text := "First clause.\r\n\r\n" + paragraphs(4, 400)

	on := New(&mockTranslator{}, nil, defaultOptions())
	assert.Equal(t, on.Chunks(text), Plan(text, 1000, true))

	opts := defaultOptions()
	opts.EnableChunking = false
	off := New(&mockTranslator{}, nil, opts)
	plan := Plan(text, 1000, false)
	assert.Equal(t, off.Chunks(text), plan)
	require.Len(t, plan, 1)
	assert.NotContains(t, plan[0].Text, "\r")
}
