// Package store keeps request history and per-mode glossaries in SQLite.
// History is written after each run and read only by the history commands;
// it is never consulted to answer a request.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/valpere/simplylegal/internal"
	"github.com/valpere/simplylegal/internal/orchestrator"
)

// ErrNotFound is returned when a row with the given ID does not exist.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath. The parent directory must
// exist; use Open to create it.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// single writer: concurrent requests wait for the connection
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

// Open creates the parent directory of dbPath and then calls New.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	return New(dbPath)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		source_text TEXT NOT NULL,
		final_text TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		chunks_processed INTEGER NOT NULL DEFAULT 0,
		has_audio BOOLEAN DEFAULT FALSE,
		error TEXT,
		elapsed_ms INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- one row per chunk that was translated before the run ended
	CREATE TABLE IF NOT EXISTS chunk_results (
		request_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		input_len INTEGER NOT NULL,
		output_len INTEGER NOT NULL,
		latency_ms INTEGER,
		outcome TEXT NOT NULL DEFAULT 'ok',
		PRIMARY KEY (request_id, chunk_index),
		FOREIGN KEY (request_id) REFERENCES requests(id)
	);

	-- glossary pins the plain wording of a term for one rewrite mode
	CREATE TABLE IF NOT EXISTS glossary (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		term TEXT NOT NULL,
		plain TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(mode, term)
	);

	CREATE INDEX IF NOT EXISTS idx_requests_created ON requests(created_at);
	CREATE INDEX IF NOT EXISTS idx_glossary_mode ON glossary(mode);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordOutcome saves a finished pipeline run and its chunk reports.
func (s *Store) RecordOutcome(ctx context.Context, o *orchestrator.Outcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var errMsg sql.NullString
	if o.Err != nil {
		errMsg = sql.NullString{String: o.Err.Error(), Valid: true}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO requests (id, mode, source_text, final_text, status, chunks_processed, has_audio, error, elapsed_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.RequestID, string(o.Mode), normalizeText(o.SourceText), o.Text, string(o.Status),
		o.ChunksProcessed, len(o.Audio) > 0, errMsg, o.Elapsed.Milliseconds(), time.Now())
	if err != nil {
		return fmt.Errorf("failed to save request: %w", err)
	}

	for _, c := range o.Chunks {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO chunk_results (request_id, chunk_index, input_len, output_len, latency_ms, outcome) VALUES (?, ?, ?, ?, ?, ?)`,
			o.RequestID, c.Index, c.InputLen, c.OutputLen, c.Elapsed.Milliseconds(), c.Outcome)
		if err != nil {
			return fmt.Errorf("failed to save chunk %d: %w", c.Index, err)
		}
	}

	return tx.Commit()
}

// RequestEntry is a row from the requests table.
type RequestEntry struct {
	internal.TranslationRequest
	FinalText       string
	Status          string
	ChunksProcessed int
	HasAudio        bool
	Error           string
	ElapsedMS       int64
}

// ChunkEntry is a row from the chunk_results table.
type ChunkEntry struct {
	Index     int
	InputLen  int
	OutputLen int
	LatencyMS int64
	Outcome   string
}

// ListRequests returns the most recent requests first. limit ≤ 0 means all.
func (s *Store) ListRequests(ctx context.Context, limit int) ([]RequestEntry, error) {
	query := `SELECT id, mode, source_text, final_text, status, chunks_processed, has_audio, error, elapsed_ms, created_at
		FROM requests ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []RequestEntry
	for rows.Next() {
		e, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// GetRequest returns one request and its chunk rows in index order.
func (s *Store) GetRequest(ctx context.Context, id string) (*RequestEntry, []ChunkEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, mode, source_text, final_text, status, chunks_processed, has_audio, error, elapsed_ms, created_at
		 FROM requests WHERE id = ?`, id)
	e, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("request %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT chunk_index, input_len, output_len, latency_ms, outcome FROM chunk_results WHERE request_id = ? ORDER BY chunk_index`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var chunks []ChunkEntry
	for rows.Next() {
		var c ChunkEntry
		if err := rows.Scan(&c.Index, &c.InputLen, &c.OutputLen, &c.LatencyMS, &c.Outcome); err != nil {
			return nil, nil, err
		}
		chunks = append(chunks, c)
	}
	return e, chunks, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(row scanner) (*RequestEntry, error) {
	var e RequestEntry
	var mode string
	var errMsg sql.NullString
	var elapsed sql.NullInt64
	err := row.Scan(&e.ID, &mode, &e.SourceText, &e.FinalText, &e.Status,
		&e.ChunksProcessed, &e.HasAudio, &errMsg, &elapsed, &e.Timestamp)
	if err != nil {
		return nil, err
	}
	e.Mode = internal.Mode(mode)
	e.Error = errMsg.String
	e.ElapsedMS = elapsed.Int64
	return &e, nil
}

// HistoryStats summarises recorded requests.
type HistoryStats struct {
	TotalRequests int
	Succeeded     int
	Partial       int
	Failed        int
	TotalChunks   int
	AvgChunkMS    float64
}

func (s *Store) Stats(ctx context.Context) (*HistoryStats, error) {
	stats := &HistoryStats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'partial' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)
		FROM requests`).Scan(
		&stats.TotalRequests,
		&stats.Succeeded,
		&stats.Partial,
		&stats.Failed,
	)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(latency_ms), 0) FROM chunk_results WHERE outcome = 'ok'`).Scan(&stats.TotalChunks, &stats.AvgChunkMS)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// ClearHistory removes every request and chunk row and returns the number of
// requests deleted.
func (s *Store) ClearHistory(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunk_results`); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM requests`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// GlossaryEntry represents a row in the glossary table.
type GlossaryEntry struct {
	ID        string
	Mode      internal.Mode
	Term      string
	Plain     string
	CreatedAt time.Time
}

// AddGlossaryTerm inserts a term for mode, replacing any earlier wording for
// the same term. It returns the entry ID.
func (s *Store) AddGlossaryTerm(ctx context.Context, mode internal.Mode, term, plain string) (string, error) {
	term = normalizeText(term)
	plain = normalizeText(plain)
	if term == "" || plain == "" {
		return "", fmt.Errorf("glossary term and wording must not be empty")
	}

	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO glossary (id, mode, term, plain, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(mode), term, plain, time.Now())
	return id, err
}

// GetGlossaryTerms returns the terms of one mode as a term → wording map,
// ready to embed in a prompt.
func (s *Store) GetGlossaryTerms(ctx context.Context, mode internal.Mode) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT term, plain FROM glossary WHERE mode = ?`, string(mode))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	terms := make(map[string]string)
	for rows.Next() {
		var term, plain string
		if err := rows.Scan(&term, &plain); err != nil {
			return nil, err
		}
		terms[term] = plain
	}
	return terms, rows.Err()
}

// ListGlossaryTerms returns glossary entries for mode, or for every mode when
// mode is empty.
func (s *Store) ListGlossaryTerms(ctx context.Context, mode internal.Mode) ([]GlossaryEntry, error) {
	query := `SELECT id, mode, term, plain, created_at FROM glossary`
	var args []any
	if mode != "" {
		query += ` WHERE mode = ?`
		args = append(args, string(mode))
	}
	query += ` ORDER BY mode, term`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []GlossaryEntry
	for rows.Next() {
		var e GlossaryEntry
		var m string
		if err := rows.Scan(&e.ID, &m, &e.Term, &e.Plain, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Mode = internal.Mode(m)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteGlossaryTerm removes a glossary entry by ID.
func (s *Store) DeleteGlossaryTerm(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM glossary WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("glossary entry %s: %w", id, ErrNotFound)
	}
	return nil
}

// normalizeText trims whitespace and applies Unicode NFC normalization so
// composed and decomposed spellings of the same term match.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
