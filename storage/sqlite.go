// SQLite transcript storage.
//
// Information Hiding:
// - SQLite connection management hidden behind interface
// - Schema details encapsulated
// - Tool call metrics serialized as JSON in a single column

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/richinex/taskchat/model"
)

// SqliteStore implements TranscriptStore using SQLite.
// Thread-safe: sql.DB handles connection pooling and concurrent access.
type SqliteStore struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	return newSqliteStore(db)
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	return newSqliteStore(db)
}

func newSqliteStore(db *sql.DB) (*SqliteStore, error) {
	store := &SqliteStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS transcripts (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			message TEXT NOT NULL,
			answer TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			provider TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL DEFAULT '',
			provider_calls INTEGER NOT NULL DEFAULT 0,
			tool_calls TEXT NOT NULL DEFAULT '[]',
			prompt_tokens INTEGER NOT NULL DEFAULT 0,
			completion_tokens INTEGER NOT NULL DEFAULT 0,
			total_tokens INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_transcripts_created
		ON transcripts(created_at DESC);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Record stores a finished exchange.
func (s *SqliteStore) Record(ctx context.Context, t Transcript) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	calls := t.ToolCalls
	if calls == nil {
		calls = []model.ToolCall{}
	}
	callsJSON, err := json.Marshal(calls)
	if err != nil {
		return fmt.Errorf("failed to serialize tool calls: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO transcripts
		(id, created_at, message, answer, error, provider, model, provider_calls,
		 tool_calls, prompt_tokens, completion_tokens, total_tokens, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.CreatedAt.UnixNano(),
		t.Message,
		t.Answer,
		t.Error,
		t.Provider,
		t.Model,
		t.ProviderCalls,
		string(callsJSON),
		t.Usage.PromptTokens,
		t.Usage.CompletionTokens,
		t.Usage.TotalTokens,
		t.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("failed to record transcript: %w", err)
	}
	return nil
}

const selectTranscript = `
	SELECT id, created_at, message, answer, error, provider, model, provider_calls,
	       tool_calls, prompt_tokens, completion_tokens, total_tokens, duration_ms
	FROM transcripts`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTranscript(row rowScanner) (Transcript, error) {
	var t Transcript
	var createdAt int64
	var callsJSON string
	err := row.Scan(
		&t.ID,
		&createdAt,
		&t.Message,
		&t.Answer,
		&t.Error,
		&t.Provider,
		&t.Model,
		&t.ProviderCalls,
		&callsJSON,
		&t.Usage.PromptTokens,
		&t.Usage.CompletionTokens,
		&t.Usage.TotalTokens,
		&t.DurationMs,
	)
	if err != nil {
		return Transcript{}, err
	}
	t.CreatedAt = time.Unix(0, createdAt).UTC()
	if err := json.Unmarshal([]byte(callsJSON), &t.ToolCalls); err != nil {
		return Transcript{}, fmt.Errorf("failed to parse tool calls of transcript %s: %w", t.ID, err)
	}
	return t, nil
}

// Get returns a transcript by ID.
func (s *SqliteStore) Get(ctx context.Context, id string) (Transcript, error) {
	row := s.db.QueryRowContext(ctx, selectTranscript+" WHERE id = ?", id)
	t, err := scanTranscript(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Transcript{}, ErrTranscriptNotFound
	}
	if err != nil {
		return Transcript{}, fmt.Errorf("failed to get transcript: %w", err)
	}
	return t, nil
}

// Recent returns up to limit transcripts, newest first.
func (s *SqliteStore) Recent(ctx context.Context, limit int) ([]Transcript, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := s.db.QueryContext(ctx,
		selectTranscript+" ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcripts: %w", err)
	}
	defer rows.Close()

	transcripts := []Transcript{} // Start with empty slice, not nil
	for rows.Next() {
		t, err := scanTranscript(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		transcripts = append(transcripts, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transcripts: %w", err)
	}

	return transcripts, nil
}

// Verify SqliteStore implements TranscriptStore
var _ TranscriptStore = (*SqliteStore)(nil)
