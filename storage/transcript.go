// Package storage provides the exchange transcript log.
//
// Information Hiding:
// - Storage backend implementation details hidden behind interface
// - Allows swapping between memory and SQLite without API changes
// - Transcripts are write-once diagnostics; nothing here feeds a prompt

package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/richinex/taskchat/llm"
	"github.com/richinex/taskchat/model"
)

// ErrTranscriptNotFound is returned by Get for unknown IDs.
var ErrTranscriptNotFound = errors.New("transcript not found")

// DefaultRecentLimit is used when Recent is called with a non-positive limit.
const DefaultRecentLimit = 20

// Transcript records one finished exchange.
type Transcript struct {
	ID            string           `json:"id"`
	CreatedAt     time.Time        `json:"created_at"`
	Message       string           `json:"message"`
	Answer        string           `json:"answer,omitempty"`
	Error         string           `json:"error,omitempty"`
	Provider      string           `json:"provider"`
	Model         string           `json:"model"`
	ProviderCalls int              `json:"provider_calls"`
	ToolCalls     []model.ToolCall `json:"tool_calls"`
	Usage         llm.TokenUsage   `json:"usage"`
	DurationMs    uint64           `json:"duration_ms"`
}

// Succeeded reports whether the exchange produced an answer.
func (t Transcript) Succeeded() bool {
	return t.Error == ""
}

// NewTranscript creates a transcript with a fresh ID and timestamp.
func NewTranscript(message string) Transcript {
	return Transcript{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Message:   message,
	}
}

// TranscriptStore defines the interface for recording exchanges.
type TranscriptStore interface {
	// Record stores a finished exchange. An empty ID is assigned a new one.
	Record(ctx context.Context, t Transcript) error

	// Get returns a transcript by ID or ErrTranscriptNotFound.
	Get(ctx context.Context, id string) (Transcript, error)

	// Recent returns up to limit transcripts, newest first.
	Recent(ctx context.Context, limit int) ([]Transcript, error)
}

// InMemoryStore implements TranscriptStore using an in-memory map.
// Data is lost when process terminates.
type InMemoryStore struct {
	mu          sync.RWMutex
	transcripts map[string]Transcript
}

// NewInMemoryStore creates a new in-memory transcript store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		transcripts: make(map[string]Transcript),
	}
}

// Record stores a transcript.
func (s *InMemoryStore) Record(ctx context.Context, t Transcript) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	// Copy to avoid external mutations
	t.ToolCalls = append([]model.ToolCall(nil), t.ToolCalls...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts[t.ID] = t
	return nil
}

// Get returns a transcript by ID.
func (s *InMemoryStore) Get(ctx context.Context, id string) (Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transcripts[id]
	if !ok {
		return Transcript{}, ErrTranscriptNotFound
	}
	t.ToolCalls = append([]model.ToolCall(nil), t.ToolCalls...)
	return t, nil
}

// Recent returns up to limit transcripts, newest first.
func (s *InMemoryStore) Recent(ctx context.Context, limit int) ([]Transcript, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	s.mu.RLock()
	all := make([]Transcript, 0, len(s.transcripts))
	for _, t := range s.transcripts {
		all = append(all, t)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Verify InMemoryStore implements TranscriptStore
var _ TranscriptStore = (*InMemoryStore)(nil)
