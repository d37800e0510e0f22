package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"smartaset/pkg/domain"
	"smartaset/pkg/store"
)

const (
	// Key is the fixed storage key for the serialized list.
	Key = "smartaset_history"
	// Limit is the maximum number of retained results.
	Limit = 10
)

var ErrNotFound = errors.New("history entry not found")

// Store keeps the most recent audit results, newest first.
type Store struct {
	kv     store.KV
	logger *slog.Logger

	mu      sync.RWMutex
	entries []domain.AuditResult
}

// New wraps kv; call Load before serving reads.
func New(kv store.KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, logger: logger}
}

// Load reads the persisted list. Missing or unreadable data is logged and
// treated as empty history; Load never fails.
func (s *Store) Load(ctx context.Context) []domain.AuditResult {
	entries := s.read(ctx)
	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	return cloneEntries(entries)
}

func (s *Store) read(ctx context.Context) []domain.AuditResult {
	raw, err := s.kv.Get(ctx, Key)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.logger.Warn("history load failed", "err", err)
		return nil
	}
	var entries []domain.AuditResult
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.logger.Warn("history parse failed", "err", err)
		return nil
	}
	if len(entries) > Limit {
		entries = entries[:Limit]
	}
	return entries
}

// Record prepends result, keeps the newest Limit entries and persists the list.
func (s *Store) Record(ctx context.Context, result domain.AuditResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]domain.AuditResult, 0, Limit)
	next = append(next, result)
	next = append(next, s.entries...)
	if len(next) > Limit {
		next = next[:Limit]
	}
	s.entries = next

	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := s.kv.Set(ctx, Key, raw); err != nil {
		return fmt.Errorf("persist history: %w", err)
	}
	return nil
}

// List returns the retained results, newest first.
func (s *Store) List() []domain.AuditResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEntries(s.entries)
}

// Get returns the retained result with id.
func (s *Store) Get(id string) (domain.AuditResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return domain.AuditResult{}, ErrNotFound
}

func cloneEntries(in []domain.AuditResult) []domain.AuditResult {
	out := make([]domain.AuditResult, len(in))
	copy(out, in)
	return out
}
