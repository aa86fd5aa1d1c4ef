package store

import (
	"context"
	"sync"
	"time"

	"github.com/dgallion1/hfepa/internal/hfepa"
)

type memoryEntry struct {
	result    hfepa.AnnotatedDocument
	createdAt time.Time
}

// MemoryStore is an in-process ResultStore. Entries older than the TTL
// read as misses and are dropped by Cleanup.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func memoryKey(contentHash, optionsKey string) string {
	return contentHash + "|" + optionsKey
}

func (s *MemoryStore) Get(_ context.Context, contentHash, optionsKey string) (hfepa.AnnotatedDocument, error) {
	s.mu.RLock()
	e, ok := s.entries[memoryKey(contentHash, optionsKey)]
	s.mu.RUnlock()
	if !ok || s.expired(e.createdAt) {
		return nil, ErrNotFound
	}
	return cloneAnnotated(e.result), nil
}

func (s *MemoryStore) Put(_ context.Context, contentHash, optionsKey string, result hfepa.AnnotatedDocument) error {
	s.mu.Lock()
	s.entries[memoryKey(contentHash, optionsKey)] = memoryEntry{
		result:    cloneAnnotated(result),
		createdAt: s.now(),
	}
	s.mu.Unlock()
	return nil
}

// Cleanup removes expired entries and returns how many were dropped.
func (s *MemoryStore) Cleanup(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for key, e := range s.entries {
		if s.expired(e.createdAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) expired(createdAt time.Time) bool {
	return s.ttl > 0 && s.now().Sub(createdAt) > s.ttl
}

func cloneAnnotated(doc hfepa.AnnotatedDocument) hfepa.AnnotatedDocument {
	if doc == nil {
		return nil
	}
	out := make(hfepa.AnnotatedDocument, len(doc))
	for i, page := range doc {
		out[i] = append([]hfepa.LineRecord{}, page...)
	}
	return out
}
