package calllog

import (
	"context"
	"sync"
	"time"

	"nexa-backend/internal/transcript"
)

// MemoryRepo is an in-memory Repository useful for tests.
// It is not intended for production use.

type MemoryRepo struct {
	mu      sync.Mutex
	entries map[[2]string]*Entry // keyed by (phone, hash)
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{entries: map[[2]string]*Entry{}}
}

func (r *MemoryRepo) Insert(ctx context.Context, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := [2]string{e.Phone, e.TranscriptHash}
	if _, ok := r.entries[k]; ok {
		return ErrDuplicate
	}
	cp := e
	r.entries[k] = &cp
	return nil
}

// Find is test support for inspecting stored entries; the production
// Repository contract has no lookup.
func (r *MemoryRepo) Find(ctx context.Context, phone, hash string) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[[2]string{phone, hash}]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return *e, nil
}

func (r *MemoryRepo) MarkProcessed(ctx context.Context, phone, hash, summary string, msgs []transcript.Message, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[[2]string{phone, hash}]
	if !ok {
		return ErrNotFound
	}
	e.CallSummary = summary
	e.Messages = msgs
	e.Processed = true
	e.LastUpdated = now
	return nil
}

// Len reports the number of stored entries.
func (r *MemoryRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
