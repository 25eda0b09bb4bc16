package repository

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/okian/dons/internal/domain/model"
	"github.com/okian/dons/pkg/metrics"
)

// MemoryStore is an in-process Store. Records are kept in insertion order.
type MemoryStore struct {
	mu           sync.RWMutex
	codec        *IDCodec
	records      []model.Assessment // index i holds row number i+1
	bySubmission map[string]int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) (*MemoryStore, error) {
	s, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{
		codec:        s.codec,
		bySubmission: make(map[string]int64),
	}, nil
}

// Create implements Store.
func (m *MemoryStore) Create(_ context.Context, a model.Assessment) (string, bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordPersistenceLatency("create", metrics.Milliseconds(time.Since(start)))
	}()

	a, err := prepare(a)
	if err != nil {
		return "", false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if n, ok := m.bySubmission[a.SubmissionID]; ok {
		id, err := m.codec.Encode(n)
		return id, false, err
	}
	n := int64(len(m.records) + 1)
	id, err := m.codec.Encode(n)
	if err != nil {
		return "", false, err
	}
	a.ID = id
	a.Answers = maps.Clone(a.Answers)
	a.Ranking = slices.Clone(a.Ranking)
	m.records = append(m.records, a)
	m.bySubmission[a.SubmissionID] = n
	return id, true, nil
}

// GetByID implements Store.
func (m *MemoryStore) GetByID(_ context.Context, id string) (model.Assessment, error) {
	n, err := m.codec.Decode(id)
	if err != nil {
		return model.Assessment{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n > int64(len(m.records)) {
		return model.Assessment{}, ErrNotFound
	}
	return clone(m.records[n-1]), nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, limit int) ([]model.Assessment, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Assessment, 0, min(limit, len(m.records)))
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, clone(m.records[i]))
	}
	return out, nil
}

// Count implements Store.
func (m *MemoryStore) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }

func clone(a model.Assessment) model.Assessment {
	a.Answers = maps.Clone(a.Answers)
	a.Ranking = slices.Clone(a.Ranking)
	return a
}
