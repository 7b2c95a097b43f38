package store

import (
	"context"
	"math"
	"sort"
	"sync"

	"fitLadderAPI/internal/ladder"
)

// MemoryStore is an in-process RemoteStore for local development and tests.
// Merges are shallow like the Postgres store.
type MemoryStore struct {
	mu       sync.Mutex
	docs     map[string]map[string]any
	order    []string
	failures []error
	merges   int
	queries  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]map[string]any)}
}

// FailNext makes the next calls return the given errors, one per call.
func (s *MemoryStore) FailNext(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, errs...)
}

func (s *MemoryStore) popFailure() error {
	if len(s.failures) == 0 {
		return nil
	}
	err := s.failures[0]
	s.failures = s.failures[1:]
	return err
}

// Put stores a full record, replacing any existing document.
func (s *MemoryStore) Put(r *ladder.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[r.ID]; !ok {
		s.order = append(s.order, r.ID)
	}
	s.docs[r.ID] = r.ToDocument()
}

// PutDocument stores a raw document, for shapes a Record cannot express.
func (s *MemoryStore) PutDocument(id string, doc map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		s.order = append(s.order, id)
	}
	s.docs[id] = doc
}

func (s *MemoryStore) Document(id string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.docs[id]))
	for k, v := range s.docs[id] {
		out[k] = v
	}
	return out
}

func (s *MemoryStore) QueryTop(ctx context.Context, field string, limit int) ([]*ladder.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.popFailure(); err != nil {
		return nil, err
	}

	ids := make([]string, len(s.order))
	copy(ids, s.order)
	value := func(id string) float64 {
		v, ok := ladder.Number(s.docs[id][field])
		if !ok || math.IsNaN(v) {
			return math.Inf(-1)
		}
		return v
	}
	sort.SliceStable(ids, func(i, j int) bool { return value(ids[i]) > value(ids[j]) })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	records := make([]*ladder.Record, 0, len(ids))
	for _, id := range ids {
		records = append(records, ladder.FromDocument(id, s.docs[id]))
	}
	return records, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*ladder.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.popFailure(); err != nil {
		return nil, err
	}
	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return ladder.FromDocument(id, doc), nil
}

func (s *MemoryStore) Merge(ctx context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.popFailure(); err != nil {
		return err
	}
	doc, ok := s.docs[id]
	if !ok {
		doc = make(map[string]any)
		s.docs[id] = doc
		s.order = append(s.order, id)
	}
	for k, v := range fields {
		doc[k] = v
	}
	s.merges++
	return nil
}

func (s *MemoryStore) MergeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.merges
}

func (s *MemoryStore) QueryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries
}

func (s *MemoryStore) Close() error { return nil }
