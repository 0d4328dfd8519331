package replay

import (
	"context"
	"sync"
)

// MemoryStore keeps digests in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]map[string]struct{})}
}

func (s *MemoryStore) Add(_ context.Context, bucket, digest string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.buckets[bucket]
	if !ok {
		set = make(map[string]struct{})
		s.buckets[bucket] = set
	}
	if _, seen := set[digest]; seen {
		return false, nil
	}
	set[digest] = struct{}{}
	return true, nil
}

func (s *MemoryStore) Contains(_ context.Context, bucket, digest string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.buckets[bucket][digest]
	return ok, nil
}

func (s *MemoryStore) Purge(context.Context) error {
	s.mu.Lock()
	s.buckets = make(map[string]map[string]struct{})
	s.mu.Unlock()
	return nil
}
