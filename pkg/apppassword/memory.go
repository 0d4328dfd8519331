package apppassword

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]map[string]Password
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[uuid.UUID]map[string]Password)}
}

func (s *MemoryStore) List(_ context.Context, userID uuid.UUID) ([]Password, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Password, 0, len(s.users[userID]))
	for _, p := range s.users[userID] {
		out = append(out, p)
	}
	return out, nil
}

func (s *MemoryStore) Insert(_ context.Context, userID uuid.UUID, p Password) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.users[userID]
	if !ok {
		set = make(map[string]Password)
		s.users[userID] = set
	}
	if _, taken := set[p.Key]; taken {
		return ErrKeyTaken
	}
	set[p.Key] = p
	return nil
}

func (s *MemoryStore) IncrementCount(_ context.Context, userID uuid.UUID, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.users[userID][key]
	if !ok {
		return 0, ErrNotFound
	}
	p.Count++
	s.users[userID][key] = p
	return p.Count, nil
}

func (s *MemoryStore) Delete(_ context.Context, userID uuid.UUID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID][key]; !ok {
		return ErrNotFound
	}
	delete(s.users[userID], key)
	return nil
}

func (s *MemoryStore) DeleteAll(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	delete(s.users, userID)
	s.mu.Unlock()
	return nil
}

// MemoryLog is an in-process AccessLog.
type MemoryLog struct {
	mu      sync.Mutex
	entries map[uuid.UUID][]AccessEntry // newest first
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{entries: make(map[uuid.UUID][]AccessEntry)}
}

func (l *MemoryLog) Append(_ context.Context, entry AccessEntry, limit int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	list := append([]AccessEntry{entry}, l.entries[entry.UserID]...)
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	l.entries[entry.UserID] = list
	return nil
}

func (l *MemoryLog) Entries(_ context.Context, userID uuid.UUID) ([]AccessEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.entries[userID]), nil
}

func (l *MemoryLog) Clear(_ context.Context, userID uuid.UUID) error {
	l.mu.Lock()
	delete(l.entries, userID)
	l.mu.Unlock()
	return nil
}
