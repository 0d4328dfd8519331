package account

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authpress/pkg/totp"
)

// MemoryStore keeps account state in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	states   map[uuid.UUID]State
	recovery map[string]uuid.UUID // hashed normalized key -> owner
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states:   make(map[uuid.UUID]State),
		recovery: make(map[string]uuid.UUID),
	}
}

func (s *MemoryStore) Load(_ context.Context, id uuid.UUID) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[id]
	if !ok {
		return State{UserID: id}, nil
	}
	return st, nil
}

func (s *MemoryStore) SetSecret(_ context.Context, id uuid.UUID, secret string) error {
	s.update(id, func(st *State) {
		st.Secret = secret
		st.Active = true
		st.Attempts = 0
	})
	return nil
}

func (s *MemoryStore) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	s.update(id, func(st *State) { st.Active = active })
	return nil
}

func (s *MemoryStore) CompareAndSwapAttempts(_ context.Context, id uuid.UUID, from, to int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.states[id]
	if st.Attempts != from {
		return false, nil
	}
	st.UserID = id
	st.Attempts = to
	s.states[id] = st
	return true, nil
}

func (s *MemoryStore) ResetAttempts(_ context.Context, id uuid.UUID) error {
	s.update(id, func(st *State) { st.Attempts = 0 })
	return nil
}

func (s *MemoryStore) ClaimRecoveryKey(_ context.Context, id uuid.UUID, key string, issuedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := recoveryIndex(key)
	if owner, taken := s.recovery[idx]; taken && owner != id {
		return ErrRecoveryKeyTaken
	}

	st := s.states[id]
	if st.RecoveryKey != "" {
		delete(s.recovery, recoveryIndex(st.RecoveryKey))
	}
	s.recovery[idx] = id

	st.UserID = id
	st.RecoveryKey = key
	st.RecoveryKeyIssuedAt = issuedAt
	s.states[id] = st
	return nil
}

func (s *MemoryStore) ConsumeRecoveryKey(_ context.Context, id uuid.UUID, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[id]
	if !ok || !totp.MatchRecoveryKey(key, st.RecoveryKey) {
		return false, nil
	}
	delete(s.recovery, recoveryIndex(st.RecoveryKey))
	delete(s.states, id)
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.states[id]; ok && st.RecoveryKey != "" {
		delete(s.recovery, recoveryIndex(st.RecoveryKey))
	}
	delete(s.states, id)
	return nil
}

func (s *MemoryStore) update(id uuid.UUID, fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.states[id]
	st.UserID = id
	fn(&st)
	s.states[id] = st
}

// recoveryIndex is the global uniqueness key of a recovery key.
func recoveryIndex(key string) string {
	return totp.HashRecoveryCode(totp.NormalizeRecoveryKey(key))
}
