package history

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps sessions in a process-lifetime map. Sessions are never
// evicted, so total memory grows with the number of distinct users.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (s *MemoryStore) GetOrCreate(_ context.Context, userID, systemPrompt string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		sess = &Session{
			UserID:    userID,
			History:   []Message{NewMessage(RoleSystem, systemPrompt)},
			CreatedAt: time.Now().UTC(),
		}
		s.sessions[userID] = sess
	}
	return snapshot(sess), nil
}

func (s *MemoryStore) Get(_ context.Context, userID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return snapshot(sess), nil
}

func (s *MemoryStore) Append(_ context.Context, userID string, msgs ...Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return ErrSessionNotFound
	}
	sess.History = append(sess.History, msgs...)
	return nil
}

func (s *MemoryStore) Trim(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return ErrSessionNotFound
	}
	sess.History = Trim(sess.History, KeepRecent)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// snapshot copies the history so callers never alias the stored slice.
func snapshot(sess *Session) Session {
	out := *sess
	out.History = slices.Clone(sess.History)
	return out
}
