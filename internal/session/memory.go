package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps the encoded session in process memory. It is used when
// no state directory is available; sessions do not survive a restart.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
	now  func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// Save encodes sess, stamping a zero timestamp with the current time.
func (s *MemoryStore) Save(_ context.Context, sess Session) error {
	if sess.Timestamp == 0 {
		sess.Timestamp = s.now().UnixMilli()
	}
	data, err := Encode(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

// Load decodes the saved session.
func (s *MemoryStore) Load(context.Context) (Session, bool, error) {
	s.mu.Lock()
	data := s.data
	s.mu.Unlock()
	if data == nil {
		return Session{}, false, nil
	}
	sess, ok := Decode(data)
	return sess, ok, nil
}

// Clear drops the saved session.
func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	s.data = nil
	s.mu.Unlock()
	return nil
}
