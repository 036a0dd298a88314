package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rainit/rainit/backend/internal/model/chat"
)

var (
	ErrEmptyText       = errors.New("turn text is required")
	ErrInvalidRole     = errors.New("turn role must be user or model")
	ErrSessionNotFound = errors.New("session not found")
)

// Service holds conversation logs in memory. The default session always
// exists; other sessions are created through CreateSession.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*conversation
}

type conversation struct {
	// turnMu is held by a caller for the length of a whole exchange so that
	// turns of one session never interleave.
	turnMu    sync.Mutex
	createdAt time.Time
	turns     []chat.Turn
}

// NewService bootstraps the in-memory store with the shared default session.
func NewService() *Service {
	return &Service{
		sessions: map[string]*conversation{
			chat.DefaultSessionID: newConversation(),
		},
	}
}

func newConversation() *conversation {
	return &conversation{
		createdAt: time.Now().UTC(),
		turns:     make([]chat.Turn, 0, 16),
	}
}

// CreateSession provisions an isolated, empty log.
func (s *Service) CreateSession(_ context.Context) (chat.Session, error) {
	id := uuid.NewString()
	conv := newConversation()

	s.mu.Lock()
	s.sessions[id] = conv
	s.mu.Unlock()

	return chat.Session{ID: id, CreatedAt: conv.createdAt}, nil
}

// Lock acquires the exchange lock of a session. The returned func releases it.
func (s *Service) Lock(sessionID string) (func(), error) {
	conv, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	conv.turnMu.Lock()
	return conv.turnMu.Unlock, nil
}

// Append adds a turn to the end of the session log and returns it with its
// identifier and timestamp filled in.
func (s *Service) Append(_ context.Context, sessionID string, role chat.Role, text string) (chat.Turn, error) {
	if text == "" {
		return chat.Turn{}, ErrEmptyText
	}
	if role != chat.RoleUser && role != chat.RoleModel {
		return chat.Turn{}, ErrInvalidRole
	}

	turn := chat.Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.sessions[sessionID]
	if !ok {
		return chat.Turn{}, ErrSessionNotFound
	}
	conv.turns = append(conv.turns, turn)
	return turn, nil
}

// LoadTranscript returns a copy of the session log in chronological order.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Turn, len(conv.turns))
	copy(copied, conv.turns)
	return copied, nil
}

// Len reports the number of turns in the session log.
func (s *Service) Len(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.sessions[sessionID]
	if !ok {
		return 0
	}
	return len(conv.turns)
}

// Reset empties the session log. Resetting an empty log is a no-op.
func (s *Service) Reset(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	conv.turns = make([]chat.Turn, 0, 16)
	return nil
}

func (s *Service) lookup(sessionID string) (*conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return conv, nil
}
