package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xkilldash9x/synthmind/api/schemas"
)

// Memory is a process-local SessionStore used when no database is configured.
// Sessions are copied on the way in and out so callers never share state with it.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

var _ schemas.SessionStore = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string][]byte)}
}

func (m *Memory) Create(_ context.Context, session *schemas.TestSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("%w: %v", schemas.ErrStorage, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.ID]; ok {
		return fmt.Errorf("%w: session %s already exists", schemas.ErrStorage, session.ID)
	}
	m.sessions[session.ID] = data
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*schemas.TestSession, error) {
	m.mu.RLock()
	data, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", schemas.ErrNotFound, id)
	}

	var session schemas.TestSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("%w: %v", schemas.ErrStorage, err)
	}
	return &session, nil
}

func (m *Memory) AppendTranscript(_ context.Context, id string, msg schemas.ChatMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", schemas.ErrNotFound, id)
	}

	var session schemas.TestSession
	if err := json.Unmarshal(data, &session); err != nil {
		return fmt.Errorf("%w: %v", schemas.ErrStorage, err)
	}
	session.Transcript = append(session.Transcript, msg)
	updated, err := json.Marshal(&session)
	if err != nil {
		return fmt.Errorf("%w: %v", schemas.ErrStorage, err)
	}
	m.sessions[id] = updated
	return nil
}
