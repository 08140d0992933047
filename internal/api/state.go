package api

import (
	"sync"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// sessionRegistry maps session ids to their actor PIDs. Safe for concurrent
// use by handler goroutines.
type sessionRegistry struct {
	mu  sync.RWMutex
	ids map[uuid.UUID]*actor.PID
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{
		ids: map[uuid.UUID]*actor.PID{},
	}
}

func (s *sessionRegistry) add(id uuid.UUID, pid *actor.PID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = pid
}

func (s *sessionRegistry) get(id uuid.UUID) (*actor.PID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pid, ok := s.ids[id]
	return pid, ok
}

func (s *sessionRegistry) remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, id)
}
