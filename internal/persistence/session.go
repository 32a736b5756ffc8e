package persistence

import (
	"sync"

	"github.com/afoeder/typo3cr/internal/mapper"
)

// Session records the objects reconstituted from storage. It implements
// mapper.Session.
type Session struct {
	mu      sync.Mutex
	objects []mapper.Object
	known   map[mapper.Object]bool
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{known: make(map[mapper.Object]bool)}
}

// RegisterReconstitutedObject records obj. Registering an object twice keeps
// its first position.
func (s *Session) RegisterReconstitutedObject(obj mapper.Object) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.known[obj] {
		return
	}
	s.known[obj] = true
	s.objects = append(s.objects, obj)
}

// ReconstitutedObjects returns the recorded objects in registration order.
func (s *Session) ReconstitutedObjects() []mapper.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mapper.Object(nil), s.objects...)
}

// IsReconstituted reports whether obj was recorded.
func (s *Session) IsReconstituted(obj mapper.Object) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.known[obj]
}

// DirtyEntities returns the recorded entities modified since reconstitution.
func (s *Session) DirtyEntities() []*Entity {
	var dirty []*Entity
	for _, obj := range s.ReconstitutedObjects() {
		if e, ok := obj.(*Entity); ok && e.Dirty() {
			dirty = append(dirty, e)
		}
	}
	return dirty
}
