package administrator

import "sync"

// Owners decides who may run process scoped commands
type Owners interface {
	IsOwner(userID string) bool
}

// OwnerSet is a concurrency safe set of owner ids, it can be filled after startup
// once the application owner is known
type OwnerSet struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

var _ Owners = (*OwnerSet)(nil)

func NewOwnerSet(ids ...string) *OwnerSet {
	s := &OwnerSet{ids: make(map[string]struct{})}
	s.Add(ids...)
	return s
}

func (s *OwnerSet) Add(ids ...string) {
	s.mu.Lock()
	for _, id := range ids {
		if id != "" {
			s.ids[id] = struct{}{}
		}
	}
	s.mu.Unlock()
}

func (s *OwnerSet) IsOwner(userID string) bool {
	s.mu.RLock()
	_, ok := s.ids[userID]
	s.mu.RUnlock()
	return ok
}

func (s *OwnerSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}
