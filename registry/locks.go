package registry

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// stripedLocks serializes access to a key without keeping a mutex per key around
type stripedLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (s *stripedLocks) lock(parts ...string) (unlock func()) {
	h := fnv.New32a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}

	mu := &s.stripes[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}
