package service

import (
	"hash/fnv"
	"sync"
)

// roomLocks serializes work per room id over a fixed set of mutexes. Two rooms may share a stripe;
// that only costs throughput.
type roomLocks struct {
	stripes []sync.Mutex
}

func newRoomLocks(n int) *roomLocks {
	if n <= 0 {
		n = 64
	}
	return &roomLocks{stripes: make([]sync.Mutex, n)}
}

func (l *roomLocks) lock(room string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(room))
	mu := &l.stripes[h.Sum32()%uint32(len(l.stripes))]
	mu.Lock()
	return mu.Unlock
}
