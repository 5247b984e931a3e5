// Package keylock provides striped per-key mutexes so that mutations to
// the same aggregate are serialized without a single global lock.
package keylock

import (
	"hash/fnv"
	"sync"
)

const defaultStripes = 64

// KeyLock serializes callers that hold the same key. Keys are hashed onto
// a fixed set of stripes; two distinct keys may share a stripe, which is
// safe (coarser serialization) and keeps memory bounded.
type KeyLock struct {
	stripes []sync.Mutex
}

// New creates a KeyLock with the default stripe count.
func New() *KeyLock {
	return NewWithStripes(defaultStripes)
}

// NewWithStripes creates a KeyLock with n stripes (minimum 1).
func NewWithStripes(n int) *KeyLock {
	if n < 1 {
		n = 1
	}
	return &KeyLock{stripes: make([]sync.Mutex, n)}
}

func (l *KeyLock) stripe(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &l.stripes[h.Sum32()%uint32(len(l.stripes))]
}

// Lock acquires the stripe for key and returns the unlock function.
func (l *KeyLock) Lock(key string) func() {
	m := l.stripe(key)
	m.Lock()
	return m.Unlock
}
