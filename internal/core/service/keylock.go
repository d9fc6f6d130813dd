package service

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// keyLock serialises operations on a logical key by hashing it onto a fixed
// set of striped mutexes. Distinct keys may share a stripe; the same key
// always maps to the same stripe.
type keyLock struct {
	stripes [lockStripes]sync.Mutex
}

// acquire locks the stripe for key and returns the mutex so the caller can
// defer the unlock.
func (k *keyLock) acquire(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &k.stripes[int(h.Sum32())%lockStripes]
	m.Lock()
	return m
}
