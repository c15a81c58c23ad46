package services

import (
	"hash/fnv"
	"sync"
)

const keyedLockShards = 64

// keyedMutex serializes work per string key without sharing one
// process-wide lock across unrelated keys. Mutexes are created on
// first use and kept for the process lifetime; the key space
// (user|boss pairs) is small enough that this never matters.
type keyedMutex struct {
	shards [keyedLockShards]struct {
		mu    sync.Mutex
		locks map[string]*sync.Mutex
	}
}

func newKeyedMutex() *keyedMutex {
	km := &keyedMutex{}
	for i := range km.shards {
		km.shards[i].locks = make(map[string]*sync.Mutex)
	}
	return km
}

// Lock acquires the mutex for key and returns its unlock func.
func (km *keyedMutex) Lock(key string) func() {
	h := fnv.New32a()
	h.Write([]byte(key))
	shard := &km.shards[h.Sum32()%keyedLockShards]

	shard.mu.Lock()
	m, ok := shard.locks[key]
	if !ok {
		m = &sync.Mutex{}
		shard.locks[key] = m
	}
	shard.mu.Unlock()

	m.Lock()
	return m.Unlock
}
