package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := newKeyedMutex()

	const goroutines = 50
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("user1|boss1")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines, counter)
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := newKeyedMutex()

	// Holding one key must not block a different key.
	unlockA := km.Lock("user1|boss1")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := km.Lock("user2|boss2")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lock on an unrelated key blocked")
	}
}

func TestKeyedMutexReusesLockPerKey(t *testing.T) {
	km := newKeyedMutex()

	unlock := km.Lock("k")
	unlock()
	unlock2 := km.Lock("k")
	unlock2()
}
