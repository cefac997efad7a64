package core

import "sync"

// KeyedMutex provides mutual exclusion per arbitrary string key.
// Locks for distinct keys are independent; a lock is created lazily on first
// use and kept for the process lifetime (the key space here is small: one
// per exam cohort).
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (km *KeyedMutex) get(key string) *sync.Mutex {
	km.mu.Lock()
	defer km.mu.Unlock()

	lock, ok := km.locks[key]
	if !ok {
		lock = new(sync.Mutex)
		km.locks[key] = lock
	}
	return lock
}

func (km *KeyedMutex) Lock(key string)   { km.get(key).Lock() }
func (km *KeyedMutex) Unlock(key string) { km.get(key).Unlock() }
