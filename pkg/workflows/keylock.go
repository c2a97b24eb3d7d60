package workflows

import "sync"

// KeyLock serializes transitions on the same request id while letting
// different ids proceed in parallel. Entries are reference counted and
// removed once the last holder releases them.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*keyEntry
}

type keyEntry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyLock creates an empty per-key lock table
func NewKeyLock() *KeyLock {
	return &KeyLock{
		locks: make(map[string]*keyEntry),
	}
}

// Lock acquires the mutex for the given key, blocking until it is free
func (k *KeyLock) Lock(key string) {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
}

// Unlock releases the mutex for the given key
func (k *KeyLock) Unlock(key string) {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		k.mu.Unlock()
		return
	}
	entry.refs--
	if entry.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	entry.mu.Unlock()
}
