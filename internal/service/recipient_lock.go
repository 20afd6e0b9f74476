package service

import "sync"

// recipientLocks serializes sends to the same recipient key across
// concurrently running campaigns.
type recipientLocks struct {
	mu    sync.Mutex
	locks map[string]*recipientLock
}

type recipientLock struct {
	mu   sync.Mutex
	refs int
}

func newRecipientLocks() *recipientLocks {
	return &recipientLocks{locks: make(map[string]*recipientLock)}
}

// Lock blocks until key is free and returns the matching unlock function.
func (l *recipientLocks) Lock(key string) func() {
	l.mu.Lock()
	lock, ok := l.locks[key]
	if !ok {
		lock = &recipientLock{}
		l.locks[key] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

func (l *recipientLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
