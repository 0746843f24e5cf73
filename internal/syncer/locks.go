package syncer

import "sync"

// userLocks serializes sync runs per user. A concurrent second run for the
// same user would race the token read-then-write and duplicate publishes, so
// the engine holds the user's lock for the whole run. Entries are retained;
// the map is bounded by the user population.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the user's mutex and returns its release function.
func (l *userLocks) acquire(userID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[userID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
