// Package grouplock serializes work per chat group.
//
// Operations that read-then-write a group's daily (open, close, register)
// hold the group's lock for their whole duration. Different groups never
// contend. Entries are reference counted and dropped when idle.
package grouplock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Locker hands out one mutex per group id.
type Locker struct {
	mu    sync.Mutex
	locks map[int64]*entry
}

// New creates an empty Locker.
func New() *Locker {
	return &Locker{locks: make(map[int64]*entry)}
}

// Lock blocks until the group's lock is held and returns its release func.
func (l *Locker) Lock(groupID int64) (unlock func()) {
	l.mu.Lock()
	e, ok := l.locks[groupID]
	if !ok {
		e = &entry{}
		l.locks[groupID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			l.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(l.locks, groupID)
			}
			l.mu.Unlock()
		})
	}
}

func (l *Locker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
