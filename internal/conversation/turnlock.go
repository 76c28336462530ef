package conversation

import "sync"

// TurnLock serializes turns per user. Entries are reference counted and
// dropped once no goroutine holds or waits on them.
type TurnLock struct {
	mu    sync.Mutex
	locks map[string]*turnEntry
}

type turnEntry struct {
	mu   sync.Mutex
	refs int
}

// NewTurnLock creates an empty TurnLock.
func NewTurnLock() *TurnLock {
	return &TurnLock{locks: make(map[string]*turnEntry)}
}

// Lock blocks until the turn for id is free and returns its release func.
func (l *TurnLock) Lock(id string) (unlock func()) {
	l.mu.Lock()
	e, ok := l.locks[id]
	if !ok {
		e = &turnEntry{}
		l.locks[id] = e
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
				delete(l.locks, id)
			}
			l.mu.Unlock()
		})
	}
}

// Len returns the number of ids currently held or awaited.
func (l *TurnLock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
