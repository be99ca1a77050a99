package lock

import (
	"context"
	"sync"
)

// MemoryLocker is a keyed mutex for a single process. Waiters give up when
// their context is done.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[int64]*slot
}

type slot struct {
	held chan struct{}
	refs int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[int64]*slot)}
}

func (m *MemoryLocker) Lock(ctx context.Context, loanID int64) (func(), error) {
	m.mu.Lock()
	s, ok := m.locks[loanID]
	if !ok {
		s = &slot{held: make(chan struct{}, 1)}
		m.locks[loanID] = s
	}
	s.refs++
	m.mu.Unlock()

	select {
	case s.held <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.held
				m.unref(loanID, s)
			})
		}, nil
	case <-ctx.Done():
		m.unref(loanID, s)
		return nil, ctx.Err()
	}
}

func (m *MemoryLocker) unref(loanID int64, s *slot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(m.locks, loanID)
	}
}
