package conversation

import (
	"context"
	"sync"

	"github.com/PabloGalante/analyst-agent/internal/domain"
)

// sessionLocks serializes work per session while letting different sessions
// proceed in parallel. Entries are dropped once nobody holds or waits on them.
type sessionLocks struct {
	mu    sync.Mutex
	slots map[domain.SessionID]*slot
}

type slot struct {
	sem  chan struct{}
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{slots: make(map[domain.SessionID]*slot)}
}

// lock blocks until the session is free or ctx is done. The returned func
// releases the lock and must be called exactly once.
func (l *sessionLocks) lock(ctx context.Context, id domain.SessionID) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[id]
	if !ok {
		s = &slot{sem: make(chan struct{}, 1)}
		l.slots[id] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.sem <- struct{}{}:
		return func() {
			<-s.sem
			l.release(id, s)
		}, nil
	case <-ctx.Done():
		l.release(id, s)
		return nil, ctx.Err()
	}
}

func (l *sessionLocks) release(id domain.SessionID, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, id)
	}
}

func (l *sessionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
