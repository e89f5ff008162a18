package coordinator

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/bark-bank/bark/internal/bankerr"
)

// Local coordinates goroutines within one process. Entries are created on
// demand and dropped once no caller holds or waits on them.
type Local struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// NewLocal builds an in-process coordinator.
func NewLocal() *Local {
	return &Local{locks: make(map[string]*entry)}
}

func (l *Local) Acquire(ctx context.Context, ids ...string) (Lease, error) {
	ordered := Order(ids...)
	held := make([]string, 0, len(ordered))
	for _, id := range ordered {
		e := l.ref(id)
		if err := e.sem.Acquire(ctx, 1); err != nil {
			l.unref(id)
			l.release(held)
			return nil, bankerr.Wrap(bankerr.KindTimeout, "coordinator.Acquire", err)
		}
		held = append(held, id)
	}

	var once sync.Once
	return releaseFunc(func() {
		once.Do(func() { l.release(held) })
	}), nil
}

// Len reports how many accounts currently have a lock entry.
func (l *Local) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *Local) ref(id string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.locks[id]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		l.locks[id] = e
	}
	e.refs++
	return e
}

func (l *Local) unref(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.locks[id]
	e.refs--
	if e.refs == 0 {
		delete(l.locks, id)
	}
}

func (l *Local) release(held []string) {
	for i := len(held) - 1; i >= 0; i-- {
		l.mu.Lock()
		e := l.locks[held[i]]
		l.mu.Unlock()
		e.sem.Release(1)
		l.unref(held[i])
	}
}
