package accountlock

import (
	"context"
	"sync"

	"github.com/bwmarrin/snowflake"
)

type localEntry struct {
	sem  chan struct{}
	refs int
}

// Local is an in-process keyed mutex. Entries are dropped once nobody holds or waits on them.
type Local struct {
	mu      sync.Mutex
	entries map[snowflake.ID]*localEntry
}

func NewLocal() *Local {
	return &Local{entries: make(map[snowflake.ID]*localEntry)}
}

func (l *Local) Lock(ctx context.Context, accountID snowflake.ID) (Unlock, error) {
	if accountID == 0 {
		return nil, ErrInvalidAccount
	}

	l.mu.Lock()
	entry, ok := l.entries[accountID]
	if !ok {
		entry = &localEntry{sem: make(chan struct{}, 1)}
		l.entries[accountID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(accountID, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.sem
			l.release(accountID, entry)
		})
	}, nil
}

func (l *Local) release(accountID snowflake.ID, entry *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, accountID)
	}
}

func (l *Local) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
