package memory

import (
	"context"
	"sync"
	"time"
)

// Inbox remembers processed message ids.
type Inbox struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func NewInbox() *Inbox {
	return &Inbox{seen: make(map[string]time.Time)}
}

// TryBegin reports false when id was already recorded.
func (i *Inbox) TryBegin(ctx context.Context, id string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.seen[id]; ok {
		return false, nil
	}
	i.seen[id] = time.Now().UTC()
	return true, nil
}

// Forget removes id so the message can be processed again.
func (i *Inbox) Forget(ctx context.Context, id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.seen, id)
	return nil
}
