package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "stayengine/internal/app/outbox"
	infraoutbox "stayengine/internal/infra/outbox"
)

// Outbox queues events in memory and serves them to the outbox worker.
type Outbox struct {
	mu   sync.Mutex
	docs []*infraoutbox.EventDocument

	ClaimLease time.Duration
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now().UTC()
	o.docs = append(o.docs, &infraoutbox.EventDocument{
		ID:          record.ID,
		Name:        record.Name,
		Payload:     record.Payload,
		OccurredAt:  record.OccurredAt,
		Aggregate:   record.Aggregate,
		Headers:     record.Headers,
		State:       infraoutbox.StateNew,
		NextAttempt: now,
	})
	return nil
}

// Flush is a no-op; the worker drains the queue.
func (o *Outbox) Flush(context.Context) error {
	return nil
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.EventDocument, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now().UTC()
	for _, doc := range o.docs {
		if doc.Claimable(now, o.ClaimLease) {
			doc.State = infraoutbox.StateClaimed
			doc.ClaimedBy = workerID
			doc.ClaimedAt = now
			clone := *doc
			return &clone, nil
		}
	}
	return nil, nil
}

// MarkSent drops the event from the queue.
func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, doc := range o.docs {
		if doc.ID == id {
			o.docs = append(o.docs[:i], o.docs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, doc := range o.docs {
		if doc.ID == id {
			doc.State = infraoutbox.StateFailed
			doc.NextAttempt = next
			doc.LastError = errMsg
			doc.Attempts++
			return nil
		}
	}
	return nil
}

// Pending lists events not yet sent, oldest first.
func (o *Outbox) Pending() []infraoutbox.EventDocument {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]infraoutbox.EventDocument, 0, len(o.docs))
	for _, doc := range o.docs {
		out = append(out, *doc)
	}
	return out
}

var (
	_ appoutbox.Outbox   = (*Outbox)(nil)
	_ infraoutbox.Source = (*Outbox)(nil)
)
