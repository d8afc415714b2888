package outbox

import (
	"context"
	"time"
)

const (
	StateNew     = "NEW"
	StateClaimed = "CLAIMED"
	StateSent    = "SENT"
	StateFailed  = "FAILED"
)

// DefaultClaimLease bounds how long a claim survives a worker that died
// between Claim and MarkSent/MarkFailed.
const DefaultClaimLease = 5 * time.Minute

type EventDocument struct {
	ID          string            `bson:"_id"`
	Name        string            `bson:"name"`
	Payload     []byte            `bson:"payload"`
	OccurredAt  time.Time         `bson:"occurred_at"`
	Aggregate   string            `bson:"aggregate"`
	Headers     map[string]string `bson:"headers"`
	State       string            `bson:"state"`
	Attempts    int               `bson:"attempts"`
	NextAttempt time.Time         `bson:"next_attempt_at"`
	ClaimedBy   string            `bson:"claimed_by"`
	ClaimedAt   time.Time         `bson:"claimed_at"`
	SentAt      time.Time         `bson:"sent_at"`
	LastError   string            `bson:"last_error"`
}

// Source hands out stored events one at a time to a worker.
type Source interface {
	Claim(ctx context.Context, workerID string) (*EventDocument, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}

// Claimable reports whether doc may be handed to a worker at now: new or
// failed events once their retry time has come, and claims older than lease.
func (d *EventDocument) Claimable(now time.Time, lease time.Duration) bool {
	switch d.State {
	case StateNew, StateFailed:
		return !d.NextAttempt.After(now)
	case StateClaimed:
		return !d.ClaimedAt.After(now.Add(-leaseOrDefault(lease)))
	}
	return false
}

func leaseOrDefault(lease time.Duration) time.Duration {
	if lease <= 0 {
		return DefaultClaimLease
	}
	return lease
}
