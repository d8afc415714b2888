package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "stayengine/internal/app/outbox"
	infraoutbox "stayengine/internal/infra/outbox"
)

func TestOutboxClaimIsExclusiveWithinLease(t *testing.T) {
	ctx := context.Background()
	box := NewOutbox()
	require.NoError(t, box.Add(ctx, appoutbox.EventRecord{ID: "evt-1", Name: "booking.created", OccurredAt: time.Now()}))

	doc, err := box.Claim(ctx, "worker-a")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "worker-a", doc.ClaimedBy)

	again, err := box.Claim(ctx, "worker-b")
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestOutboxReclaimsAbandonedClaim(t *testing.T) {
	ctx := context.Background()
	box := NewOutbox()
	box.ClaimLease = 10 * time.Millisecond
	require.NoError(t, box.Add(ctx, appoutbox.EventRecord{ID: "evt-1", Name: "booking.created", OccurredAt: time.Now()}))

	first, err := box.Claim(ctx, "worker-a")
	require.NoError(t, err)
	require.NotNil(t, first)

	// worker-a never reports back
	time.Sleep(20 * time.Millisecond)
	second, err := box.Claim(ctx, "worker-b")
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "evt-1", second.ID)
	assert.Equal(t, "worker-b", second.ClaimedBy)
	assert.Equal(t, infraoutbox.StateClaimed, second.State)

	require.NoError(t, box.MarkSent(ctx, second.ID))
	assert.Empty(t, box.Pending())
}
