package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "stayengine/internal/app/outbox"
	infraoutbox "stayengine/internal/infra/outbox"
	"stayengine/internal/infra/storage/memory"
)

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type fakeProducer struct {
	mu   sync.Mutex
	sent []published
	fail error
}

func (p *fakeProducer) Publish(_ context.Context, topic, key string, payload []byte, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.sent = append(p.sent, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func addRecord(t *testing.T, box *memory.Outbox, id, name string) {
	t.Helper()
	require.NoError(t, box.Add(context.Background(), appoutbox.EventRecord{
		ID:         id,
		Name:       name,
		Payload:    []byte(`{"booking_id":"bk-1","property_id":"prop-1"}`),
		OccurredAt: time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC),
		Aggregate:  "prop-1",
		Headers:    map[string]string{"content-type": "application/json", "traceparent": "00-abc-01"},
	}))
}

func TestWorkerDrainPublishesCloudEvents(t *testing.T) {
	box := memory.NewOutbox()
	addRecord(t, box, "evt-1", "booking.created")
	addRecord(t, box, "evt-2", "calendar.block_added")
	producer := &fakeProducer{}
	w := &infraoutbox.Worker{Source: box, Producer: producer, TopicPrefix: "dev.", SourceName: "stayengine"}

	n, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, box.Pending())

	require.Len(t, producer.sent, 2)
	first := producer.sent[0]
	assert.Equal(t, "dev.booking.events.v1", first.topic)
	assert.Equal(t, "prop-1", first.key)
	assert.Equal(t, "application/cloudevents+json", first.headers["content-type"])
	assert.Equal(t, "booking.created.v1", first.headers["ce_type"])
	assert.Equal(t, "00-abc-01", first.headers["traceparent"])
	assert.Equal(t, "dev.calendar.events.v1", producer.sent[1].topic)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(first.payload, &envelope))
	assert.Equal(t, "1.0", envelope["specversion"])
	assert.Equal(t, "evt-1", envelope["id"])
	assert.Equal(t, "stayengine", envelope["source"])
	assert.Equal(t, "prop-1", envelope["subject"])
	data, ok := envelope["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bk-1", data["booking_id"])
}

func TestWorkerSchedulesRetryOnPublishFailure(t *testing.T) {
	box := memory.NewOutbox()
	addRecord(t, box, "evt-1", "booking.confirmed")
	producer := &fakeProducer{fail: errors.New("broker down")}
	w := &infraoutbox.Worker{Source: box, Producer: producer, Backoff: []time.Duration{time.Hour}}

	n, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending := box.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, infraoutbox.StateFailed, pending[0].State)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Equal(t, "broker down", pending[0].LastError)
	assert.True(t, pending[0].NextAttempt.After(time.Now().Add(50*time.Minute)))

	// Not due yet, so nothing is claimed.
	producer.fail = nil
	n, err = w.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, producer.sent)
}

func TestWorkerRunRequiresDependencies(t *testing.T) {
	w := &infraoutbox.Worker{}
	assert.ErrorIs(t, w.Run(context.Background()), infraoutbox.ErrWorkerNotConfigured)
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	box := memory.NewOutbox()
	addRecord(t, box, "evt-1", "booking.cancelled")
	producer := &fakeProducer{}
	w := &infraoutbox.Worker{Source: box, Producer: producer, Interval: 5 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return len(box.Pending()) == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestClaimableHonoursLease(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		doc  infraoutbox.EventDocument
		want bool
	}{
		{"new and due", infraoutbox.EventDocument{State: infraoutbox.StateNew, NextAttempt: now}, true},
		{"failed not yet due", infraoutbox.EventDocument{State: infraoutbox.StateFailed, NextAttempt: now.Add(time.Second)}, false},
		{"fresh claim", infraoutbox.EventDocument{State: infraoutbox.StateClaimed, ClaimedAt: now.Add(-time.Minute)}, false},
		{"stale claim", infraoutbox.EventDocument{State: infraoutbox.StateClaimed, ClaimedAt: now.Add(-infraoutbox.DefaultClaimLease)}, true},
		{"sent", infraoutbox.EventDocument{State: infraoutbox.StateSent}, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.doc.Claimable(now, 0), tc.name)
	}
}
