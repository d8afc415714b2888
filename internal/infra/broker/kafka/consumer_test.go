package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyHandler fails the first failures[offset] attempts for each offset.
type flakyHandler struct {
	mu       sync.Mutex
	failures map[int64]int
	attempts map[int64]int
	order    []int64
}

func (h *flakyHandler) Handle(_ context.Context, msg *sarama.ConsumerMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.attempts == nil {
		h.attempts = map[int64]int{}
	}
	h.attempts[msg.Offset]++
	if h.attempts[msg.Offset] <= h.failures[msg.Offset] {
		return errors.New("downstream unavailable")
	}
	h.order = append(h.order, msg.Offset)
	return nil
}

type fakeSession struct {
	ctx    context.Context
	mu     sync.Mutex
	marked []int64
}

func (s *fakeSession) Claims() map[string][]int32               { return nil }
func (s *fakeSession) MemberID() string                         { return "member" }
func (s *fakeSession) GenerationID() int32                      { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)  {}
func (s *fakeSession) Commit()                                  {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) Context() context.Context                 { return s.ctx }
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (c fakeClaim) Topic() string                            { return "payments" }
func (c fakeClaim) Partition() int32                         { return 0 }
func (c fakeClaim) InitialOffset() int64                     { return 0 }
func (c fakeClaim) HighWaterMarkOffset() int64               { return 3 }
func (c fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func claimOf(offsets ...int64) fakeClaim {
	ch := make(chan *sarama.ConsumerMessage, len(offsets))
	for _, off := range offsets {
		ch <- &sarama.ConsumerMessage{Topic: "payments", Offset: off}
	}
	close(ch)
	return fakeClaim{messages: ch}
}

func quietGroupHandler(h MessageHandler) consumerGroupHandler {
	return consumerGroupHandler{
		handler: h,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		retry:   retryPolicy{initial: time.Millisecond, max: 4 * time.Millisecond},
	}
}

func TestConsumeClaimRetriesFailedMessageBeforeMovingOn(t *testing.T) {
	handler := &flakyHandler{failures: map[int64]int{1: 3}}
	sess := &fakeSession{ctx: context.Background()}

	err := quietGroupHandler(handler).ConsumeClaim(sess, claimOf(0, 1, 2))
	require.NoError(t, err)

	assert.Equal(t, []int64{0, 1, 2}, handler.order)
	assert.Equal(t, 4, handler.attempts[1])
	assert.Equal(t, []int64{0, 1, 2}, sess.marked)
}

func TestConsumeClaimLeavesFailedMessageUnmarkedWhenSessionEnds(t *testing.T) {
	handler := &flakyHandler{failures: map[int64]int{1: 1 << 30}}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	sess := &fakeSession{ctx: ctx}

	err := quietGroupHandler(handler).ConsumeClaim(sess, claimOf(0, 1, 2))
	require.NoError(t, err)

	assert.Equal(t, []int64{0}, sess.marked)
	assert.Zero(t, handler.attempts[2])
	assert.GreaterOrEqual(t, handler.attempts[1], 2)
}

func TestHandleWithRetryStopsOnContext(t *testing.T) {
	handler := &flakyHandler{failures: map[int64]int{7: 1 << 30}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := quietGroupHandler(handler).handleWithRetry(ctx, &sarama.ConsumerMessage{Offset: 7})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, handler.attempts[7])
}
