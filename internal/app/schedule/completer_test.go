package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayengine/internal/app/commands"
	bookingapp "stayengine/internal/app/handlers/booking"
)

type countingBus struct {
	calls atomic.Int32
}

func (b *countingBus) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	if _, ok := cmd.(bookingapp.CompleteStaysCommand); !ok {
		return nil, commands.ErrInvalidCommand
	}
	b.calls.Add(1)
	return &bookingapp.CompleteStaysResult{Completed: []string{"b-1"}}, nil
}

func TestTickDispatchesCompleteStays(t *testing.T) {
	bus := &countingBus{}
	c := &Completer{Commands: bus}
	done, err := c.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b-1"}, done)
	assert.Equal(t, int32(1), bus.calls.Load())
}

func TestRunTicksUntilCancelled(t *testing.T) {
	bus := &countingBus{}
	c := &Completer{Commands: bus, Interval: 5 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	err := c.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, bus.calls.Load(), int32(2))
}

func TestRunRequiresBus(t *testing.T) {
	assert.ErrorIs(t, (&Completer{}).Run(context.Background()), ErrCompleterNotConfigured)
}
