package queries

import (
	"context"
	"errors"
	"fmt"
)

// Query is a read request; handlers must not mutate state.
type Query interface {
	Key() string
}

type Handler[Q Query, R any] interface {
	Handle(ctx context.Context, q Q) (R, error)
}

type HandlerFunc[Q Query, R any] func(ctx context.Context, q Q) (R, error)

func (f HandlerFunc[Q, R]) Handle(ctx context.Context, q Q) (R, error) {
	return f(ctx, q)
}

type Bus interface {
	Ask(ctx context.Context, q Query) (any, error)
}

type BusFunc func(ctx context.Context, q Query) (any, error)

func (f BusFunc) Ask(ctx context.Context, q Query) (any, error) {
	return f(ctx, q)
}

var (
	ErrHandlerNotFound = errors.New("queries: handler not found")
	ErrInvalidQuery    = errors.New("queries: invalid query for handler")
	ErrResultType      = errors.New("queries: result type mismatch")
	ErrNilBus          = errors.New("queries: nil bus")
)

// Ask sends q through bus and asserts the result type.
func Ask[Q Query, R any](ctx context.Context, bus Bus, q Q) (R, error) {
	var zero R
	if bus == nil {
		return zero, ErrNilBus
	}
	res, err := bus.Ask(ctx, q)
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	value, ok := res.(R)
	if !ok {
		return zero, fmt.Errorf("%w: %s returned %T, want %T", ErrResultType, q.Key(), res, zero)
	}
	return value, nil
}
