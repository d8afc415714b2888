package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"reflect"
	"time"

	"stayengine/internal/app/commands"
	"stayengine/internal/app/locks"
)

// IdempotentCommand is implemented by commands a client may safely retry.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any
}

type IdempotencyRecord struct {
	Key string
	// Fingerprint hashes the command that produced Payload.
	Fingerprint string
	Payload     []byte
	OccurredAt  time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONResultCodec) Decode(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

var (
	errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")
	// ErrIdempotencyKeyReused is returned when a key comes back with a different request.
	ErrIdempotencyKeyReused = errors.New("middleware: idempotency key reused with a different request")
)

// Idempotency replays the stored result of a previous success with the same
// key. Failures are not stored, so a retry after a transient error runs again.
// Concurrent requests sharing a key run one at a time, so the second one sees
// the first one's result.
func Idempotency(store IdempotencyStore, codec ResultCodec) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	inflight := locks.NewKeyed()
	return func(next commands.Bus) commands.Bus {
		nextFn := next.Dispatch
		return commands.BusFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return nextFn(ctx, cmd)
			}
			key := idCmd.IdempotencyKey()
			fingerprint, err := fingerprintOf(codec, cmd)
			if err != nil {
				return nil, err
			}

			unlock, err := inflight.Lock(ctx, key)
			if err != nil {
				return nil, err
			}
			defer unlock()

			rec, found, err := store.Get(ctx, key)
			if err != nil {
				return nil, err
			}
			if found {
				return replay(codec, idCmd, rec, fingerprint)
			}
			result, err := nextFn(ctx, cmd)
			if err != nil {
				return nil, err
			}
			record := IdempotencyRecord{Key: key, Fingerprint: fingerprint, OccurredAt: time.Now().UTC()}
			if result != nil {
				if record.Payload, err = codec.Encode(result); err != nil {
					return nil, err
				}
			}
			if err := store.Save(ctx, record); err != nil {
				return nil, err
			}
			return result, nil
		})
	}
}

func replay(codec ResultCodec, cmd IdempotentCommand, rec IdempotencyRecord, fingerprint string) (any, error) {
	// Records written before fingerprints existed carry none and always replay.
	if rec.Fingerprint != "" && rec.Fingerprint != fingerprint {
		return nil, ErrIdempotencyKeyReused
	}
	proto := cmd.ResultPrototype()
	if proto == nil {
		return nil, errMissingPrototype
	}
	if len(rec.Payload) > 0 {
		if err := codec.Decode(rec.Payload, proto); err != nil {
			return nil, err
		}
	}
	return normalizePrototype(proto), nil
}

func fingerprintOf(codec ResultCodec, cmd commands.Command) (string, error) {
	raw, err := codec.Encode(cmd)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(append([]byte(cmd.Key()+"\n"), raw...))
	return hex.EncodeToString(sum[:]), nil
}

func normalizePrototype(proto any) any {
	rv := reflect.ValueOf(proto)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return rv.Interface()
	}
	return proto
}
