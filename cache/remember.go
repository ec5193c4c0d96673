package cache

import (
	"context"
	"encoding/binary"
	"fmt"
	"reflect"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// timeExtID is the msgpack timestamp extension type.
const timeExtID int8 = -1

func init() {
	msgpack.RegisterExtDecoder(timeExtID, time.Time{}, decodeUTCTime)
}

// decodeUTCTime reads the msgpack timestamp forms and returns the instant in
// UTC rather than the process-local zone.
func decodeUTCTime(d *msgpack.Decoder, v reflect.Value, extLen int) error {
	b := make([]byte, extLen)
	if err := d.ReadFull(b); err != nil {
		return err
	}
	var tm time.Time
	switch extLen {
	case 4:
		tm = time.Unix(int64(binary.BigEndian.Uint32(b)), 0)
	case 8:
		sec := binary.BigEndian.Uint64(b)
		tm = time.Unix(int64(sec&0x00000003ffffffff), int64(sec>>34))
	case 12:
		nsec := binary.BigEndian.Uint32(b)
		tm = time.Unix(int64(binary.BigEndian.Uint64(b[4:])), int64(nsec))
	default:
		return fmt.Errorf("cache: invalid time ext len=%d", extLen)
	}
	v.Set(reflect.ValueOf(tm.UTC()))
	return nil
}

// Remember is the typed read-through helper used by every cached read.
//
// On a hit the stored msgpack snapshot is decoded into a fresh T, so callers
// can mutate what they get back without touching the cached copy. Decoded
// time.Time values are in UTC. On a miss fetch runs, its result is encoded
// and stored under key for ttl. Fetch errors are returned as-is and never
// cached. An entry that fails to decode is dropped and refetched.
func Remember[T any](ctx context.Context, store Store, key string, ttl time.Duration, fetch FetchFn[T]) (T, error) {
	var zero T

	if raw, ok := store.Get(key); ok {
		if data, isBytes := raw.([]byte); isBytes {
			var out T
			if err := msgpack.Unmarshal(data, &out); err == nil {
				return out, nil
			}
		}
		store.Delete(key)
	}

	if err := ctx.Err(); err != nil {
		return zero, err
	}

	value, err := fetch(ctx)
	if err != nil {
		return zero, err
	}

	data, err := msgpack.Marshal(value)
	if err != nil {
		// not encodable, serve it uncached
		return value, nil
	}
	store.Set(key, data, ttl)
	return value, nil
}
