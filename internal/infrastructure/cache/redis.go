package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"ncd-admin-backend/internal/domain/uow"
)

func OpenRedis(addr string, db int) (*redis.Client, error) {
	r := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return r, nil
}

// KV stores whole JSON documents under prefixed keys and fans out refresh
// notifications over redis pub/sub.
type KV struct {
	rdb    *redis.Client
	prefix string
}

func NewKV(rdb *redis.Client, prefix string) *KV { return &KV{rdb: rdb, prefix: prefix} }

func (k *KV) key(name string) string { return k.prefix + name }

// Get returns nil, nil when the key does not exist.
func (k *KV) Get(ctx context.Context, name string) ([]byte, error) {
	v, err := k.rdb.Get(ctx, k.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return v, err
}

// CompareAndSetMany writes all values in a single MULTI/EXEC so readers
// never see series from one commit next to investors from another. The
// write only happens while the counter under revKey still equals rev (a
// missing counter reads as 0); the counter is bumped to rev+1 in the same
// transaction. A stale rev or a concurrent writer yields uow.ErrConflict.
func (k *KV) CompareAndSetMany(ctx context.Context, revKey string, rev uint64, values map[string][]byte) error {
	rk := k.key(revKey)
	err := k.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, rk).Uint64()
		if errors.Is(err, redis.Nil) {
			cur, err = 0, nil
		}
		if err != nil {
			return err
		}
		if cur != rev {
			return uow.ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			for name, v := range values {
				p.Set(ctx, k.key(name), v, 0)
			}
			p.Set(ctx, rk, rev+1, 0)
			return nil
		})
		return err
	}, rk)
	if errors.Is(err, redis.TxFailedErr) {
		return uow.ErrConflict
	}
	return err
}

func (k *KV) Del(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = k.key(n)
	}
	return k.rdb.Del(ctx, keys...).Err()
}

func (k *KV) Publish(ctx context.Context, channel string, payload []byte) error {
	return k.rdb.Publish(ctx, k.key(channel), payload).Err()
}

// Subscribe listens on a prefixed channel. Callers close the returned PubSub.
func (k *KV) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	return k.rdb.Subscribe(ctx, k.key(channel))
}

// Listen delivers every message on channel to fn until ctx is done.
func (k *KV) Listen(ctx context.Context, channel string, fn func(payload []byte)) error {
	ps := k.Subscribe(ctx, channel)
	defer ps.Close()
	// wait for the subscription to be confirmed so no publish is missed
	if _, err := ps.Receive(ctx); err != nil {
		return err
	}
	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			fn([]byte(msg.Payload))
		}
	}
}
