// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"storj.io/redispool/pkg/pool"
	"storj.io/redispool/storage"
)

var _ storage.KeyValueStore = (*Store)(nil)

// Store is a key-value store running every command on a pooled connection.
type Store struct {
	pool *pool.Pool[Slot]
	TTL  time.Duration
}

// NewStore returns a store using connections from p. Values written with
// Put expire after ttl, zero disables expiry.
func NewStore(p *pool.Pool[Slot], ttl time.Duration) *Store {
	return &Store{pool: p, TTL: ttl}
}

// Get looks up the provided key.
func (store *Store) Get(ctx context.Context, key string) (_ []byte, err error) {
	defer mon.Task()(&ctx)(&err)
	if key == "" {
		return nil, storage.ErrEmptyKey.New("")
	}

	var value []byte
	err = store.do(ctx, func(client *redis.Client) error {
		value, err = client.Get(ctx, key).Bytes()
		return err
	})
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrKeyNotFound.New("%q", key)
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Put stores value under key.
func (store *Store) Put(ctx context.Context, key string, value []byte) (err error) {
	defer mon.Task()(&ctx)(&err)
	if key == "" {
		return storage.ErrEmptyKey.New("")
	}
	return store.do(ctx, func(client *redis.Client) error {
		return client.Set(ctx, key, value, store.TTL).Err()
	})
}

// Delete removes key.
func (store *Store) Delete(ctx context.Context, key string) (err error) {
	defer mon.Task()(&ctx)(&err)
	if key == "" {
		return storage.ErrEmptyKey.New("")
	}
	return store.do(ctx, func(client *redis.Client) error {
		return client.Del(ctx, key).Err()
	})
}

// Ping checks that a pooled connection answers.
func (store *Store) Ping(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)
	return store.do(ctx, func(client *redis.Client) error {
		return client.Ping(ctx).Err()
	})
}

// do runs fn on a pooled connection. A failed round trip discards the
// connection; replies from the server, including misses, keep it.
func (store *Store) do(ctx context.Context, fn func(*redis.Client) error) error {
	conn, err := store.pool.Get(ctx)
	if err != nil {
		return err
	}

	live, ok := conn.Value().(Live)
	if !ok || live.client == nil {
		conn.Discard()
		return ErrBroken.New("pool returned a broken connection")
	}

	err = fn(live.client)
	if err != nil && !isReply(err) {
		conn.Discard()
		return Error.Wrap(err)
	}
	conn.Release()
	if errors.Is(err, redis.Nil) {
		return err
	}
	return Error.Wrap(err)
}

// isReply reports whether err came from the server rather than from the
// transport.
func isReply(err error) bool {
	if errors.Is(err, redis.Nil) {
		return true
	}
	var reply redis.Error
	return errors.As(err, &reply)
}
