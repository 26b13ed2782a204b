// Copyright (C) 2018 Storj Labs, Inc.
// See LICENSE for copying information.

package teststore

import (
	"context"
	"sync"

	"storj.io/redispool/storage"
)

var _ storage.KeyValueStore = (*Client)(nil)

// Client implements in-memory key value store
type Client struct {
	mu        sync.Mutex
	items     map[string][]byte
	CallCount struct {
		Get    int
		Put    int
		Delete int
	}
}

// New creates a new in-memory key-value store
func New() *Client { return &Client{items: map[string][]byte{}} }

// Put adds a value to store
func (store *Client) Put(ctx context.Context, key string, value []byte) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.CallCount.Put++
	if key == "" {
		return storage.ErrEmptyKey.New("")
	}
	store.items[key] = storage.CloneValue(value)
	return nil
}

// Get gets a value to store
func (store *Client) Get(ctx context.Context, key string) ([]byte, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.CallCount.Get++
	if key == "" {
		return nil, storage.ErrEmptyKey.New("")
	}
	value, ok := store.items[key]
	if !ok {
		return nil, storage.ErrKeyNotFound.New("%q", key)
	}
	return storage.CloneValue(value), nil
}

// Delete deletes key and the value
func (store *Client) Delete(ctx context.Context, key string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.CallCount.Delete++
	if key == "" {
		return storage.ErrEmptyKey.New("")
	}
	delete(store.items, key)
	return nil
}
