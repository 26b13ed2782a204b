// Copyright (C) 2018 Storj Labs, Inc.
// See LICENSE for copying information.

// Package storage describes key/value stores backed by pooled connections.
package storage

import (
	"context"

	"github.com/zeebo/errs"
)

var (
	// ErrKeyNotFound used when something doesn't exist.
	ErrKeyNotFound = errs.Class("key not found")

	// ErrEmptyKey is returned when an empty key is used in Put or in CompareAndSwap.
	ErrEmptyKey = errs.Class("empty key")
)

// KeyValueStore is an interface describing key/value stores like redis.
type KeyValueStore interface {
	// Put adds a value to the provided key, returning an error on failure.
	Put(ctx context.Context, key string, value []byte) error
	// Get returns the value stored under key or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// CloneValue creates a copy of value.
func CloneValue(value []byte) []byte {
	if value == nil {
		return nil
	}
	return append([]byte{}, value...)
}
