// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package redis

import (
	"io"

	"github.com/redis/go-redis/v9"
)

// Slot is the value a pool keeps for one connection. It is either Live or
// Broken; no other implementations exist.
type Slot interface {
	io.Closer
	slot()
}

// Live is an open connection which has not been observed to fail.
//
// Only ConnectionManager.Connect and ConnectionManager.Validate produce a
// Live holding a connection. The zero Live holds none and is treated as
// broken.
type Live struct {
	client *redis.Client
}

// Broken marks a slot whose connection failed. It is terminal: the pool
// must discard it and connect again.
type Broken struct{}

func (Live) slot()   {}
func (Broken) slot() {}

// Client returns the client bound to the single physical connection of the slot.
func (live Live) Client() *redis.Client { return live.client }

// Close closes the underlying connection.
func (live Live) Close() error {
	if live.client == nil {
		return nil
	}
	return live.client.Close()
}

// Close does nothing, a broken slot owns no connection.
func (Broken) Close() error { return nil }

// IsBroken reports whether slot must be discarded.
func IsBroken(slot Slot) bool {
	switch slot := slot.(type) {
	case Live:
		return slot.client == nil
	default:
		return true
	}
}
