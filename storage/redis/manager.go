// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package redis implements the connection manager and key-value store used
// to talk to a redis server through storj.io/redispool/pkg/pool.
package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/redispool/pkg/pool"
)

var (
	mon = monkit.Package()

	// Error is a redis error.
	Error = errs.Class("redis")

	// ErrConnect is returned when a new connection could not be opened.
	ErrConnect = errs.Class("redis connect")

	// ErrValidate is returned when the liveness probe of a connection failed.
	ErrValidate = errs.Class("redis validate")

	// ErrBroken is returned when a broken slot is used.
	ErrBroken = errs.Class("redis broken connection")

	// ErrTimedOut is the class of the error returned by TimeoutError.
	ErrTimedOut = errs.Class("redis timed out")
)

var _ pool.Manager[Slot] = (*ConnectionManager)(nil)

// ConnectionManager opens and checks single redis connections on behalf of
// a pool. It holds no mutable state and is safe for concurrent use.
type ConnectionManager struct {
	log  *zap.Logger
	opts redis.Options
}

// NewConnectionManager returns a manager connecting with a copy of opts.
//
// Every connection is a go-redis client restricted to one socket without
// retries, so one slot corresponds to one physical connection and every
// probe is a single round trip.
func NewConnectionManager(log *zap.Logger, opts *redis.Options) (*ConnectionManager, error) {
	if opts == nil {
		return nil, Error.New("options are nil")
	}
	if opts.Addr == "" && opts.Dialer == nil {
		return nil, Error.New("address is empty")
	}

	manager := &ConnectionManager{
		log:  log,
		opts: *opts,
	}
	manager.opts.PoolSize = 1
	manager.opts.MinIdleConns = 0
	manager.opts.MaxIdleConns = 1
	manager.opts.MaxActiveConns = 1
	manager.opts.MaxRetries = -1
	manager.opts.ConnMaxIdleTime = -1
	manager.opts.ContextTimeoutEnabled = true

	return manager, nil
}

// NewConnectionManagerFromURL returns a manager for the redis server at address.
func NewConnectionManagerFromURL(log *zap.Logger, address string) (*ConnectionManager, error) {
	opts, err := ParseURL(address)
	if err != nil {
		return nil, err
	}
	return NewConnectionManager(log, opts)
}

// Addr returns the address of the redis server.
func (manager *ConnectionManager) Addr() string { return manager.opts.Addr }

// Connect opens a new connection and completes one PING round trip on it.
// The failure is returned as is, wrapped in ErrConnect; Connect never retries.
func (manager *ConnectionManager) Connect(ctx context.Context) (_ Slot, err error) {
	defer mon.Task()(&ctx)(&err)

	// go-redis initializes the options it is given, so every client gets its own copy.
	opts := manager.opts
	client := redis.NewClient(&opts)

	if err := client.Ping(ctx).Err(); err != nil {
		manager.log.Debug("connect failed", zap.String("addr", opts.Addr), zap.Error(err))
		return nil, errs.Combine(ErrConnect.Wrap(err), client.Close())
	}

	return Live{client: client}, nil
}

// Validate sends one PING over the connection held by slot.
//
// On success the same Live slot is returned. On failure the connection is
// closed and Broken is returned together with the cause. Validating a
// broken slot returns Broken and ErrBroken without any network I/O.
func (manager *ConnectionManager) Validate(ctx context.Context, slot Slot) (_ Slot, err error) {
	defer mon.Task()(&ctx)(&err)

	live, ok := slot.(Live)
	if !ok || live.client == nil {
		return Broken{}, ErrBroken.New("validate on broken connection")
	}

	if err := live.client.Ping(ctx).Err(); err != nil {
		mon.Event("connection_broken")
		manager.log.Debug("validate failed", zap.String("addr", manager.opts.Addr), zap.Error(err))
		if closeErr := live.Close(); closeErr != nil {
			manager.log.Debug("failed to close broken connection", zap.Error(closeErr))
		}
		return Broken{}, ErrValidate.Wrap(err)
	}

	return live, nil
}

// IsBroken reports whether slot is the Broken sentinel. It performs no I/O.
func (manager *ConnectionManager) IsBroken(slot Slot) bool {
	return IsBroken(slot)
}

// TimeoutError returns the error a pool reports when acquiring a connection
// from this manager exceeds its deadline.
func (manager *ConnectionManager) TimeoutError() error {
	return ErrTimedOut.New("connection manager timed out")
}

// IsTimeout reports whether err was produced by TimeoutError.
func IsTimeout(err error) bool {
	return ErrTimedOut.Has(err)
}
