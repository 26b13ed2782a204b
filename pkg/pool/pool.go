// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package pool implements a generic connection pool which delegates
// connection health decisions to a Manager.
package pool

import (
	"context"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
)

var (
	mon = monkit.Package()

	// Error is the class of errors for the pool package.
	Error = errs.Class("pool")

	// ErrClosed is returned when the pool has been closed.
	ErrClosed = errs.Class("pool closed")
)

// Manager creates, validates and times out connections for a Pool.
//
// A Manager must be safe for concurrent use. The pool calls Connect to fill
// a slot, Validate before handing out an idle slot, IsBroken as a cheap
// pre-check and TimeoutError when an acquire misses its deadline.
type Manager[C any] interface {
	// Connect opens a new connection.
	Connect(ctx context.Context) (C, error)
	// Validate checks that conn is still usable. On failure the returned
	// value must be reported as broken by IsBroken.
	Validate(ctx context.Context, conn C) (C, error)
	// IsBroken reports whether conn must be discarded. It must not block.
	IsBroken(conn C) bool
	// TimeoutError returns the error reported when an acquire times out.
	TimeoutError() error
}

// Config contains the pool sizing and timing options.
type Config struct {
	MaxSize           int           `mapstructure:"max-size" help:"maximum number of connections managed by the pool" default:"10"`
	MaxIdle           int           `mapstructure:"max-idle" help:"maximum number of idle connections kept, 0 means max-size" default:"0"`
	ConnectionTimeout time.Duration `mapstructure:"connection-timeout" help:"how long Get waits for a usable connection" default:"30s"`
	IdleTimeout       time.Duration `mapstructure:"idle-timeout" help:"idle connections older than this are closed, 0 disables" default:"10m"`
	ReapInterval      time.Duration `mapstructure:"reap-interval" help:"how often idle connections are checked for expiry" default:"30s"`
	RetryDelay        time.Duration `mapstructure:"retry-delay" help:"delay between failed connection attempts" default:"100ms"`
	TestOnCheckOut    bool          `mapstructure:"test-on-check-out" help:"validate idle connections before handing them out" default:"true"`
}

// DefaultConfig returns the configuration used when no overrides are given.
func DefaultConfig() Config {
	return Config{
		MaxSize:           10,
		ConnectionTimeout: 30 * time.Second,
		IdleTimeout:       10 * time.Minute,
		ReapInterval:      30 * time.Second,
		RetryDelay:        100 * time.Millisecond,
		TestOnCheckOut:    true,
	}
}

// Verify checks that the config is usable.
func (config Config) Verify() error {
	var group errs.Group
	if config.MaxSize <= 0 {
		group.Add(Error.New("max size must be positive, got %d", config.MaxSize))
	}
	if config.MaxIdle < 0 {
		group.Add(Error.New("max idle must not be negative, got %d", config.MaxIdle))
	}
	if config.MaxIdle > config.MaxSize {
		group.Add(Error.New("max idle %d exceeds max size %d", config.MaxIdle, config.MaxSize))
	}
	if config.IdleTimeout > 0 && config.ReapInterval <= 0 {
		group.Add(Error.New("reap interval must be positive when idle timeout is set"))
	}
	if config.RetryDelay < 0 {
		group.Add(Error.New("retry delay must not be negative"))
	}
	return group.Err()
}

func (config Config) maxIdle() int {
	if config.MaxIdle == 0 {
		return config.MaxSize
	}
	return config.MaxIdle
}

// Stats describes the current pool occupancy.
type Stats struct {
	Open  int
	Idle  int
	InUse int
}
