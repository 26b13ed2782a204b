// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package pool

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"storj.io/redispool/internal/sync2"
)

// Pool hands out connections created and checked by a Manager.
type Pool[C io.Closer] struct {
	log     *zap.Logger
	manager Manager[C]
	config  Config

	slots *semaphore.Weighted

	mu     sync.Mutex
	idle   []idleConn[C]
	open   int
	closed bool

	reaper *sync2.Cycle
	cancel context.CancelFunc
	done   chan struct{}
}

type idleConn[C any] struct {
	conn  C
	since time.Time
}

// New creates a pool in front of manager. When config.IdleTimeout is set
// a background loop closes expired idle connections until Close is called.
func New[C io.Closer](log *zap.Logger, manager Manager[C], config Config) (*Pool[C], error) {
	if manager == nil {
		return nil, Error.New("manager is nil")
	}
	if err := config.Verify(); err != nil {
		return nil, err
	}

	pool := &Pool[C]{
		log:     log,
		manager: manager,
		config:  config,
		slots:   semaphore.NewWeighted(int64(config.MaxSize)),
		done:    make(chan struct{}),
	}

	if config.IdleTimeout <= 0 {
		close(pool.done)
		return pool, nil
	}

	var ctx context.Context
	ctx, pool.cancel = context.WithCancel(context.Background())
	pool.reaper = sync2.NewCycle(config.ReapInterval)
	go func() {
		defer close(pool.done)
		err := pool.reaper.Run(ctx, func(ctx context.Context) error {
			pool.reap(time.Now())
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			pool.log.Error("idle reaper stopped", zap.Error(err))
		}
	}()

	return pool, nil
}

// Get returns a usable connection. It waits at most config.ConnectionTimeout
// (or until ctx is done) and reports an expired deadline with the manager's
// TimeoutError.
func (pool *Pool[C]) Get(ctx context.Context) (_ *Conn[C], err error) {
	defer mon.Task()(&ctx)(&err)

	if pool.config.ConnectionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, pool.config.ConnectionTimeout)
		defer cancel()
	}

	if err := pool.slots.Acquire(ctx, 1); err != nil {
		return nil, pool.contextError(ctx)
	}

	conn, err := pool.get(ctx)
	if err != nil {
		pool.slots.Release(1)
		return nil, err
	}
	return &Conn[C]{pool: pool, value: conn}, nil
}

// get fills the acquired slot either from the idle list or with a new
// connection. The caller holds one unit of pool.slots.
func (pool *Pool[C]) get(ctx context.Context) (conn C, err error) {
	for {
		idle, ok, err := pool.takeIdle()
		if err != nil {
			return conn, err
		}

		if ok {
			if pool.manager.IsBroken(idle) {
				pool.drop(idle)
				continue
			}
			if !pool.config.TestOnCheckOut {
				return idle, nil
			}

			validated, err := pool.manager.Validate(ctx, idle)
			if err == nil {
				return validated, nil
			}
			pool.log.Debug("dropping connection which failed validation", zap.Error(err))
			mon.Event("validate_failed")
			pool.drop(validated)
			if ctx.Err() != nil {
				return conn, pool.contextError(ctx)
			}
			continue
		}

		conn, err = pool.manager.Connect(ctx)
		if err == nil {
			pool.mu.Lock()
			pool.open++
			pool.mu.Unlock()
			return conn, nil
		}

		pool.log.Warn("failed to open connection", zap.Error(err))
		mon.Event("connect_failed")

		if !sleep(ctx, pool.config.RetryDelay) {
			return conn, pool.contextError(ctx)
		}
	}
}

func (pool *Pool[C]) takeIdle() (conn C, ok bool, err error) {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	if pool.closed {
		return conn, false, ErrClosed.New("")
	}
	if len(pool.idle) == 0 {
		return conn, false, nil
	}

	last := len(pool.idle) - 1
	conn = pool.idle[last].conn
	pool.idle[last] = idleConn[C]{}
	pool.idle = pool.idle[:last]
	return conn, true, nil
}

// contextError converts a finished context into the error reported by Get.
func (pool *Pool[C]) contextError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		mon.Event("get_timeout")
		return pool.manager.TimeoutError()
	}
	return ctx.Err()
}

// put returns conn to the idle list or closes it. The slot unit is released
// after the connection becomes visible as idle.
func (pool *Pool[C]) put(conn C) {
	defer pool.slots.Release(1)

	if pool.manager.IsBroken(conn) {
		pool.drop(conn)
		return
	}

	pool.mu.Lock()
	if pool.closed || len(pool.idle) >= pool.config.maxIdle() {
		pool.mu.Unlock()
		pool.drop(conn)
		return
	}
	pool.idle = append(pool.idle, idleConn[C]{conn: conn, since: time.Now()})
	pool.mu.Unlock()
}

// drop closes a connection which was counted as open.
func (pool *Pool[C]) drop(conn C) {
	pool.mu.Lock()
	pool.open--
	pool.mu.Unlock()

	if err := conn.Close(); err != nil {
		pool.log.Debug("failed to close connection", zap.Error(err))
	}
}

// reap closes the idle connections which have been idle since before
// now - IdleTimeout.
func (pool *Pool[C]) reap(now time.Time) {
	deadline := now.Add(-pool.config.IdleTimeout)

	pool.mu.Lock()
	var expired []C
	kept := pool.idle[:0]
	for _, idle := range pool.idle {
		if idle.since.Before(deadline) {
			expired = append(expired, idle.conn)
			continue
		}
		kept = append(kept, idle)
	}
	for i := len(kept); i < len(pool.idle); i++ {
		pool.idle[i] = idleConn[C]{}
	}
	pool.idle = kept
	pool.mu.Unlock()

	for _, conn := range expired {
		pool.drop(conn)
	}
	if len(expired) > 0 {
		pool.log.Debug("closed idle connections", zap.Int("count", len(expired)))
	}
}

// Stats returns the current occupancy of the pool.
func (pool *Pool[C]) Stats() Stats {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	return Stats{
		Open:  pool.open,
		Idle:  len(pool.idle),
		InUse: pool.open - len(pool.idle),
	}
}

// Close closes all idle connections and stops the reaper. Connections
// checked out at this point are closed when they are released.
func (pool *Pool[C]) Close() error {
	pool.mu.Lock()
	if pool.closed {
		pool.mu.Unlock()
		return nil
	}
	pool.closed = true
	idle := pool.idle
	pool.idle = nil
	pool.open -= len(idle)
	pool.mu.Unlock()

	if pool.cancel != nil {
		pool.cancel()
	}
	<-pool.done

	var group errs.Group
	for _, conn := range idle {
		group.Add(conn.conn.Close())
	}
	return Error.Wrap(group.Err())
}

// Conn is a connection checked out of a Pool. Exactly one of Release or
// Discard must be called once the caller is done with it.
type Conn[C io.Closer] struct {
	pool  *Pool[C]
	value C
	once  sync.Once
}

// Value returns the pooled connection.
func (conn *Conn[C]) Value() C { return conn.value }

// Release returns the connection to the pool.
func (conn *Conn[C]) Release() {
	conn.once.Do(func() { conn.pool.put(conn.value) })
}

// Discard closes the connection instead of returning it to the pool.
func (conn *Conn[C]) Discard() {
	conn.once.Do(func() {
		defer conn.pool.slots.Release(1)
		conn.pool.drop(conn.value)
	})
}

func sleep(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
