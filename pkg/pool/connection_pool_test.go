// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package pool_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/errs"
	"go.uber.org/zap/zaptest"

	"storj.io/redispool/internal/testcontext"
	"storj.io/redispool/pkg/pool"
)

type fakeConn struct {
	id     int
	broken bool
	closed int32
}

func (conn *fakeConn) Close() error {
	atomic.AddInt32(&conn.closed, 1)
	return nil
}

func (conn *fakeConn) isClosed() bool { return atomic.LoadInt32(&conn.closed) > 0 }

var errFakeTimeout = errs.Class("fake timeout")

// fakeManager hands out numbered connections.
type fakeManager struct {
	mu        sync.Mutex
	next      int
	failures  int
	invalid   map[int]bool
	connects  int
	validates int
}

func (manager *fakeManager) Connect(ctx context.Context) (*fakeConn, error) {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	manager.connects++
	if manager.failures != 0 {
		if manager.failures > 0 {
			manager.failures--
		}
		return nil, errs.New("connection refused")
	}
	manager.next++
	return &fakeConn{id: manager.next}, nil
}

func (manager *fakeManager) Validate(ctx context.Context, conn *fakeConn) (*fakeConn, error) {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	manager.validates++
	if manager.invalid[conn.id] {
		_ = conn.Close()
		return &fakeConn{broken: true}, errs.New("ping failed")
	}
	return conn, nil
}

func (manager *fakeManager) IsBroken(conn *fakeConn) bool {
	return conn == nil || conn.broken
}

func (manager *fakeManager) TimeoutError() error {
	return errFakeTimeout.New("timed out")
}

func (manager *fakeManager) counts() (connects, validates int) {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	return manager.connects, manager.validates
}

func testConfig() pool.Config {
	config := pool.DefaultConfig()
	config.MaxSize = 2
	config.ConnectionTimeout = time.Second
	config.IdleTimeout = 0
	config.RetryDelay = time.Millisecond
	return config
}

func newPool(t *testing.T, manager pool.Manager[*fakeConn], config pool.Config) *pool.Pool[*fakeConn] {
	t.Helper()
	p, err := pool.New[*fakeConn](zaptest.NewLogger(t), manager, config)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, p.Close()) })
	return p
}

func requireStats(t *testing.T, expected pool.Stats, p *pool.Pool[*fakeConn]) {
	t.Helper()
	if diff := cmp.Diff(expected, p.Stats()); diff != "" {
		t.Fatalf("unexpected stats (-want +got):\n%s", diff)
	}
}

func TestConfigVerify(t *testing.T) {
	require.NoError(t, pool.DefaultConfig().Verify())

	for _, mutate := range []func(*pool.Config){
		func(config *pool.Config) { config.MaxSize = 0 },
		func(config *pool.Config) { config.MaxIdle = -1 },
		func(config *pool.Config) { config.MaxIdle = config.MaxSize + 1 },
		func(config *pool.Config) { config.ReapInterval = 0 },
		func(config *pool.Config) { config.RetryDelay = -time.Second },
	} {
		config := pool.DefaultConfig()
		mutate(&config)
		require.True(t, pool.Error.Has(config.Verify()))

		_, err := pool.New[*fakeConn](zaptest.NewLogger(t), &fakeManager{}, config)
		require.Error(t, err)
	}

	_, err := pool.New[*fakeConn](zaptest.NewLogger(t), nil, pool.DefaultConfig())
	require.Error(t, err)
}

func TestGetReleaseReuse(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	manager := &fakeManager{}
	p := newPool(t, manager, testConfig())

	conn, err := p.Get(ctx)
	require.NoError(t, err)
	requireStats(t, pool.Stats{Open: 1, InUse: 1}, p)

	first := conn.Value()
	conn.Release()
	conn.Release() // second release is ignored
	requireStats(t, pool.Stats{Open: 1, Idle: 1}, p)

	conn, err = p.Get(ctx)
	require.NoError(t, err)
	require.Same(t, first, conn.Value())
	conn.Release()

	connects, validates := manager.counts()
	require.Equal(t, 1, connects)
	require.Equal(t, 1, validates)
	require.False(t, first.isClosed())
}

func TestWithoutTestOnCheckOut(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	config := testConfig()
	config.TestOnCheckOut = false

	manager := &fakeManager{}
	p := newPool(t, manager, config)

	for i := 0; i < 3; i++ {
		conn, err := p.Get(ctx)
		require.NoError(t, err)
		conn.Release()
	}

	connects, validates := manager.counts()
	require.Equal(t, 1, connects)
	require.Equal(t, 0, validates)
}

func TestMaxSizeTimesOut(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	config := testConfig()
	config.MaxSize = 1
	config.ConnectionTimeout = 50 * time.Millisecond

	p := newPool(t, &fakeManager{}, config)

	held, err := p.Get(ctx)
	require.NoError(t, err)

	_, err = p.Get(ctx)
	require.Error(t, err)
	require.True(t, errFakeTimeout.Has(err))

	held.Release()

	conn, err := p.Get(ctx)
	require.NoError(t, err)
	require.Same(t, held.Value(), conn.Value())
	conn.Release()
}

func TestCallerDeadlineTimesOut(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	config := testConfig()
	config.ConnectionTimeout = 0

	p := newPool(t, &fakeManager{failures: -1}, config)

	deadline, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	_, err := p.Get(deadline)
	require.True(t, errFakeTimeout.Has(err))
}

func TestCallerCancelIsNotTimeout(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	p := newPool(t, &fakeManager{failures: -1}, testConfig())

	canceled, cancel := context.WithCancel(ctx)
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := p.Get(canceled)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, errFakeTimeout.Has(err))
}

func TestConnectRetries(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	manager := &fakeManager{failures: 2}
	p := newPool(t, manager, testConfig())

	conn, err := p.Get(ctx)
	require.NoError(t, err)
	conn.Release()

	connects, _ := manager.counts()
	require.Equal(t, 3, connects)
	requireStats(t, pool.Stats{Open: 1, Idle: 1}, p)
}

func TestValidateFailureReconnects(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	manager := &fakeManager{invalid: map[int]bool{}}
	p := newPool(t, manager, testConfig())

	conn, err := p.Get(ctx)
	require.NoError(t, err)
	first := conn.Value()
	conn.Release()

	manager.mu.Lock()
	manager.invalid[first.id] = true
	manager.mu.Unlock()

	conn, err = p.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, conn.Value().id)
	require.True(t, first.isClosed())
	requireStats(t, pool.Stats{Open: 1, InUse: 1}, p)
	conn.Release()
}

func TestBrokenReleaseIsDropped(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	p := newPool(t, &fakeManager{}, testConfig())

	conn, err := p.Get(ctx)
	require.NoError(t, err)
	value := conn.Value()
	value.broken = true
	conn.Release()

	require.True(t, value.isClosed())
	requireStats(t, pool.Stats{}, p)
}

func TestDiscard(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	config := testConfig()
	config.MaxSize = 1

	p := newPool(t, &fakeManager{}, config)

	conn, err := p.Get(ctx)
	require.NoError(t, err)
	conn.Discard()
	conn.Release() // ignored after discard

	require.True(t, conn.Value().isClosed())
	requireStats(t, pool.Stats{}, p)

	// the slot was given back
	conn, err = p.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, conn.Value().id)
	conn.Release()
}

func TestMaxIdle(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	config := testConfig()
	config.MaxSize = 3
	config.MaxIdle = 1

	p := newPool(t, &fakeManager{}, config)

	var conns []*pool.Conn[*fakeConn]
	for i := 0; i < 3; i++ {
		conn, err := p.Get(ctx)
		require.NoError(t, err)
		conns = append(conns, conn)
	}
	requireStats(t, pool.Stats{Open: 3, InUse: 3}, p)

	for _, conn := range conns {
		conn.Release()
	}
	requireStats(t, pool.Stats{Open: 1, Idle: 1}, p)
	require.False(t, conns[0].Value().isClosed())
	require.True(t, conns[1].Value().isClosed())
	require.True(t, conns[2].Value().isClosed())
}

func TestIdleReaper(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	config := testConfig()
	config.IdleTimeout = 10 * time.Millisecond
	config.ReapInterval = 5 * time.Millisecond

	p := newPool(t, &fakeManager{}, config)

	conn, err := p.Get(ctx)
	require.NoError(t, err)
	value := conn.Value()
	conn.Release()

	require.Eventually(t, value.isClosed, time.Second, 5*time.Millisecond)
	requireStats(t, pool.Stats{}, p)
}

func TestClose(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	p, err := pool.New[*fakeConn](zaptest.NewLogger(t), &fakeManager{}, testConfig())
	require.NoError(t, err)

	idle, err := p.Get(ctx)
	require.NoError(t, err)
	held, err := p.Get(ctx)
	require.NoError(t, err)
	idle.Release()

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	require.True(t, idle.Value().isClosed())
	require.False(t, held.Value().isClosed())

	_, err = p.Get(ctx)
	require.True(t, pool.ErrClosed.Has(err))

	held.Release()
	require.True(t, held.Value().isClosed())
	requireStats(t, pool.Stats{}, p)
}

func TestConcurrentUse(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	config := testConfig()
	config.MaxSize = 3

	manager := &fakeManager{}
	p := newPool(t, manager, config)

	var inUse, maxInUse int32
	for i := 0; i < 20; i++ {
		ctx.Go(func() error {
			for k := 0; k < 50; k++ {
				conn, err := p.Get(ctx)
				if err != nil {
					return err
				}
				current := atomic.AddInt32(&inUse, 1)
				for {
					seen := atomic.LoadInt32(&maxInUse)
					if current <= seen || atomic.CompareAndSwapInt32(&maxInUse, seen, current) {
						break
					}
				}
				atomic.AddInt32(&inUse, -1)
				conn.Release()
			}
			return nil
		})
	}
	ctx.Wait()

	require.LessOrEqual(t, maxInUse, int32(3))
	connects, _ := manager.counts()
	require.LessOrEqual(t, connects, 3)
	require.LessOrEqual(t, p.Stats().Open, 3)
}

func TestTimeoutUsesManagerError(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	timeout := errors.New("manager timed out")

	manager := NewMockManager(ctrl)
	manager.EXPECT().Connect(gomock.Any()).Return(nil, errs.New("refused")).MinTimes(1)
	manager.EXPECT().TimeoutError().Return(timeout).Times(1)

	config := testConfig()
	config.ConnectionTimeout = 30 * time.Millisecond

	p := newPool(t, manager, config)

	_, err := p.Get(ctx)
	require.Equal(t, timeout, err)
}

func TestBrokenIdleSkipsValidation(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	first, second := &fakeConn{id: 1}, &fakeConn{id: 2}

	manager := NewMockManager(ctrl)
	gomock.InOrder(
		manager.EXPECT().Connect(gomock.Any()).Return(first, nil),
		manager.EXPECT().IsBroken(first).Return(false),
		manager.EXPECT().IsBroken(first).Return(true),
		manager.EXPECT().Connect(gomock.Any()).Return(second, nil),
		manager.EXPECT().IsBroken(second).Return(false),
	)

	p := newPool(t, manager, testConfig())

	conn, err := p.Get(ctx)
	require.NoError(t, err)
	conn.Release()

	conn, err = p.Get(ctx)
	require.NoError(t, err)
	require.Same(t, second, conn.Value())
	require.True(t, first.isClosed())
	conn.Release()
}
