// Copyright (C) 2018 Storj Labs, Inc.
// See LICENSE for copying information.

package testsuite

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"storj.io/redispool/storage"
)

// RunTests runs common storage.KeyValueStore tests
func RunTests(ctx context.Context, t *testing.T, store storage.KeyValueStore) {
	t.Run("CRUD", func(t *testing.T) { testCRUD(ctx, t, store) })
	t.Run("Constraints", func(t *testing.T) { testConstraints(ctx, t, store) })
	t.Run("Parallel", func(t *testing.T) { testParallel(ctx, t, store) })
}

func testCRUD(ctx context.Context, t *testing.T, store storage.KeyValueStore) {
	const key = "crud"
	defer func() { _ = store.Delete(ctx, key) }()

	_, err := store.Get(ctx, key)
	require.True(t, storage.ErrKeyNotFound.Has(err), "missing key: %v", err)

	require.NoError(t, store.Put(ctx, key, []byte("first")))
	value, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, []byte("first"), value)

	require.NoError(t, store.Put(ctx, key, []byte("second")))
	value, err = store.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, []byte("second"), value)

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	require.True(t, storage.ErrKeyNotFound.Has(err), "deleted key: %v", err)

	// deleting twice is fine
	require.NoError(t, store.Delete(ctx, key))
}

func testConstraints(ctx context.Context, t *testing.T, store storage.KeyValueStore) {
	require.True(t, storage.ErrEmptyKey.Has(store.Put(ctx, "", []byte("xyz"))))
	require.True(t, storage.ErrEmptyKey.Has(store.Delete(ctx, "")))
	_, err := store.Get(ctx, "")
	require.True(t, storage.ErrEmptyKey.Has(err))

	t.Run("Empty value", func(t *testing.T) {
		const key = "empty"
		defer func() { _ = store.Delete(ctx, key) }()

		require.NoError(t, store.Put(ctx, key, nil))
		value, err := store.Get(ctx, key)
		require.NoError(t, err)
		require.Empty(t, value)
	})
}

func testParallel(ctx context.Context, t *testing.T, store storage.KeyValueStore) {
	var group errgroup.Group
	for i := 0; i < 10; i++ {
		key := "parallel-" + strconv.Itoa(i)
		value := []byte(strconv.Itoa(i))
		group.Go(func() error {
			for k := 0; k < 5; k++ {
				if err := store.Put(ctx, key, value); err != nil {
					return err
				}
				got, err := store.Get(ctx, key)
				if err != nil {
					return err
				}
				if string(got) != string(value) {
					return storage.ErrKeyNotFound.New("%q: got %q, want %q", key, got, value)
				}
			}
			return store.Delete(ctx, key)
		})
	}
	require.NoError(t, group.Wait())
}
