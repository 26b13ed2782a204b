// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/spf13/cobra"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/redispool/pkg/pool"
	"storj.io/redispool/pkg/process"
	"storj.io/redispool/storage"
	"storj.io/redispool/storage/redis"
	"storj.io/redispool/storage/storelogger"
)

type probeConfig struct {
	Count int
	Key   string
	Stats bool
}

func newProbeCmd() *cobra.Command {
	var probe probeConfig
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Run write/read round trips through the connection pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdProbe(cmd, probe)
		},
	}
	cmd.Flags().IntVar(&probe.Count, "count", 3, "number of round trips")
	cmd.Flags().StringVar(&probe.Key, "key", "redispool:probe", "key prefix used by the round trips")
	cmd.Flags().BoolVar(&probe.Stats, "stats", false, "print collected metrics when done")
	return cmd
}

func cmdProbe(cmd *cobra.Command, probe probeConfig) (err error) {
	config, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := process.NewLogger(config.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	manager, err := redis.NewConnectionManagerFromURL(log.Named("manager"), config.Address)
	if err != nil {
		return err
	}

	connections, err := pool.New[redis.Slot](log.Named("pool"), manager, config.Pool)
	if err != nil {
		return err
	}
	defer func() { err = errs.Combine(err, connections.Close()) }()

	store := storelogger.New(log.Named("store"), redis.NewStore(connections, config.TTL))

	var failed int
	for i := 0; i < probe.Count; i++ {
		start := time.Now()
		key := probe.Key + ":" + strconv.Itoa(i)
		if err := roundTrip(ctx, store, key); err != nil {
			failed++
			log.Error("probe failed",
				zap.String("key", key),
				zap.Bool("timeout", redis.IsTimeout(err)),
				zap.Error(err))
			continue
		}
		log.Info("probe succeeded", zap.String("key", key), zap.Duration("elapsed", time.Since(start)))
	}

	stats := connections.Stats()
	log.Info("pool state",
		zap.String("addr", manager.Addr()),
		zap.Int("open", stats.Open),
		zap.Int("idle", stats.Idle),
		zap.Int("in use", stats.InUse))

	if probe.Stats {
		if err := printStats(cmd.OutOrStdout()); err != nil {
			return err
		}
	}

	if failed > 0 {
		return Error.New("%d of %d probes failed", failed, probe.Count)
	}
	return nil
}

// roundTrip writes a random value to key, reads it back and deletes it.
func roundTrip(ctx context.Context, store storage.KeyValueStore, key string) error {
	var nonce [16]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return Error.Wrap(err)
	}
	value := []byte(hex.EncodeToString(nonce[:]))

	if err := store.Put(ctx, key, value); err != nil {
		return err
	}
	got, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	if !bytes.Equal(got, value) {
		return Error.New("read %q, wrote %q", got, value)
	}
	return store.Delete(ctx, key)
}

// printStats writes the monkit series collected so far, sorted by name.
func printStats(w io.Writer) error {
	var lines []string
	monkit.Default.Stats(func(key monkit.SeriesKey, field string, val float64) {
		lines = append(lines, fmt.Sprintf("%s %g", key.WithField(field), val))
	})
	sort.Strings(lines)

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return Error.Wrap(err)
		}
	}
	return nil
}
