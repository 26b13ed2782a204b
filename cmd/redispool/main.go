// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/zeebo/errs"

	"storj.io/redispool/pkg/pool"
	"storj.io/redispool/pkg/process"
)

// Error is the error class for this command.
var Error = errs.Class("redispool")

// envPrefix is the prefix of the environment variables overriding flags.
const envPrefix = "REDISPOOL"

// Config is the configuration shared by all subcommands.
type Config struct {
	Address string            `mapstructure:"address"`
	TTL     time.Duration     `mapstructure:"ttl"`
	Pool    pool.Config       `mapstructure:"pool"`
	Log     process.LogConfig `mapstructure:"log"`
}

func main() {
	process.Exec(newRootCmd())
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "redispool",
		Short:        "Pooled redis connections",
		SilenceUsage: true,
	}

	bindConfigFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newProbeCmd(), &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE:  cmdConfig,
	})
	return rootCmd
}

func bindConfigFlags(flags *pflag.FlagSet) {
	defaults := pool.DefaultConfig()

	flags.String(process.ConfigFlag, "", "path to a yaml config file")
	flags.String("address", "redis://127.0.0.1:6379?db=0", "redis address (e.g. redis://127.0.0.1:6378?db=2&password=abc123)")
	flags.Duration("ttl", 0, "expiration of the values written, 0 keeps them forever")

	flags.Int("pool.max-size", defaults.MaxSize, "maximum number of connections managed by the pool")
	flags.Int("pool.max-idle", defaults.MaxIdle, "maximum number of idle connections kept, 0 means max-size")
	flags.Duration("pool.connection-timeout", defaults.ConnectionTimeout, "how long to wait for a usable connection")
	flags.Duration("pool.idle-timeout", defaults.IdleTimeout, "idle connections older than this are closed, 0 disables")
	flags.Duration("pool.reap-interval", defaults.ReapInterval, "how often idle connections are checked for expiry")
	flags.Duration("pool.retry-delay", defaults.RetryDelay, "delay between failed connection attempts")
	flags.Bool("pool.test-on-check-out", defaults.TestOnCheckOut, "validate idle connections before handing them out")

	process.BindLogFlags(flags)
}

func loadConfig(cmd *cobra.Command) (config Config, err error) {
	vip, err := process.Viper(cmd, envPrefix)
	if err != nil {
		return config, err
	}
	err = process.Load(vip, &config)
	return config, err
}

func cmdConfig(cmd *cobra.Command, args []string) error {
	vip, err := process.Viper(cmd, envPrefix)
	if err != nil {
		return err
	}
	return process.WriteConfig(cmd.OutOrStdout(), vip, process.ConfigFlag, "help")
}
