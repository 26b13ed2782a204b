// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

// Package process binds command line flags, environment variables and
// config files for the redispool commands.
package process

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zeebo/errs"
	"gopkg.in/yaml.v3"
)

// Error is a process error class.
var Error = errs.Class("process")

// ConfigFlag is the name of the flag pointing to a yaml config file.
const ConfigFlag = "config"

// Viper returns a viper which reads the flags of cmd, the environment
// variables starting with envPrefix and the config file named by the
// --config flag, if set. Flags set on the command line win over the
// environment, which wins over the file.
func Viper(cmd *cobra.Command, envPrefix string) (*viper.Viper, error) {
	vip := viper.New()
	if err := vip.BindPFlags(cmd.Flags()); err != nil {
		return nil, Error.Wrap(err)
	}

	vip.SetEnvPrefix(envPrefix)
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	vip.AutomaticEnv()

	if flag := cmd.Flags().Lookup(ConfigFlag); flag != nil && flag.Value.String() != "" {
		vip.SetConfigFile(flag.Value.String())
		if err := vip.ReadInConfig(); err != nil {
			return nil, Error.Wrap(err)
		}
	}
	return vip, nil
}

// Load decodes the settings of vip into config.
func Load(vip *viper.Viper, config interface{}) error {
	return Error.Wrap(vip.Unmarshal(config))
}

// WriteConfig writes the settings of vip as yaml, leaving out the keys in skip.
func WriteConfig(w io.Writer, vip *viper.Viper, skip ...string) error {
	settings := vip.AllSettings()
	for _, key := range skip {
		delete(settings, key)
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return Error.Wrap(err)
	}
	_, err = w.Write(data)
	return Error.Wrap(err)
}

// Exec runs cmd and exits with a non-zero status when it fails.
func Exec(cmd *cobra.Command) {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
