// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package redis

import (
	"net/url"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// ParseURL parses a redis:// or rediss:// address into client options.
//
// Besides the forms understood by go-redis it accepts the password as a
// query parameter, e.g. redis://127.0.0.1:6379?db=2&password=abc123.
func ParseURL(address string) (*redis.Options, error) {
	redisurl, err := url.Parse(address)
	if err != nil {
		return nil, Error.Wrap(err)
	}

	if redisurl.Scheme != "redis" && redisurl.Scheme != "rediss" {
		return nil, Error.New("not a redis:// formatted address: %q", address)
	}
	if redisurl.Host == "" {
		return nil, Error.New("missing host in %q", address)
	}

	q := redisurl.Query()
	password, hasPassword := q.Get("password"), q.Has("password")
	q.Del("password")
	redisurl.RawQuery = q.Encode()

	opts, err := redis.ParseURL(redisurl.String())
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if hasPassword {
		opts.Password = password
	}
	return opts, nil
}

// CreateURL returns the redis address of database db on hostPort.
func CreateURL(hostPort string, db int) string {
	return "redis://" + hostPort + "?db=" + strconv.Itoa(db)
}
