// Copyright (C) 2018 Storj Labs, Inc.
// See LICENSE for copying information.

// Package redisserver is package for starting a redis test server
package redisserver

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/zeebo/errs"
)

// Server is a running redis test server.
type Server interface {
	Addr() string
	Close() error
}

// FreeAddr returns a local address nothing listens on.
func FreeAddr() (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	addr := listener.Addr().String()
	return addr, listener.Close()
}

// Start starts a redis-server when available, otherwise falls back to miniredis.
func Start(ctx context.Context) (Server, error) {
	server, err := Process(ctx)
	if err == nil {
		return server, nil
	}
	mini, err := Mini()
	if err != nil {
		return nil, err
	}
	return mini, nil
}

// process is a redis-server child process.
type process struct {
	addr   string
	dir    string
	cmd    *exec.Cmd
	closed sync.Once
}

func (server *process) Addr() string { return server.addr }

// Close kills the process and removes its working directory.
func (server *process) Close() error {
	var err error
	server.closed.Do(func() {
		_ = server.cmd.Process.Kill()
		_ = server.cmd.Wait()
		err = os.RemoveAll(server.dir)
	})
	return err
}

// Process starts a redis-server test process.
func Process(ctx context.Context) (Server, error) {
	if _, err := exec.LookPath("redis-server"); err != nil {
		return nil, err
	}

	tmpdir, err := os.MkdirTemp("", "redispool-redis")
	if err != nil {
		return nil, err
	}

	addr, err := FreeAddr()
	if err != nil {
		return nil, errs.Combine(err, os.RemoveAll(tmpdir))
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, errs.Combine(err, os.RemoveAll(tmpdir))
	}

	// write a configuration file, because redis doesn't support flags
	confpath := filepath.Join(tmpdir, "test.conf")
	arguments := []string{
		"daemonize no",
		"bind 127.0.0.1",
		"port " + port,
		"timeout 0",
		"databases 2",
		"dbfilename dump.rdb",
		"dir " + tmpdir,
	}
	conf := strings.Join(arguments, "\n") + "\n"
	if err := os.WriteFile(confpath, []byte(conf), 0644); err != nil {
		return nil, errs.Combine(err, os.RemoveAll(tmpdir))
	}

	cmd := exec.Command("redis-server", confpath)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errs.Combine(err, os.RemoveAll(tmpdir))
	}
	if err := cmd.Start(); err != nil {
		return nil, errs.Combine(err, os.RemoveAll(tmpdir))
	}

	server := &process{addr: addr, dir: tmpdir, cmd: cmd}

	// wait for the message that looks like
	//   "Ready to accept connections"
	ready := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if strings.Contains(strings.ToLower(scanner.Text()), "ready to accept") {
				close(ready)
				break
			}
		}
		_, _ = io.Copy(io.Discard, stdout)
	}()

	select {
	case <-ready:
	case <-time.After(3 * time.Second):
		return nil, errs.Combine(errors.New("redis timeout"), server.Close())
	case <-ctx.Done():
		return nil, errs.Combine(ctx.Err(), server.Close())
	}

	if err := ping(ctx, addr); err != nil {
		return nil, errs.Combine(err, server.Close())
	}

	return server, nil
}

func ping(ctx context.Context, addr string) error {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 0})
	defer func() { _ = client.Close() }()
	return client.Ping(ctx).Err()
}

// MiniServer is a miniredis backed Server which can also inject failures.
type MiniServer struct {
	*miniredis.Miniredis
}

var _ Server = (*MiniServer)(nil)

// Mini starts miniredis server.
func Mini() (*MiniServer, error) {
	server, err := miniredis.Run()
	if err != nil {
		return nil, err
	}
	return &MiniServer{server}, nil
}

// Close stops the server and drops its connections.
func (server *MiniServer) Close() error {
	server.Miniredis.Close()
	return nil
}

// FailWith makes every following command fail with msg until Recover is called.
func (server *MiniServer) FailWith(msg string) { server.SetError(msg) }

// Recover undoes FailWith.
func (server *MiniServer) Recover() { server.SetError("") }
