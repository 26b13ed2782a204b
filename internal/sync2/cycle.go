// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information

package sync2

import (
	"context"
	"sync"
	"time"
)

// Cycle implements a controllable recurring event.
type Cycle struct {
	interval time.Duration

	init    sync.Once
	control chan interface{}
	stopped chan struct{}
}

// cycle control messages
type (
	cycleStop    struct{}
	cycleTrigger struct {
		done chan struct{}
	}
)

// NewCycle creates a new cycle with the specified interval.
func NewCycle(interval time.Duration) *Cycle {
	return &Cycle{interval: interval}
}

func (cycle *Cycle) initialize() {
	cycle.init.Do(func() {
		cycle.control = make(chan interface{})
		cycle.stopped = make(chan struct{})
	})
}

// Run calls fn once immediately and then on every tick until ctx is done,
// Stop is called or fn returns an error.
func (cycle *Cycle) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	cycle.initialize()
	defer close(cycle.stopped)

	ticker := time.NewTicker(cycle.interval)
	defer ticker.Stop()

	if err := fn(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				return err
			}

		case message := <-cycle.control:
			switch message := message.(type) {
			case cycleStop:
				return nil
			case cycleTrigger:
				if err := fn(ctx); err != nil {
					return err
				}
				close(message.done)
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (cycle *Cycle) sendControl(message interface{}) bool {
	cycle.initialize()
	select {
	case cycle.control <- message:
		return true
	case <-cycle.stopped:
		return false
	}
}

// Stop stops the cycle permanently.
func (cycle *Cycle) Stop() {
	cycle.sendControl(cycleStop{})
}

// TriggerWait runs fn once more and waits for it to complete. It returns
// immediately when the cycle is no longer running.
func (cycle *Cycle) TriggerWait() {
	done := make(chan struct{})
	if !cycle.sendControl(cycleTrigger{done: done}) {
		return
	}
	select {
	case <-done:
	case <-cycle.stopped:
	}
}
