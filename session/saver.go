// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

package session

import (
	"context"
	"sync"
	"time"
)

type SaveStatus int

const (
	Saving SaveStatus = iota + 1
	Saved
	SaveFailed
)

func (s SaveStatus) String() string {
	switch s {
	case Saving:
		return "saving"
	case Saved:
		return "saved"
	case SaveFailed:
		return "save failed"
	default:
		return "unknown"
	}
}

// debouncer runs fn once delay has passed since the last Trigger. A pending
// run happens exactly once, from the timer or from Flush. Every Trigger bumps
// seq, so a timer callback that was already waiting on mu when a newer Trigger
// came in finds a stale seq and does nothing.
type debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	pending bool
	stopped bool
	seq     uint64
	ctx     context.Context
	fn      func(ctx context.Context)
}

func newDebouncer(ctx context.Context, delay time.Duration, fn func(ctx context.Context)) *debouncer {
	return &debouncer{ctx: ctx, delay: delay, fn: fn}
}

func (d *debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending = true
	d.seq++
	seq := d.seq

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
}

// Flush runs a pending call now, on the caller's goroutine.
func (d *debouncer) Flush(ctx context.Context) {
	if d.take() {
		d.fn(ctx)
	}
}

// Stop drops any pending call and ignores later triggers.
func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.pending = false
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

func (d *debouncer) fire(seq uint64) {
	d.mu.Lock()
	if !d.pending || d.seq != seq {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.mu.Unlock()

	d.fn(d.ctx)
}

func (d *debouncer) take() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.pending {
		return false
	}
	d.pending = false
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
	}
	return true
}
