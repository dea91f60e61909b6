// Copyright © 2026 The PANGEA Authors.
//
//  This file is part of pangea.
//
//  pangea is free software: you can redistribute it and/or modify
//  it under the terms of the GNU Lesser General Public License as published by
//  the Free Software Foundation, either version 3 of the License, or
//  (at your option) any later version.
//
//  pangea is distributed in the hope that it will be useful,
//  but WITHOUT ANY WARRANTY; without even the implied warranty of
//  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//  GNU Lesser General Public License for more details.
//
//  You should have received a copy of the GNU Lesser General Public License
//  along with pangea. If not, see <http://www.gnu.org/licenses/>.

/*
Package limiter provides named concurrency groups for the orchestrator: the
dispatcher limits concurrent pipeline runs with a "slots" group, and each run
limits its structural-variant fan-out and staging connections with its own
groups. It can be used concurrently.

	l := limiter.New()
	l.SetLimit("slots", 16)

	if err := l.Acquire(ctx, "slots"); err == nil {
	    // do something that counts against the slots limit, then:
	    l.Release("slots")
	}
*/
package limiter

import (
	"context"

	sync "github.com/sasha-s/go-deadlock"
)

// group describes an individual limit group.
type group struct {
	name    string
	limit   uint
	current uint
	waiters []chan struct{}
}

// canAcquire tells you if the group's count is below its limit. Caller must
// hold the Limiter's lock.
func (g *group) canAcquire() bool {
	return g.current < g.limit
}

// release drops the group's count and wakes every waiter so each can retry.
// Caller must hold the Limiter's lock.
func (g *group) release() {
	if g.current > 0 {
		g.current--
	}
	for _, ch := range g.waiters {
		close(ch)
	}
	g.waiters = nil
}

// Limiter is used to limit concurrent usage of named groups. Unknown groups
// are unlimited, so callers don't need to special-case "no cap configured".
type Limiter struct {
	groups map[string]*group
	mu     sync.Mutex
}

// New creates a new Limiter with no groups; Acquire on an unknown group
// always succeeds immediately.
func New() *Limiter {
	return &Limiter{groups: make(map[string]*group)}
}

// SetLimit creates or updates a group with the given limit. Lowering a limit
// below the group's current count doesn't interrupt current holders; the
// group just won't be acquirable until enough Release calls happen.
func (l *Limiter) SetLimit(name string, limit uint) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if g, set := l.groups[name]; set {
		g.limit = limit
	} else {
		l.groups[name] = &group{name: name, limit: limit}
	}
}

// GetLimit tells you the limit currently set for the given group. If the
// group doesn't exist, returns -1.
func (l *Limiter) GetLimit(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	g, set := l.groups[name]
	if !set {
		return -1
	}
	return int(g.limit)
}

// Acquire blocks until the group's count can be raised without exceeding its
// limit, or until the context is done (in which case it returns the context's
// error). Acquiring an unknown group succeeds immediately.
func (l *Limiter) Acquire(ctx context.Context, name string) error {
	for {
		l.mu.Lock()
		g, set := l.groups[name]
		if !set {
			l.mu.Unlock()
			return nil
		}

		if g.canAcquire() {
			g.current++
			l.mu.Unlock()
			return nil
		}

		ch := make(chan struct{})
		g.waiters = append(g.waiters, ch)
		l.mu.Unlock()

		select {
		case <-ch:
			// a Release happened; retry
		case <-ctx.Done():
			// deregister our waiter so the group can be removed once idle;
			// a concurrent release may already have cleared the slice
			l.mu.Lock()
			for i, waiter := range g.waiters {
				if waiter == ch {
					g.waiters = append(g.waiters[:i], g.waiters[i+1:]...)
					break
				}
			}
			l.mu.Unlock()
			return ctx.Err()
		}
	}
}

// TryAcquire is a non-blocking Acquire: it returns true and raises the count
// if the group is under its limit (or unknown), false otherwise.
func (l *Limiter) TryAcquire(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	g, set := l.groups[name]
	if !set {
		return true
	}
	if !g.canAcquire() {
		return false
	}
	g.current++
	return true
}

// Release drops the group's count, waking anything blocked in Acquire.
// Releasing an unknown or zero-count group is a no-op.
func (l *Limiter) Release(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if g, set := l.groups[name]; set {
		g.release()
	}
}

// RemoveLimit forgets the given group once nothing holds or waits on it.
// Callers use this for short-lived groups so their names don't accumulate.
// Removing a busy or unknown group is a no-op.
func (l *Limiter) RemoveLimit(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if g, set := l.groups[name]; set && g.current == 0 && len(g.waiters) == 0 {
		delete(l.groups, name)
	}
}

// InUse tells you the current count of the given group; 0 for unknown
// groups.
func (l *Limiter) InUse(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	g, set := l.groups[name]
	if !set {
		return 0
	}
	return int(g.current)
}
