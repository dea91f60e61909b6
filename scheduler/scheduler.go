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
Package scheduler achieves the aims of dispatching one pipeline run per
worker slot.

The dispatcher hands each pending sample to a slot as one becomes free,
keeps at most one live run per slot, and keeps going when a run fails: a
failed sample costs its slot nothing beyond the time it held it, and every
other sample still gets its attempt. There is no automatic retry; a failed
sample simply remains unmarked and gets picked up again on the next pass.
*/
package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/inconshreveable/log15"
	"github.com/sasha-s/go-deadlock"

	"github.com/tanlabcode/PANGEA/limiter"
)

const slotGroup = "slots"

// RunFunc executes the whole pipeline for one sample on the given slot,
// returning nil only if the sample reached Completed.
type RunFunc func(ctx context.Context, sample string, slot int) error

// Summary is what a dispatch pass produced.
type Summary struct {
	// Completed holds the samples that finished their pipeline.
	Completed []string

	// Failed maps each failed sample to its terminal error.
	Failed map[string]error

	// Skipped holds samples never dispatched because the pass was
	// cancelled first.
	Skipped []string

	// Duration is the wall time of the whole pass.
	Duration time.Duration
}

// Err returns nil when every dispatched sample completed, otherwise an
// aggregate of the per-sample failures.
func (s *Summary) Err() error {
	var merr *multierror.Error
	for _, sample := range orderedKeys(s.Failed) {
		merr = multierror.Append(merr, s.Failed[sample])
	}
	return merr.ErrorOrNil()
}

// Dispatcher runs samples across a fixed set of worker slots.
type Dispatcher struct {
	log15.Logger
	limits *limiter.Limiter
	slots  int

	mu   deadlock.Mutex
	free []int
}

// New creates a Dispatcher over the given number of slots.
func New(slots int, logger log15.Logger) (*Dispatcher, error) {
	if slots < 1 {
		return nil, errors.New("dispatcher needs at least 1 slot")
	}

	limits := limiter.New()
	limits.SetLimit(slotGroup, uint(slots))

	free := make([]int, slots)
	for i := range free {
		free[i] = i
	}

	return &Dispatcher{
		Logger: logger.New("module", "scheduler"),
		limits: limits,
		slots:  slots,
		free:   free,
	}, nil
}

// Slots tells you how many slots the dispatcher runs over.
func (d *Dispatcher) Slots() int {
	return d.slots
}

// Run dispatches every sample, in order, to a free slot, blocking until a
// slot opens when all are busy. It returns once every dispatched run has
// ended. Cancelling ctx stops new dispatches; runs already in flight get to
// observe the cancellation themselves.
func (d *Dispatcher) Run(ctx context.Context, samples []string, run RunFunc) *Summary {
	start := time.Now()
	summary := &Summary{Failed: make(map[string]error)}

	var wg sync.WaitGroup
	var mu deadlock.Mutex

	d.Info("dispatch pass starting", "samples", len(samples), "slots", d.slots)

	for i, sample := range samples {
		if err := d.limits.Acquire(ctx, slotGroup); err != nil {
			summary.Skipped = append(summary.Skipped, samples[i:]...)
			d.Warn("dispatch pass cancelled", "skipped", len(summary.Skipped))
			break
		}

		slot := d.takeSlot()
		wg.Add(1)
		go func(sample string, slot int) {
			defer wg.Done()
			defer d.limits.Release(slotGroup)
			defer d.returnSlot(slot)

			d.Debug("dispatching", "sample", sample, "slot", slot)
			err := run(ctx, sample, slot)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed[sample] = err
			} else {
				summary.Completed = append(summary.Completed, sample)
			}
		}(sample, slot)
	}

	wg.Wait()
	summary.Duration = time.Since(start)

	d.Info("dispatch pass ended", "completed", len(summary.Completed),
		"failed", len(summary.Failed), "skipped", len(summary.Skipped),
		"took", summary.Duration)
	return summary
}

// takeSlot pops a free slot id. Only called after a successful slot group
// Acquire, so a free id is guaranteed to exist.
func (d *Dispatcher) takeSlot() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	slot := d.free[0]
	d.free = d.free[1:]
	return slot
}

func (d *Dispatcher) returnSlot(slot int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.free = append(d.free, slot)
}

func orderedKeys(m map[string]error) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	// stable aggregate error message
	sort.Strings(keys)
	return keys
}
