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

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/inconshreveable/log15"
	. "github.com/smartystreets/goconvey/convey"
)

func testLogger() log15.Logger {
	logger := log15.New()
	logger.SetHandler(log15.DiscardHandler())
	return logger
}

func sampleNames(n int) []string {
	samples := make([]string, n)
	for i := range samples {
		samples[i] = fmt.Sprintf("sample%d", i)
	}
	return samples
}

func TestDispatcherSlots(t *testing.T) {
	Convey("Given a dispatcher with 3 slots and 10 samples", t, func() {
		d, err := New(3, testLogger())
		So(err, ShouldBeNil)
		So(d.Slots(), ShouldEqual, 3)

		var mu sync.Mutex
		inFlight := 0
		peak := 0
		slotBusy := make(map[int]string)

		run := func(ctx context.Context, sample string, slot int) error {
			mu.Lock()
			inFlight++
			if inFlight > peak {
				peak = inFlight
			}
			if holder, busy := slotBusy[slot]; busy {
				mu.Unlock()
				return fmt.Errorf("slot %d given to %s while %s still holds it", slot, sample, holder)
			}
			slotBusy[slot] = sample
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			inFlight--
			delete(slotBusy, slot)
			mu.Unlock()
			return nil
		}

		summary := d.Run(context.Background(), sampleNames(10), run)

		Convey("every sample ran, never more than 3 at once, one per slot", func() {
			So(len(summary.Completed), ShouldEqual, 10)
			So(len(summary.Failed), ShouldEqual, 0)
			So(summary.Err(), ShouldBeNil)
			So(peak, ShouldBeLessThanOrEqualTo, 3)
			So(peak, ShouldBeGreaterThan, 1)
		})

		Convey("slot ids stay within range", func() {
			// checked inside run: a reused-while-busy slot would have
			// produced a Failed entry
			So(len(summary.Skipped), ShouldEqual, 0)
		})
	})
}

func TestDispatcherKeepsGoing(t *testing.T) {
	Convey("Given runs where some samples fail", t, func() {
		d, err := New(2, testLogger())
		So(err, ShouldBeNil)

		boom := errors.New("stage failed")
		run := func(ctx context.Context, sample string, slot int) error {
			if sample == "sample1" || sample == "sample3" {
				return boom
			}
			return nil
		}

		summary := d.Run(context.Background(), sampleNames(5), run)

		Convey("failures don't stop the others", func() {
			So(len(summary.Completed), ShouldEqual, 3)
			So(len(summary.Failed), ShouldEqual, 2)
			So(errors.Is(summary.Failed["sample1"], boom), ShouldBeTrue)
			So(errors.Is(summary.Failed["sample3"], boom), ShouldBeTrue)
		})

		Convey("the aggregate error names each failed sample's error", func() {
			aggErr := summary.Err()
			So(aggErr, ShouldNotBeNil)
			So(aggErr.Error(), ShouldContainSubstring, "stage failed")
		})
	})
}

func TestDispatcherCancellation(t *testing.T) {
	Convey("Cancelling mid-pass stops new dispatches but drains in-flight runs", t, func() {
		d, err := New(1, testLogger())
		So(err, ShouldBeNil)

		ctx, cancel := context.WithCancel(context.Background())
		var once sync.Once
		started := make(chan struct{})
		run := func(ctx context.Context, sample string, slot int) error {
			once.Do(func() { close(started) })
			<-ctx.Done()
			return ctx.Err()
		}

		go func() {
			<-started
			cancel()
		}()

		summary := d.Run(ctx, sampleNames(4), run)
		So(len(summary.Completed), ShouldEqual, 0)
		So(len(summary.Failed), ShouldBeGreaterThanOrEqualTo, 1)
		So(len(summary.Failed)+len(summary.Skipped), ShouldEqual, 4)
	})
}

func TestDispatcherValidation(t *testing.T) {
	Convey("A dispatcher needs at least one slot", t, func() {
		_, err := New(0, testLogger())
		So(err, ShouldNotBeNil)
	})
}
