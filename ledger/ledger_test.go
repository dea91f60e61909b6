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

package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/inconshreveable/log15"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/tanlabcode/PANGEA/pipeline"
)

func testLogger() log15.Logger {
	logger := log15.New()
	logger.SetHandler(log15.DiscardHandler())
	return logger
}

func fakeResult(runID, sample string, start time.Time, stagingSecs int, failed bool) *pipeline.RunResult {
	result := &pipeline.RunResult{
		RunID:  runID,
		Sample: sample,
		Start:  start,
		End:    start.Add(time.Hour),
	}
	result.Stages = append(result.Stages, pipeline.StageResult{
		Stage:    pipeline.Staging,
		Ok:       true,
		Duration: time.Duration(stagingSecs) * time.Second,
	})
	if failed {
		result.FinalStage = pipeline.Failed
		result.Stages = append(result.Stages, pipeline.StageResult{
			Stage:    pipeline.Renaming,
			Ok:       false,
			Duration: time.Second,
			Error:    "expected exactly 1 .bam file, found 2",
		})
	} else {
		result.FinalStage = pipeline.Completed
		result.Stages = append(result.Stages, pipeline.StageResult{
			Stage:    pipeline.CallingVariants,
			Ok:       true,
			Duration: 10 * time.Minute,
		})
	}
	return result
}

func TestLedger(t *testing.T) {
	Convey("Given an open ledger", t, func() {
		path := filepath.Join(t.TempDir(), "runs.db")
		l, err := Open(path, testLogger())
		So(err, ShouldBeNil)
		defer func() {
			So(l.Close(), ShouldBeNil)
		}()

		t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

		Convey("it starts empty", func() {
			runs, errr := l.Runs()
			So(errr, ShouldBeNil)
			So(len(runs), ShouldEqual, 0)

			estimate, erre := l.EstimateRunSeconds()
			So(erre, ShouldBeNil)
			So(estimate, ShouldEqual, 0)
		})

		Convey("recorded runs come back oldest first", func() {
			So(l.Record(fakeResult("run-b", "s2", t0.Add(time.Hour), 100, false)), ShouldBeNil)
			So(l.Record(fakeResult("run-a", "s1", t0, 100, false)), ShouldBeNil)

			runs, errr := l.Runs()
			So(errr, ShouldBeNil)
			So(len(runs), ShouldEqual, 2)
			So(runs[0].RunID, ShouldEqual, "run-a")
			So(runs[1].RunID, ShouldEqual, "run-b")
			So(runs[0].Sample, ShouldEqual, "s1")
			So(runs[0].FinalStage, ShouldEqual, pipeline.Completed)

			Convey("and stage means cover only successful stages", func() {
				means, errm := l.MeanStageSeconds()
				So(errm, ShouldBeNil)
				So(means[pipeline.Staging], ShouldEqual, 100)
				So(means[pipeline.CallingVariants], ShouldEqual, 600)
				_, renamed := means[pipeline.Renaming]
				So(renamed, ShouldBeFalse)
			})
		})

		Convey("runs within the same second still come back oldest first", func() {
			onTheSecond := t0
			slightlyLater := t0.Add(100 * time.Millisecond)
			So(l.Record(fakeResult("run-late", "s9", slightlyLater, 100, false)), ShouldBeNil)
			So(l.Record(fakeResult("run-early", "s8", onTheSecond, 100, false)), ShouldBeNil)

			runs, errr := l.Runs()
			So(errr, ShouldBeNil)
			So(len(runs), ShouldEqual, 2)
			So(runs[0].RunID, ShouldEqual, "run-early")
			So(runs[1].RunID, ShouldEqual, "run-late")
		})

		Convey("a failed stage's duration is not averaged in", func() {
			So(l.Record(fakeResult("run-c", "s3", t0, 100, true)), ShouldBeNil)

			means, errm := l.MeanStageSeconds()
			So(errm, ShouldBeNil)
			So(means[pipeline.Staging], ShouldEqual, 100)
			_, renamed := means[pipeline.Renaming]
			So(renamed, ShouldBeFalse)
		})

		Convey("repeat observations move the average towards recent times", func() {
			So(l.Record(fakeResult("run-d", "s4", t0, 100, false)), ShouldBeNil)
			So(l.Record(fakeResult("run-e", "s5", t0.Add(time.Hour), 200, false)), ShouldBeNil)

			means, errm := l.MeanStageSeconds()
			So(errm, ShouldBeNil)
			So(means[pipeline.Staging], ShouldBeGreaterThan, 100)
			So(means[pipeline.Staging], ShouldBeLessThan, 200)

			Convey("and the whole-run estimate sums the stage means", func() {
				estimate, erre := l.EstimateRunSeconds()
				So(erre, ShouldBeNil)
				So(estimate, ShouldBeGreaterThan, means[pipeline.Staging])
			})
		})

		Convey("averages survive closing and reopening", func() {
			So(l.Record(fakeResult("run-f", "s6", t0, 100, false)), ShouldBeNil)
			So(l.Close(), ShouldBeNil)

			l2, erro := Open(path, testLogger())
			So(erro, ShouldBeNil)
			means, errm := l2.MeanStageSeconds()
			So(errm, ShouldBeNil)
			So(means[pipeline.Staging], ShouldEqual, 100)

			So(l2.Record(fakeResult("run-g", "s7", t0.Add(time.Hour), 300, false)), ShouldBeNil)
			means, errm = l2.MeanStageSeconds()
			So(errm, ShouldBeNil)
			So(means[pipeline.Staging], ShouldBeGreaterThan, 100)

			// reopen for the deferred Close
			So(l2.Close(), ShouldBeNil)
			l, err = Open(path, testLogger())
			So(err, ShouldBeNil)
		})
	})
}
