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
Package ledger achieves the aims of durably recording what every pipeline
run did.

The ledger is an embedded database in the manager dir. Every run ends up in
it, completed or failed, with its per-stage outcomes and durations. Stage
durations additionally feed exponentially weighted moving averages, which is
what status reporting uses to estimate how long the remaining samples will
take.
*/
package ledger

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/VividCortex/ewma"
	"github.com/inconshreveable/log15"
	bolt "go.etcd.io/bbolt"

	"github.com/tanlabcode/PANGEA/pipeline"
)

var (
	bucketRuns       = []byte("runs")
	bucketStageTimes = []byte("stage_times")
)

// Ledger provides access to the run records database. Safe for concurrent
// use; callers must Close it when done.
type Ledger struct {
	log15.Logger
	db *bolt.DB
}

// Open opens (creating if necessary) the run database at the given path.
// Returns an error if another process holds the database open.
func Open(path string, logger log15.Logger) (*Ledger, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, errc := tx.CreateBucketIfNotExists(bucketRuns); errc != nil {
			return errc
		}
		_, errc := tx.CreateBucketIfNotExists(bucketStageTimes)
		return errc
	})
	if err != nil {
		errc := db.Close()
		if errc != nil {
			logger.Warn("failed to close run database after bucket failure", "err", errc)
		}
		return nil, err
	}

	return &Ledger{Logger: logger.New("module", "ledger"), db: db}, nil
}

// Close releases the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record stores a run's record and folds its successful stage durations into
// the moving averages.
func (l *Ledger) Record(result *pipeline.RunResult) error {
	encoded, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return l.db.Update(func(tx *bolt.Tx) error {
		// fixed-width nanosecond keys so the bucket's lexicographic order
		// is chronological
		key := []byte(fmt.Sprintf("%020d_%s", result.Start.UnixNano(), result.RunID))
		if err := tx.Bucket(bucketRuns).Put(key, encoded); err != nil {
			return err
		}

		times := tx.Bucket(bucketStageTimes)
		for _, sr := range result.Stages {
			if !sr.Ok {
				continue
			}
			if err := updateAverage(times, sr.Stage, sr.Duration); err != nil {
				return err
			}
		}
		return nil
	})
}

// updateAverage folds one stage duration into that stage's stored moving
// average. The averages survive restarts by persisting the smoothed value
// and re-seeding the ewma from it.
func updateAverage(bucket *bolt.Bucket, stage pipeline.Stage, took time.Duration) error {
	avg := &ewma.SimpleEWMA{}
	if stored := bucket.Get([]byte(stage)); stored != nil {
		current, err := strconv.ParseFloat(string(stored), 64)
		if err != nil {
			return err
		}
		avg.Set(current)
	}
	avg.Add(took.Seconds())

	value := strconv.FormatFloat(avg.Value(), 'f', -1, 64)
	return bucket.Put([]byte(stage), []byte(value))
}

// Runs returns every recorded run, oldest first.
func (l *Ledger) Runs() ([]pipeline.RunResult, error) {
	var results []pipeline.RunResult
	err := l.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRuns).ForEach(func(_, value []byte) error {
			var result pipeline.RunResult
			if err := json.Unmarshal(value, &result); err != nil {
				return err
			}
			results = append(results, result)
			return nil
		})
	})
	return results, err
}

// MeanStageSeconds returns the smoothed duration in seconds of each stage
// that has ever succeeded.
func (l *Ledger) MeanStageSeconds() (map[pipeline.Stage]float64, error) {
	means := make(map[pipeline.Stage]float64)
	err := l.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketStageTimes).ForEach(func(key, value []byte) error {
			mean, err := strconv.ParseFloat(string(value), 64)
			if err != nil {
				return err
			}
			means[pipeline.Stage(key)] = mean
			return nil
		})
	})
	return means, err
}

// EstimateRunSeconds sums the per-stage means into an expected wall time for
// one sample's whole pipeline. Returns 0 when nothing has been recorded yet.
func (l *Ledger) EstimateRunSeconds() (float64, error) {
	means, err := l.MeanStageSeconds()
	if err != nil {
		return 0, err
	}
	var total float64
	for _, mean := range means {
		total += mean
	}
	return math.Max(total, 0), nil
}
