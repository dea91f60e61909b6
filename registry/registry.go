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
Package registry loads the set of sample identifiers to process from a
delimited metadata table, and filters out the ones already marked complete,
so that re-running the whole pipeline only does outstanding work.
*/
package registry

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/inconshreveable/log15"
)

// Err* constants are found in the returned Errors under err.Err, so you can
// check which problem the metadata source has.
const (
	ErrMissingSheet  = "metadata source could not be read"
	ErrMissingColumn = "metadata source lacks the required sample id column"
	ErrMalformed     = "metadata source is malformed"
)

// Error records a configuration problem with the metadata source. Errors of
// this kind are fatal at startup; there is nothing to retry.
type Error struct {
	Path string // path to the metadata source
	Err  string // one of our Err* constants
	Msg  string // additional detail, possibly empty
}

func (e Error) Error() string {
	msg := "registry(" + e.Path + "): " + e.Err
	if e.Msg != "" {
		msg += " (" + e.Msg + ")"
	}
	return msg
}

// CompletionChecker is the part of the completion store the registry needs:
// a way of asking if a sample's pipeline has already succeeded.
type CompletionChecker interface {
	IsComplete(ctx context.Context, sampleID string) (bool, error)
}

// Registry knows how to produce the ordered work list of sample ids.
type Registry struct {
	log15.Logger
	path   string
	column string
	skip   int
}

// New creates a Registry over the delimited table at path. column names the
// required sample id column. skip drops the first skip ids of the full
// ordered list before any completion filtering, for staged pilot rollouts.
func New(path string, column string, skip int, logger log15.Logger) *Registry {
	return &Registry{
		Logger: logger.New("registry", path),
		path:   path,
		column: column,
		skip:   skip,
	}
}

// Samples reads the metadata source and returns every sample id in table
// order, after dropping the configured leading skip. The table may be tab or
// comma delimited (worked out from its header line); lines beginning # are
// ignored. Duplicate ids are collapsed to their first occurrence.
func (r *Registry) Samples() ([]string, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, Error{Path: r.path, Err: ErrMissingSheet, Msg: err.Error()}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comment = '#'
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, Error{Path: r.path, Err: ErrMalformed, Msg: err.Error()}
	}
	if len(records) == 0 {
		return nil, Error{Path: r.path, Err: ErrMalformed, Msg: "no header line"}
	}

	// a single-field header on a multi-column sheet means it wasn't really
	// tab delimited; re-read as csv
	if len(records[0]) == 1 && strings.Contains(records[0][0], ",") {
		if _, serr := f.Seek(0, 0); serr != nil {
			return nil, Error{Path: r.path, Err: ErrMalformed, Msg: serr.Error()}
		}
		reader = csv.NewReader(f)
		reader.Comment = '#'
		reader.FieldsPerRecord = -1
		records, err = reader.ReadAll()
		if err != nil {
			return nil, Error{Path: r.path, Err: ErrMalformed, Msg: err.Error()}
		}
	}

	col := -1
	for i, name := range records[0] {
		if strings.TrimSpace(name) == r.column {
			col = i
			break
		}
	}
	if col == -1 {
		return nil, Error{Path: r.path, Err: ErrMissingColumn, Msg: r.column}
	}

	var samples []string
	seen := make(map[string]bool)
	for n, record := range records[1:] {
		if len(record) <= col {
			return nil, Error{
				Path: r.path,
				Err:  ErrMalformed,
				Msg:  fmt.Sprintf("line %d has %d fields, sample column is %d", n+2, len(record), col+1),
			}
		}

		id := strings.TrimSpace(record[col])
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		samples = append(samples, id)
	}

	if r.skip > 0 {
		if r.skip >= len(samples) {
			r.Warn("skip covers the whole sample sheet", "skip", r.skip, "samples", len(samples))
			return nil, nil
		}
		samples = samples[r.skip:]
	}

	return samples, nil
}

// ListPending returns the subset of Samples() not yet marked complete, in
// the same stable order.
func (r *Registry) ListPending(ctx context.Context, cc CompletionChecker) ([]string, error) {
	samples, err := r.Samples()
	if err != nil {
		return nil, err
	}

	var pending []string
	for _, id := range samples {
		done, err := cc.IsComplete(ctx, id)
		if err != nil {
			return nil, err
		}
		if done {
			r.Debug("sample already complete", "sample", id)
			continue
		}
		pending = append(pending, id)
	}

	r.Info("resolved work list", "total", len(samples), "pending", len(pending))
	return pending, nil
}
