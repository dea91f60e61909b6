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

package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/inconshreveable/log15"
	. "github.com/smartystreets/goconvey/convey"
)

// doneSet is a CompletionChecker over a fixed set.
type doneSet map[string]bool

func (d doneSet) IsComplete(ctx context.Context, sampleID string) (bool, error) {
	return d[sampleID], nil
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	logger := log15.New()
	logger.SetHandler(log15.DiscardHandler())

	writeSheet := func(dir, name, content string) string {
		path := filepath.Join(dir, name)
		err := os.WriteFile(path, []byte(content), 0600)
		So(err, ShouldBeNil)
		return path
	}

	Convey("Given a tab delimited sample sheet", t, func() {
		dir, err := os.MkdirTemp("", "pangea_registry_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)

		path := writeSheet(dir, "samples.tsv",
			"sample_id\tcohort\tcoverage\n"+
				"S1\tukb\t30\n"+
				"S2\tukb\t30\n"+
				"# a comment line\n"+
				"S3\tgel\t40\n"+
				"S2\tukb\t30\n")

		r := New(path, "sample_id", 0, logger)

		Convey("Samples returns ids in order, deduplicated", func() {
			samples, err := r.Samples()
			So(err, ShouldBeNil)
			So(samples, ShouldResemble, []string{"S1", "S2", "S3"})
		})

		Convey("ListPending filters out completed samples, keeping order", func() {
			pending, err := r.ListPending(ctx, doneSet{"S2": true})
			So(err, ShouldBeNil)
			So(pending, ShouldResemble, []string{"S1", "S3"})
		})

		Convey("skip drops a leading slice before completion filtering", func() {
			r := New(path, "sample_id", 1, logger)
			pending, err := r.ListPending(ctx, doneSet{"S2": true})
			So(err, ShouldBeNil)
			So(pending, ShouldResemble, []string{"S3"})

			Convey("even a skip covering the whole sheet is not an error", func() {
				r := New(path, "sample_id", 10, logger)
				pending, err := r.ListPending(ctx, doneSet{})
				So(err, ShouldBeNil)
				So(pending, ShouldBeNil)
			})
		})
	})

	Convey("A comma delimited sheet also works", t, func() {
		dir, err := os.MkdirTemp("", "pangea_registry_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)

		path := writeSheet(dir, "samples.csv",
			"cohort,sample_id\nukb,S1\ngel,S2\n")

		r := New(path, "sample_id", 0, logger)
		samples, err := r.Samples()
		So(err, ShouldBeNil)
		So(samples, ShouldResemble, []string{"S1", "S2"})
	})

	Convey("Configuration problems are typed errors", t, func() {
		dir, err := os.MkdirTemp("", "pangea_registry_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)

		Convey("a missing sheet", func() {
			r := New(filepath.Join(dir, "nope.tsv"), "sample_id", 0, logger)
			_, err := r.Samples()
			So(err, ShouldNotBeNil)
			rerr, ok := err.(Error)
			So(ok, ShouldBeTrue)
			So(rerr.Err, ShouldEqual, ErrMissingSheet)
		})

		Convey("a missing sample id column", func() {
			path := writeSheet(dir, "samples.tsv", "donor\tcohort\nD1\tukb\n")
			r := New(path, "sample_id", 0, logger)
			_, err := r.Samples()
			So(err, ShouldNotBeNil)
			rerr, ok := err.(Error)
			So(ok, ShouldBeTrue)
			So(rerr.Err, ShouldEqual, ErrMissingColumn)
		})

		Convey("a row with too few fields", func() {
			path := writeSheet(dir, "samples.tsv", "cohort\tsample_id\nukb\n")
			r := New(path, "sample_id", 0, logger)
			_, err := r.Samples()
			So(err, ShouldNotBeNil)
			rerr, ok := err.(Error)
			So(ok, ShouldBeTrue)
			So(rerr.Err, ShouldEqual, ErrMalformed)
		})
	})
}
