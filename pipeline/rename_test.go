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

package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func touchFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0640); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCanonicalise(t *testing.T) {
	Convey("Given a download directory", t, func() {
		dir := t.TempDir()

		Convey("archive-named files get renamed to the sample's canonical names", func() {
			touchFiles(t, dir, "38925_2#9.bam", "38925_2#9.bam.bai", "manifest.txt")

			bam, bai, err := canonicalise(dir, "EGAN001")
			So(err, ShouldBeNil)
			So(bam, ShouldEqual, filepath.Join(dir, "EGAN001.bam"))
			So(bai, ShouldEqual, filepath.Join(dir, "EGAN001.bam.bai"))
			for _, path := range []string{bam, bai} {
				_, errs := os.Stat(path)
				So(errs, ShouldBeNil)
			}

			Convey("files with other extensions are untouched", func() {
				_, errs := os.Stat(filepath.Join(dir, "manifest.txt"))
				So(errs, ShouldBeNil)
			})

			Convey("and a repeat invocation is a no-op", func() {
				bam2, bai2, err2 := canonicalise(dir, "EGAN001")
				So(err2, ShouldBeNil)
				So(bam2, ShouldEqual, bam)
				So(bai2, ShouldEqual, bai)
			})
		})

		Convey("an index named like the alignment counts as an index, not an alignment", func() {
			touchFiles(t, dir, "x.bam", "x.bam.bai")
			_, _, err := canonicalise(dir, "s")
			So(err, ShouldBeNil)
		})

		Convey("a missing alignment is an ambiguity error with count 0", func() {
			touchFiles(t, dir, "x.bam.bai")
			_, _, err := canonicalise(dir, "s")
			var amb *AmbiguousArtifactError
			So(errors.As(err, &amb), ShouldBeTrue)
			So(amb.Ext, ShouldEqual, ".bam")
			So(amb.Count, ShouldEqual, 0)
		})

		Convey("two indexes is an ambiguity error", func() {
			touchFiles(t, dir, "x.bam", "x.bam.bai", "y.bai")
			_, _, err := canonicalise(dir, "s")
			var amb *AmbiguousArtifactError
			So(errors.As(err, &amb), ShouldBeTrue)
			So(amb.Ext, ShouldEqual, ".bai")
			So(amb.Count, ShouldEqual, 2)
		})

		Convey("subdirectories are ignored", func() {
			touchFiles(t, dir, "x.bam", "x.bam.bai")
			So(os.Mkdir(filepath.Join(dir, "extra.bam"), 0750), ShouldBeNil)
			_, _, err := canonicalise(dir, "s")
			So(err, ShouldBeNil)
		})
	})
}
