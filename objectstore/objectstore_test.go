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

package objectstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDirStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a directory-backed store", t, func() {
		root, err := os.MkdirTemp("", "pangea_objectstore_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(root)

		var store Store
		d, err := NewDir(filepath.Join(root, "store"))
		So(err, ShouldBeNil)
		store = d

		Convey("Stat and Get on a missing key return ErrNotExists", func() {
			_, err := store.Stat(ctx, "pangea/completed/S1")
			So(err, ShouldEqual, ErrNotExists)
			_, err = store.Get(ctx, "pangea/completed/S1")
			So(err, ShouldEqual, ErrNotExists)
		})

		Convey("Put then Get round-trips content", func() {
			content := "done at 2026-02-11T10:30:00Z"
			err := store.Put(ctx, "pangea/completed/S1", strings.NewReader(content), int64(len(content)))
			So(err, ShouldBeNil)

			r, err := store.Get(ctx, "pangea/completed/S1")
			So(err, ShouldBeNil)
			defer r.Close()
			got, err := io.ReadAll(r)
			So(err, ShouldBeNil)
			So(string(got), ShouldEqual, content)

			info, err := store.Stat(ctx, "pangea/completed/S1")
			So(err, ShouldBeNil)
			So(info.Size, ShouldEqual, int64(len(content)))

			Convey("and Put again overwrites without error", func() {
				err := store.Put(ctx, "pangea/completed/S1", strings.NewReader("x"), 1)
				So(err, ShouldBeNil)
				info, err := store.Stat(ctx, "pangea/completed/S1")
				So(err, ShouldBeNil)
				So(info.Size, ShouldEqual, int64(1))
			})
		})

		Convey("PutFile stores a local file's contents", func() {
			path := filepath.Join(root, "S2.vcf.gz")
			err := os.WriteFile(path, []byte("vcfdata"), 0600)
			So(err, ShouldBeNil)

			err = store.PutFile(ctx, "pangea/results/S2/S2.vcf.gz", path)
			So(err, ShouldBeNil)

			info, err := store.Stat(ctx, "pangea/results/S2/S2.vcf.gz")
			So(err, ShouldBeNil)
			So(info.Size, ShouldEqual, int64(7))
		})

		Convey("List returns only keys under the prefix, sorted", func() {
			for _, key := range []string{
				"pangea/completed/S3",
				"pangea/completed/S1",
				"pangea/results/S1/S1.vcf",
			} {
				err := store.Put(ctx, key, strings.NewReader(""), 0)
				So(err, ShouldBeNil)
			}

			infos, err := store.List(ctx, "pangea/completed/")
			So(err, ShouldBeNil)
			So(len(infos), ShouldEqual, 2)
			So(infos[0].Key, ShouldEqual, "pangea/completed/S1")
			So(infos[1].Key, ShouldEqual, "pangea/completed/S3")
		})

		Convey("Delete removes objects and ignores missing ones", func() {
			err := store.Put(ctx, "pangea/completed/S1", strings.NewReader(""), 0)
			So(err, ShouldBeNil)
			So(store.Delete(ctx, "pangea/completed/S1"), ShouldBeNil)
			_, err = store.Stat(ctx, "pangea/completed/S1")
			So(err, ShouldEqual, ErrNotExists)
			So(store.Delete(ctx, "pangea/completed/S1"), ShouldBeNil)
		})
	})
}
