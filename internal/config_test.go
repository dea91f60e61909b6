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

package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/inconshreveable/log15"
	. "github.com/smartystreets/goconvey/convey"
)

func TestConfig(t *testing.T) {
	logger := log15.New()
	logger.SetHandler(log15.DiscardHandler())

	Convey("Given a config loaded with defaults", t, func() {
		os.Unsetenv("PANGEA_STOREBUCKET")
		config := ConfigLoad(Development, false, logger)

		Convey("default values are set", func() {
			So(config.StoreBucket, ShouldEqual, "pangea")
			So(config.SampleColumn, ShouldEqual, "sample_id")
			So(config.StagerExec, ShouldEqual, "iget")
			So(config.Threads, ShouldBeGreaterThan, 0)
			So(config.PoolNodeThreads, ShouldEqual, config.Threads)
			So(config.Deployment, ShouldEqual, Development)
			So(config.IsDevelopment(), ShouldBeTrue)
			So(config.IsProduction(), ShouldBeFalse)
		})

		Convey("manager files are made absolute within ManagerDir", func() {
			So(filepath.IsAbs(config.ManagerDBFile), ShouldBeTrue)
			So(strings.HasPrefix(config.ManagerDBFile, config.ManagerDir), ShouldBeTrue)
			So(strings.HasSuffix(config.ManagerDir, "_"+Development), ShouldBeTrue)
		})

		Convey("sources default to 'default'", func() {
			So(config.Source("StoreBucket"), ShouldEqual, ConfigSourceDefault)
		})

		Convey("String() renders a table and redacts the secret key", func() {
			str := config.String()
			So(str, ShouldContainSubstring, "StoreBucket")
			So(str, ShouldContainSubstring, ConfigSourceDefault)
			So(str, ShouldNotContainSubstring, "StoreSecretKey  |  hunter2")
		})

		Convey("the default scratch dir is per-user", func() {
			uname, uerr := Username()
			So(uerr, ShouldBeNil)
			So(config.ScratchDir, ShouldEqual, "/tmp/pangea_"+uname)
		})

		Convey("StageTimeouts covers every timed stage", func() {
			timeouts := config.StageTimeouts()
			So(timeouts, ShouldContainKey, "staging")
			So(timeouts, ShouldContainKey, "calling")
			So(timeouts, ShouldContainKey, "sv")
			So(timeouts, ShouldContainKey, "upload")
		})
	})

	Convey("Env vars override defaults and are recorded as the source", t, func() {
		err := os.Setenv("PANGEA_STOREBUCKET", "wgs-results")
		So(err, ShouldBeNil)
		defer os.Unsetenv("PANGEA_STOREBUCKET")

		config := ConfigLoad(Development, false, logger)
		So(config.StoreBucket, ShouldEqual, "wgs-results")
		So(config.Source("StoreBucket"), ShouldEqual, ConfigSourceEnvVar)
	})

	Convey("An explicit scratch dir is taken as-is, no user suffix", t, func() {
		err := os.Setenv("PANGEA_SCRATCHDIR", "/ssd/scratch")
		So(err, ShouldBeNil)
		defer os.Unsetenv("PANGEA_SCRATCHDIR")

		config := ConfigLoad(Development, false, logger)
		So(config.ScratchDir, ShouldEqual, "/ssd/scratch")
	})

	Convey("Config files override defaults and are recorded as the source", t, func() {
		dir, err := os.MkdirTemp("", "pangea_config_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)

		path := filepath.Join(dir, configCommonBasename)
		err = os.WriteFile(path, []byte("samplesheet: /nfs/wgs/batch3.tsv\n"), 0600)
		So(err, ShouldBeNil)

		os.Setenv("PANGEA_CONFIG_DIR", dir)
		defer os.Unsetenv("PANGEA_CONFIG_DIR")

		config := ConfigLoad(Development, false, logger)
		So(config.SampleSheet, ShouldEqual, "/nfs/wgs/batch3.tsv")
		So(config.Source("SampleSheet"), ShouldEqual, path)
	})
}

func TestUtils(t *testing.T) {
	Convey("Given a path", t, func() {
		Convey("we can see if it's in an S3 bucket", func() {
			So(InS3("s3://bucket/sub/file.vcf"), ShouldBeTrue)
			So(InS3("/local/file.vcf"), ShouldBeFalse)
		})

		Convey("we can see if it's a remote file", func() {
			So(IsRemote("s3://bucket/sub/file.vcf"), ShouldBeTrue)
			So(IsRemote("/local/file.vcf"), ShouldBeFalse)
		})

		Convey("we can expand a leading tilda", func() {
			home, err := os.UserHomeDir()
			So(err, ShouldBeNil)
			So(TildaToHome("~/foo"), ShouldEqual, filepath.Join(home, "foo"))
			So(TildaToHome("/abs/foo"), ShouldEqual, "/abs/foo")
		})
	})

	Convey("FileExists distinguishes files from dirs and absences", t, func() {
		dir, err := os.MkdirTemp("", "pangea_utils_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)

		So(FileExists(dir), ShouldBeFalse)
		So(FileExists(filepath.Join(dir, "nope")), ShouldBeFalse)

		path := filepath.Join(dir, "a.bam")
		err = os.WriteFile(path, []byte("x"), 0600)
		So(err, ShouldBeNil)
		So(FileExists(path), ShouldBeTrue)
	})

	Convey("DefaultThreads and DiskFreeBytes report something sane", t, func() {
		So(DefaultThreads(), ShouldBeGreaterThan, 0)
		So(DiskFreeBytes(os.TempDir()), ShouldBeGreaterThan, 0)
	})

	Convey("Username reports a non-empty name, consistently", t, func() {
		uname, err := Username()
		So(err, ShouldBeNil)
		So(uname, ShouldNotBeBlank)

		again, err := Username()
		So(err, ShouldBeNil)
		So(again, ShouldEqual, uname)
	})
}
