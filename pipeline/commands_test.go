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
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCommandBuilder(t *testing.T) {
	Convey("Given a command builder", t, func() {
		b := NewCommandBuilder(Tools{
			Stager:     "iget",
			Caller:     "freebayes-parallel",
			SVCaller:   "delly",
			Compressor: "bgzip",
		}, ReferenceBundle{
			Fasta:   "/refs/grch38.fa",
			Regions: "/refs/grch38.regions",
		})

		Convey("Stage requests verified recursive download with n connections", func() {
			cmd := b.Stage("EGAN001", "/scratch/EGAN001", 16)
			So(cmd.Exe, ShouldEqual, "iget")
			So(cmd.Args, ShouldResemble, []string{"-K", "-r", "-N", "16", "EGAN001", "/scratch/EGAN001"})
			So(cmd.ExpectedOutputs, ShouldBeEmpty)
		})

		Convey("CallVariants routes stdout to the call set and expects it to exist", func() {
			cmd := b.CallVariants("/scratch/s/s.bam", "/scratch/s/s.vcf", 4)
			So(cmd.Exe, ShouldEqual, "freebayes-parallel")
			So(cmd.Args, ShouldResemble, []string{"/refs/grch38.regions", "4", "-f", "/refs/grch38.fa", "/scratch/s/s.bam"})
			So(cmd.StdoutFile, ShouldEqual, "/scratch/s/s.vcf")
			So(cmd.ExpectedOutputs, ShouldResemble, []string{"/scratch/s/s.vcf"})
		})

		Convey("Compress keeps the original and expects the .gz", func() {
			cmd := b.Compress("/scratch/s/s.vcf", 4)
			So(cmd.Exe, ShouldEqual, "bgzip")
			So(cmd.Args, ShouldContain, "-k")
			So(cmd.ExpectedOutputs, ShouldResemble, []string{"/scratch/s/s.vcf.gz"})
		})

		Convey("CallSV targets one category and expects its output file", func() {
			out := SVOutPath("/scratch/s", "s", Inversion)
			So(out, ShouldEqual, "/scratch/s/s.INV.bcf")

			cmd := b.CallSV("/scratch/s/s.bam", Inversion, out)
			So(cmd.Exe, ShouldEqual, "delly")
			So(cmd.Args, ShouldResemble, []string{"call", "-t", "INV", "-g", "/refs/grch38.fa", "-o", out, "/scratch/s/s.bam"})
			So(cmd.ExpectedOutputs, ShouldResemble, []string{out})
		})

		Convey("every category is distinct and covered", func() {
			So(len(SVCategories), ShouldEqual, 5)
			seen := make(map[SVCategory]bool)
			for _, category := range SVCategories {
				seen[category] = true
			}
			So(len(seen), ShouldEqual, 5)
		})
	})
}
