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

// This file contains the typed command builders: each stage's external tool
// invocation expressed as an argument list plus expected-output contract.

import (
	"path/filepath"
	"strconv"
)

// SVCategory is a structural variant category the SV caller is run for.
type SVCategory string

// The fixed set of structural variant categories. Each gets its own
// independent caller invocation producing its own output file.
const (
	Deletion      SVCategory = "DEL"
	Duplication   SVCategory = "DUP"
	Inversion     SVCategory = "INV"
	Translocation SVCategory = "TRA"
	Insertion     SVCategory = "INS"
)

// SVCategories lists every category, in the order results are reported.
var SVCategories = []SVCategory{Deletion, Duplication, Inversion, Translocation, Insertion}

// Tools names the external executables the pipeline shells out to. They come
// from config, not from ambient environment guessing.
type Tools struct {
	// Stager downloads a sample's raw alignment data from the remote
	// archive, eg. iget.
	Stager string

	// Caller produces a call set from an alignment over a region partition,
	// eg. freebayes-parallel.
	Caller string

	// SVCaller calls one structural variant category at a time, eg. delly.
	SVCaller string

	// Compressor block-compresses call sets, eg. bgzip.
	Compressor string
}

// CommandBuilder turns typed stage inputs into Commands. One builder is
// shared read-only by all runs.
type CommandBuilder struct {
	tools Tools
	ref   ReferenceBundle
}

// NewCommandBuilder creates a CommandBuilder over the given tools and
// reference bundle.
func NewCommandBuilder(tools Tools, ref ReferenceBundle) *CommandBuilder {
	return &CommandBuilder{tools: tools, ref: ref}
}

// Stage builds the archive download of the given sample's collection into
// destDir. connections bounds the stager's parallel transfer streams; it is
// network I/O so it usefully exceeds the CPU thread budget.
func (b *CommandBuilder) Stage(sampleID string, destDir string, connections int) Command {
	return Command{
		Exe: b.tools.Stager,
		Args: []string{
			"-K", "-r",
			"-N", strconv.Itoa(connections),
			sampleID,
			destDir,
		},
	}
}

// CallVariants builds the variant calling of bam over the reference's region
// partition, with parallelism equal to threads. The caller writes the call
// set to stdout, so the command routes stdout to vcfOut.
func (b *CommandBuilder) CallVariants(bam string, vcfOut string, threads int) Command {
	return Command{
		Exe: b.tools.Caller,
		Args: []string{
			b.ref.Regions,
			strconv.Itoa(threads),
			"-f", b.ref.Fasta,
			bam,
		},
		StdoutFile:      vcfOut,
		ExpectedOutputs: []string{vcfOut},
	}
}

// Compress builds the block compression of the given call set. The original
// is kept, since both compressed and uncompressed get uploaded.
func (b *CommandBuilder) Compress(vcf string, threads int) Command {
	return Command{
		Exe: b.tools.Compressor,
		Args: []string{
			"-k", "-f",
			"-@", strconv.Itoa(threads),
			vcf,
		},
		ExpectedOutputs: []string{vcf + ".gz"},
	}
}

// CallSV builds the structural variant calling of bam for one category,
// writing to outPath.
func (b *CommandBuilder) CallSV(bam string, category SVCategory, outPath string) Command {
	return Command{
		Exe: b.tools.SVCaller,
		Args: []string{
			"call",
			"-t", string(category),
			"-g", b.ref.Fasta,
			"-o", outPath,
			bam,
		},
		ExpectedOutputs: []string{outPath},
	}
}

// SVOutPath tells you the canonical output path for a sample's SV calls of
// the given category, under the sample's scratch directory.
func SVOutPath(scratchDir string, sampleID string, category SVCategory) string {
	return filepath.Join(scratchDir, sampleID+"."+string(category)+".bcf")
}
