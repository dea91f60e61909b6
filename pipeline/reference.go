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

// This file describes the reference data bundle shared read-only by all
// runs.

import (
	"bufio"
	"os"
	"strings"
)

// ReferenceBundle is the shared, read-only input to every pipeline run: a
// reference sequence, its index, and a partition of the sequence into
// regions used to parallelise variant calling. It is built once before any
// run starts and never mutated during pipeline execution.
type ReferenceBundle struct {
	// Fasta is the path to the reference sequence.
	Fasta string

	// FastaIndex is the path to the .fai index of Fasta.
	FastaIndex string

	// Regions is the path to the region partition file, one region per
	// line.
	Regions string
}

// Validate checks that every bundle file exists, returning a typed
// configuration error naming the first missing one.
func (b ReferenceBundle) Validate() error {
	for _, path := range []string{b.Fasta, b.FastaIndex, b.Regions} {
		if path == "" {
			return Error{Op: "reference", Err: ErrMissingReference}
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return Error{Op: "reference", Err: ErrMissingReference, Msg: path}
		}
	}
	return nil
}

// RegionCount tells you how many regions the partition file defines, for
// reporting. Blank lines don't count.
func (b ReferenceBundle) RegionCount() (int, error) {
	f, err := os.Open(b.Regions)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			count++
		}
	}
	return count, scanner.Err()
}
