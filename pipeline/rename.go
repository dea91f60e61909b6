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

// This file contains the renaming stage's canonicalisation logic.

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	bamExt = ".bam"
	baiExt = ".bai"
)

// canonicalise scans the download directory for the sample's alignment file
// and its index, which arrive from the archive with unpredictable names, and
// renames them to <sampleID>.bam and <sampleID>.bam.bai. Every downstream
// tool invocation references the canonical names by convention. Files with
// other extensions are left untouched.
//
// Exactly one file must match each expected extension; zero or several is an
// AmbiguousArtifactError, because guessing would feed the wrong data to the
// callers.
func canonicalise(dir string, sampleID string) (bam string, bai string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", "", err
	}

	var bams, bais []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, baiExt):
			bais = append(bais, name)
		case strings.HasSuffix(name, bamExt):
			bams = append(bams, name)
		}
	}

	if len(bams) != 1 {
		return "", "", &AmbiguousArtifactError{Dir: dir, Ext: bamExt, Count: len(bams)}
	}
	if len(bais) != 1 {
		return "", "", &AmbiguousArtifactError{Dir: dir, Ext: baiExt, Count: len(bais)}
	}

	bam = filepath.Join(dir, sampleID+bamExt)
	bai = filepath.Join(dir, sampleID+bamExt+baiExt)

	if err = renameUnlessAlready(filepath.Join(dir, bams[0]), bam); err != nil {
		return "", "", err
	}
	if err = renameUnlessAlready(filepath.Join(dir, bais[0]), bai); err != nil {
		return "", "", err
	}
	return bam, bai, nil
}

func renameUnlessAlready(from, to string) error {
	if from == to {
		return nil
	}
	return os.Rename(from, to)
}
