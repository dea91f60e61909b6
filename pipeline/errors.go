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

// This file contains error handling code.

import (
	"fmt"
)

// Err* constants are found in returned Errors under err.Err, so you can
// check what kind of problem occurred.
const (
	ErrMissingReference = "reference bundle file missing"
	ErrScratchSpace     = "insufficient scratch space for a sample working set"
)

// Error records a configuration problem found before or while setting up a
// run.
type Error struct {
	Op  string // what we were doing
	Err string // one of our Err* constants
	Msg string // additional detail, possibly empty
}

func (e Error) Error() string {
	msg := "pipeline " + e.Op + "(): " + e.Err
	if e.Msg != "" {
		msg += " [" + e.Msg + "]"
	}
	return msg
}

// StageFailure is the terminal error of a pipeline run: the named stage
// failed, so the run stopped there. It is local to one run; sibling runs are
// unaffected.
type StageFailure struct {
	Sample string
	Stage  Stage
	Err    error
}

func (e *StageFailure) Error() string {
	return fmt.Sprintf("sample %s failed during %s: %s", e.Sample, e.Stage, e.Err)
}

func (e *StageFailure) Unwrap() error {
	return e.Err
}

// AmbiguousArtifactError means the renaming stage found an unexpected number
// of candidate files for a canonical name. We fail rather than silently
// picking one, since downstream tools would then run on the wrong data.
type AmbiguousArtifactError struct {
	Dir   string // the download directory scanned
	Ext   string // the extension looked for
	Count int    // how many candidates were found
}

func (e *AmbiguousArtifactError) Error() string {
	return fmt.Sprintf("expected exactly 1 %s file in %s, found %d", e.Ext, e.Dir, e.Count)
}
