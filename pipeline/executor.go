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

// This file contains the controlled subprocess invocation abstraction that
// all stages use to run their external tools.

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/inconshreveable/log15"
)

// Command describes one external tool invocation: an executable, its
// argument list, and the contract for its outputs. Commands are built by
// typed builder methods, never from interpolated shell text.
type Command struct {
	// Exe is the executable to run; looked up on PATH if not absolute.
	Exe string

	// Args is the argument list, excluding the executable itself.
	Args []string

	// Dir is the working directory to run in; empty means inherit.
	Dir string

	// StdoutFile, if set, streams the command's stdout to this file. Tools
	// that write their result to stdout (rather than taking an -o flag) get
	// their output captured this way.
	StdoutFile string

	// ExpectedOutputs are paths that must exist after a zero exit; their
	// absence fails the invocation even when the tool claimed success.
	ExpectedOutputs []string
}

// String renders the command for logs.
func (c Command) String() string {
	return c.Exe + " " + strings.Join(c.Args, " ")
}

// Result captures what happened when a Command ran.
type Result struct {
	ExitCode int
	Output   []byte // combined output (stderr only, when stdout went to a file)
	Duration time.Duration
}

// Executor runs Commands. The pipeline takes this as an interface so tests
// can run against a fake while production uses Local.
type Executor interface {
	// Execute runs the command, honouring ctx for cancellation and
	// timeouts, and returns its Result. A non-zero exit, a missing expected
	// output, or a context expiry all produce a non-nil error alongside
	// whatever Result was gathered.
	Execute(ctx context.Context, cmd Command) (Result, error)
}

// Local is the Executor that runs commands as child processes of this
// process, on this node.
type Local struct {
	log15.Logger
}

// NewLocalExecutor creates a Local executor that logs command completions to
// the given logger.
func NewLocalExecutor(logger log15.Logger) *Local {
	return &Local{Logger: logger.New("executor", "local")}
}

// Execute implements Executor.
func (e *Local) Execute(ctx context.Context, cmd Command) (Result, error) {
	ec := exec.CommandContext(ctx, cmd.Exe, cmd.Args...) // #nosec
	ec.Dir = cmd.Dir

	var buf bytes.Buffer
	ec.Stderr = &buf

	var stdout *os.File
	if cmd.StdoutFile != "" {
		var err error
		stdout, err = os.Create(cmd.StdoutFile)
		if err != nil {
			return Result{ExitCode: -1}, err
		}
		ec.Stdout = stdout
	} else {
		ec.Stdout = &buf
	}

	start := time.Now()
	err := ec.Run()
	result := Result{Output: buf.Bytes(), Duration: time.Since(start)}

	if stdout != nil {
		if cerr := stdout.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}

	if err != nil {
		result.ExitCode = -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("command [%s] interrupted after %s: %w", cmd, result.Duration, ctxErr)
		} else {
			err = fmt.Errorf("command [%s] failed after %s: %w", cmd, result.Duration, err)
		}
		e.Warn("command failed", "cmd", cmd.String(), "exitcode", result.ExitCode, "took", result.Duration)
		return result, err
	}

	for _, path := range cmd.ExpectedOutputs {
		if _, serr := os.Stat(path); serr != nil {
			return result, fmt.Errorf("command [%s] exited 0 but expected output %s is missing", cmd, path)
		}
	}

	e.Debug("command succeeded", "cmd", cmd.String(), "took", result.Duration)
	return result, nil
}
