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

// this file has general utility functions

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ricochet2200/go-disk-usage/du"
	"github.com/shirou/gopsutil/v3/cpu"
)

// Version gets set during build:
// go build -ldflags "-X github.com/tanlabcode/PANGEA/internal.Version=vX.X.X"
var Version string

var username string

// TildaToHome converts a path beginning with ~/ to the absolute path in the
// current user's home directory.
func TildaToHome(path string) string {
	home, herr := os.UserHomeDir()
	if herr == nil && home != "" && strings.HasPrefix(path, "~/") {
		path = strings.TrimPrefix(path, "~/")
		path = filepath.Join(home, path)
	}
	return path
}

// FileExists tells you if a file exists and is not a directory.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DefaultThreads tells you how many logical CPU cores this machine has, for
// use as a pipeline run's thread budget when the user doesn't configure one.
// Falls back on runtime.NumCPU() if the cpu package can't tell us.
func DefaultThreads() int {
	counts, err := cpu.Counts(true)
	if err != nil || counts < 1 {
		counts = runtime.NumCPU()
	}
	return counts
}

// DiskFreeBytes tells you how much space is available to us on the filesystem
// that holds the given directory. Returns 0 if the directory doesn't exist.
func DiskFreeBytes(dir string) uint64 {
	usage := du.NewDiskUsage(dir)
	if usage == nil {
		return 0
	}
	return usage.Available()
}

// Username returns the username of the current user. This avoids problems
// with static compilation as it avoids the use of os/user. It will only work
// on linux-like systems where 'id -u -n' works.
func Username() (uname string, err error) {
	if username == "" {
		username, err = parseIDCmd("-u", "-n")
		if err != nil {
			return
		}
	}
	uname = username
	return
}

// parseIDCmd runs the unix 'id' command with the given args and returns the
// output, trimmed.
func parseIDCmd(args ...string) (string, error) {
	out, err := exec.Command("id", args...).Output() // #nosec
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(string(out), "\n"), nil
}
