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

package cluster

// This file contains the lsf provider: the pool is hosts reported usable by
// the LSF cluster this process runs inside.

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"
)

// lsfp discovers usable hosts via LSF's query tooling. LSF hosts are shared
// site capacity, so tearDown releases nothing.
type lsfp struct{}

func (l *lsfp) requiredEnv() []string {
	return []string{"LSF_ENVDIR"}
}

func (l *lsfp) provision(ctx context.Context, nodes, threads int) ([]Node, error) {
	cmd := exec.CommandContext(ctx, "bhosts", "-w") // #nosec
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}
	return parseBhosts(out, nodes, threads), nil
}

func (l *lsfp) tearDown(ctx context.Context, pool *Pool) error {
	return nil
}

// parseBhosts picks up to max hosts with status ok from `bhosts -w` output.
// threads overrides each host's reported job slot maximum when positive.
func parseBhosts(out []byte, max, threads int) []Node {
	var pool []Node
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || fields[0] == "HOST_NAME" || fields[1] != "ok" {
			continue
		}

		nodeThreads := threads
		if nodeThreads <= 0 {
			if reported, errc := strconv.Atoi(fields[3]); errc == nil && reported > 0 {
				nodeThreads = reported
			} else {
				continue
			}
		}

		pool = append(pool, Node{Name: fields[0], Threads: nodeThreads})
		if len(pool) == max {
			break
		}
	}
	return pool
}
