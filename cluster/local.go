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

// This file contains the local provider: the pool is slots on this host.

import (
	"context"
	"fmt"
	"os"

	"github.com/tanlabcode/PANGEA/internal"
)

// localp describes capacity on the current host. Nothing is acquired or
// released; provisioning just carves the host into slots.
type localp struct{}

func (l *localp) requiredEnv() []string {
	return nil
}

func (l *localp) provision(ctx context.Context, nodes, threads int) ([]Node, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	if threads <= 0 {
		threads = internal.DefaultThreads()
	}

	pool := make([]Node, nodes)
	for i := range pool {
		pool[i] = Node{Name: fmt.Sprintf("%s/%d", hostname, i), Threads: threads}
	}
	return pool, nil
}

func (l *localp) tearDown(ctx context.Context, pool *Pool) error {
	return nil
}
