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

import (
	"encoding/json"
	"os"
	"time"
)

// Node is one worker in the pool. A node hosts exactly one slot: one sample
// at a time runs on it with the node's whole thread budget.
type Node struct {
	Name    string `json:"name"`
	Threads int    `json:"threads"`
}

// Pool is the handle describing a provisioned worker pool. It is what
// deploy writes to the manager dir and run and teardown read back.
type Pool struct {
	Provider string    `json:"provider"`
	Nodes    []Node    `json:"nodes"`
	Created  time.Time `json:"created"`
}

// NewPool creates a Pool over the given nodes.
func NewPool(provider string, nodes []Node) *Pool {
	return &Pool{Provider: provider, Nodes: nodes, Created: time.Now().UTC()}
}

// Slots tells you how many concurrent pipeline runs this pool supports.
func (p *Pool) Slots() int {
	return len(p.Nodes)
}

// Save serialises the pool handle to the given path, only readable by us.
func (p *Pool) Save(path string) error {
	encoded, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, encoded, 0600)
}

// LoadPool reads a pool handle previously written by Save. A missing file
// means no pool is deployed; callers distinguish that with os.IsNotExist.
func LoadPool(path string) (*Pool, error) {
	encoded, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pool := &Pool{}
	if err = json.Unmarshal(encoded, pool); err != nil {
		return nil, err
	}
	return pool, nil
}
