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

/*
Package cluster achieves the aims of managing the worker pool that pipeline
passes run over.

The pool is provisioned once by `pangea deploy`, described by a Pool handle
serialised to the manager dir, consumed by `pangea run` to size its
dispatch, and released by `pangea teardown`. Provider implementations are
named in config; each knows how to describe or acquire worker nodes for one
kind of site. To "register" a new provideri implementation you must add a
case for it to New() and rebuild.
*/
package cluster

import (
	"context"
	"os"
	"strings"

	"github.com/inconshreveable/log15"
)

// Err* constants are found in the returned Errors under err.Err, so you can
// cast and check if it's a certain type of error. ErrMissingEnv gets
// appended to with missing environment variable names, so check based on
// prefix.
var (
	ErrBadProvider = "unknown provider name"
	ErrMissingEnv  = "missing environment variables: "
	ErrNoNodes     = "the pool would have no usable nodes"
)

// Error records an error and the operation and provider that caused it.
type Error struct {
	Provider string // the provider's Name
	Op       string // name of the method
	Err      string // one of our Err* vars
}

func (e Error) Error() string {
	return "cluster(" + e.Provider + ") " + e.Op + "(): " + e.Err
}

// provideri must be satisfied to add support for a particular kind of
// worker pool.
type provideri interface {
	requiredEnv() []string                                              // return the environment variables that must be set to use this provider
	provision(ctx context.Context, nodes, threads int) ([]Node, error)  // achieve the aims of Provision()
	tearDown(ctx context.Context, pool *Pool) error                     // achieve the aims of TearDown()
}

// Provider gives you access to a worker pool provider, offering the same
// methods regardless of site specifics.
type Provider struct {
	log15.Logger
	impl provideri
	Name string
}

// New creates a new Provider to manage the given kind of worker pool.
// Possible names so far are "local" and "lsf".
func New(name string, logger log15.Logger) (*Provider, error) {
	var p *Provider
	switch name {
	case "local":
		p = &Provider{impl: new(localp)}
	case "lsf":
		p = &Provider{impl: new(lsfp)}
	default:
		return nil, Error{name, "New", ErrBadProvider}
	}
	p.Name = name
	p.Logger = logger.New("provider", name)

	var missingEnv []string
	for _, envKey := range p.impl.requiredEnv() {
		if os.Getenv(envKey) == "" {
			missingEnv = append(missingEnv, envKey)
		}
	}
	if len(missingEnv) > 0 {
		return nil, Error{name, "New", ErrMissingEnv + strings.Join(missingEnv, ", ")}
	}

	return p, nil
}

// RequiredEnv tells you the environment variable names this provider needs
// set, for surfacing in config errors.
func (p *Provider) RequiredEnv() []string {
	return p.impl.requiredEnv()
}

// Provision acquires (or, for providers that only describe existing
// capacity, discovers) a pool of the given size, each node budgeted the
// given threads. The returned Pool should be saved for later supplying to
// run passes and to TearDown().
func (p *Provider) Provision(ctx context.Context, nodes, threads int) (*Pool, error) {
	poolNodes, err := p.impl.provision(ctx, nodes, threads)
	if err != nil {
		return nil, err
	}
	if len(poolNodes) == 0 {
		return nil, Error{p.Name, "Provision", ErrNoNodes}
	}

	pool := NewPool(p.Name, poolNodes)
	p.Info("pool provisioned", "nodes", len(pool.Nodes), "slots", pool.Slots())
	return pool, nil
}

// TearDown releases whatever Provision acquired, as recorded in the
// supplied Pool.
func (p *Provider) TearDown(ctx context.Context, pool *Pool) error {
	if err := p.impl.tearDown(ctx, pool); err != nil {
		return err
	}
	p.Info("pool torn down", "nodes", len(pool.Nodes))
	return nil
}
