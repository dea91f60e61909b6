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

package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/tanlabcode/PANGEA/cluster"
	"github.com/tanlabcode/PANGEA/internal"
)

// options for this cmd
var deployNodes int
var deployNodeThreads int

// deployCmd represents the deploy command
var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Provision the worker pool",
	Long: `Provision (or, for providers that only describe existing capacity, discover)
the worker pool that pangea run passes will dispatch over.

Each node in the pool hosts one slot: one sample at a time runs on it, using
the node's whole thread budget. The pool handle is written to the manager dir
and used by 'pangea run' and 'pangea teardown'.

The provider comes from the poolprovider config option; "local" describes
slots on this host, "lsf" discovers usable hosts in your LSF cluster.`,
	Run: func(cmd *cobra.Command, args []string) {
		createWorkingDir()

		if internal.FileExists(config.ManagerPoolFile) {
			die("a pool is already deployed (%s); teardown first", config.ManagerPoolFile)
		}

		nodes := deployNodes
		if nodes < 1 {
			nodes = config.PoolNodes
		}
		threads := deployNodeThreads
		if threads < 1 {
			threads = config.PoolNodeThreads
		}

		provider, err := cluster.New(config.PoolProvider, appLogger)
		if err != nil {
			die("could not create the %s pool provider: %s", config.PoolProvider, err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		pool, err := provider.Provision(ctx, nodes, threads)
		if err != nil {
			die("could not provision the pool: %s", err)
		}

		if err = pool.Save(config.ManagerPoolFile); err != nil {
			terr := provider.TearDown(ctx, pool)
			if terr != nil {
				warn("failed to tear the pool back down: %s", terr)
			}
			die("could not save the pool handle: %s", err)
		}

		info("deployed a %s pool of %d node(s), %d slot(s)", pool.Provider, len(pool.Nodes), pool.Slots())
	},
}

func init() {
	RootCmd.AddCommand(deployCmd)

	// flags specific to this sub-command
	deployCmd.Flags().IntVarP(&deployNodes, "nodes", "n", 0, "number of worker nodes (0 to use the poolnodes config option)")
	deployCmd.Flags().IntVar(&deployNodeThreads, "threads", 0, "thread budget per node (0 to use the poolnodethreads config option)")
}
