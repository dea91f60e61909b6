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
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tanlabcode/PANGEA/cluster"
)

// teardownCmd represents the teardown command
var teardownCmd = &cobra.Command{
	Use:   "teardown",
	Short: "Release the worker pool",
	Long: `Release the worker pool that 'pangea deploy' provisioned.

Any backgrounded pass is stopped first. Completion markers, uploaded results
and the run database are untouched: a later deploy and run carries on from
where the batch got to.`,
	Run: func(cmd *cobra.Command, args []string) {
		pool, err := cluster.LoadPool(config.ManagerPoolFile)
		if err != nil {
			if os.IsNotExist(err) {
				die("no pool is deployed")
			}
			die("could not read the pool handle: %s", err)
		}

		if pid := runPid(); pid != 0 {
			info("stopping the pass with pid %d first", pid)
			if !stopdaemon(pid, config.ManagerPidFile) {
				die("could not stop the going pass; not tearing down under it")
			}
		}

		provider, err := cluster.New(pool.Provider, appLogger)
		if err != nil {
			die("could not create the %s pool provider: %s", pool.Provider, err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if err = provider.TearDown(ctx, pool); err != nil {
			die("could not tear the pool down: %s", err)
		}

		if err = os.Remove(config.ManagerPoolFile); err != nil {
			warn("the pool is torn down but its handle could not be removed: %s", err)
		}

		info("torn down the %s pool of %d node(s)", pool.Provider, len(pool.Nodes))
	},
}

func init() {
	RootCmd.AddCommand(teardownCmd)
}
