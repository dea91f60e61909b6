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
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/tanlabcode/PANGEA/cluster"
	"github.com/tanlabcode/PANGEA/ledger"
	"github.com/tanlabcode/PANGEA/pipeline"
)

// options for this cmd
var statusLimit int

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "See batch progress",
	Long: `See how the batch is getting on, from the run database in the manager dir.

Shows the recorded runs newest last, and an estimate (from smoothed stage
times of past runs) of how long one further sample will take.

This reads the database directly, so it can't be used while a pass is going
in this deployment; it will tell you so if one is.`,
	Run: func(cmd *cobra.Command, args []string) {
		if pid := runPid(); pid != 0 {
			die("a pass is going with pid %d; check %s for its progress", pid, config.ManagerLogFile)
		}

		runs, err := ledger.Open(config.ManagerDBFile, appLogger)
		if err != nil {
			die("could not open the run database (has anything run in this deployment yet?): %s", err)
		}
		defer func() {
			if errc := runs.Close(); errc != nil {
				warn("failed to close the run database: %s", errc)
			}
		}()

		results, err := runs.Runs()
		if err != nil {
			die("could not read the recorded runs: %s", err)
		}
		if len(results) == 0 {
			info("nothing has run in this deployment yet")
			return
		}

		if statusLimit > 0 && len(results) > statusLimit {
			results = results[len(results)-statusLimit:]
		}

		good := color.New(color.FgGreen).SprintFunc()
		bad := color.New(color.FgRed).SprintFunc()

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Sample", "Outcome", "Failed Stage", "Took", "Archived", "Started"})
		for _, result := range results {
			outcome := good("completed")
			failedStage := ""
			if result.FinalStage == pipeline.Failed {
				outcome = bad("failed")
				for _, sr := range result.Stages {
					if !sr.Ok {
						failedStage = string(sr.Stage)
						break
					}
				}
			}

			archived := "yes"
			if !result.ArchiveUploaded {
				archived = "no"
			}

			table.Append([]string{
				result.Sample,
				outcome,
				failedStage,
				result.End.Sub(result.Start).Round(time.Second).String(),
				archived,
				result.Start.Local().Format("2006-01-02 15:04"),
			})
		}
		table.Render()

		estimate, err := runs.EstimateRunSeconds()
		if err != nil {
			warn("could not estimate future run time: %s", err)
		} else if estimate > 0 {
			fmt.Printf("a further sample is expected to take ~%s\n",
				(time.Duration(estimate) * time.Second).Round(time.Minute))
		}

		if pool, perr := cluster.LoadPool(config.ManagerPoolFile); perr == nil {
			fmt.Printf("pool: %s, %d slot(s), deployed %s\n",
				pool.Provider, pool.Slots(), pool.Created.Local().Format("2006-01-02 15:04"))
		}
	},
}

func init() {
	RootCmd.AddCommand(statusCmd)

	// flags specific to this sub-command
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "l", 25, "show at most this many recent runs (0 for all)")
}
