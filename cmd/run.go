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
	"os/signal"
	"syscall"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/sb10/l15h"
	"github.com/spf13/cobra"

	"github.com/tanlabcode/PANGEA/cluster"
	"github.com/tanlabcode/PANGEA/completion"
	"github.com/tanlabcode/PANGEA/ledger"
	"github.com/tanlabcode/PANGEA/limiter"
	"github.com/tanlabcode/PANGEA/objectstore"
	"github.com/tanlabcode/PANGEA/pipeline"
	"github.com/tanlabcode/PANGEA/registry"
	"github.com/tanlabcode/PANGEA/scheduler"
)

// options for this cmd
var foreground bool

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a pass over the sample sheet",
	Long: `Run one pass of the pipeline over every sample in the sample sheet that is
not yet marked complete.

Each pending sample is dispatched to a free worker slot and taken through the
whole pipeline: stage, rename, call variants, call structural variants,
upload, mark complete, clean up. A sample that fails stops at its failing
stage, keeps its scratch directory for inspection, gets no completion marker,
and will be attempted again on the next pass; its failure does not stop the
other samples.

By default the pass detaches and runs in the background, logging to the
manager dir; use --foreground to keep it attached to your terminal.

The command exits non-zero if any sample failed, so batch wrappers notice
partial passes.`,
	Run: func(cmd *cobra.Command, args []string) {
		createWorkingDir()

		if !foreground {
			if pid := runPid(); pid != 0 {
				die("a pass is already going with pid %d", pid)
			}

			child, dcontext := daemonize(config.ManagerPidFile, config.ManagerUmask, "--foreground")
			if child != nil {
				// parent; wait a moment and confirm the child took off
				time.Sleep(1 * time.Second)
				if pid := runPid(); pid == 0 {
					die("the background pass failed to start; check %s", config.ManagerLogFile)
				}
				info("pass started in the background (pid %d); pangea status to follow it", child.Pid)
				return
			}

			// daemonized child
			defer func() {
				if err := dcontext.Release(); err != nil {
					warn("failed to release daemon context: %s", err)
				}
			}()

			// log to file, with caller info for debugging
			fh, err := log15.FileHandler(config.ManagerLogFile, log15.LogfmtFormat())
			if err != nil {
				die("could not log to %s: %s", config.ManagerLogFile, err)
			}
			appLogger.SetHandler(l15h.CallerInfoHandler(fh))
		}

		if runPass() > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	RootCmd.AddCommand(runCmd)

	// flags specific to this sub-command
	runCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "do not daemonize")
}

// runPass does one dispatch pass over the pending samples, returning how
// many failed.
func runPass() int {
	pool, err := cluster.LoadPool(config.ManagerPoolFile)
	if err != nil {
		if os.IsNotExist(err) {
			die("no pool is deployed; pangea deploy first")
		}
		die("could not read the pool handle: %s", err)
	}

	store := openStore()
	markers := completion.New(store, config.StoreNamespace, appLogger)

	ref := pipeline.ReferenceBundle{
		Fasta:      config.RefFasta,
		FastaIndex: config.RefFastaIndex,
		Regions:    config.RefRegions,
	}
	if err = ref.Validate(); err != nil {
		die("bad reference configuration: %s", err)
	}

	builder := pipeline.NewCommandBuilder(pipeline.Tools{
		Stager:     config.StagerExec,
		Caller:     config.CallerExec,
		SVCaller:   config.SVCallerExec,
		Compressor: config.CompressExec,
	}, ref)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err = markers.Sync(ctx); err != nil {
		die("could not list existing completion markers: %s", err)
	}

	reg := registry.New(config.SampleSheet, config.SampleColumn, config.SampleSkip, appLogger)
	pending, err := reg.ListPending(ctx, markers)
	if err != nil {
		die("could not work out the pending samples: %s", err)
	}
	if len(pending) == 0 {
		info("every sample in %s is already complete", config.SampleSheet)
		return 0
	}

	runs, err := ledger.Open(config.ManagerDBFile, appLogger)
	if err != nil {
		die("could not open the run database: %s", err)
	}
	defer func() {
		if errc := runs.Close(); errc != nil {
			warn("failed to close the run database: %s", errc)
		}
	}()

	d, err := scheduler.New(pool.Slots(), appLogger)
	if err != nil {
		die("could not create the dispatcher: %s", err)
	}

	limits := limiter.New()
	exec := pipeline.NewLocalExecutor(appLogger)
	timeouts := stageTimeouts()

	runFunc := func(ctx context.Context, sample string, slot int) error {
		threads := pool.Nodes[slot].Threads
		if threads < 1 {
			threads = config.Threads
		}

		run := pipeline.NewRun(sample, slot, pipeline.Options{
			ScratchDir:   config.ScratchDir,
			Namespace:    config.StoreNamespace,
			Threads:      threads,
			MinFreeBytes: uint64(config.ScratchMinFreeGB) * 1024 * 1024 * 1024,
			Timeouts:     timeouts,
		}, builder, exec, store, markers, limits, appLogger)

		result, rerr := run.Execute(ctx)
		if lerr := runs.Record(result); lerr != nil {
			warn("failed to record the run for sample %s: %s", sample, lerr)
		}
		return rerr
	}

	info("dispatching %d pending sample(s) over %d slot(s)", len(pending), pool.Slots())
	summary := d.Run(ctx, pending, runFunc)

	info("pass over; %d completed, %d failed, %d not attempted, took %s",
		len(summary.Completed), len(summary.Failed), len(summary.Skipped), summary.Duration)
	for sample, serr := range summary.Failed {
		warn("sample %s failed: %s", sample, serr)
	}

	return len(summary.Failed)
}

// openStore connects to the configured object store. With no endpoint
// configured, falls back to a directory store inside the manager dir, which
// only makes sense for development on one host.
func openStore() objectstore.Store {
	if config.StoreEndpoint == "" {
		if config.IsProduction() {
			die("no object store endpoint is configured")
		}
		store, err := objectstore.NewDir(config.ManagerDir + "/store")
		if err != nil {
			die("could not create the development store: %s", err)
		}
		return store
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()

	store, err := objectstore.NewS3(ctx, objectstore.S3Config{
		Endpoint:  config.StoreEndpoint,
		AccessKey: config.StoreAccessKey,
		SecretKey: config.StoreSecretKey,
		Bucket:    config.StoreBucket,
		Secure:    config.StoreSecure,
	})
	if err != nil {
		die("could not connect to the object store at %s: %s", config.StoreEndpoint, err)
	}
	return store
}

// stageTimeouts converts the configured timeout minutes to the pipeline's
// per-stage durations.
func stageTimeouts() map[pipeline.Stage]time.Duration {
	configured := config.StageTimeouts()
	timeouts := make(map[pipeline.Stage]time.Duration)
	for name, stage := range map[string]pipeline.Stage{
		"staging": pipeline.Staging,
		"calling": pipeline.CallingVariants,
		"sv":      pipeline.CallingStructuralVariants,
		"upload":  pipeline.Uploading,
	} {
		if mins := configured[name]; mins > 0 {
			timeouts[stage] = time.Duration(mins) * time.Minute
		}
	}
	return timeouts
}
