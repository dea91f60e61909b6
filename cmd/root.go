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

// this is the cobra file that enables subcommands and handles command-line args

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/sevlyar/go-daemon"
	"github.com/spf13/cobra"

	"github.com/tanlabcode/PANGEA/internal"
)

// appLogger is used for logging events in our commands
var appLogger = log15.New()

// these variables are accessible by all subcommands.
var deployment string
var config internal.Config

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "pangea",
	Short: "pangea runs whole genome variant calling over sample batches.",
	Long: `pangea is a batch orchestrator for whole genome sequencing variant calling.

Given a sample sheet, it takes each sample not yet marked complete through the
same pipeline: stage the raw alignment data from the archive, call variants
and structural variants against the reference, upload the call sets, and mark
the sample complete. Samples whose completion marker already exists are
skipped, so an interrupted batch resumes by simply running it again.

First describe or acquire the worker pool the batch will run over:
$ pangea deploy

Then start a pass over the sample sheet:
$ pangea run

You can watch progress with:
$ pangea status

And release the pool when the batch is done:
$ pangea teardown`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen once
// to the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		die(err.Error())
	}
}

func init() {
	// set up logging to stderr
	appLogger.SetHandler(log15.LvlFilterHandler(log15.LvlInfo, log15.StderrHandler))

	// global flags
	RootCmd.PersistentFlags().StringVar(&deployment, "deployment", internal.DefaultDeployment(appLogger), "use production or development config")

	cobra.OnInitialize(initConfig)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	config = internal.ConfigLoad(deployment, false, appLogger)
}

// info is a convenience to log a message at the Info level.
func info(msg string, a ...interface{}) {
	appLogger.Info(fmt.Sprintf(msg, a...))
}

// warn is a convenience to log a message at the Warn level.
func warn(msg string, a ...interface{}) {
	appLogger.Warn(fmt.Sprintf(msg, a...))
}

// die is a convenience to log a message at the Error level and exit non zero.
func die(msg string, a ...interface{}) {
	appLogger.Error(fmt.Sprintf(msg, a...))
	os.Exit(1)
}

// createWorkingDir ensures the manager directory is available
func createWorkingDir() {
	_, err := os.Stat(config.ManagerDir)
	if err != nil {
		if os.IsNotExist(err) {
			// try and create the directory
			err = os.MkdirAll(config.ManagerDir, os.ModePerm)
			if err != nil {
				die("could not create the working directory '%s': %v", config.ManagerDir, err)
			}
		} else {
			die("could not access or create the working directory '%s': %v", config.ManagerDir, err)
		}
	}
}

// daemonize spawns a child copy of ourselves with the correct deployment (we
// need to be careful because the default deployment depends on current dir,
// and the child is forced to run from /). Supplying extraArgs can override
// earlier args (to eg. re-specify an option with a relative path with an
// absolute path).
func daemonize(pidFile string, umask int, extraArgs ...string) (*os.Process, *daemon.Context) {
	args := os.Args
	hadDeployment := false
	for _, arg := range args {
		if arg == "--deployment" {
			hadDeployment = true
			break
		}
	}
	if !hadDeployment {
		args = append(args, "--deployment")
		args = append(args, config.Deployment)
	}

	args = append(args, extraArgs...)

	context := &daemon.Context{
		PidFileName: pidFile,
		PidFilePerm: 0644,
		WorkDir:     "/",
		Args:        args,
		Umask:       umask,
	}

	child, err := context.Reborn()
	if err != nil {
		// try again, deleting the pidFile first
		errr := os.Remove(pidFile)
		if errr != nil && !os.IsNotExist(errr) {
			warn("failed to delete existing pid file: %s", errr)
		}

		child, err = context.Reborn()
		if err != nil {
			die("failed to daemonize: %s", err)
		}
	}
	return child, context
}

// stopdaemon stops the daemon created by daemonize() by sending it SIGTERM
// and checking it really exited
func stopdaemon(pid int, source string) bool {
	err := syscall.Kill(pid, syscall.SIGTERM)
	if err != nil {
		warn("a pangea run is going with pid %d according to %s, but failed to send it SIGTERM: %s", pid, source, err)
		return false
	}

	// wait a while for the daemon to gracefully close down
	giveupseconds := 120
	giveup := time.After(time.Duration(giveupseconds) * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	stopped := make(chan bool, 1)
	go func() {
		for {
			select {
			case <-ticker.C:
				err = syscall.Kill(pid, syscall.Signal(0))
				if err == nil {
					// pid is still running
					continue
				}
				// assume the error was "no such process"
				ticker.Stop()
				stopped <- true
				return
			case <-giveup:
				ticker.Stop()
				stopped <- false
				return
			}
		}
	}()
	ok := <-stopped

	if !ok {
		warn("the pangea run with pid %d according to %s is still going %ds after I sent it a SIGTERM", pid, source, giveupseconds)
	}

	return ok
}

// runPid reads the pid file of a backgrounded run. Returns 0 when no run is
// backgrounded.
func runPid() int {
	content, err := os.ReadFile(config.ManagerPidFile)
	if err != nil {
		return 0
	}
	var pid int
	if _, err = fmt.Sscanf(string(content), "%d", &pid); err != nil {
		return 0
	}
	if syscall.Kill(pid, syscall.Signal(0)) != nil {
		return 0
	}
	return pid
}
