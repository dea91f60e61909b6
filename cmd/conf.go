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

	"github.com/spf13/cobra"
)

const defaultYML = `# The format of this file is YAML

# managerdir: Where should pangea keep its working files?
# Defaults to ~/.pangea; "_production" or "_development" is appended to
# whatever you set, depending on deployment. The pid file, log file, run
# database and pool handle all live here (their locations can be individually
# overridden with the managerpidfile, managerlogfile, managerdbfile and
# managerpoolfile options, which are relative to managerdir unless absolute).
managerdir: "~/.pangea"

# samplesheet: The sheet naming the samples of the batch.
# Tab or comma separated with a header line; lines starting # are ignored.
samplesheet: "samples.tsv"

# samplecolumn: The header of the column holding sample identifiers.
samplecolumn: "sample_id"

# sampleskip: Skip this many samples (after duplicate removal) from the top
# of the sheet, eg. to split a batch between sites.
sampleskip: 0

# scratchdir: Node-local directory for one sample's working set at a time.
# Each sample works in its own subdirectory of this. When left at the
# default, "_<your username>" is appended so users sharing a node don't
# collide.
scratchdir: "/tmp/pangea"

# scratchminfreegb: Refuse to stage a sample unless the scratch filesystem
# has at least this many GB free. 0 disables the check.
scratchminfreegb: 350

# storeendpoint, storeaccesskey, storesecretkey, storebucket, storesecure:
# The S3-compatible object store holding completion markers, uploaded call
# sets and archived alignments. With no endpoint set, a development
# deployment uses a directory store inside managerdir instead.
# Prefer supplying the keys via the PANGEA_STOREACCESSKEY and
# PANGEA_STORESECRETKEY environment variables over writing them to a file.
storeendpoint: ""
storebucket: "pangea"
storesecure: true

# storenamespace: Prefix for every key pangea writes in the bucket.
storenamespace: "pangea"

# reffasta, reffastaindex, refregions: The reference genome, its index and
# the region partition file the variant caller parallelises over. All
# required before a pass will start.
reffasta: ""
reffastaindex: ""
refregions: ""

# stagerexec, callerexec, svcallerexec, compressexec: The external tools each
# stage shells out to. Looked up on PATH unless absolute.
stagerexec: "iget"
callerexec: "freebayes-parallel"
svcallerexec: "delly"
compressexec: "bgzip"

# threads: Per-run thread budget when the pool's nodes don't specify one.
# 0 means use all cores.
threads: 0

# stagingtimeoutmins, callingtimeoutmins, svtimeoutmins, uploadtimeoutmins:
# Wall time bounds for the stages that run external commands or transfers.
# 0 disables that stage's bound.
stagingtimeoutmins: 720
callingtimeoutmins: 1440
svtimeoutmins: 720
uploadtimeoutmins: 240

# poolprovider: Which kind of worker pool 'pangea deploy' sets up.
# "local" carves this host into slots; "lsf" discovers usable LSF hosts.
poolprovider: "local"

# poolnodes: How many nodes (= slots) to deploy.
poolnodes: 1

# poolnodethreads: Thread budget per deployed node. 0 means the threads
# option.
poolnodethreads: 0
`

// options for this cmd
var confDefault bool

// confCmd represents the conf command
var confCmd = &cobra.Command{
	Use:   "conf",
	Short: "See pangea's configuration",
	Long: `See the configuration values pangea will use.

This command also shows where a particular value was defined.

For a list of all possible configuration settings, their descriptions and
default values in the yml format suitable for using as one of your config
files, use the --default option.

pangea will load its configuration settings from one or more files named
.pangea_config[.production|.development].yml found in these directories, in
order of precedence:
1) The current directory
2) Your home directory
3) The directory pointed to by the environment variable $PANGEA_CONFIG_DIR

.pangea_config.yml files are always read, and can be used to define settings
common to both production and development deployments.
.pangea_config.production.yml files are only read in a production context:
either a --deployment production option has been passed to the pangea
executable, or the environment variable $PANGEA_DEPLOYMENT has been set to
'production'. A similar story applies for .pangea_config.development.yml
files, which are used when things are set to 'development'.
The default deployment is production (unless you're in the git repository
for pangea, in which case it is development).

If a setting is found in none of the files read, then an environment variable
is checked: PANGEA_<setting name in caps>. Eg. to define the poolprovider
option you might do:
export PANGEA_POOLPROVIDER="lsf"`,
	Run: func(cmd *cobra.Command, args []string) {
		if confDefault {
			fmt.Print(defaultYML)
			os.Exit(0)
		}

		fmt.Printf("%s", config)
	},
}

func init() {
	RootCmd.AddCommand(confCmd)

	// flags specific to this sub-command
	confCmd.Flags().BoolVarP(&confDefault, "default", "d", false, "print default config yml file to STDOUT")
}
