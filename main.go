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
Package main is a stub for pangea's command line interface, with the actual
implementation in the cmd package.

pangea orchestrates whole genome sequencing variant calling over batches of
samples. Given a sample sheet it takes every sample not yet marked complete
through the same per-sample pipeline: stage the raw alignment from the
archive on to node-local scratch, canonicalise the file names, call variants
and structural variants against the reference, upload the call sets to the
object store, durably mark the sample complete, and clean the scratch up.

Completion markers make passes resumable: interrupt a batch at any point,
run it again, and only the unfinished samples are attempted. A sample that
fails keeps its scratch directory for inspection and is simply attempted
again next pass.

Package Overview

The registry package parses the sample sheet and works out which samples are
still pending by consulting the completion package, which keeps the durable
per-sample markers in the object store behind a local cache.

The pipeline package is the per-sample state machine: typed command builders
for the external tools, a controlled executor that enforces timeouts and
output contracts, and the Run type that walks one sample through the stages.

The scheduler package dispatches pending samples over the worker pool's
slots, one live run per slot, carrying on past failures. The cluster package
provisions and describes that pool, and the ledger package records what
every run did in an embedded database, which is what pangea status reads.

The objectstore package abstracts the S3-compatible store (with a directory
implementation for development), and internal holds config loading and small
utilities shared by everything else.
*/
package main

import "github.com/tanlabcode/PANGEA/cmd"

func main() {
	cmd.Execute()
}
