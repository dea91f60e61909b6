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
Package pipeline implements the per-sample pipeline: the staged sequence of
staging, renaming, variant calling, structural-variant calling, uploading,
completion marking and cleanup that one sample goes through on one worker
slot.

The stages run strictly in order; no stage starts before the previous one's
external commands report success. A run that fails at any stage stops there,
leaves its scratch directory behind for diagnosis, and writes no completion
marker, so a later pass redoes the sample from scratch. The node's ephemeral
storage can only hold one sample's working set, which is why a run is
monolithic per slot rather than decomposed into independently schedulable
tasks.

External tools are described by typed commands (argument lists plus an
expected-output contract) and invoked through an Executor that captures exit
status, output and duration; no stage ever interpolates shell text.
*/
package pipeline
