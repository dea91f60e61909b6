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

package pipeline

// This file contains the per-sample pipeline state machine.

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/gofrs/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/inconshreveable/log15"

	"github.com/tanlabcode/PANGEA/completion"
	"github.com/tanlabcode/PANGEA/internal"
	"github.com/tanlabcode/PANGEA/limiter"
	"github.com/tanlabcode/PANGEA/objectstore"
)

// Stage names a state of the per-sample pipeline state machine.
type Stage string

// The pipeline's states. A run moves through the first seven strictly in
// order; Completed and Failed are terminal.
const (
	Staging                   Stage = "staging"
	Renaming                  Stage = "renaming"
	CallingVariants           Stage = "calling_variants"
	CallingStructuralVariants Stage = "calling_structural_variants"
	Uploading                 Stage = "uploading"
	MarkingComplete           Stage = "marking_complete"
	CleaningUp                Stage = "cleaning_up"
	Completed                 Stage = "completed"
	Failed                    Stage = "failed"
)

// Stages lists the working stages in execution order.
var Stages = []Stage{
	Staging,
	Renaming,
	CallingVariants,
	CallingStructuralVariants,
	Uploading,
	MarkingComplete,
	CleaningUp,
}

// stagerConnectionFactor scales the thread budget up for the staging
// stage's parallel transfer streams, which are network bound rather than CPU
// bound.
const stagerConnectionFactor = 4

// completedSentinel is the local sentinel file written just before the
// durable marker.
const completedSentinel = ".completed"

// Options carries the per-deployment settings a Run needs, passed in
// explicitly rather than read from ambient environment.
type Options struct {
	// ScratchDir is the node-local ephemeral directory that holds one
	// sample's working set at a time; each run works in a per-sample
	// subdirectory of it.
	ScratchDir string

	// Namespace prefixes all object store keys.
	Namespace string

	// Threads is the run's thread budget.
	Threads int

	// MinFreeBytes is how much free space the scratch filesystem must have
	// before staging is allowed to start. Zero disables the check.
	MinFreeBytes uint64

	// Timeouts bounds the wall time of stages that run external commands.
	// A missing or non-positive entry means no timeout for that stage.
	Timeouts map[Stage]time.Duration
}

// StageResult is the outcome of one stage of one run.
type StageResult struct {
	Stage    Stage         `json:"stage"`
	Ok       bool          `json:"ok"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// RunResult is the full record of one pipeline run, as stored in the run
// ledger.
type RunResult struct {
	RunID      string        `json:"run_id"`
	Sample     string        `json:"sample"`
	Slot       int           `json:"slot"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	FinalStage Stage         `json:"final_stage"`
	Stages     []StageResult `json:"stages"`

	// ArchiveUploaded and ArchiveError report the best-effort secondary
	// upload of the raw alignment during cleanup. Its failure doesn't stop
	// a run reaching Completed, so it is surfaced here instead of in
	// FinalStage.
	ArchiveUploaded bool   `json:"archive_uploaded"`
	ArchiveError    string `json:"archive_error,omitempty"`
}

// Run is one execution of the per-sample pipeline for one sample on one
// worker slot. At most one live Run exists per sample and per slot at a
// time; the dispatcher enforces both.
type Run struct {
	log15.Logger
	id      string
	sample  string
	slot    int
	opts    Options
	builder *CommandBuilder
	exec    Executor
	store   objectstore.Store
	markers *completion.Store
	limits  *limiter.Limiter

	stage    Stage
	dir      string
	bam      string
	bai      string
	products []string

	archiveUploaded bool
	archiveErr      string
}

// NewRun creates a Run for the given sample on the given slot. The builder,
// executor, stores and limiter are shared across runs; Options is read-only.
func NewRun(sample string, slot int, opts Options, builder *CommandBuilder, exec Executor,
	store objectstore.Store, markers *completion.Store, limits *limiter.Limiter,
	logger log15.Logger) *Run {
	id := uuid.Must(uuid.NewV4()).String()
	return &Run{
		Logger:  logger.New("sample", sample, "run", id, "slot", slot),
		id:      id,
		sample:  sample,
		slot:    slot,
		opts:    opts,
		builder: builder,
		exec:    exec,
		store:   store,
		markers: markers,
		limits:  limits,
		stage:   Staging,
		dir:     filepath.Join(opts.ScratchDir, sample),
	}
}

// ID returns the run's unique id.
func (r *Run) ID() string {
	return r.id
}

// CurrentStage tells you the stage the run is in, or ended in.
func (r *Run) CurrentStage() Stage {
	return r.stage
}

// Execute walks the run through its stages in order. It returns the run's
// record in all cases; err is non-nil (a *StageFailure) when the run ends
// Failed. On failure the sample's scratch directory is deliberately left
// behind for manual inspection, and no completion marker is written.
func (r *Run) Execute(ctx context.Context) (*RunResult, error) {
	result := &RunResult{
		RunID:  r.id,
		Sample: r.sample,
		Slot:   r.slot,
		Start:  time.Now(),
	}

	stageFuncs := map[Stage]func(context.Context) error{
		Staging:                   r.runStaging,
		Renaming:                  r.runRenaming,
		CallingVariants:           r.runCallingVariants,
		CallingStructuralVariants: r.runCallingStructuralVariants,
		Uploading:                 r.runUploading,
		MarkingComplete:           r.runMarkingComplete,
		CleaningUp:                r.runCleaningUp,
	}

	for _, stage := range Stages {
		r.stage = stage
		r.Info("stage starting", "stage", stage)

		start := time.Now()
		err := stageFuncs[stage](ctx)
		sr := StageResult{Stage: stage, Ok: err == nil, Duration: time.Since(start)}
		if err != nil {
			sr.Error = err.Error()
		}
		result.Stages = append(result.Stages, sr)

		if err != nil {
			r.stage = Failed
			result.FinalStage = Failed
			result.End = time.Now()
			r.Error("stage failed", "stage", stage, "err", err, "took", sr.Duration)
			return result, &StageFailure{Sample: r.sample, Stage: stage, Err: err}
		}
		r.Info("stage succeeded", "stage", stage, "took", sr.Duration)
	}

	r.stage = Completed
	result.FinalStage = Completed
	result.ArchiveUploaded = r.archiveUploaded
	result.ArchiveError = r.archiveErr
	result.End = time.Now()
	return result, nil
}

// stageCtx applies the stage's configured timeout, if any.
func (r *Run) stageCtx(ctx context.Context, stage Stage) (context.Context, context.CancelFunc) {
	if timeout, set := r.opts.Timeouts[stage]; set && timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// runStaging downloads the sample's raw alignment data from the archive
// into the per-sample scratch directory. No retry on failure: staging errors
// tend to be auth or network config problems an operator needs to look at.
func (r *Run) runStaging(ctx context.Context) error {
	if r.opts.MinFreeBytes > 0 {
		free := internal.DiskFreeBytes(r.opts.ScratchDir)
		if free < r.opts.MinFreeBytes {
			return Error{
				Op:  "staging",
				Err: ErrScratchSpace,
				Msg: bytefmt.ByteSize(free) + " free, need " + bytefmt.ByteSize(r.opts.MinFreeBytes),
			}
		}
	}

	// a failed attempt leaves its scratch behind for inspection, but only
	// until the sample's next attempt: stale files (the canonical .bam in
	// particular) would make renaming ambiguous, so each attempt stages
	// into a fresh directory
	if err := os.RemoveAll(r.dir); err != nil {
		return err
	}
	if err := os.MkdirAll(r.dir, 0750); err != nil {
		return err
	}

	sctx, cancel := r.stageCtx(ctx, Staging)
	defer cancel()

	cmd := r.builder.Stage(r.sample, r.dir, r.opts.Threads*stagerConnectionFactor)
	_, err := r.exec.Execute(sctx, cmd)
	return err
}

// runRenaming canonicalises the downloaded file names so downstream tools
// can reference them by convention.
func (r *Run) runRenaming(ctx context.Context) error {
	bam, bai, err := canonicalise(r.dir, r.sample)
	if err != nil {
		return err
	}
	r.bam = bam
	r.bai = bai
	return nil
}

// runCallingVariants produces the sample's call set over the region
// partition, then compresses it. Both the compressed and uncompressed call
// sets become products for upload.
func (r *Run) runCallingVariants(ctx context.Context) error {
	sctx, cancel := r.stageCtx(ctx, CallingVariants)
	defer cancel()

	vcf := filepath.Join(r.dir, r.sample+".vcf")
	if _, err := r.exec.Execute(sctx, r.builder.CallVariants(r.bam, vcf, r.opts.Threads)); err != nil {
		return err
	}

	if _, err := r.exec.Execute(sctx, r.builder.Compress(vcf, r.opts.Threads)); err != nil {
		return err
	}

	r.products = append(r.products, vcf, vcf+".gz")
	return nil
}

// runCallingStructuralVariants fans the SV caller out over every category
// concurrently, bounded by the run's thread budget. A single category's
// failure fails the whole stage, because upload doesn't distinguish
// per-category completeness.
func (r *Run) runCallingStructuralVariants(ctx context.Context) error {
	sctx, cancel := r.stageCtx(ctx, CallingStructuralVariants)
	defer cancel()

	group := "sv-" + r.id
	r.limits.SetLimit(group, uint(r.opts.Threads))
	defer r.limits.RemoveLimit(group)

	type svOutcome struct {
		category SVCategory
		err      error
	}
	outcomes := make(chan svOutcome, len(SVCategories))

	for _, category := range SVCategories {
		go func(category SVCategory) {
			if err := r.limits.Acquire(sctx, group); err != nil {
				outcomes <- svOutcome{category, err}
				return
			}
			defer r.limits.Release(group)

			out := SVOutPath(r.dir, r.sample, category)
			_, err := r.exec.Execute(sctx, r.builder.CallSV(r.bam, category, out))
			outcomes <- svOutcome{category, err}
		}(category)
	}

	var merr *multierror.Error
	succeeded := make(map[SVCategory]bool)
	for range SVCategories {
		outcome := <-outcomes
		if outcome.err != nil {
			merr = multierror.Append(merr, outcome.err)
		} else {
			succeeded[outcome.category] = true
		}
	}
	if err := merr.ErrorOrNil(); err != nil {
		return err
	}

	for _, category := range SVCategories {
		if succeeded[category] {
			r.products = append(r.products, SVOutPath(r.dir, r.sample, category))
		}
	}
	return nil
}

// runUploading transfers every produced call set to the results prefix. All
// must succeed before the run proceeds; there is no partial-upload recovery.
func (r *Run) runUploading(ctx context.Context) error {
	for _, path := range r.products {
		if err := r.uploadFile(ctx, path, r.resultKey(path)); err != nil {
			return err
		}
	}
	return nil
}

// runMarkingComplete writes the local sentinel, then mirrors it into the
// durable completion store. This only ever happens after uploads succeed:
// a marker's existence implies the uploaded artifacts exist, which is the
// crash-recovery contract the registry relies on.
func (r *Run) runMarkingComplete(ctx context.Context) error {
	payload := []byte(r.id + " " + time.Now().UTC().Format(time.RFC3339) + "\n")

	if err := os.WriteFile(filepath.Join(r.dir, completedSentinel), payload, 0640); err != nil {
		return err
	}
	return r.markers.MarkComplete(ctx, r.sample, payload)
}

// runCleaningUp archives the raw alignment to the secondary destination
// (best effort), then deletes the sample's scratch so the slot's next sample
// has room. Only the scratch delete can fail the stage.
func (r *Run) runCleaningUp(ctx context.Context) error {
	r.archiveUploaded = true
	for _, path := range []string{r.bam, r.bai} {
		if err := r.uploadFile(ctx, path, r.archiveKey(path)); err != nil {
			r.archiveUploaded = false
			r.archiveErr = err.Error()
			r.Warn("best-effort archive upload failed; results are uploaded but the raw alignment is not archived",
				"path", path, "err", err)
			break
		}
	}

	return os.RemoveAll(r.dir)
}

// uploadFile puts one local file into the object store, bounded by the
// upload timeout, logging its size.
func (r *Run) uploadFile(ctx context.Context, path string, key string) error {
	sctx, cancel := r.stageCtx(ctx, Uploading)
	defer cancel()

	var size string
	if info, err := os.Stat(path); err == nil {
		size = bytefmt.ByteSize(uint64(info.Size()))
	}

	if err := r.store.PutFile(sctx, key, path); err != nil {
		return err
	}
	r.Debug("uploaded", "key", key, "size", size)
	return nil
}

func (r *Run) resultKey(path string) string {
	return r.opts.Namespace + "/results/" + r.sample + "/" + filepath.Base(path)
}

func (r *Run) archiveKey(path string) string {
	return r.opts.Namespace + "/archive/" + r.sample + "/" + filepath.Base(path)
}
