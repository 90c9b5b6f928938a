// Package workflow drives the per-unit pipeline: clone, cross-sectional
// analysis, temporal snapshot extraction, community analysis, and disk
// reclamation, with the manifest consulted before and updated after every
// stage.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/researchware/smellpipe/internal/analyzer"
	"github.com/researchware/smellpipe/internal/config"
	"github.com/researchware/smellpipe/internal/dataset"
	"github.com/researchware/smellpipe/internal/gitrepo"
	"github.com/researchware/smellpipe/internal/manifest"
	"github.com/researchware/smellpipe/internal/snapshot"
)

// Tree is the subset of the working-tree operations the workflow needs.
// *gitrepo.Tree implements it.
type Tree interface {
	Dir() string
	FirstCommitTime() (time.Time, error)
	Head() (gitrepo.Ref, error)
	CommitAtOrBefore(ts time.Time) (string, bool, error)
	Checkout(hash string) error
	Restore(saved gitrepo.Ref, fallbacks []string) error
}

// Cloner materializes working trees.
type Cloner interface {
	Clone(ctx context.Context, url, dest string) (Tree, error)
}

// GitCloner is the production Cloner backed by gitrepo.
type GitCloner struct{}

func (GitCloner) Clone(ctx context.Context, url, dest string) (Tree, error) {
	t, err := gitrepo.Clone(ctx, url, dest)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// AnalyzerRunner abstracts the external analyzer invocations.
// *analyzer.Runner implements it.
type AnalyzerRunner interface {
	Run(ctx context.Context, kind analyzer.Kind, req analyzer.Request) (*analyzer.Outcome, error)
}

// UnitResult is the outcome of one unit's pass through the workflow.
type UnitResult struct {
	Unit     string
	Statuses map[manifest.Stage]manifest.Status
	Duration time.Duration
}

// Workflow runs one unit at a time through the fixed stage sequence.
type Workflow struct {
	cfg    *config.Pipeline
	store  *manifest.Store
	runner AnalyzerRunner
	cloner Cloner
	log    *slog.Logger
	token  string
	dryRun bool
	now    func() time.Time
}

// Options configure a Workflow.
type Options struct {
	Token  string
	DryRun bool
}

// New creates a Workflow.
func New(cfg *config.Pipeline, store *manifest.Store, runner AnalyzerRunner, cloner Cloner, log *slog.Logger, opts Options) *Workflow {
	return &Workflow{
		cfg:    cfg,
		store:  store,
		runner: runner,
		cloner: cloner,
		log:    log,
		token:  opts.Token,
		dryRun: opts.DryRun,
		now:    time.Now,
	}
}

// Run processes one unit. Stage failures are recorded, not returned: a unit
// never aborts the batch. The returned statuses are the unit's final
// manifest state for every stage.
func (w *Workflow) Run(ctx context.Context, u dataset.Unit) *UnitResult {
	start := w.now()
	log := w.log.With("unit", u.Name)

	crossPending := w.crossPending(u.Name)
	temporalPending := w.temporalPending(u.Name)
	needTree := crossPending || temporalPending

	cloneDir := w.cfg.CloneDir(u.Name)
	var tree Tree

	// Stage 1: clone. Only performed when a tree-dependent stage still has
	// work; a fully-done unit re-runs without touching git at all.
	if needTree && !w.dryRun {
		t, err := w.cloner.Clone(ctx, u.URL, cloneDir)
		if err != nil {
			log.Error("clone failed", "err", err)
			w.record(u.Name, manifest.StageClone, manifest.StatusFail, errDetail(err))
			// Clone failure is terminal for the unit: every downstream
			// stage is skipped.
			return w.finish(u.Name, start)
		}
		tree = t
		w.record(u.Name, manifest.StageClone, manifest.StatusOK, "")
		log.Info("cloned", "dir", cloneDir)
	} else if needTree && w.dryRun {
		w.record(u.Name, manifest.StageClone, manifest.StatusSimulated, "")
	}

	// Stage 2: cross-sectional code-smell analysis.
	if crossPending {
		w.runCross(ctx, u, tree, log)
	}

	// Stage 3: temporal snapshot extraction.
	if temporalPending {
		status, detail := w.runTemporal(ctx, u, tree, log)
		w.record(u.Name, manifest.StageDesigniteTemporal, status, detail)
	} else if !w.cfg.Temporal.IsEnabled() {
		if st, _ := w.store.Status(u.Name, manifest.StageDesigniteTemporal); st == manifest.StatusPending {
			w.record(u.Name, manifest.StageDesigniteTemporal, manifest.StatusSkip, "disabled")
		}
	}

	// Stage 4: community-smell analysis. Consults the remote API, not the
	// local tree, so it runs even when cloning was skipped.
	if w.communityPending(u.Name) {
		w.runCommunity(ctx, u, log)
	}

	// Stage 5: reclaim disk. Always runs when a tree exists, no matter how
	// the analysis stages fared.
	if dirExists(cloneDir) {
		if err := os.RemoveAll(cloneDir); err != nil {
			log.Error("cleanup failed", "err", err)
			w.record(u.Name, manifest.StageCleanup, manifest.StatusFail, errDetail(err))
		} else {
			w.record(u.Name, manifest.StageCleanup, manifest.StatusOK, "removed")
			log.Info("working tree removed", "dir", cloneDir)
		}
	}

	return w.finish(u.Name, start)
}

func (w *Workflow) runCross(ctx context.Context, u dataset.Unit, tree Tree, log *slog.Logger) {
	if w.dryRun {
		w.record(u.Name, manifest.StageDesigniteCross, manifest.StatusSimulated, "")
		return
	}
	if tree == nil {
		w.record(u.Name, manifest.StageDesigniteCross, manifest.StatusFail, "no working tree")
		return
	}
	outcome, err := w.runner.Run(ctx, analyzer.KindDesigniteCross, analyzer.Request{
		TreeDir:   tree.Dir(),
		OutputDir: w.cfg.CodeSmellsDir(u.Name),
	})
	if err != nil {
		log.Error("designite invocation failed", "err", err)
		w.record(u.Name, manifest.StageDesigniteCross, manifest.StatusFail, errDetail(err))
		return
	}
	if outcome.OK {
		w.record(u.Name, manifest.StageDesigniteCross, manifest.StatusOK, "")
	} else {
		log.Warn("designite failed", "detail", outcome.Detail)
		w.record(u.Name, manifest.StageDesigniteCross, manifest.StatusFail, outcome.Detail)
	}
}

// runTemporal extracts one snapshot per project year. Whatever happens inside
// the checkpoint loop, the working tree is moved back to the reference that
// was checked out before extraction began.
func (w *Workflow) runTemporal(ctx context.Context, u dataset.Unit, tree Tree, log *slog.Logger) (manifest.Status, string) {
	if w.dryRun {
		return manifest.StatusSimulated, ""
	}
	if tree == nil {
		return manifest.StatusFail, "no working tree"
	}

	first, err := tree.FirstCommitTime()
	if err != nil {
		if errors.Is(err, gitrepo.ErrEmptyHistory) {
			return manifest.StatusFail, "no_commits"
		}
		return manifest.StatusFail, errDetail(err)
	}

	now := w.now()
	params := snapshot.Params{
		MaxYears:    w.cfg.Temporal.MaxYears,
		MinAgeDays:  w.cfg.Temporal.MinAgeDays,
		DaysPerYear: w.cfg.Temporal.DaysPerYear,
	}
	plan, err := snapshot.Plan(tree, first, now, params)
	if err != nil {
		return manifest.StatusFail, errDetail(err)
	}
	if len(plan) == 0 {
		age := snapshot.AgeDays(first, now)
		log.Info("unit too young for temporal analysis", "age_days", age)
		return manifest.StatusSkipAge, fmt.Sprintf("age_days=%d", age)
	}

	saved, err := tree.Head()
	if err != nil {
		return manifest.StatusFail, errDetail(err)
	}

	succeeded := 0
	func() {
		defer func() {
			if err := tree.Restore(saved, w.cfg.FallbackBranches); err != nil {
				// Best-effort: the tree is deleted right after in cleanup.
				log.Warn("restore failed", "ref", saved.Hash, "err", err)
			}
		}()

		for _, cp := range plan {
			if ctx.Err() != nil {
				return
			}
			outDir := w.cfg.TemporalYearDir(u.Name, cp.Year)
			if dirNonEmpty(outDir) {
				succeeded++
				continue
			}
			if err := tree.Checkout(cp.Commit); err != nil {
				log.Warn("checkpoint checkout failed", "year", cp.Year, "commit", cp.Commit, "err", err)
				continue
			}
			outcome, err := w.runner.Run(ctx, analyzer.KindDesigniteTemporal, analyzer.Request{
				TreeDir:   tree.Dir(),
				OutputDir: outDir,
			})
			if err != nil || !outcome.OK {
				log.Warn("checkpoint analysis failed", "year", cp.Year, "err", err)
				continue
			}
			succeeded++
		}
	}()

	if succeeded == 0 {
		return manifest.StatusFail, fmt.Sprintf("checkpoints=0/%d", len(plan))
	}
	return manifest.StatusOK, fmt.Sprintf("checkpoints=%d/%d", succeeded, len(plan))
}

func (w *Workflow) runCommunity(ctx context.Context, u dataset.Unit, log *slog.Logger) {
	if w.dryRun {
		w.record(u.Name, manifest.StageCSDetector, manifest.StatusSimulated, "")
		return
	}
	outcome, err := w.runner.Run(ctx, analyzer.KindCSDetector, analyzer.Request{
		OutputDir: w.cfg.CommunityDir(u.Name),
		RemoteURL: u.URL,
		Token:     w.token,
	})
	if err != nil {
		log.Error("csdetector invocation failed", "err", err)
		w.record(u.Name, manifest.StageCSDetector, manifest.StatusFail, errDetail(err))
		return
	}
	if outcome.OK {
		w.record(u.Name, manifest.StageCSDetector, manifest.StatusOK, "")
	} else {
		log.Warn("csdetector failed", "detail", outcome.Detail)
		w.record(u.Name, manifest.StageCSDetector, manifest.StatusFail, outcome.Detail)
	}
}

// crossPending reports whether the cross-sectional stage still has work:
// anything short of an OK record with a non-empty artifact directory.
func (w *Workflow) crossPending(unit string) bool {
	return w.analysisPending(unit, manifest.StageDesigniteCross, w.cfg.CodeSmellsDir(unit))
}

func (w *Workflow) communityPending(unit string) bool {
	return w.analysisPending(unit, manifest.StageCSDetector, w.cfg.CommunityDir(unit))
}

func (w *Workflow) analysisPending(unit string, stage manifest.Stage, artifactDir string) bool {
	st, _ := w.store.Status(unit, stage)
	switch st {
	case manifest.StatusOK:
		// An OK record whose artifact vanished out-of-band is pending again.
		return !dirNonEmpty(artifactDir)
	case manifest.StatusSimulated:
		return !w.dryRun
	default:
		return true
	}
}

// temporalPending mirrors analysisPending but honors the age gate and the
// enable flag: a disabled stage has no work, a previously age-gated unit
// stays gated.
func (w *Workflow) temporalPending(unit string) bool {
	if !w.cfg.Temporal.IsEnabled() {
		return false
	}
	st, _ := w.store.Status(unit, manifest.StageDesigniteTemporal)
	switch st {
	case manifest.StatusOK:
		return !dirNonEmpty(w.cfg.TemporalDir(unit))
	case manifest.StatusSkipAge:
		return false
	case manifest.StatusSimulated:
		return !w.dryRun
	default:
		return true
	}
}

func (w *Workflow) record(unit string, stage manifest.Stage, status manifest.Status, detail string) {
	if err := w.store.Record(unit, stage, status, detail); err != nil {
		w.log.Error("manifest write failed", "unit", unit, "stage", string(stage), "err", err)
	}
}

// finish snapshots the unit's manifest state into the result.
func (w *Workflow) finish(unit string, start time.Time) *UnitResult {
	res := &UnitResult{
		Unit:     unit,
		Statuses: map[manifest.Stage]manifest.Status{},
		Duration: w.now().Sub(start),
	}
	m, err := w.store.Load()
	if err != nil {
		w.log.Error("manifest read failed", "unit", unit, "err", err)
	}
	for _, stage := range manifest.Stages {
		res.Statuses[stage] = manifest.StatusPending
		if m != nil {
			if rec, ok := m.Repos[unit][stage]; ok {
				res.Statuses[stage] = rec.Status
			}
		}
	}
	return res
}

func errDetail(err error) string {
	s := err.Error()
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func dirNonEmpty(path string) bool {
	entries, err := os.ReadDir(path)
	return err == nil && len(entries) > 0
}
