package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/researchware/smellpipe/internal/dataset"
	"github.com/researchware/smellpipe/internal/db"
	"github.com/researchware/smellpipe/internal/manifest"
	"github.com/researchware/smellpipe/internal/progress"
)

// Bucket classifies a completed unit in the batch summary.
type Bucket int

const (
	BucketOK Bucket = iota
	BucketPartial
	BucketFailed
)

func (b Bucket) String() string {
	switch b {
	case BucketOK:
		return "ok"
	case BucketPartial:
		return "partial"
	case BucketFailed:
		return "failed"
	}
	return "unknown"
}

// Classifier maps a unit's final stage statuses to a summary bucket. The
// exact rule is a reporting choice, not pipeline semantics, so it is
// injectable.
type Classifier func(statuses map[manifest.Stage]manifest.Status) Bucket

// DefaultClassify: a unit that never cloned is failed; one where every
// analysis stage either produced results or was legitimately skipped is ok;
// one where every analysis stage failed is failed; anything mixed is partial.
func DefaultClassify(statuses map[manifest.Stage]manifest.Status) Bucket {
	if statuses[manifest.StageClone] == manifest.StatusFail {
		return BucketFailed
	}

	analysis := []manifest.Stage{
		manifest.StageDesigniteCross,
		manifest.StageDesigniteTemporal,
		manifest.StageCSDetector,
	}
	good, bad := 0, 0
	for _, stage := range analysis {
		switch statuses[stage] {
		case manifest.StatusOK, manifest.StatusSimulated, manifest.StatusSkip:
			good++
		case manifest.StatusFail, manifest.StatusPending:
			bad++
		}
	}
	if bad == len(analysis) {
		return BucketFailed
	}
	if good == len(analysis) {
		return BucketOK
	}
	return BucketPartial
}

// Summary aggregates a batch run.
type Summary struct {
	Processed int
	OK        int
	Partial   int
	Failed    int
	Elapsed   time.Duration
}

// UnitRunner is what the controller drives per unit. *Workflow implements it.
type UnitRunner interface {
	Run(ctx context.Context, u dataset.Unit) *UnitResult
}

// Controller iterates the unit list, driving the workflow over each unit in
// order and aggregating the summary. A unit's failure never stops the batch;
// only the cap or context cancellation ends it early.
type Controller struct {
	runner   UnitRunner
	units    []dataset.Unit
	cap      int
	classify Classifier
	progress *progress.Log
	journal  *db.DB // optional
	log      *slog.Logger
}

// NewController creates a Controller. cap <= 0 means no cap. journal may be
// nil; the run journal is best-effort.
func NewController(runner UnitRunner, units []dataset.Unit, cap int, prog *progress.Log, journal *db.DB, log *slog.Logger) *Controller {
	return &Controller{
		runner:   runner,
		units:    units,
		cap:      cap,
		classify: DefaultClassify,
		progress: prog,
		journal:  journal,
		log:      log,
	}
}

// SetClassifier overrides the summary classification rule.
func (c *Controller) SetClassifier(fn Classifier) {
	c.classify = fn
}

// Run processes the units and returns the aggregate summary.
func (c *Controller) Run(ctx context.Context) *Summary {
	units := c.units
	if c.cap > 0 && c.cap < len(units) {
		units = units[:c.cap]
		c.log.Info("processing cap applied", "cap", c.cap, "total", len(c.units))
	}

	var runID int64
	if c.journal != nil {
		id, err := c.journal.StartRun(len(units))
		if err != nil {
			c.log.Warn("run journal unavailable", "err", err)
		} else {
			runID = id
		}
	}

	start := time.Now()
	summary := &Summary{}
	for i, unit := range units {
		if ctx.Err() != nil {
			c.log.Warn("batch interrupted", "processed", summary.Processed)
			break
		}
		c.log.Info("processing unit", "unit", unit.Name, "index", i+1, "of", len(units))

		res := c.runner.Run(ctx, unit)
		bucket := c.classify(res.Statuses)

		summary.Processed++
		switch bucket {
		case BucketOK:
			summary.OK++
		case BucketPartial:
			summary.Partial++
		case BucketFailed:
			summary.Failed++
		}

		if c.progress != nil {
			if err := c.progress.Append(progress.Row{Unit: res.Unit, Statuses: res.Statuses, Duration: res.Duration}); err != nil {
				c.log.Warn("progress log write failed", "err", err)
			}
		}
		if c.journal != nil && runID != 0 {
			for _, stage := range manifest.Stages {
				_ = c.journal.LogStageEvent(runID, res.Unit, string(stage), string(res.Statuses[stage]), "")
			}
		}

		c.log.Info("unit done", "unit", unit.Name, "bucket", bucket.String(), "duration", res.Duration)
	}
	summary.Elapsed = time.Since(start)

	if c.journal != nil && runID != 0 {
		_ = c.journal.FinishRun(runID, summary.OK, summary.Partial, summary.Failed)
	}

	c.log.Info("batch complete",
		"processed", summary.Processed,
		"ok", summary.OK,
		"partial", summary.Partial,
		"failed", summary.Failed,
		"elapsed", summary.Elapsed,
	)
	return summary
}
