// Package snapshot computes the historical checkpoints a repository is
// analyzed at: one per project year, each resolved to the last commit at or
// before the year boundary.
package snapshot

import "time"

// Resolver maps a target time to the most recent commit at or before it.
// ok is false when the history has no commit that old.
type Resolver interface {
	CommitAtOrBefore(ts time.Time) (hash string, ok bool, err error)
}

// Checkpoint is one resolved snapshot target.
type Checkpoint struct {
	Year   int       // project-year index, starting at 1
	Target time.Time // firstCommit + Year * DaysPerYear days
	Commit string    // resolved commit hash
}

// Params bound the plan.
type Params struct {
	MaxYears    int // upper limit on project years
	MinAgeDays  int // repositories younger than this get no checkpoints
	DaysPerYear int // length of one project year
}

// DefaultParams matches the study design: up to five project years of 365
// days each, requiring at least two years of history.
var DefaultParams = Params{MaxYears: 5, MinAgeDays: 730, DaysPerYear: 365}

// AgeDays returns the repository age in whole days at the given instant.
func AgeDays(firstCommit, now time.Time) int {
	return int(now.Sub(firstCommit).Hours() / 24)
}

// Plan computes the ordered checkpoint sequence for a repository whose first
// commit is at firstCommit. It returns an empty plan when the repository is
// younger than p.MinAgeDays. Year targets past now end the plan; years whose
// target resolves to no commit are skipped without ending it.
func Plan(r Resolver, firstCommit, now time.Time, p Params) ([]Checkpoint, error) {
	if AgeDays(firstCommit, now) < p.MinAgeDays {
		return nil, nil
	}

	var plan []Checkpoint
	for year := 1; year <= p.MaxYears; year++ {
		target := firstCommit.AddDate(0, 0, year*p.DaysPerYear)
		if target.After(now) {
			break
		}
		hash, ok, err := r.CommitAtOrBefore(target)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		plan = append(plan, Checkpoint{Year: year, Target: target, Commit: hash})
	}
	return plan, nil
}
