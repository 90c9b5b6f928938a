// Package gitrepo wraps the git operations the pipeline needs: cloning a
// unit's repository, querying its history, and moving the working tree
// between commits.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// ErrEmptyHistory is returned when a repository has no commits.
var ErrEmptyHistory = errors.New("repository has no commits")

// CloneError wraps a failure to materialize a working tree.
type CloneError struct {
	URL string
	Err error
}

func (e *CloneError) Error() string { return fmt.Sprintf("clone %s: %v", e.URL, e.Err) }
func (e *CloneError) Unwrap() error { return e.Err }

// CheckoutError wraps a failed working-tree transition.
type CheckoutError struct {
	Target string
	Err    error
}

func (e *CheckoutError) Error() string { return fmt.Sprintf("checkout %s: %v", e.Target, e.Err) }
func (e *CheckoutError) Unwrap() error { return e.Err }

// Ref identifies a checked-out position so it can be returned to later.
type Ref struct {
	Name     string // branch short name when IsBranch, otherwise empty
	Hash     string
	IsBranch bool
}

// Tree is a local working tree of one unit's repository.
type Tree struct {
	repo *git.Repository
	dir  string
}

// Dir returns the working tree's path on disk.
func (t *Tree) Dir() string { return t.dir }

// Clone materializes url at dest. If a repository already exists there the
// existing tree is opened instead, making Clone safe to call on re-runs.
func Clone(ctx context.Context, url, dest string) (*Tree, error) {
	repo, err := git.PlainOpen(dest)
	if err == nil {
		return &Tree{repo: repo, dir: dest}, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, &CloneError{URL: url, Err: err}
	}

	repo, err = git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{URL: url})
	if err != nil {
		return nil, &CloneError{URL: url, Err: err}
	}
	return &Tree{repo: repo, dir: dest}, nil
}

// Open opens an existing working tree.
func Open(dir string) (*Tree, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dir, err)
	}
	return &Tree{repo: repo, dir: dir}, nil
}

// FirstCommitTime returns the committer time of the earliest commit
// reachable from HEAD.
func (t *Tree) FirstCommitTime() (time.Time, error) {
	iter, err := t.log()
	if err != nil {
		return time.Time{}, err
	}
	defer iter.Close()

	var earliest time.Time
	seen := false
	err = iter.ForEach(func(c *object.Commit) error {
		if !seen || c.Committer.When.Before(earliest) {
			earliest = c.Committer.When
			seen = true
		}
		return nil
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("walk history: %w", err)
	}
	if !seen {
		return time.Time{}, ErrEmptyHistory
	}
	return earliest, nil
}

// Head returns the currently checked-out reference.
func (t *Tree) Head() (Ref, error) {
	head, err := t.repo.Head()
	if err != nil {
		return Ref{}, fmt.Errorf("resolve HEAD: %w", err)
	}
	ref := Ref{Hash: head.Hash().String()}
	if head.Name().IsBranch() {
		ref.Name = head.Name().Short()
		ref.IsBranch = true
	}
	return ref, nil
}

// CommitAtOrBefore returns the most recent commit whose committer time is
// not after ts. ok is false when every commit is newer than ts.
func (t *Tree) CommitAtOrBefore(ts time.Time) (string, bool, error) {
	iter, err := t.log()
	if err != nil {
		if errors.Is(err, ErrEmptyHistory) {
			return "", false, nil
		}
		return "", false, err
	}
	defer iter.Close()

	var found string
	err = iter.ForEach(func(c *object.Commit) error {
		if !c.Committer.When.After(ts) {
			found = c.Hash.String()
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("walk history: %w", err)
	}
	return found, found != "", nil
}

// Checkout forces the working tree onto the given commit.
func (t *Tree) Checkout(hash string) error {
	wt, err := t.repo.Worktree()
	if err != nil {
		return &CheckoutError{Target: hash, Err: err}
	}
	err = wt.Checkout(&git.CheckoutOptions{
		Hash:  plumbing.NewHash(hash),
		Force: true,
	})
	if err != nil {
		return &CheckoutError{Target: hash, Err: err}
	}
	return nil
}

// Restore moves the working tree back to a previously saved reference. If
// the saved reference no longer resolves, each fallback branch name is tried
// in order; the first success wins. Restore fails only when every strategy
// does.
func (t *Tree) Restore(saved Ref, fallbacks []string) error {
	wt, err := t.repo.Worktree()
	if err != nil {
		return &CheckoutError{Target: saved.Hash, Err: err}
	}

	var lastErr error
	if saved.IsBranch {
		lastErr = wt.Checkout(&git.CheckoutOptions{
			Branch: plumbing.NewBranchReferenceName(saved.Name),
			Force:  true,
		})
	} else {
		lastErr = wt.Checkout(&git.CheckoutOptions{
			Hash:  plumbing.NewHash(saved.Hash),
			Force: true,
		})
	}
	if lastErr == nil {
		return nil
	}

	for _, branch := range fallbacks {
		err := wt.Checkout(&git.CheckoutOptions{
			Branch: plumbing.NewBranchReferenceName(branch),
			Force:  true,
		})
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return &CheckoutError{Target: saved.Hash, Err: lastErr}
}

// log opens a committer-time-ordered iterator from HEAD. A repository with
// no commits yields ErrEmptyHistory.
func (t *Tree) log() (object.CommitIter, error) {
	iter, err := t.repo.Log(&git.LogOptions{Order: git.LogOrderCommitterTime})
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, ErrEmptyHistory
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	return iter, nil
}
