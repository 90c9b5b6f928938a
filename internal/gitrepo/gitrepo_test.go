package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// makeRepo builds a repository with one commit per entry in times, in order.
// Returns the tree and the commit hashes.
func makeRepo(t *testing.T, times []time.Time) (*Tree, []string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}

	var hashes []string
	for i, when := range times {
		name := fmt.Sprintf("file-%d.txt", i)
		if err := os.WriteFile(filepath.Join(dir, name), []byte(when.String()), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		if _, err := wt.Add(name); err != nil {
			t.Fatalf("Add: %v", err)
		}
		sig := &object.Signature{Name: "tester", Email: "tester@example.com", When: when}
		h, err := wt.Commit(fmt.Sprintf("commit %d", i), &git.CommitOptions{Author: sig, Committer: sig})
		if err != nil {
			t.Fatalf("Commit: %v", err)
		}
		hashes = append(hashes, h.String())
	}
	return &Tree{repo: repo, dir: dir}, hashes
}

func ts(day int) time.Time {
	return time.Date(2019, 6, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, day)
}

func TestFirstCommitTime(t *testing.T) {
	tree, _ := makeRepo(t, []time.Time{ts(0), ts(30), ts(90)})

	got, err := tree.FirstCommitTime()
	if err != nil {
		t.Fatalf("FirstCommitTime: %v", err)
	}
	if !got.Equal(ts(0)) {
		t.Errorf("FirstCommitTime = %v, want %v", got, ts(0))
	}
}

func TestFirstCommitTimeEmptyRepo(t *testing.T) {
	dir := t.TempDir()
	if _, err := git.PlainInit(dir, false); err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	tree, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	_, err = tree.FirstCommitTime()
	if !errors.Is(err, ErrEmptyHistory) {
		t.Errorf("err = %v, want ErrEmptyHistory", err)
	}
}

func TestCommitAtOrBefore(t *testing.T) {
	tree, hashes := makeRepo(t, []time.Time{ts(0), ts(30), ts(90)})

	tests := []struct {
		name   string
		target time.Time
		want   string
		ok     bool
	}{
		{"between commits", ts(45), hashes[1], true},
		{"exactly at commit", ts(30), hashes[1], true},
		{"after all commits", ts(365), hashes[2], true},
		{"before first commit", ts(-10), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := tree.CommitAtOrBefore(tt.target)
			if err != nil {
				t.Fatalf("CommitAtOrBefore: %v", err)
			}
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("hash = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCheckoutAndRestore(t *testing.T) {
	tree, hashes := makeRepo(t, []time.Time{ts(0), ts(30), ts(90)})

	before, err := tree.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if !before.IsBranch {
		t.Fatal("expected HEAD on a branch before checkout")
	}

	if err := tree.Checkout(hashes[0]); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	detached, err := tree.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if detached.IsBranch {
		t.Error("expected detached HEAD after checkout")
	}
	if detached.Hash != hashes[0] {
		t.Errorf("HEAD = %s, want %s", detached.Hash, hashes[0])
	}

	if err := tree.Restore(before, nil); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	after, err := tree.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if after.Hash != before.Hash {
		t.Errorf("restored HEAD = %s, want %s", after.Hash, before.Hash)
	}
	if !after.IsBranch || after.Name != before.Name {
		t.Errorf("restored ref = %+v, want %+v", after, before)
	}
}

func TestRestoreFallsBackToDefaultBranch(t *testing.T) {
	tree, hashes := makeRepo(t, []time.Time{ts(0), ts(30)})

	before, err := tree.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if err := tree.Checkout(hashes[0]); err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	// The saved reference names a branch that no longer exists; the
	// fallback chain recovers.
	gone := Ref{Name: "feature/deleted", IsBranch: true}
	if err := tree.Restore(gone, []string{"main", before.Name}); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	after, err := tree.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if after.Hash != before.Hash {
		t.Errorf("restored HEAD = %s, want %s", after.Hash, before.Hash)
	}
}

func TestRestoreAllStrategiesFail(t *testing.T) {
	tree, hashes := makeRepo(t, []time.Time{ts(0)})
	if err := tree.Checkout(hashes[0]); err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	gone := Ref{Name: "feature/deleted", IsBranch: true}
	err := tree.Restore(gone, []string{"also-gone"})
	if err == nil {
		t.Fatal("expected error when every restore strategy fails")
	}
	var ce *CheckoutError
	if !errors.As(err, &ce) {
		t.Errorf("err = %T, want *CheckoutError", err)
	}
}

func TestCloneLocalAndIdempotent(t *testing.T) {
	src, hashes := makeRepo(t, []time.Time{ts(0), ts(30)})
	dest := filepath.Join(t.TempDir(), "clone")

	tree, err := Clone(context.Background(), src.Dir(), dest)
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	head, err := tree.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head.Hash != hashes[1] {
		t.Errorf("cloned HEAD = %s, want %s", head.Hash, hashes[1])
	}

	// Cloning again over an existing repository opens it instead.
	again, err := Clone(context.Background(), src.Dir(), dest)
	if err != nil {
		t.Fatalf("second Clone: %v", err)
	}
	if again.Dir() != dest {
		t.Errorf("Dir = %q, want %q", again.Dir(), dest)
	}
}

func TestCloneUnreachable(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "clone")
	_, err := Clone(context.Background(), filepath.Join(t.TempDir(), "no-such-repo"), dest)
	if err == nil {
		t.Fatal("expected error cloning a missing source")
	}
	var ce *CloneError
	if !errors.As(err, &ce) {
		t.Errorf("err = %T, want *CloneError", err)
	}
}
