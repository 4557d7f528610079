package enum

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/praetorian-inc/dfamatch/pkg/types"
)

// testRepo is a git repository built with go-git for tests.
type testRepo struct {
	t    *testing.T
	root string
	repo *git.Repository
	when time.Time
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	root := t.TempDir()
	repo, err := git.PlainInit(root, false)
	if err != nil {
		t.Fatalf("failed to init git repo: %v", err)
	}
	return &testRepo{t: t, root: root, repo: repo, when: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// commit writes files, stages them and commits; an empty content removes
// the file.
func (r *testRepo) commit(message string, files map[string]string) {
	r.t.Helper()
	wt, err := r.repo.Worktree()
	if err != nil {
		r.t.Fatalf("failed to open worktree: %v", err)
	}
	for name, content := range files {
		path := filepath.Join(r.root, filepath.FromSlash(name))
		if content == "" {
			if _, err := wt.Remove(name); err != nil {
				r.t.Fatalf("failed to remove %s: %v", name, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			r.t.Fatalf("failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			r.t.Fatalf("failed to write %s: %v", name, err)
		}
		if _, err := wt.Add(name); err != nil {
			r.t.Fatalf("failed to add %s: %v", name, err)
		}
	}

	r.when = r.when.Add(time.Hour)
	sig := &object.Signature{Name: "Test User", Email: "test@example.com", When: r.when}
	if _, err := wt.Commit(message, &git.CommitOptions{Author: sig, Committer: sig}); err != nil {
		r.t.Fatalf("failed to commit: %v", err)
	}
}

func gitPaths(t *testing.T, e *GitEnumerator) ([]string, []types.GitProvenance) {
	t.Helper()
	var paths []string
	var provs []types.GitProvenance
	err := e.Enumerate(context.Background(), func(content []byte, blobID types.BlobID, prov types.Provenance) error {
		if blobID != types.ComputeBlobID(content) {
			t.Errorf("blob ID mismatch for %s", prov.Path())
		}
		gp, ok := prov.(types.GitProvenance)
		if !ok {
			t.Fatalf("expected GitProvenance, got %T", prov)
		}
		paths = append(paths, gp.BlobPath)
		provs = append(provs, gp)
		return nil
	})
	if err != nil {
		t.Fatalf("enumerate failed: %v", err)
	}
	slices.Sort(paths)
	return paths, provs
}

func TestGitEnumerator(t *testing.T) {
	r := newTestRepo(t)
	r.commit("Initial commit", map[string]string{
		"file1.txt":         "x = 12.5;",
		"file2.txt":         "color: #fff;",
		"subdir/nested.txt": "id_1 id_2",
	})

	paths, provs := gitPaths(t, NewGitEnumerator(Config{Root: r.root}))

	want := []string{"file1.txt", "file2.txt", "subdir/nested.txt"}
	if !slices.Equal(paths, want) {
		t.Errorf("got %v, want %v", paths, want)
	}
	for _, p := range provs {
		if p.RepoPath != r.root {
			t.Errorf("unexpected repo path: %s", p.RepoPath)
		}
		if p.Commit == nil {
			t.Fatal("commit metadata is nil")
		}
		if p.Commit.AuthorEmail != "test@example.com" {
			t.Errorf("unexpected author email: %s", p.Commit.AuthorEmail)
		}
		if p.Commit.Message != "Initial commit" {
			t.Errorf("unexpected message: %q", p.Commit.Message)
		}
	}
}

func TestGitEnumerator_HeadOnlyVersusHistory(t *testing.T) {
	r := newTestRepo(t)
	r.commit("add", map[string]string{"a.txt": "1", "b.txt": "2"})
	r.commit("change", map[string]string{"a.txt": "10"})
	r.commit("remove", map[string]string{"b.txt": ""})

	head, _ := gitPaths(t, NewGitEnumerator(Config{Root: r.root}))
	if !slices.Equal(head, []string{"a.txt"}) {
		t.Errorf("HEAD: got %v, want [a.txt]", head)
	}

	e := NewGitEnumerator(Config{Root: r.root})
	e.History = true
	all, _ := gitPaths(t, e)
	// a.txt at "10" and "1", b.txt at "2".
	if !slices.Equal(all, []string{"a.txt", "a.txt", "b.txt"}) {
		t.Errorf("history: got %v", all)
	}
}

func TestGitEnumerator_Revision(t *testing.T) {
	r := newTestRepo(t)
	r.commit("first", map[string]string{"a.txt": "1"})
	r.commit("second", map[string]string{"b.txt": "2"})

	e := NewGitEnumerator(Config{Root: r.root})
	e.Revision = "HEAD~1"
	paths, _ := gitPaths(t, e)
	if !slices.Equal(paths, []string{"a.txt"}) {
		t.Errorf("got %v, want [a.txt]", paths)
	}
}

func TestGitEnumerator_Filters(t *testing.T) {
	r := newTestRepo(t)
	r.commit("files", map[string]string{
		"text.txt":       "text content",
		"binary.bin":     "ab\x00cd",
		"large.txt":      "0123456789012345678901234567890123456789",
		".github/ci.yml": "on: push",
	})

	paths, _ := gitPaths(t, NewGitEnumerator(Config{Root: r.root, MaxFileSize: 20}))
	if !slices.Equal(paths, []string{"text.txt"}) {
		t.Errorf("got %v, want [text.txt]", paths)
	}

	paths, _ = gitPaths(t, NewGitEnumerator(Config{Root: r.root, IncludeHidden: true, IncludeBinary: true}))
	if len(paths) != 4 {
		t.Errorf("expected all 4 files, got %v", paths)
	}
}

func TestGitEnumerator_DuplicateBlobs(t *testing.T) {
	r := newTestRepo(t)
	r.commit("copies", map[string]string{"a.txt": "same", "b.txt": "same"})

	paths, _ := gitPaths(t, NewGitEnumerator(Config{Root: r.root}))
	if len(paths) != 1 {
		t.Errorf("identical blobs should be yielded once, got %v", paths)
	}
}

func TestGitEnumerator_NotARepository(t *testing.T) {
	e := NewGitEnumerator(Config{Root: t.TempDir()})
	err := e.Enumerate(context.Background(), func([]byte, types.BlobID, types.Provenance) error { return nil })
	if err == nil {
		t.Fatal("expected error for non-repository")
	}
}
