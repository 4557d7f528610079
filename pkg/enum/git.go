package enum

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/praetorian-inc/dfamatch/pkg/types"
)

// GitEnumerator enumerates blobs from a git repository.
type GitEnumerator struct {
	config Config

	// Revision is the commit to enumerate when History is false.
	Revision string

	// History walks every commit reachable from any reference instead of a
	// single revision. Each blob is yielded once, attributed to the first
	// commit it was seen in.
	History bool
}

// NewGitEnumerator creates a git enumerator for the tree at HEAD.
func NewGitEnumerator(config Config) *GitEnumerator {
	return &GitEnumerator{
		config:   config,
		Revision: "HEAD",
	}
}

// Enumerate yields the unique blobs of the selected commits.
func (e *GitEnumerator) Enumerate(ctx context.Context, fn BlobFunc) error {
	repo, err := git.PlainOpenWithOptions(e.config.Root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return fmt.Errorf("opening git repository: %w", err)
	}

	seen := make(map[plumbing.Hash]struct{})

	if !e.History {
		hash, err := repo.ResolveRevision(plumbing.Revision(e.Revision))
		if err != nil {
			return fmt.Errorf("resolving %s: %w", e.Revision, err)
		}
		commit, err := repo.CommitObject(*hash)
		if err != nil {
			return fmt.Errorf("reading commit %s: %w", hash, err)
		}
		return e.enumerateCommit(ctx, commit, seen, fn)
	}

	commits, err := repo.Log(&git.LogOptions{All: true, Order: git.LogOrderCommitterTime})
	if err != nil {
		return fmt.Errorf("reading history: %w", err)
	}
	defer commits.Close()

	err = commits.ForEach(func(commit *object.Commit) error {
		return e.enumerateCommit(ctx, commit, seen, fn)
	})
	if errors.Is(err, storer.ErrStop) {
		return nil
	}
	return err
}

func (e *GitEnumerator) enumerateCommit(ctx context.Context, commit *object.Commit, seen map[plumbing.Hash]struct{}, fn BlobFunc) error {
	tree, err := commit.Tree()
	if err != nil {
		return fmt.Errorf("reading tree of %s: %w", commit.Hash, err)
	}

	meta := commitMetadata(commit)
	err = tree.Files().ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := seen[f.Hash]; ok {
			return nil
		}
		seen[f.Hash] = struct{}{}

		if e.config.MaxFileSize > 0 && f.Size > e.config.MaxFileSize {
			return nil
		}
		if !e.config.IncludeHidden && hasHiddenElement(f.Name) {
			return nil
		}

		content, err := f.Contents()
		if err != nil {
			return fmt.Errorf("reading %s: %w", f.Name, err)
		}
		data := []byte(content)
		if !e.config.IncludeBinary && isBinary(data) {
			return nil
		}

		return fn(data, types.ComputeBlobID(data), types.GitProvenance{
			RepoPath: e.config.Root,
			Commit:   meta,
			BlobPath: f.Name,
		})
	})
	if err != nil {
		return fmt.Errorf("walking tree of %s: %w", commit.Hash, err)
	}
	return nil
}

func commitMetadata(c *object.Commit) *types.CommitMetadata {
	return &types.CommitMetadata{
		CommitID:           c.Hash.String(),
		AuthorName:         c.Author.Name,
		AuthorEmail:        c.Author.Email,
		AuthorTimestamp:    c.Author.When,
		CommitterName:      c.Committer.Name,
		CommitterEmail:     c.Committer.Email,
		CommitterTimestamp: c.Committer.When,
		Message:            c.Message,
	}
}

// hasHiddenElement reports whether any element of a slash-separated tree
// path is hidden.
func hasHiddenElement(path string) bool {
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '/' {
			if isHidden(path[start:i]) {
				return true
			}
			start = i + 1
		}
	}
	return false
}
