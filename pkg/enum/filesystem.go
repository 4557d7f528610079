package enum

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	gitignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/sync/errgroup"

	"github.com/praetorian-inc/dfamatch/pkg/types"
)

// FilesystemEnumerator enumerates files under a directory, or a single file.
type FilesystemEnumerator struct {
	config Config
}

// NewFilesystemEnumerator creates a new filesystem enumerator.
func NewFilesystemEnumerator(config Config) *FilesystemEnumerator {
	return &FilesystemEnumerator{config: config}
}

// Enumerate collects eligible paths in a sequential walk, then reads them
// concurrently and hands each one to fn.
func (e *FilesystemEnumerator) Enumerate(ctx context.Context, fn BlobFunc) error {
	paths, err := e.collect(ctx)
	if err != nil {
		return err
	}

	workers := e.config.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return e.processFile(gctx, path, fn)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// collect walks the root and returns the files that pass the filters.
func (e *FilesystemEnumerator) collect(ctx context.Context) ([]string, error) {
	root := e.config.Root
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		if e.tooLarge(info.Size()) {
			return nil, nil
		}
		return []string{root}, nil
	}

	var ignore *gitignore.GitIgnore
	if _, err := os.Stat(filepath.Join(root, ".gitignore")); err == nil {
		ignore, err = gitignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
		if err != nil {
			return nil, fmt.Errorf("reading .gitignore: %w", err)
		}
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == root {
			return nil
		}

		if !e.config.IncludeHidden && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if ignore != nil {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			if d.IsDir() {
				rel += string(filepath.Separator)
			}
			if ignore.MatchesPath(rel) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			if !e.config.FollowSymlinks {
				return nil
			}
			if info, err = os.Stat(path); err != nil || !info.Mode().IsRegular() {
				return nil
			}
		}
		if !info.Mode().IsRegular() || e.tooLarge(info.Size()) {
			return nil
		}

		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

func (e *FilesystemEnumerator) tooLarge(size int64) bool {
	return e.config.MaxFileSize > 0 && size > e.config.MaxFileSize
}

// processFile reads a single file and invokes fn.
func (e *FilesystemEnumerator) processFile(ctx context.Context, path string, fn BlobFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file %s: %w", path, err)
	}
	if !e.config.IncludeBinary && isBinary(content) {
		return nil
	}

	return fn(content, types.ComputeBlobID(content), types.FileProvenance{FilePath: path})
}
