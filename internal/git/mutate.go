package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	gitlib "github.com/go-git/go-git/v5"
	gitindex "github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
)

var ErrNoFiles = errors.New("no files specified")

// CreateCommit stages paths (deletions included) and records a commit.
func (s *Service) CreateCommit(ctx context.Context, paths []string, message string) (string, error) {
	if len(paths) == 0 {
		return "", ErrNoFiles
	}
	if message == "" {
		return "", fmt.Errorf("commit message is empty")
	}
	cleaned, err := cleanPaths(paths)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	wt, err := s.repo.Worktree()
	if err != nil {
		return "", err
	}
	for _, p := range cleaned {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if _, err := s.repo.fs.Lstat(p); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return "", err
			}
			idx, err := s.repo.Storer.Index()
			if err != nil {
				return "", err
			}
			if _, err := idx.Entry(p); err != nil {
				// removal already staged
				continue
			}
			if _, err := wt.Remove(p); err != nil {
				return "", fmt.Errorf("stage removal of %s: %w", p, err)
			}
			continue
		}
		if _, err := wt.Add(p); err != nil {
			return "", fmt.Errorf("stage %s: %w", p, err)
		}
	}
	author := &object.Signature{Name: s.opts.Author.Name, Email: s.opts.Author.Email, When: time.Now()}
	hash, err := wt.Commit(message, &gitlib.CommitOptions{Author: author})
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	slog.Debug("CreateCommit done", slog.String("hash", hash.String()), slog.Int("files", len(cleaned)))
	return hash.String(), nil
}

// RollbackFiles restores paths to their content at hash. An empty hash or
// the working-set sentinel restores them to HEAD, discarding local changes.
// Paths absent from the source tree are removed. The index is updated the
// same way `git checkout <rev> -- <paths>` does.
func (s *Service) RollbackFiles(ctx context.Context, hash string, paths []string) (string, error) {
	if len(paths) == 0 {
		return "", ErrNoFiles
	}
	cleaned, err := cleanPaths(paths)
	if err != nil {
		return "", err
	}
	var source *object.Tree
	if hash == "" || hash == WorkingSetHash {
		source, err = s.headTree()
	} else {
		var commit *object.Commit
		commit, err = s.resolveCommit(hash)
		if err == nil {
			source, err = commit.Tree()
		}
	}
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wt, err := s.repo.Worktree()
	if err != nil {
		return "", err
	}
	idx, err := s.repo.Storer.Index()
	if err != nil {
		return "", err
	}
	for _, p := range cleaned {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		var file *object.File
		if source != nil {
			file, err = source.File(p)
			if err != nil && !errors.Is(err, object.ErrFileNotFound) {
				return "", err
			}
		}
		if file == nil {
			if err := s.removeTracked(wt, idx, p); err != nil {
				return "", err
			}
			continue
		}
		content, err := file.Contents()
		if err != nil {
			return "", err
		}
		perm := os.FileMode(0o644)
		if mode, err := file.Mode.ToOSFileMode(); err == nil {
			perm = mode.Perm()
		}
		if err := s.writeWorktreeFile(p, content, perm); err != nil {
			return "", err
		}
		if _, err := wt.Add(p); err != nil {
			return "", fmt.Errorf("update index for %s: %w", p, err)
		}
	}
	slog.Debug("RollbackFiles done", slog.String("hash", hash), slog.Int("files", len(cleaned)))
	return fmt.Sprintf("Restored %d file(s)", len(cleaned)), nil
}

func (s *Service) removeTracked(wt *gitlib.Worktree, idx *gitindex.Index, p string) error {
	if _, err := idx.Entry(p); err == nil {
		if _, err := wt.Remove(p); err != nil {
			return fmt.Errorf("remove %s: %w", p, err)
		}
		return nil
	}
	if err := s.repo.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", p, err)
	}
	return nil
}

func cleanPaths(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		c, err := cleanPath(p)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}
