package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pmezard/go-difflib/difflib"
)

func (s *Service) FileVersions(ctx context.Context, hash, filePath string) (FileVersions, error) {
	p, err := cleanPath(filePath)
	if err != nil {
		return FileVersions{}, err
	}
	if hash == WorkingSetHash {
		return s.uncommittedVersions(p)
	}
	commit, err := s.resolveCommit(hash)
	if err != nil {
		return FileVersions{}, err
	}
	tree, err := commit.Tree()
	if err != nil {
		return FileVersions{}, err
	}
	var parentTree *object.Tree
	if commit.NumParents() > 0 {
		parent, err := commit.Parent(0)
		if err != nil {
			return FileVersions{}, err
		}
		if parentTree, err = parent.Tree(); err != nil {
			return FileVersions{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return FileVersions{}, err
	}
	original, err := contentFromTree(parentTree, p)
	if err != nil {
		return FileVersions{}, err
	}
	modified, err := contentFromTree(tree, p)
	if err != nil {
		return FileVersions{}, err
	}
	if s.opts.ContextLines < 0 {
		return FileVersions{Original: original, Modified: modified}, nil
	}
	return relevantChanges(original, modified, s.opts.ContextLines), nil
}

// uncommittedVersions pairs the HEAD content with the worktree content. Both
// sides are kept whole because the modified side is the editable buffer.
func (s *Service) uncommittedVersions(p string) (FileVersions, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tree, err := s.headTree()
	if err != nil {
		return FileVersions{}, err
	}
	original, err := contentFromTree(tree, p)
	if err != nil {
		return FileVersions{}, err
	}
	modified, _, err := s.readWorktreeFile(p)
	if err != nil {
		return FileVersions{}, err
	}
	return FileVersions{Original: original, Modified: modified}, nil
}

// FileContent returns the content of filePath at ref. An empty ref or HEAD
// reads the worktree, so unsaved-to-history edits are visible. Missing files
// yield an empty string.
func (s *Service) FileContent(ctx context.Context, ref, filePath string) (string, error) {
	p, err := cleanPath(filePath)
	if err != nil {
		return "", err
	}
	if ref == "" || ref == "HEAD" || ref == WorkingSetHash {
		s.mu.RLock()
		defer s.mu.RUnlock()
		content, _, err := s.readWorktreeFile(p)
		return content, err
	}
	commit, err := s.resolveCommit(ref)
	if err != nil {
		return "", err
	}
	tree, err := commit.Tree()
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return contentFromTree(tree, p)
}

func (s *Service) UpdateFileContent(ctx context.Context, filePath, content string) error {
	p, err := cleanPath(filePath)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeWorktreeFile(p, content, 0o644)
}

func (s *Service) readWorktreeFile(p string) (string, bool, error) {
	f, err := s.repo.fs.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", p, err)
	}
	return string(data), true, nil
}

func (s *Service) writeWorktreeFile(p, content string, perm os.FileMode) error {
	if dir := path.Dir(p); dir != "." {
		if err := s.repo.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := util.WriteFile(s.repo.fs, p, []byte(content), perm); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}

func contentFromTree(tree *object.Tree, p string) (string, error) {
	if tree == nil {
		return "", nil
	}
	f, err := tree.File(p)
	if errors.Is(err, object.ErrFileNotFound) || errors.Is(err, object.ErrDirectoryNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return f.Contents()
}

// relevantChanges reduces both sides to the changed regions plus context
// lines. Identical contents are returned unchanged.
func relevantChanges(original, modified string, context int) FileVersions {
	if original == modified {
		return FileVersions{Original: original, Modified: modified}
	}
	a := splitLines(original)
	b := splitLines(modified)
	matcher := difflib.NewMatcher(a, b)
	var oldSnippet, newSnippet []string
	for _, group := range matcher.GetGroupedOpCodes(context) {
		first, last := group[0], group[len(group)-1]
		oldSnippet = append(oldSnippet, a[first.I1:last.I2]...)
		newSnippet = append(newSnippet, b[first.J1:last.J2]...)
	}
	return FileVersions{
		Original: strings.Join(oldSnippet, "\n"),
		Modified: strings.Join(newSnippet, "\n"),
	}
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}
