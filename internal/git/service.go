package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	DefaultBatch        = 1000
	DefaultContextLines = 3
)

var (
	ErrInvalidPath   = errors.New("invalid path")
	ErrUnknownCommit = errors.New("unknown commit")
)

// Options tunes a Service. Zero values select the defaults.
type Options struct {
	// CommitLimit caps ListCommits; 0 means DefaultBatch.
	CommitLimit int
	// ContextLines is the number of unchanged lines kept around each change
	// in historical FileVersions; a negative value keeps full contents.
	ContextLines int
	Author       Signature
}

type Service struct {
	// mu serializes worktree and index mutations. Reads of the index or
	// worktree take the read lock so they never see a half-written index.
	mu sync.RWMutex

	repo repoState
	opts Options
}

type repoState struct {
	*gitlib.Repository
	path string
	fs   billy.Filesystem
}

func Open(repoPath string, opts Options) (*Service, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	repo, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	svc, err := New(repo, opts)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// New wraps an already opened repository. The repository must have a worktree.
func New(repo *gitlib.Repository, opts Options) (*Service, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}
	if opts.CommitLimit <= 0 {
		opts.CommitLimit = DefaultBatch
	}
	if opts.ContextLines == 0 {
		opts.ContextLines = DefaultContextLines
	}
	if opts.Author.Name == "" {
		opts.Author.Name = "gitdesk"
	}
	if opts.Author.Email == "" {
		opts.Author.Email = "gitdesk@localhost"
	}
	return &Service{
		repo: repoState{Repository: repo, path: wt.Filesystem.Root(), fs: wt.Filesystem},
		opts: opts,
	}, nil
}

func (s *Service) RepoPath() string {
	return s.repo.path
}

func (s *Service) ListCommits(ctx context.Context) ([]Commit, error) {
	ref, err := s.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	iter, err := s.repo.Log(&gitlib.LogOptions{From: ref.Hash(), Order: gitlib.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("read commits: %w", err)
	}
	defer iter.Close()

	labels, err := s.refLabels()
	if err != nil {
		slog.Debug("branch labels unavailable", slog.Any("error", err))
		labels = nil
	}
	commits := make([]Commit, 0, min(s.opts.CommitLimit, 64))
	for len(commits) < s.opts.CommitLimit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := iter.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("iterate commits: %w", err)
		}
		commit := newCommit(c)
		commit.Refs = labels[commit.Hash]
		commits = append(commits, commit)
	}
	slog.Debug("ListCommits done", slog.Int("returned", len(commits)))
	return commits, nil
}

func (s *Service) ListChangedFiles(ctx context.Context, hash string) ([]string, error) {
	if hash == WorkingSetHash {
		return s.ListUncommittedChanges(ctx)
	}
	commit, err := s.resolveCommit(hash)
	if err != nil {
		return nil, err
	}
	currentTree, err := commit.Tree()
	if err != nil {
		return nil, err
	}
	var parentTree *object.Tree
	if commit.NumParents() > 0 {
		parent, err := commit.Parent(0)
		if err != nil {
			return nil, err
		}
		parentTree, err = parent.Tree()
		if err != nil {
			return nil, err
		}
	}
	changes, err := object.DiffTreeWithOptions(ctx, parentTree, currentTree, nil)
	if err != nil {
		return nil, fmt.Errorf("diff commit %s: %w", hash, err)
	}
	files := make([]string, 0, len(changes))
	for _, ch := range changes {
		name := ch.To.Name
		if name == "" {
			name = ch.From.Name
		}
		if name != "" && !slices.Contains(files, name) {
			files = append(files, name)
		}
	}
	return files, nil
}

func (s *Service) ListUncommittedChanges(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wt, err := s.repo.Worktree()
	if err != nil {
		return nil, err
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("worktree status: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var paths []string
	for p, st := range status {
		staged := st.Staging != gitlib.Unmodified && st.Staging != gitlib.Untracked
		local := st.Worktree != gitlib.Unmodified && st.Worktree != gitlib.Untracked
		if staged || local {
			paths = append(paths, p)
		}
	}
	slices.Sort(paths)
	return paths, nil
}

func (s *Service) RepositoryTree(ctx context.Context) ([]TreeNode, error) {
	return s.listDirectory(ctx, "")
}

func (s *Service) listDirectory(ctx context.Context, dir string) ([]TreeNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := s.repo.fs.ReadDir(dirOrRoot(dir))
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}
	nodes := make([]TreeNode, 0, len(infos))
	for _, info := range infos {
		name := info.Name()
		if name == gitlib.GitDirName {
			continue
		}
		node := TreeNode{Name: name, Path: path.Join(dir, name), Directory: info.IsDir()}
		if node.Directory {
			node.Children, err = s.listDirectory(ctx, node.Path)
			if err != nil {
				return nil, err
			}
		}
		nodes = append(nodes, node)
	}
	slices.SortFunc(nodes, func(a, b TreeNode) int {
		if a.Directory != b.Directory {
			if a.Directory {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
	return nodes, nil
}

func (s *Service) resolveCommit(hash string) (*object.Commit, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, fmt.Errorf("commit not specified")
	}
	h, err := s.repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommit, hash)
	}
	commit, err := s.repo.CommitObject(*h)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnknownCommit, hash, err)
	}
	return commit, nil
}

// headTree returns nil without error when the repository has no commits yet.
func (s *Service) headTree() (*object.Tree, error) {
	ref, err := s.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, err
	}
	commit, err := s.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, err
	}
	return commit.Tree()
}

func newCommit(c *object.Commit) Commit {
	return Commit{
		Hash:    c.Hash.String(),
		Message: c.Message,
		Date:    c.Author.When,
		Author:  Signature{Name: c.Author.Name, Email: c.Author.Email, When: c.Author.When},
	}
}

// cleanPath normalizes a repository-relative path and rejects escapes.
func cleanPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	p = path.Clean(filepath.ToSlash(p))
	if !filepath.IsLocal(filepath.FromSlash(p)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, p)
	}
	if p == gitlib.GitDirName || strings.HasPrefix(p, gitlib.GitDirName+"/") {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, p)
	}
	return p, nil
}

func dirOrRoot(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}
