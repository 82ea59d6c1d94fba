package session

import (
	"context"

	"github.com/thiagokokada/gitdesk/internal/git"
)

// Repository is the remote side of a session. Implementations must be safe
// for concurrent use; the session issues overlapping calls.
type Repository interface {
	ListCommits(ctx context.Context) ([]git.Commit, error)
	ListUncommittedChanges(ctx context.Context) ([]string, error)
	ListChangedFiles(ctx context.Context, hash string) ([]string, error)
	FileVersions(ctx context.Context, hash, path string) (git.FileVersions, error)
	FileContent(ctx context.Context, ref, path string) (string, error)
	UpdateFileContent(ctx context.Context, path, content string) error
	CreateCommit(ctx context.Context, paths []string, message string) (string, error)
	RollbackFiles(ctx context.Context, hash string, paths []string) (string, error)
	RepositoryTree(ctx context.Context) ([]git.TreeNode, error)
}
