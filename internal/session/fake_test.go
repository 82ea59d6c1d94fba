package session

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thiagokokada/gitdesk/internal/git"
)

type fakeWrite struct {
	path    string
	content string
}

type fakeCommit struct {
	paths   []string
	message string
}

type fakeRollback struct {
	hash  string
	paths []string
}

// fakeRepo answers from in-memory maps. Calls can be held on a gate keyed by
// "Method" or "Method:arg" and forced to fail by the same keys.
type fakeRepo struct {
	mu          sync.Mutex
	commits     []git.Commit
	uncommitted []string
	changed     map[string][]string
	versions    map[string]git.FileVersions
	content     map[string]string
	tree        []git.TreeNode
	fail        map[string]error
	gates       map[string]chan struct{}
	calls       []string
	writes      []fakeWrite
	created     []fakeCommit
	rolledBack  []fakeRollback
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		commits: []git.Commit{
			{Hash: "b2", Message: "second", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
			{Hash: "a1", Message: "first", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
		uncommitted: []string{"dirty.txt"},
		changed: map[string][]string{
			"a1": {"a.txt"},
			"b2": {"b.txt", "c.txt"},
		},
		versions: map[string]git.FileVersions{
			"a1\x00a.txt":           {Original: "", Modified: "a"},
			"b2\x00b.txt":           {Original: "b0", Modified: "b1"},
			"b2\x00c.txt":           {Original: "c0", Modified: "c1"},
			"unstaged\x00dirty.txt": {Original: "clean", Modified: "dirty"},
		},
		content: map[string]string{"dirty.txt": "dirty", "README.md": "# readme"},
		tree: []git.TreeNode{
			{Name: "README.md", Path: "README.md"},
		},
		fail:  map[string]error{},
		gates: map[string]chan struct{}{},
	}
}

func (f *fakeRepo) hold(key string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[key] = ch
	return ch
}

func (f *fakeRepo) setFail(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[key] = err
}

func (f *fakeRepo) enter(ctx context.Context, method, arg string) error {
	key := method + ":" + arg
	f.mu.Lock()
	f.calls = append(f.calls, key)
	gate := f.gates[key]
	if gate == nil {
		gate = f.gates[method]
	}
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[key]; err != nil {
		return err
	}
	return f.fail[method]
}

func (f *fakeRepo) callCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (f *fakeRepo) ListCommits(ctx context.Context) ([]git.Commit, error) {
	if err := f.enter(ctx, "ListCommits", ""); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.commits), nil
}

func (f *fakeRepo) ListUncommittedChanges(ctx context.Context) ([]string, error) {
	if err := f.enter(ctx, "ListUncommittedChanges", ""); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.uncommitted), nil
}

func (f *fakeRepo) ListChangedFiles(ctx context.Context, hash string) ([]string, error) {
	if err := f.enter(ctx, "ListChangedFiles", hash); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	files, ok := f.changed[hash]
	if !ok {
		return nil, fmt.Errorf("unknown commit %s", hash)
	}
	return slices.Clone(files), nil
}

func (f *fakeRepo) FileVersions(ctx context.Context, hash, path string) (git.FileVersions, error) {
	if err := f.enter(ctx, "FileVersions", hash+"/"+path); err != nil {
		return git.FileVersions{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.versions[hash+"\x00"+path], nil
}

func (f *fakeRepo) FileContent(ctx context.Context, ref, path string) (string, error) {
	if err := f.enter(ctx, "FileContent", path); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.content[path], nil
}

func (f *fakeRepo) UpdateFileContent(ctx context.Context, path, content string) error {
	if err := f.enter(ctx, "UpdateFileContent", path); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, fakeWrite{path: path, content: content})
	f.content[path] = content
	return nil
}

func (f *fakeRepo) CreateCommit(ctx context.Context, paths []string, message string) (string, error) {
	if err := f.enter(ctx, "CreateCommit", ""); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, fakeCommit{paths: slices.Clone(paths), message: message})
	f.commits = append([]git.Commit{{Hash: "c3", Message: message}}, f.commits...)
	f.uncommitted = slices.DeleteFunc(f.uncommitted, func(p string) bool { return slices.Contains(paths, p) })
	return "c3c3c3c3c3", nil
}

func (f *fakeRepo) RollbackFiles(ctx context.Context, hash string, paths []string) (string, error) {
	if err := f.enter(ctx, "RollbackFiles", ""); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rolledBack = append(f.rolledBack, fakeRollback{hash: hash, paths: slices.Clone(paths)})
	return fmt.Sprintf("Restored %d file(s)", len(paths)), nil
}

func (f *fakeRepo) RepositoryTree(ctx context.Context) ([]git.TreeNode, error) {
	if err := f.enter(ctx, "RepositoryTree", ""); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.tree), nil
}

func (f *fakeRepo) writesSnapshot() []fakeWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.writes)
}

func newTestController(t *testing.T, repo Repository, opts Options) *Controller {
	t.Helper()
	if opts.Debounce == 0 {
		opts.Debounce = time.Hour
	}
	c := New(repo, opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.Close(ctx)
	})
	return c
}

func settle(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Wait(ctx))
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 5*time.Second, 5*time.Millisecond, msg)
}

func commitByHash(t *testing.T, repo *fakeRepo, hash string) git.Commit {
	t.Helper()
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, c := range repo.commits {
		if c.Hash == hash {
			return c
		}
	}
	t.Fatalf("no commit %s", hash)
	return git.Commit{}
}

func timeout() <-chan time.Time {
	return time.After(5 * time.Second)
}
