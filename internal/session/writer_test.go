package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagokokada/gitdesk/internal/git"
)

func TestEditsAreDebouncedPerPath(t *testing.T) {
	repo := newFakeRepo()
	c := newTestController(t, repo, Options{Debounce: 20 * time.Millisecond})

	require.NoError(t, c.ContentChanged("dirty.txt", "one"))
	require.NoError(t, c.ContentChanged("dirty.txt", "two"))
	require.NoError(t, c.ContentChanged("dirty.txt", "three"))

	eventually(t, func() bool { return len(repo.writesSnapshot()) == 1 }, "debounced write never happened")
	settle(t, c)
	time.Sleep(50 * time.Millisecond)
	settle(t, c)

	writes := repo.writesSnapshot()
	require.Len(t, writes, 1)
	assert.Equal(t, fakeWrite{path: "dirty.txt", content: "three"}, writes[0])
	assert.Empty(t, c.Snapshot().PendingWrites)
}

func TestFlushWritesImmediately(t *testing.T) {
	repo := newFakeRepo()
	c := newTestController(t, repo, Options{})

	require.NoError(t, c.ContentChanged("a.txt", "A"))
	assert.Equal(t, []string{"a.txt"}, c.Snapshot().PendingWrites)
	require.NoError(t, c.Flush("a.txt"))
	settle(t, c)

	assert.Equal(t, []fakeWrite{{path: "a.txt", content: "A"}}, repo.writesSnapshot())
	assert.Empty(t, c.Snapshot().PendingWrites)
}

func TestFlushDuringInflightWriteIsQueuedAndSuperseded(t *testing.T) {
	repo := newFakeRepo()
	c := newTestController(t, repo, Options{})
	gate := repo.hold("UpdateFileContent:a.txt")

	require.NoError(t, c.ContentChanged("a.txt", "v1"))
	require.NoError(t, c.Flush("a.txt"))
	eventually(t, func() bool { return repo.callCount("UpdateFileContent") == 1 }, "first write not started")

	require.NoError(t, c.ContentChanged("a.txt", "v2"))
	require.NoError(t, c.Flush("a.txt"))
	require.NoError(t, c.ContentChanged("a.txt", "v3"))
	require.NoError(t, c.Flush("a.txt"))
	assert.Equal(t, 1, repo.callCount("UpdateFileContent"), "second write must wait for the first")

	close(gate)
	settle(t, c)

	assert.Equal(t, []fakeWrite{
		{path: "a.txt", content: "v1"},
		{path: "a.txt", content: "v3"},
	}, repo.writesSnapshot())
}

func TestWriteReflectedOnlyIntoSelectedFile(t *testing.T) {
	repo := newFakeRepo()
	c := newTestController(t, repo, Options{})
	require.NoError(t, c.SelectCommit(git.WorkingSet(nil)))
	require.NoError(t, c.SelectFile("dirty.txt"))
	settle(t, c)

	require.NoError(t, c.ContentChanged("dirty.txt", "edited"))
	require.NoError(t, c.Flush("dirty.txt"))
	settle(t, c)
	assert.Equal(t, git.FileVersions{Original: "clean", Modified: "edited"}, c.Snapshot().Selection.Versions)

	require.NoError(t, c.ContentChanged("other.txt", "zzz"))
	require.NoError(t, c.Flush("other.txt"))
	settle(t, c)
	assert.Equal(t, "edited", c.Snapshot().Selection.Versions.Modified)
}

func TestWriteNotReflectedIntoHistoricalVersions(t *testing.T) {
	repo := newFakeRepo()
	c := newTestController(t, repo, Options{})
	require.NoError(t, c.SelectCommit(commitByHash(t, repo, "b2")))
	require.NoError(t, c.SelectFile("b.txt"))
	settle(t, c)

	require.NoError(t, c.ContentChanged("b.txt", "worktree text"))
	require.NoError(t, c.Flush("b.txt"))
	settle(t, c)

	assert.Equal(t, []fakeWrite{{path: "b.txt", content: "worktree text"}}, repo.writesSnapshot())
	assert.Equal(t, git.FileVersions{Original: "b0", Modified: "b1"}, c.Snapshot().Selection.Versions)
}

func TestSwitchingSelectionKeepsPendingFlush(t *testing.T) {
	repo := newFakeRepo()
	c := newTestController(t, repo, Options{Debounce: 20 * time.Millisecond})
	require.NoError(t, c.SelectCommit(git.WorkingSet(nil)))
	require.NoError(t, c.SelectFile("dirty.txt"))
	settle(t, c)

	require.NoError(t, c.ContentChanged("dirty.txt", "kept"))
	require.NoError(t, c.SelectCommit(commitByHash(t, repo, "b2")))

	eventually(t, func() bool { return len(repo.writesSnapshot()) == 1 }, "pending write was dropped")
	settle(t, c)
	assert.Equal(t, "kept", repo.writesSnapshot()[0].content)
	assert.Equal(t, "b2", c.Snapshot().Selection.CommitHash())
}

func TestFailedWritePublishesNotice(t *testing.T) {
	repo := newFakeRepo()
	repo.setFail("UpdateFileContent", errors.New("disk full"))
	c := newTestController(t, repo, Options{})
	sub, err := c.Subscribe()
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, c.ContentChanged("a.txt", "x"))
	require.NoError(t, c.Flush("a.txt"))
	settle(t, c)

	n := waitNotice(t, sub)
	assert.Equal(t, KindWrite, n.Kind)
	assert.ErrorIs(t, n.Err, ErrWrite)
	assert.Contains(t, n.Message, "a.txt")
	assert.Equal(t, 1, repo.callCount("UpdateFileContent"), "failed writes are not retried")
	assert.Empty(t, c.Snapshot().PendingWrites)
}

func TestCloseFlushesPendingEdits(t *testing.T) {
	repo := newFakeRepo()
	c := New(repo, Options{Debounce: time.Hour})

	require.NoError(t, c.ContentChanged("a.txt", "A"))
	require.NoError(t, c.ContentChanged("b.txt", "B"))
	require.NoError(t, c.Close(t.Context()))

	assert.ElementsMatch(t, []fakeWrite{
		{path: "a.txt", content: "A"},
		{path: "b.txt", content: "B"},
	}, repo.writesSnapshot())
	assert.ErrorIs(t, c.Refresh(), ErrClosed)
}

func TestContentChangedRejectsEmptyPath(t *testing.T) {
	c := newTestController(t, newFakeRepo(), Options{})
	assert.ErrorIs(t, c.ContentChanged("", "x"), ErrValidation)
}
