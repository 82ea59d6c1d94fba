package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowseTreeAndOpenFile(t *testing.T) {
	repo := newFakeRepo()
	c := newTestController(t, repo, Options{})

	require.NoError(t, c.LoadTree())
	require.NoError(t, c.OpenFile("README.md"))
	settle(t, c)

	b := c.Snapshot().Browse
	assert.True(t, b.Loaded)
	require.Len(t, b.Tree, 1)
	assert.Equal(t, "README.md", b.Path)
	assert.Equal(t, "# readme", b.Content)
	assert.Equal(t, "markdown", b.Language)

	require.NoError(t, c.ContentChanged("README.md", "# edited"))
	require.NoError(t, c.Flush("README.md"))
	settle(t, c)
	assert.Equal(t, "# edited", c.Snapshot().Browse.Content)

	require.NoError(t, c.OpenFile(""))
	assert.Equal(t, "", c.Snapshot().Browse.Path)
}

func TestBrowseOpenPrefersUnwrittenEdits(t *testing.T) {
	repo := newFakeRepo()
	c := newTestController(t, repo, Options{})

	require.NoError(t, c.ContentChanged("README.md", "draft"))
	require.NoError(t, c.OpenFile("README.md"))
	settle(t, c)
	assert.Equal(t, "draft", c.Snapshot().Browse.Content)
}

func TestSubscriptionReceivesInitialAndLatestSnapshot(t *testing.T) {
	repo := newFakeRepo()
	c := newTestController(t, repo, Options{})
	sub, err := c.Subscribe()
	require.NoError(t, err)
	defer sub.Close()

	first := <-sub.C
	require.NotNil(t, first.Snapshot)

	require.NoError(t, c.SelectCommit(commitByHash(t, repo, "a1")))
	settle(t, c)
	want := c.Snapshot().Revision

	for {
		select {
		case ev := <-sub.C:
			if ev.Snapshot != nil && ev.Snapshot.Revision == want {
				assert.Equal(t, []string{"a.txt"}, ev.Snapshot.Selection.ChangeList)
				return
			}
		case <-timeout():
			t.Fatal("latest snapshot never delivered")
		}
	}
}
