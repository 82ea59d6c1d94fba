package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/thiagokokada/gitdesk/internal/git"
	"github.com/thiagokokada/gitdesk/internal/session/selection"
)

// SelectCommit selects commit, dropping the selected file and its versions,
// and fetches the files it changed.
func (c *Controller) SelectCommit(commit git.Commit) error {
	return c.loop.call(func() error {
		c.selectCommit(commit)
		return nil
	})
}

// SelectCommitHash selects a commit from the known commit list.
func (c *Controller) SelectCommitHash(hash string) error {
	return c.loop.call(func() error {
		for _, commit := range c.commitList() {
			if commit.Hash == hash {
				c.selectCommit(commit)
				return nil
			}
		}
		return validationError("select commit", fmt.Errorf("%w: %s", git.ErrUnknownCommit, hash))
	})
}

// SelectFile selects path within the selected commit. An empty path clears
// the file and its versions.
func (c *Controller) SelectFile(path string) error {
	return c.loop.call(func() error {
		return c.selectFile(path)
	})
}

func (c *Controller) ClearSelection() error {
	return c.loop.call(func() error {
		c.sel.Clear()
		c.changed()
		return nil
	})
}

func (c *Controller) Dispatch(msg selection.Message) error {
	switch m := msg.(type) {
	case selection.CommitSelected:
		return c.SelectCommit(m.Commit)
	case selection.FileSelected:
		return c.SelectFile(m.Path)
	case selection.SelectionCleared:
		return c.ClearSelection()
	case nil:
		return validationError("dispatch", errors.New("nil message"))
	default:
		return validationError("dispatch", fmt.Errorf("unsupported message %T", msg))
	}
}

// Refresh refetches the commit history and the working-set listing.
func (c *Controller) Refresh() error {
	return c.loop.call(func() error {
		c.refresh()
		return nil
	})
}

// Back moves the single-pane view one step up.
func (c *Controller) Back() error {
	return c.loop.call(func() error {
		if c.sel.Back() {
			c.changed()
		}
		return nil
	})
}

// Hydrate installs a previously saved state and revalidates it against the
// repository. Fresh results replace whatever was restored.
func (c *Controller) Hydrate(st State) error {
	return c.loop.call(func() error {
		c.commits = nil
		for _, commit := range st.Commits {
			if commit.IsWorkingSet() {
				c.uncommitted = slices.Clone(commit.Files)
				continue
			}
			c.commits = append(c.commits, commit)
		}
		c.sel.Restore(st.Selection)
		c.changed()
		c.refresh()
		if c.sel.HasCommit() {
			c.fetchChangeList(c.sel.ListTag())
			if c.sel.File() != "" {
				c.fetchVersions(c.sel.VersionsTag())
			}
		}
		return nil
	})
}

// Reset returns the controller to its initial state. Pending writes still
// complete.
func (c *Controller) Reset() error {
	return c.loop.call(func() error {
		c.sel.Clear()
		c.commits = nil
		c.uncommitted = nil
		c.loaded = false
		c.refreshSeq++
		c.listingSeq++
		for _, wf := range c.mutations {
			wf.reset()
		}
		c.browse.reset()
		c.changed()
		return nil
	})
}

func (c *Controller) selectCommit(commit git.Commit) {
	tag := c.sel.SetCommit(commit)
	slog.Debug("commit selected", slog.String("hash", commit.Hash))
	c.changed()
	c.fetchChangeList(tag)
}

func (c *Controller) selectFile(path string) error {
	tag, ok := c.sel.SetFile(path)
	if !ok {
		return validationError("select file", ErrNoCommit)
	}
	slog.Debug("file selected", slog.String("path", path))
	c.changed()
	if path != "" {
		c.fetchVersions(tag)
	}
	return nil
}

func (c *Controller) fetchChangeList(tag selection.Tag) {
	hash := tag.Commit
	call := func(ctx context.Context) ([]string, error) {
		if hash == git.WorkingSetHash {
			return c.repo.ListUncommittedChanges(ctx)
		}
		return c.repo.ListChangedFiles(ctx, hash)
	}
	fetch(c, call, func(files []string, err error) {
		if !c.sel.ListCurrent(tag) {
			slog.Debug("dropping stale change list", slog.String("hash", hash), slog.Any("error", err))
			return
		}
		if err != nil {
			c.notify(errorNotice(&Error{Kind: KindSelectionFetch, Op: "list changed files for " + shortHash(hash), Err: err}))
			return
		}
		c.sel.ApplyChangeList(tag, files)
		if hash == git.WorkingSetHash {
			c.uncommitted = slices.Clone(files)
			c.sel.ReplaceCommit(git.WorkingSet(files))
		}
		c.changed()
	})
}

func (c *Controller) fetchVersions(tag selection.Tag) {
	call := func(ctx context.Context) (git.FileVersions, error) {
		return c.repo.FileVersions(ctx, tag.Commit, tag.File)
	}
	fetch(c, call, func(v git.FileVersions, err error) {
		if !c.sel.VersionsCurrent(tag) {
			slog.Debug("dropping stale file versions",
				slog.String("hash", tag.Commit),
				slog.String("path", tag.File),
				slog.Any("error", err),
			)
			return
		}
		if err != nil {
			c.notify(errorNotice(&Error{Kind: KindSelectionFetch, Op: "load versions", Path: tag.File, Err: err}))
			return
		}
		if tag.Commit == git.WorkingSetHash {
			// Unwritten edits are newer than what the repository holds.
			if content, ok := c.writer.latest(tag.File); ok {
				v.Modified = content
			}
		}
		c.sel.ApplyVersions(tag, v)
		c.changed()
	})
}

func (c *Controller) refresh() {
	c.refreshSeq++
	seq := c.refreshSeq
	fetch(c, c.repo.ListCommits, func(commits []git.Commit, err error) {
		if seq != c.refreshSeq {
			slog.Debug("dropping stale commit list")
			return
		}
		if err != nil {
			c.notify(errorNotice(&Error{Kind: KindSelectionFetch, Op: "list commits", Err: err}))
			return
		}
		c.commits = commits
		c.loaded = true
		c.reconcileSelectedCommit()
		c.changed()
	})
	c.refreshUncommitted()
}

func (c *Controller) refreshUncommitted() {
	c.listingSeq++
	seq := c.listingSeq
	tag := c.sel.ListTag()
	fetch(c, c.repo.ListUncommittedChanges, func(files []string, err error) {
		if seq != c.listingSeq {
			slog.Debug("dropping stale working-set listing")
			return
		}
		if err != nil {
			c.notify(errorNotice(&Error{Kind: KindSelectionFetch, Op: "list uncommitted changes", Err: err}))
			return
		}
		c.uncommitted = files
		if tag.Commit == git.WorkingSetHash && c.sel.ApplyChangeList(tag, files) {
			c.sel.ReplaceCommit(git.WorkingSet(files))
		}
		c.changed()
	})
}

// reconcileSelectedCommit swaps the selected commit for its fresh instance,
// or clears the selection when it is no longer part of the history.
func (c *Controller) reconcileSelectedCommit() {
	hash := c.sel.CommitHash()
	if hash == "" || hash == git.WorkingSetHash {
		return
	}
	idx := slices.IndexFunc(c.commits, func(commit git.Commit) bool { return commit.Hash == hash })
	if idx >= 0 {
		c.sel.ReplaceCommit(c.commits[idx])
		return
	}
	slog.Debug("selected commit vanished from history", slog.String("hash", hash))
	c.sel.Clear()
}

func shortHash(hash string) string {
	return git.Commit{Hash: hash}.ShortHash()
}
