package session

import (
	"context"
	"slices"

	"github.com/thiagokokada/gitdesk/internal/git"
)

// Browse is the repository tree mode: the worktree listing and one open file.
type Browse struct {
	Tree     []git.TreeNode `json:"tree,omitempty"`
	Loaded   bool           `json:"loaded"`
	Path     string         `json:"path,omitempty"`
	Content  string         `json:"content"`
	Language string         `json:"language,omitempty"`
}

type browseState struct {
	Browse
	treeSeq uint64
	fileSeq uint64
}

func (b *browseState) reset() {
	b.Browse = Browse{}
	b.treeSeq++
	b.fileSeq++
}

func (b *browseState) view() Browse {
	out := b.Browse
	out.Tree = slices.Clone(b.Tree)
	out.Language = languageFor(b.Path)
	return out
}

// LoadTree fetches the worktree listing.
func (c *Controller) LoadTree() error {
	return c.loop.call(func() error {
		c.browse.treeSeq++
		seq := c.browse.treeSeq
		fetch(c, c.repo.RepositoryTree, func(tree []git.TreeNode, err error) {
			if seq != c.browse.treeSeq {
				return
			}
			if err != nil {
				c.notify(errorNotice(&Error{Kind: KindSelectionFetch, Op: "load repository tree", Err: err}))
				return
			}
			c.browse.Tree = tree
			c.browse.Loaded = true
			c.changed()
		})
		return nil
	})
}

// OpenFile opens path from the worktree for editing. An empty path closes
// the open file.
func (c *Controller) OpenFile(path string) error {
	return c.loop.call(func() error {
		c.browse.fileSeq++
		seq := c.browse.fileSeq
		c.browse.Path = path
		c.browse.Content = ""
		c.changed()
		if path == "" {
			return nil
		}
		call := func(ctx context.Context) (string, error) {
			return c.repo.FileContent(ctx, "", path)
		}
		fetch(c, call, func(content string, err error) {
			if seq != c.browse.fileSeq {
				return
			}
			if err != nil {
				c.notify(errorNotice(&Error{Kind: KindSelectionFetch, Op: "open", Path: path, Err: err}))
				return
			}
			if latest, ok := c.writer.latest(path); ok {
				content = latest
			}
			c.browse.Content = content
			c.changed()
		})
		return nil
	})
}
