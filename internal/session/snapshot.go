package session

import (
	"slices"

	"github.com/thiagokokada/gitdesk/internal/git"
	"github.com/thiagokokada/gitdesk/internal/session/selection"
)

// Snapshot is an immutable view of the controller state.
type Snapshot struct {
	Revision uint64 `json:"revision"`
	// Commits starts with the working-set pseudo-commit.
	Commits       []git.Commit              `json:"commits"`
	Loaded        bool                      `json:"loaded"`
	Selection     selection.Selection       `json:"selection"`
	Language      string                    `json:"language,omitempty"`
	Mutations     map[MutationKind]Workflow `json:"mutations"`
	Browse        Browse                    `json:"browse"`
	PendingWrites []string                  `json:"pendingWrites,omitempty"`
}

// State is the part of a snapshot worth restoring in a later session.
type State struct {
	Commits   []git.Commit
	Selection selection.Selection
}

func (s Snapshot) State() State {
	return State{
		Commits:   slices.Clone(s.Commits),
		Selection: s.Selection,
	}
}

func (c *Controller) commitList() []git.Commit {
	out := make([]git.Commit, 0, len(c.commits)+1)
	out = append(out, git.WorkingSet(c.uncommitted))
	return append(out, c.commits...)
}

func (c *Controller) snapshot() Snapshot {
	sel := c.sel.Current()
	mutations := make(map[MutationKind]Workflow, len(c.mutations))
	for kind, wf := range c.mutations {
		mutations[kind] = wf.view()
	}
	return Snapshot{
		Revision:      c.revision,
		Commits:       c.commitList(),
		Loaded:        c.loaded,
		Selection:     sel,
		Language:      languageFor(sel.File),
		Mutations:     mutations,
		Browse:        c.browse.view(),
		PendingWrites: c.writer.pending(),
	}
}
