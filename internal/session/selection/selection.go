// Package selection holds the commit → file → versions selection and the
// tags that let asynchronous fetches detect they have gone stale.
package selection

import (
	"slices"

	"github.com/thiagokokada/gitdesk/internal/git"
)

type Step string

const (
	StepCommits Step = "commits"
	StepFiles   Step = "files"
	StepEditor  Step = "editor"
)

func (s Step) Valid() bool {
	switch s {
	case StepCommits, StepFiles, StepEditor:
		return true
	}
	return false
}

// Selection is a value snapshot; slices are never shared with State.
type Selection struct {
	Commit     *git.Commit      `json:"commit,omitempty"`
	File       string           `json:"file,omitempty"`
	ChangeList []string         `json:"changeList"`
	Versions   git.FileVersions `json:"versions"`
	Step       Step             `json:"step"`

	// ChangeListCommit and VersionsFile name what the displayed data was
	// fetched for; a failed refetch leaves older data in place.
	ChangeListCommit string `json:"changeListCommit,omitempty"`
	VersionsFile     string `json:"versionsFile,omitempty"`
}

func (s Selection) CommitHash() string {
	if s.Commit == nil {
		return ""
	}
	return s.Commit.Hash
}

func (s Selection) clone() Selection {
	out := s
	if s.Commit != nil {
		c := *s.Commit
		c.Files = slices.Clone(c.Files)
		c.Refs = slices.Clone(c.Refs)
		out.Commit = &c
	}
	out.ChangeList = slices.Clone(s.ChangeList)
	return out
}

// Tag identifies the selection a fetch was issued for.
type Tag struct {
	Commit string
	File   string
	Seq    uint64
}

// State is owned by a single goroutine and is not safe for concurrent use.
type State struct {
	sel       Selection
	commitSeq uint64
	fileSeq   uint64
}

func (s *State) Current() Selection {
	return s.sel.clone()
}

func (s *State) HasCommit() bool {
	return s.sel.Commit != nil
}

func (s *State) CommitHash() string {
	return s.sel.CommitHash()
}

func (s *State) File() string {
	return s.sel.File
}

// SetCommit selects c and synchronously drops the file and its versions.
// The returned tag must accompany the change-list fetch for c.
func (s *State) SetCommit(c git.Commit) Tag {
	c.Files = slices.Clone(c.Files)
	c.Refs = slices.Clone(c.Refs)
	s.sel.Commit = &c
	s.sel.File = ""
	s.sel.Versions = git.FileVersions{}
	s.sel.VersionsFile = ""
	s.sel.Step = StepFiles
	s.commitSeq++
	s.fileSeq++
	return s.ListTag()
}

// SetFile selects path within the current commit. It reports false when no
// commit is selected. An empty path clears the file and its versions.
func (s *State) SetFile(path string) (Tag, bool) {
	if s.sel.Commit == nil {
		return Tag{}, false
	}
	s.fileSeq++
	s.sel.File = path
	if path == "" {
		s.sel.Versions = git.FileVersions{}
		s.sel.VersionsFile = ""
		s.sel.Step = StepFiles
		return Tag{}, true
	}
	s.sel.Step = StepEditor
	return s.VersionsTag(), true
}

func (s *State) ListTag() Tag {
	return Tag{Commit: s.CommitHash(), Seq: s.commitSeq}
}

func (s *State) VersionsTag() Tag {
	return Tag{Commit: s.CommitHash(), File: s.sel.File, Seq: s.fileSeq}
}

func (s *State) ListCurrent(tag Tag) bool {
	return s.sel.Commit != nil && tag == s.ListTag()
}

func (s *State) VersionsCurrent(tag Tag) bool {
	return s.sel.Commit != nil && s.sel.File != "" && tag == s.VersionsTag()
}

// ApplyChangeList stores files when tag is still current.
func (s *State) ApplyChangeList(tag Tag, files []string) bool {
	if !s.ListCurrent(tag) {
		return false
	}
	s.sel.ChangeList = slices.Clone(files)
	s.sel.ChangeListCommit = tag.Commit
	return true
}

// ApplyVersions stores v when tag is still current.
func (s *State) ApplyVersions(tag Tag, v git.FileVersions) bool {
	if !s.VersionsCurrent(tag) {
		return false
	}
	s.sel.Versions = v
	s.sel.VersionsFile = tag.File
	return true
}

// SetModified reflects a persisted edit into the modified side when path is
// still the selected file of the working set. Historical versions never
// carry worktree content.
func (s *State) SetModified(path, content string) bool {
	if path == "" || s.sel.File != path || s.sel.VersionsFile != path {
		return false
	}
	if s.sel.Commit == nil || !s.sel.Commit.IsWorkingSet() {
		return false
	}
	if s.sel.Versions.Modified == content {
		return false
	}
	s.sel.Versions.Modified = content
	return true
}

// ReplaceCommit swaps in a fresh instance of the selected commit without
// invalidating in-flight fetches.
func (s *State) ReplaceCommit(c git.Commit) bool {
	if s.sel.Commit == nil || s.sel.Commit.Hash != c.Hash {
		return false
	}
	c.Files = slices.Clone(c.Files)
	c.Refs = slices.Clone(c.Refs)
	s.sel.Commit = &c
	return true
}

func (s *State) Back() bool {
	switch s.sel.Step {
	case StepEditor:
		s.sel.Step = StepFiles
	case StepFiles:
		s.sel.Step = StepCommits
	default:
		return false
	}
	return true
}

func (s *State) Clear() {
	s.sel = Selection{Step: StepCommits}
	s.commitSeq++
	s.fileSeq++
}

// Restore installs a previously persisted selection. Sequences advance so
// nothing issued before the restore can apply afterwards.
func (s *State) Restore(sel Selection) {
	s.sel = sel.clone()
	if !s.sel.Step.Valid() {
		s.sel.Step = StepCommits
	}
	if s.sel.Commit == nil {
		s.sel.File = ""
		s.sel.Versions = git.FileVersions{}
	}
	s.commitSeq++
	s.fileSeq++
}
