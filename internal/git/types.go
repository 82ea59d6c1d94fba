package git

import (
	"fmt"
	"strings"
	"time"
)

// WorkingSetHash identifies the pseudo-commit holding uncommitted changes.
const WorkingSetHash = "unstaged"

const workingSetMessage = "Local uncommitted changes"

type Signature struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	When  time.Time `json:"when"`
}

type Commit struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	Date    time.Time `json:"date"`
	Author  Signature `json:"author"`
	// Files is the optional pre-attached list of changed paths.
	Files []string `json:"files,omitempty"`
	// Refs holds decorations such as "HEAD -> main" or "tag: v1".
	Refs []string `json:"refs,omitempty"`
}

// WorkingSet builds the pseudo-commit that represents uncommitted changes.
func WorkingSet(files []string) Commit {
	return Commit{
		Hash:    WorkingSetHash,
		Message: workingSetMessage,
		Files:   append([]string(nil), files...),
	}
}

func (c Commit) IsWorkingSet() bool {
	return c.Hash == WorkingSetHash
}

func (c Commit) ShortHash() string {
	if len(c.Hash) > 7 && !c.IsWorkingSet() {
		return c.Hash[:7]
	}
	return c.Hash
}

// Summary returns the one-line text shown in commit lists.
func (c Commit) Summary() string {
	firstLine := strings.SplitN(strings.TrimSpace(c.Message), "\n", 2)[0]
	if runes := []rune(firstLine); len(runes) > 80 {
		firstLine = string(runes[:77]) + "..."
	}
	if c.IsWorkingSet() || c.Date.IsZero() {
		return fmt.Sprintf("%s  %s", c.ShortHash(), firstLine)
	}
	timestamp := c.Date.Format("2006-01-02 15:04")
	return fmt.Sprintf("%s  %s  %s", c.ShortHash(), timestamp, firstLine)
}

// FileVersions is the original/modified pair shown by a two-sided diff.
type FileVersions struct {
	Original string `json:"original"`
	Modified string `json:"modified"`
}

type TreeNode struct {
	Name      string     `json:"name"`
	Path      string     `json:"path"`
	Directory bool       `json:"directory"`
	Children  []TreeNode `json:"children,omitempty"`
}
