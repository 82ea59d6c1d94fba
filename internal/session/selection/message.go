package selection

import "github.com/thiagokokada/gitdesk/internal/git"

// Message is a selection change requested by a view.
type Message interface {
	isMessage()
}

type CommitSelected struct {
	Commit git.Commit
}

type FileSelected struct {
	Path string
}

type SelectionCleared struct{}

func (CommitSelected) isMessage()   {}
func (FileSelected) isMessage()     {}
func (SelectionCleared) isMessage() {}
