package session

import (
	"errors"
	"fmt"
	"log/slog"
)

type Kind string

const (
	KindSelectionFetch Kind = "SelectionFetch"
	KindWrite          Kind = "Write"
	KindMutation       Kind = "Mutation"
	KindValidation     Kind = "Validation"
)

var (
	ErrSelectionFetch = errors.New("selection fetch failed")
	ErrWrite          = errors.New("write failed")
	ErrMutation       = errors.New("mutation failed")
	ErrValidation     = errors.New("invalid request")

	ErrBusy         = errors.New("another mutation is being submitted")
	ErrNoCommit     = errors.New("no commit selected")
	ErrNoTargets    = errors.New("no files selected")
	ErrEmptyMessage = errors.New("commit message is empty")
	ErrClosed       = errors.New("session closed")
)

// Error carries the failing operation and, when relevant, the file path.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrSelectionFetch:
		return e.Kind == KindSelectionFetch
	case ErrWrite:
		return e.Kind == KindWrite
	case ErrMutation:
		return e.Kind == KindMutation
	case ErrValidation:
		return e.Kind == KindValidation
	}
	return false
}

func validationError(op string, err error) error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

// Notice reports the outcome of asynchronous work to subscribers.
type Notice struct {
	Level   slog.Level `json:"level"`
	Kind    Kind       `json:"kind,omitempty"`
	Message string     `json:"message"`
	Err     error      `json:"-"`
}

func errorNotice(err *Error) Notice {
	return Notice{Level: slog.LevelError, Kind: err.Kind, Message: err.Error(), Err: err}
}

func infoNotice(kind Kind, msg string) Notice {
	return Notice{Level: slog.LevelInfo, Kind: kind, Message: msg}
}
